package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of every HomeBot topic.
const DefaultTopicPrefix = "homebot"

// Topics builds HomeBot MQTT topics under a configurable prefix.
// Using these helpers keeps topic naming consistent across publishers and
// subscribers:
//
//	topics := mqtt.NewTopics("homebot")
//	topics.Event("device:added")      // homebot/events/device:added
//	topics.SensorReading("esp32-01")  // homebot/sensors/esp32-01/reading
type Topics struct {
	prefix string
}

// NewTopics returns a builder rooted at prefix. An empty prefix means
// DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// SystemStatus returns the retained online/offline status topic.
//
// Example: homebot/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.Prefix())
}

// Event returns the topic a router event is mirrored to.
//
// Example: homebot/events/device:state-changed
func (t Topics) Event(event string) string {
	return fmt.Sprintf("%s/events/%s", t.Prefix(), event)
}

// SensorReading returns the topic a sensor node publishes readings on.
//
// Example: homebot/sensors/esp32-01/reading
func (t Topics) SensorReading(sensorID string) string {
	return fmt.Sprintf("%s/sensors/%s/reading", t.Prefix(), sensorID)
}

// AllSensorReadings returns a pattern matching every sensor's readings.
//
// Pattern: homebot/sensors/+/reading
func (t Topics) AllSensorReadings() string {
	return fmt.Sprintf("%s/sensors/+/reading", t.Prefix())
}

// AllEvents returns a pattern matching every mirrored event.
//
// Pattern: homebot/events/+
func (t Topics) AllEvents() string {
	return fmt.Sprintf("%s/events/+", t.Prefix())
}

// SensorIDFromTopic extracts the sensor id from a reading topic. It
// returns false for topics outside the sensors/{id}/reading layout.
func (t Topics) SensorIDFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, t.Prefix()+"/sensors/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/reading")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}
