package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/homebot/homebot-core/internal/sensor"
)

// ingestTimeout bounds the store write for one received reading.
const ingestTimeout = 5 * time.Second

// Subscriber is the subscribe half of Client.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// SensorRecorder stores readings. sensor.Service implements it.
type SensorRecorder interface {
	Record(ctx context.Context, r *sensor.Reading, source string) error
}

// readingMessage is what a sensor node publishes. ID and TimeRecorded
// are optional: a missing id is generated from the topic's sensor id and
// a missing time means now.
type readingMessage struct {
	ID           string   `json:"id"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	LdrValue     *float64 `json:"ldrValue"`
	TimeRecorded string   `json:"timeRecorded"`
}

// SensorIngest stores readings published on {prefix}/sensors/+/reading.
type SensorIngest struct {
	recorder SensorRecorder
	topics   Topics
	now      func() time.Time
}

// NewSensorIngest creates an ingest handler.
func NewSensorIngest(recorder SensorRecorder, topics Topics) *SensorIngest {
	return &SensorIngest{
		recorder: recorder,
		topics:   topics,
		now:      time.Now,
	}
}

// Start subscribes the handler on sub.
func (s *SensorIngest) Start(sub Subscriber, qos byte) error {
	return sub.Subscribe(s.topics.AllSensorReadings(), qos, s.Handle)
}

// Handle decodes one message and records it. Errors are returned to the
// client wrapper, which logs them.
func (s *SensorIngest) Handle(topic string, payload []byte) error {
	sensorID, ok := s.topics.SensorIDFromTopic(topic)
	if !ok {
		return fmt.Errorf("unexpected sensor topic %q", topic)
	}

	r, err := s.decode(sensorID, payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()
	return s.recorder.Record(ctx, r, sensor.SourceMQTT)
}

func (s *SensorIngest) decode(sensorID string, payload []byte) (*sensor.Reading, error) {
	var msg readingMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: decoding payload: %w", sensor.ErrInvalidReading, err)
	}
	if msg.Temperature == nil || msg.Humidity == nil || msg.LdrValue == nil {
		return nil, fmt.Errorf("%w: temperature, humidity and ldrValue are required", sensor.ErrInvalidReading)
	}

	r := &sensor.Reading{
		ID:          strings.TrimSpace(msg.ID),
		Temperature: *msg.Temperature,
		Humidity:    *msg.Humidity,
		LdrValue:    *msg.LdrValue,
	}
	if r.ID == "" {
		r.ID = sensorID + "-" + uuid.NewString()
	}
	if msg.TimeRecorded == "" {
		r.TimeRecorded = s.now().UTC()
	} else {
		t, err := sensor.ParseTimestamp(msg.TimeRecorded)
		if err != nil {
			return nil, fmt.Errorf("%w: timeRecorded: %w", sensor.ErrInvalidReading, err)
		}
		r.TimeRecorded = t
	}
	return r, nil
}
