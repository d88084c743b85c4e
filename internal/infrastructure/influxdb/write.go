package influxdb

import (
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement and tag names for mirrored sensor readings.
const (
	sensorMeasurement = "sensor_reading"
	sensorTag         = "sensor"
)

// WriteSensorReading mirrors one stored reading as a sensor_reading point
// tagged with the reading id, timestamped at recorded. It satisfies
// sensor.Mirror.
//
// The write is non-blocking; points are batched and sent asynchronously.
// Nothing is written while the client is disconnected.
func (c *Client) WriteSensorReading(id string, temperature, humidity, ldrValue float64, recorded time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(sensorPoint(id, temperature, humidity, ldrValue, recorded))
}

func sensorPoint(id string, temperature, humidity, ldrValue float64, recorded time.Time) *write.Point {
	return influxdb2.NewPointWithMeasurement(sensorMeasurement).
		AddTag(sensorTag, id).
		AddField("temperature", temperature).
		AddField("humidity", humidity).
		AddField("ldr", ldrValue).
		SetTime(recorded.UTC())
}
