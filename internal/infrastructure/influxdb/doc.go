// Package influxdb mirrors sensor readings into InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. When
// influxdb.enabled is set, the sensor service hands every reading it stores
// to Client.WriteSensorReading, which queues a sensor_reading point
// (fields temperature, humidity, ldr; tag sensor) on the batched write API.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//	sensors.SetMirror(client)
//
// # Error Handling
//
// Writes never block and never fail the caller. Batch errors arrive
// asynchronously through the SetOnError callback. Connection and health
// check errors are returned directly.
package influxdb
