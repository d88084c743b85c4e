// Package mqtt connects HomeBot to an MQTT broker.
//
// The broker is optional. When mqtt.enabled is set:
//   - EventPublisher mirrors every router event to {prefix}/events/{event},
//     so other services can follow device changes without a WebSocket
//   - SensorIngest subscribes to {prefix}/sensors/+/reading and stores each
//     reading through the sensor service, so ESP32-style nodes can publish
//     instead of calling the REST API
//
// The Client keeps subscriptions across reconnects and publishes a
// retained online/offline status on {prefix}/system/status, with a Last
// Will so an unclean exit is visible too.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	events := mqtt.NewEventPublisher(client, client.Topics(), client.QoS(), logger)
//	go events.Run(ctx)
//
//	ingest := mqtt.NewSensorIngest(sensors, client.Topics())
//	err = ingest.Start(client, client.QoS())
package mqtt
