// Package mqtt publishes Chimera registry events to an MQTT broker.
//
// The client connects with auto-reconnect, registers a Last Will on
// chimera/system/status so subscribers notice a crash, and publishes device
// change events to chimera/core/device/{id}/updated.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.PublishJSON(mqtt.Topics{}.DeviceUpdated(7), change)
//
// TLS should be enabled (cfg.Broker.TLS) whenever the broker is not on the
// local host.
package mqtt
