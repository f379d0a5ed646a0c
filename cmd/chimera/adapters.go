package main

import (
	"context"

	"github.com/nerrad567/chimera-core/internal/device"
	"github.com/nerrad567/chimera-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/chimera-core/internal/infrastructure/mqtt"
)

// changePublisher is the subset of *mqtt.Client used to announce changes.
type changePublisher interface {
	PublishJSON(topic string, v any) error
}

// mqttObserver publishes each committed change on the device's update topic.
type mqttObserver struct {
	pub changePublisher
}

func newMQTTObserver(pub changePublisher) *mqttObserver {
	return &mqttObserver{pub: pub}
}

// DeviceChanged implements device.Observer.
func (o *mqttObserver) DeviceChanged(_ context.Context, change device.Change) error {
	return o.pub.PublishJSON(mqtt.Topics{}.DeviceUpdated(change.DeviceID), change)
}

// changeRecorder is the subset of *influxdb.Client used to audit changes.
type changeRecorder interface {
	WriteDeviceChange(change influxdb.DeviceChange)
}

// influxObserver writes one device_changes point per committed change.
type influxObserver struct {
	rec changeRecorder
}

func newInfluxObserver(rec changeRecorder) *influxObserver {
	return &influxObserver{rec: rec}
}

// DeviceChanged implements device.Observer. Writes are batched and
// asynchronous, so failures surface through the client's error callback.
func (o *influxObserver) DeviceChanged(_ context.Context, change device.Change) error {
	o.rec.WriteDeviceChange(influxdb.DeviceChange{
		DeviceID:           change.DeviceID,
		Change:             change.Kind,
		Group:              change.Device.Group.Name,
		BlockedCategories:  change.Device.BlockedCount(),
		HasCustomBlocklist: change.Device.HasCustomBlocklist,
		Timestamp:          change.Timestamp,
	})
	return nil
}
