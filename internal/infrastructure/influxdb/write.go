package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementDeviceChanges holds one point per committed registry change.
const MeasurementDeviceChanges = "device_changes"

// DeviceChange is the audit record written for a registry mutation.
type DeviceChange struct {
	DeviceID           int
	Change             string
	Group              string
	BlockedCategories  int
	HasCustomBlocklist bool
	Timestamp          time.Time
}

// WriteDeviceChange queues a device_changes point. Non-blocking; failures
// are reported through SetOnError. Dropped silently when not connected.
//
//	client.WriteDeviceChange(influxdb.DeviceChange{DeviceID: 7, Change: "isolate", ...})
func (c *Client) WriteDeviceChange(change DeviceChange) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(deviceChangePoint(change))
}

// deviceChangePoint builds the point for change. device_id, change and
// group are tags; the blocklist state is stored as fields.
func deviceChangePoint(change DeviceChange) *write.Point {
	ts := change.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(
		MeasurementDeviceChanges,
		map[string]string{
			"device_id": strconv.Itoa(change.DeviceID),
			"change":    change.Change,
			"group":     change.Group,
		},
		map[string]interface{}{
			"blocked_categories":   change.BlockedCategories,
			"has_custom_blocklist": change.HasCustomBlocklist,
		},
		ts,
	)
}
