// Package influxdb records Chimera registry changes as time-series points.
//
// Every committed patch or action becomes one point in the device_changes
// measurement, tagged by device id, change kind and group, with the number
// of blocked categories and the custom-blocklist flag as fields. Writes are
// batched and non-blocking; asynchronous failures go to the SetOnError
// callback.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // history disabled
//	}
//	defer client.Close()
//
//	client.WriteDeviceChange(influxdb.DeviceChange{DeviceID: 7, Change: "isolate"})
package influxdb
