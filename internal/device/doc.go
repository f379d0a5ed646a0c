// Package device implements the Chimera device registry.
//
// The registry is an ordered collection of network devices, each with a
// friendly name, a group assignment and a per-category content blocklist.
// It is persisted as a whole through a Store:
//
//   - JSONStore keeps a single JSON array on disk.
//   - SQLiteStore keeps one row per device in SQLite.
//
// Service exposes the operations used by the HTTP API: List, Get,
// Summarize, Patch, ApplyAction and Groups. Mutations are applied to a copy
// of the device inside Store.Update, so a failed validation never reaches
// the store and concurrent mutations cannot overwrite each other.
//
// # Usage
//
//	groups, err := device.LoadGroupTable(cfg.Registry.GroupsFile)
//	if err != nil {
//	    return err
//	}
//	svc := device.NewService(device.NewJSONStore(cfg.Registry.Path), groups)
//	svc.SetLogger(log)
//
//	updated, err := svc.ApplyAction(ctx, 7, device.ActionIsolate, "")
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // 404
//	}
//
// Committed changes are announced to registered Observers (WebSocket hub,
// MQTT, InfluxDB, metrics).
package device
