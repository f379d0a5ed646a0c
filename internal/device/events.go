package device

import (
	"context"
	"time"
)

// ChangePatch is the Change.Kind recorded for PATCH updates. Actions use
// their action name.
const ChangePatch = "patch"

// Change describes a committed device mutation.
type Change struct {
	// ID uniquely identifies the event.
	ID        string    `json:"id"`
	DeviceID  int       `json:"device_id"`
	Kind      string    `json:"change"`
	Device    Device    `json:"device"`
	Timestamp time.Time `json:"timestamp"`
}

// Observer is notified after a mutation has been written to the store.
// Errors are logged by the Service and never reach the client.
type Observer interface {
	DeviceChanged(ctx context.Context, change Change) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, change Change) error

// DeviceChanged calls f.
func (f ObserverFunc) DeviceChanged(ctx context.Context, change Change) error {
	return f(ctx, change)
}
