package device

import (
	"context"
	"fmt"
)

// Logger defines the logging interface used by the device package.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store persists the registry as a whole ordered collection.
//
// All errors wrap ErrStorage.
type Store interface {
	// Read loads the full registry in stored order.
	Read(ctx context.Context) ([]Device, error)

	// Write replaces the full registry.
	Write(ctx context.Context, devices []Device) error

	// Update runs fn on the current registry and stores the collection it
	// returns. No other Update or Write can run between the read and the
	// write. When fn returns an error nothing is written and that error is
	// returned unchanged.
	Update(ctx context.Context, fn func([]Device) ([]Device, error)) error
}

// checkRegistry enforces id uniqueness across the collection.
func checkRegistry(devices []Device) error {
	seen := make(map[int]struct{}, len(devices))
	for _, d := range devices {
		if _, dup := seen[d.ID]; dup {
			return fmt.Errorf("%w: duplicate device id %d", ErrStorage, d.ID)
		}
		seen[d.ID] = struct{}{}
	}
	return nil
}
