package device

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Service implements the device operations on top of a Store.
//
// Every call reads the registry from the store; nothing is cached between
// calls. Mutations run through Store.Update and observers are notified only
// after the write has succeeded.
type Service struct {
	store     Store
	groups    *GroupTable
	observers []Observer
	logger    Logger
	now       func() time.Time
}

// NewService creates a service over store using the given group table.
// A nil table selects the built-in groups.
func NewService(store Store, groups *GroupTable) *Service {
	if groups == nil {
		groups = DefaultGroups()
	}
	return &Service{
		store:  store,
		groups: groups,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// AddObserver registers o for change notifications. Not safe to call
// concurrently with mutations; register observers during startup.
func (s *Service) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// List returns the full registry in stored order.
func (s *Service) List(ctx context.Context) ([]Device, error) {
	return s.store.Read(ctx)
}

// Get returns the device with the given id.
func (s *Service) Get(ctx context.Context, id int) (Device, error) {
	devices, err := s.store.Read(ctx)
	if err != nil {
		return Device{}, err
	}
	idx := indexOf(devices, id)
	if idx < 0 {
		return Device{}, fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
	}
	return devices[idx], nil
}

// Summarize aggregates the current registry.
func (s *Service) Summarize(ctx context.Context) (Summary, error) {
	devices, err := s.store.Read(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(devices), nil
}

// Groups returns the group table ordered by id.
func (s *Service) Groups() []Group {
	return s.groups.All()
}

// Patch merges p into the device with the given id and returns the result.
func (s *Service) Patch(ctx context.Context, id int, p Patch) (Device, error) {
	return s.mutate(ctx, id, ChangePatch, func(d Device) (Device, error) {
		return p.Apply(d, s.groups)
	})
}

// ApplyAction performs action on the device with the given id. category
// is only used by toggle_block.
func (s *Service) ApplyAction(ctx context.Context, id int, action Action, category string) (Device, error) {
	return s.mutate(ctx, id, string(action), func(d Device) (Device, error) {
		return action.Apply(d, category)
	})
}

// HealthCheck verifies the registry can be read. Stores with their own
// HealthCheck are asked first.
func (s *Service) HealthCheck(ctx context.Context) error {
	if hc, ok := s.store.(interface{ HealthCheck(context.Context) error }); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return err
		}
	}
	_, err := s.store.Read(ctx)
	return err
}

// mutate locates id inside a store update, replaces it with the result of
// fn, and announces the change once the update has committed.
func (s *Service) mutate(ctx context.Context, id int, kind string, fn func(Device) (Device, error)) (Device, error) {
	var updated Device
	err := s.store.Update(ctx, func(devices []Device) ([]Device, error) {
		idx := indexOf(devices, id)
		if idx < 0 {
			return nil, fmt.Errorf("%w: %d", ErrDeviceNotFound, id)
		}
		next, err := fn(devices[idx])
		if err != nil {
			return nil, err
		}
		devices[idx] = next
		updated = next
		return devices, nil
	})
	if err != nil {
		return Device{}, err
	}

	s.logger.Info("device updated", "device_id", id, "change", kind)
	s.notify(ctx, Change{
		ID:        uuid.NewString(),
		DeviceID:  id,
		Kind:      kind,
		Device:    updated.Clone(),
		Timestamp: s.now().UTC(),
	})
	return updated, nil
}

func (s *Service) notify(ctx context.Context, change Change) {
	for _, o := range s.observers {
		if err := o.DeviceChanged(ctx, change); err != nil {
			s.logger.Warn("change observer failed",
				"device_id", change.DeviceID,
				"change", change.Kind,
				"error", err,
			)
		}
	}
}

func indexOf(devices []Device, id int) int {
	for i := range devices {
		if devices[i].ID == id {
			return i
		}
	}
	return -1
}
