package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when no device has the requested id.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrUnknownGroup is returned when a patch selects a group id that is not
	// in the group table.
	ErrUnknownGroup = errors.New("device: unknown group id")

	// ErrUnknownAction is returned for an action name other than isolate,
	// release or toggle_block.
	ErrUnknownAction = errors.New("device: unknown action")

	// ErrInvalidCategory is returned when toggle_block names no category or
	// a category missing from the device's blocklist.
	ErrInvalidCategory = errors.New("device: unknown or missing blocklist category")

	// ErrInvalidPatch is returned when a recognised patch field has the wrong type.
	ErrInvalidPatch = errors.New("device: invalid patch")

	// ErrInvalidGroupTable is returned when a group table fails validation.
	ErrInvalidGroupTable = errors.New("device: invalid group table")

	// ErrStorage is returned when the registry cannot be read or written.
	ErrStorage = errors.New("device: registry storage failure")
)

// IsValidationError reports whether err was caused by bad client input.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrUnknownGroup) ||
		errors.Is(err, ErrUnknownAction) ||
		errors.Is(err, ErrInvalidCategory) ||
		errors.Is(err, ErrInvalidPatch)
}
