package device

import "fmt"

// Action is a named blocklist operation applied to a single device.
type Action string

// Supported actions.
const (
	// ActionIsolate blocks every category.
	ActionIsolate Action = "isolate"

	// ActionRelease unblocks every category except safe search.
	ActionRelease Action = "release"

	// ActionToggleBlock flips one named category.
	ActionToggleBlock Action = "toggle_block"
)

// SafeSearchCategory is forced on by both isolate and release.
const SafeSearchCategory = "safesearch"

// Apply returns a copy of d with the action performed. category is only
// used by toggle_block. d is never modified.
func (a Action) Apply(d Device, category string) (Device, error) {
	out := d.Clone()
	if out.Blocklist == nil {
		out.Blocklist = make(map[string]bool)
	}

	switch a {
	case ActionIsolate:
		setAll(out.Blocklist, true)
	case ActionRelease:
		setAll(out.Blocklist, false)
	case ActionToggleBlock:
		current, ok := out.Blocklist[category]
		if category == "" || !ok {
			return Device{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
		}
		out.Blocklist[category] = !current
	default:
		return Device{}, fmt.Errorf("%w: %q", ErrUnknownAction, string(a))
	}

	out.HasCustomBlocklist = true
	return out, nil
}

// setAll sets every category to blocked, then forces safe search on. The
// safe search entry is added if the device lacks it.
func setAll(blocklist map[string]bool, blocked bool) {
	for k := range blocklist {
		blocklist[k] = blocked
	}
	blocklist[SafeSearchCategory] = true
}
