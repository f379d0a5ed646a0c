package device

import (
	"bytes"
	"encoding/json"
	"maps"
)

// Device is one entry of the registry.
//
// Fields the API does not model are kept in Extra and written back unchanged,
// so a read followed by a write never drops data from the registry document.
type Device struct {
	// ID is assigned outside this service and never changes.
	ID        int    `json:"id"`
	GivenName string `json:"given_name"`

	// IsActive reflects connectivity. Read-only here.
	IsActive bool `json:"is_active"`

	// Group is a copy of a group table entry, never edited field by field.
	Group Group `json:"group"`

	// Blocklist maps content category to blocked state. Keys are fixed per
	// device; only values change.
	Blocklist map[string]bool `json:"blocklist"`

	// HasCustomBlocklist becomes true on the first blocklist change and stays true.
	HasCustomBlocklist bool `json:"has_custom_blocklist"`

	AIClassification Classification `json:"ai_classification"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Classification is the read-only device classification record.
type Classification struct {
	DeviceCategory string `json:"device_category"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Group is a device group definition.
type Group struct {
	ID        int    `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	IsDefault bool   `json:"is_default" yaml:"is_default"`
}

var (
	deviceKeys = []string{
		"id", "given_name", "is_active", "group",
		"blocklist", "has_custom_blocklist", "ai_classification",
	}
	classificationKeys = []string{"device_category"}
)

// deviceFields has Device's fields without its JSON methods.
type deviceFields Device

type classificationFields Classification

// MarshalJSON writes the modelled fields followed by any preserved extras.
func (d Device) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(deviceFields(d), d.Extra)
}

// UnmarshalJSON reads the modelled fields and keeps everything else in Extra.
func (d *Device) UnmarshalJSON(data []byte) error {
	var fields deviceFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := splitExtra(data, deviceKeys)
	if err != nil {
		return err
	}
	fields.Extra = extra
	*d = Device(fields)
	return nil
}

func (c Classification) MarshalJSON() ([]byte, error) {
	return marshalWithExtra(classificationFields(c), c.Extra)
}

func (c *Classification) UnmarshalJSON(data []byte) error {
	var fields classificationFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	extra, err := splitExtra(data, classificationKeys)
	if err != nil {
		return err
	}
	fields.Extra = extra
	*c = Classification(fields)
	return nil
}

// Clone returns a copy of d that shares no maps with it.
func (d Device) Clone() Device {
	out := d
	out.Blocklist = maps.Clone(d.Blocklist)
	out.Extra = maps.Clone(d.Extra)
	out.AIClassification.Extra = maps.Clone(d.AIClassification.Extra)
	return out
}

// BlockedCount returns how many blocklist categories are blocked.
func (d Device) BlockedCount() int {
	n := 0
	for _, blocked := range d.Blocklist {
		if blocked {
			n++
		}
	}
	return n
}

// splitExtra returns the top-level members of the JSON object in data whose
// names are not in known, or nil when there are none.
func splitExtra(data []byte, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(raw, k)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return raw, nil
}

// marshalWithExtra encodes fields as an object and appends the extra members.
// Extras never collide with modelled names because splitExtra removes them.
func marshalWithExtra(fields any, extra map[string]json.RawMessage) ([]byte, error) {
	base, err := encodeJSON(fields)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return base, nil
	}
	rest, err := encodeJSON(extra)
	if err != nil {
		return nil, err
	}

	// {"a":1} + {"x":2} -> {"a":1,"x":2}
	out := make([]byte, 0, len(base)+len(rest))
	out = append(out, base[:len(base)-1]...)
	out = append(out, ',')
	out = append(out, rest[1:]...)
	return out, nil
}

// encodeJSON marshals v without escaping <, > and &. The outer encoder
// must also have HTML escaping off for the characters to survive:
// json.Marshal escapes them again when it compacts MarshalJSON output.
func encodeJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
