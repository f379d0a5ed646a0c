package device

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Patch is a partial device update. Nil or empty fields leave the device
// unchanged.
//
// Decoding from JSON follows the registry's lenient rules: a "group" that
// is not an object with an "id" is ignored, blocklist entries that are not
// booleans are dropped, and unrecognised top-level fields are ignored.
// Type problems with recognised fields are reported by Apply, so that an
// unknown device id is reported before bad input.
type Patch struct {
	GivenName *string
	GroupID   *int
	Blocklist map[string]bool

	// invalid is the first decode problem found, reported by Apply.
	invalid error
}

// UnmarshalJSON decodes a patch document. It only fails when data is not a
// JSON object.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("%w: body must be a JSON object", ErrInvalidPatch)
	}

	var out Patch

	if v, ok := raw["given_name"]; ok {
		var name string
		if !isJSONString(v) || json.Unmarshal(v, &name) != nil {
			out.fail(fmt.Errorf("%w: given_name must be a string", ErrInvalidPatch))
		} else {
			out.GivenName = &name
		}
	}

	if v, ok := raw["group"]; ok {
		var group map[string]json.RawMessage
		if json.Unmarshal(v, &group) == nil && group != nil {
			if idRaw, hasID := group["id"]; hasID {
				id, err := strconv.Atoi(string(bytes.TrimSpace(idRaw)))
				if err != nil {
					out.fail(fmt.Errorf("%w: %s", ErrUnknownGroup, bytes.TrimSpace(idRaw)))
				} else {
					out.GroupID = &id
				}
			}
		}
	}

	if v, ok := raw["blocklist"]; ok {
		var entries map[string]json.RawMessage
		if json.Unmarshal(v, &entries) == nil && entries != nil {
			out.Blocklist = make(map[string]bool, len(entries))
			for k, ev := range entries {
				switch string(bytes.TrimSpace(ev)) {
				case "true":
					out.Blocklist[k] = true
				case "false":
					out.Blocklist[k] = false
				}
			}
		}
	}

	*p = out
	return nil
}

func (p *Patch) fail(err error) {
	if p.invalid == nil {
		p.invalid = err
	}
}

// Err returns the first decode problem, if any.
func (p Patch) Err() error {
	return p.invalid
}

// Apply returns a copy of d with the patch merged in. d is never modified.
//
// The group is replaced by the canonical entry from groups. Blocklist
// entries are applied only for categories the device already has, and each
// applied entry marks the blocklist as customised.
func (p Patch) Apply(d Device, groups *GroupTable) (Device, error) {
	if p.invalid != nil {
		return Device{}, p.invalid
	}

	out := d.Clone()

	if p.GivenName != nil {
		out.GivenName = *p.GivenName
	}

	if p.GroupID != nil {
		g, ok := groups.Lookup(*p.GroupID)
		if !ok {
			return Device{}, fmt.Errorf("%w: %d", ErrUnknownGroup, *p.GroupID)
		}
		out.Group = g
	}

	for category, blocked := range p.Blocklist {
		if _, exists := out.Blocklist[category]; !exists {
			continue
		}
		out.Blocklist[category] = blocked
		out.HasCustomBlocklist = true
	}

	return out, nil
}

func isJSONString(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '"'
}
