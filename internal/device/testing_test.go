package device

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
)

const sampleRegistry = `[
  {
    "id": 1,
    "given_name": "Kitchen Tablet",
    "is_active": true,
    "group": {"id": 1, "name": "Default Group", "is_default": true},
    "blocklist": {"safesearch": true, "gambling": false, "social": false},
    "has_custom_blocklist": false,
    "ai_classification": {"device_category": "tablet", "confidence": 0.92},
    "mac": "aa:bb:cc:dd:ee:01"
  },
  {
    "id": 2,
    "given_name": "Büro <Drucker>",
    "is_active": false,
    "group": {"id": 4, "name": "IoT", "is_default": false},
    "blocklist": {"safesearch": true, "adult": true},
    "has_custom_blocklist": true,
    "ai_classification": {"device_category": "printer"}
  },
  {
    "id": 3,
    "given_name": "Guest Phone",
    "is_active": true,
    "group": {"id": 3, "name": "Guests", "is_default": false},
    "blocklist": {"safesearch": false, "gambling": true},
    "has_custom_blocklist": false,
    "ai_classification": {"device_category": "phone"}
  }
]
`

func sampleDevices(t *testing.T) []Device {
	t.Helper()
	var devices []Device
	if err := json.Unmarshal([]byte(sampleRegistry), &devices); err != nil {
		t.Fatalf("decoding sample registry: %v", err)
	}
	return devices
}

// newTestJSONStore writes the sample registry to a temp dir.
func newTestJSONStore(t *testing.T) *JSONStore {
	t.Helper()
	store := NewJSONStore(filepath.Join(t.TempDir(), "devices.json"))
	if err := store.Write(context.Background(), sampleDevices(t)); err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	return store
}

func findDevice(t *testing.T, devices []Device, id int) Device {
	t.Helper()
	for _, d := range devices {
		if d.ID == id {
			return d
		}
	}
	t.Fatalf("device %d not found", id)
	return Device{}
}

func decodePatch(t *testing.T, body string) Patch {
	t.Helper()
	var p Patch
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decoding patch %s: %v", body, err)
	}
	return p
}
