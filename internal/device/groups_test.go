package device

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultGroups(t *testing.T) {
	table := DefaultGroups()

	want := []Group{
		{ID: 1, Name: "Default Group", IsDefault: true},
		{ID: 2, Name: "Staff"},
		{ID: 3, Name: "Guests"},
		{ID: 4, Name: "IoT"},
	}
	got := table.All()
	if len(got) != len(want) {
		t.Fatalf("All() returned %d groups, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("All()[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}

	if _, ok := table.Lookup(99); ok {
		t.Error("Lookup(99) found a group")
	}
}

func TestGroupTable_AllReturnsCopy(t *testing.T) {
	table := DefaultGroups()
	groups := table.All()
	groups[0].Name = "mutated"

	if g, _ := table.Lookup(1); g.Name != "Default Group" {
		t.Errorf("Lookup(1).Name = %q after mutating All() result", g.Name)
	}
	if table.All()[0].Name != "Default Group" {
		t.Error("All() exposes internal slice")
	}
}

func TestNewGroupTable_Validation(t *testing.T) {
	tests := []struct {
		name    string
		groups  []Group
		wantErr bool
	}{
		{name: "valid", groups: []Group{{ID: 1, Name: "A", IsDefault: true}, {ID: 5, Name: "B"}}},
		{name: "empty", groups: nil, wantErr: true},
		{name: "zero id", groups: []Group{{ID: 0, Name: "A", IsDefault: true}}, wantErr: true},
		{name: "negative id", groups: []Group{{ID: -2, Name: "A", IsDefault: true}}, wantErr: true},
		{name: "missing name", groups: []Group{{ID: 1, IsDefault: true}}, wantErr: true},
		{name: "duplicate id", groups: []Group{{ID: 1, Name: "A", IsDefault: true}, {ID: 1, Name: "B"}}, wantErr: true},
		{name: "no default", groups: []Group{{ID: 1, Name: "A"}}, wantErr: true},
		{name: "two defaults", groups: []Group{{ID: 1, Name: "A", IsDefault: true}, {ID: 2, Name: "B", IsDefault: true}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGroupTable(tt.groups)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewGroupTable() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidGroupTable) {
				t.Errorf("error = %v, want ErrInvalidGroupTable", err)
			}
		})
	}
}

func TestNewGroupTable_SortsByID(t *testing.T) {
	table, err := NewGroupTable([]Group{
		{ID: 9, Name: "Late"},
		{ID: 2, Name: "Early", IsDefault: true},
	})
	if err != nil {
		t.Fatalf("NewGroupTable() error = %v", err)
	}
	all := table.All()
	if all[0].ID != 2 || all[1].ID != 9 {
		t.Errorf("All() order = %v, want ids 2, 9", all)
	}
}

func TestLoadGroupTable(t *testing.T) {
	t.Run("empty path uses built-in table", func(t *testing.T) {
		table, err := LoadGroupTable("")
		if err != nil {
			t.Fatalf("LoadGroupTable() error = %v", err)
		}
		if len(table.All()) != 4 {
			t.Errorf("len(All()) = %d, want 4", len(table.All()))
		}
	})

	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "groups.yaml")
		content := `
groups:
  - id: 1
    name: "Default Group"
    is_default: true
  - id: 2
    name: "Staff"
  - id: 7
    name: "Cameras"
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("writing groups file: %v", err)
		}

		table, err := LoadGroupTable(path)
		if err != nil {
			t.Fatalf("LoadGroupTable() error = %v", err)
		}
		g, ok := table.Lookup(7)
		if !ok || g.Name != "Cameras" || g.IsDefault {
			t.Errorf("Lookup(7) = %+v, %v", g, ok)
		}
		if _, ok := table.Lookup(3); ok {
			t.Error("Lookup(3) found a group absent from the file")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadGroupTable("/nonexistent/groups.yaml"); err == nil {
			t.Error("LoadGroupTable() expected error for missing file")
		}
	})

	t.Run("invalid table", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "groups.yaml")
		if err := os.WriteFile(path, []byte("groups:\n  - id: 1\n    name: A\n"), 0600); err != nil {
			t.Fatalf("writing groups file: %v", err)
		}
		_, err := LoadGroupTable(path)
		if !errors.Is(err, ErrInvalidGroupTable) {
			t.Errorf("LoadGroupTable() error = %v, want ErrInvalidGroupTable", err)
		}
	})
}
