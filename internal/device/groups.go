package device

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// GroupTable is the set of groups a device may be assigned to.
// It is immutable after construction and safe for concurrent use.
type GroupTable struct {
	byID    map[int]Group
	ordered []Group
}

// groupFile is the on-disk layout of a group table.
//
//	groups:
//	  - id: 1
//	    name: "Default Group"
//	    is_default: true
type groupFile struct {
	Groups []Group `yaml:"groups"`
}

// builtinGroups is used when no group table file is configured.
var builtinGroups = []Group{
	{ID: 1, Name: "Default Group", IsDefault: true},
	{ID: 2, Name: "Staff"},
	{ID: 3, Name: "Guests"},
	{ID: 4, Name: "IoT"},
}

// DefaultGroups returns the built-in four-entry group table.
func DefaultGroups() *GroupTable {
	t, err := NewGroupTable(builtinGroups)
	if err != nil {
		panic(fmt.Sprintf("built-in group table is invalid: %v", err))
	}
	return t
}

// NewGroupTable validates groups and builds a table from them.
// Ids must be positive and unique, names non-empty, and exactly one group
// must be the default.
func NewGroupTable(groups []Group) (*GroupTable, error) {
	if len(groups) == 0 {
		return nil, fmt.Errorf("%w: no groups defined", ErrInvalidGroupTable)
	}

	t := &GroupTable{
		byID:    make(map[int]Group, len(groups)),
		ordered: make([]Group, 0, len(groups)),
	}
	defaults := 0
	for _, g := range groups {
		if g.ID <= 0 {
			return nil, fmt.Errorf("%w: group id %d must be positive", ErrInvalidGroupTable, g.ID)
		}
		if g.Name == "" {
			return nil, fmt.Errorf("%w: group %d has no name", ErrInvalidGroupTable, g.ID)
		}
		if _, dup := t.byID[g.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate group id %d", ErrInvalidGroupTable, g.ID)
		}
		if g.IsDefault {
			defaults++
		}
		t.byID[g.ID] = g
		t.ordered = append(t.ordered, g)
	}
	if defaults != 1 {
		return nil, fmt.Errorf("%w: want exactly one default group, found %d", ErrInvalidGroupTable, defaults)
	}

	sort.Slice(t.ordered, func(i, j int) bool { return t.ordered[i].ID < t.ordered[j].ID })
	return t, nil
}

// LoadGroupTable reads a YAML group table from path.
// An empty path returns the built-in table.
func LoadGroupTable(path string) (*GroupTable, error) {
	if path == "" {
		return DefaultGroups(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading group table: %w", err)
	}

	var f groupFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing group table %s: %w", path, err)
	}

	t, err := NewGroupTable(f.Groups)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return t, nil
}

// Lookup returns the canonical group for id.
func (t *GroupTable) Lookup(id int) (Group, bool) {
	g, ok := t.byID[id]
	return g, ok
}

// All returns the groups ordered by id. The slice is a copy.
func (t *GroupTable) All() []Group {
	out := make([]Group, len(t.ordered))
	copy(out, t.ordered)
	return out
}
