package sync

import (
	"fmt"
	"strings"
)

// TableSpec is one entry of the sync order. Ordinals grow in dependency order.
type TableSpec struct {
	Name    string `json:"name"`
	Ordinal int    `json:"ordinal"`
}

// Parent tables first, then child tables.
var defaultTableOrder = []string{
	"role",
	"type",
	"user",
	"employee",
	"stock",
	"accesories",
	"attendence",
	"monthly_payment",
	"per_day_salary",
}

// DefaultDependencies lists the foreign keys of the shop schema: child -> parents.
var DefaultDependencies = map[string][]string{
	"user":            {"role"},
	"employee":        {"role"},
	"stock":           {"type"},
	"accesories":      {"type"},
	"attendence":      {"employee"},
	"monthly_payment": {"role"},
}

// TableRegistry is the fixed, dependency-ordered list of tables to synchronize.
type TableRegistry struct {
	tables []TableSpec
}

// DefaultTableRegistry returns the shop schema order.
func DefaultTableRegistry() *TableRegistry {
	return newRegistry(defaultTableOrder)
}

// NewTableRegistry validates a configured order against deps (child -> parents).
// Parents that are not in names are ignored.
func NewTableRegistry(names []string, deps map[string][]string) (*TableRegistry, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("table list is empty")
	}
	if err := validateOrder(names, deps); err != nil {
		return nil, err
	}
	return newRegistry(names), nil
}

func newRegistry(names []string) *TableRegistry {
	tables := make([]TableSpec, len(names))
	for i, name := range names {
		tables[i] = TableSpec{Name: strings.TrimSpace(name), Ordinal: i + 1}
	}
	return &TableRegistry{tables: tables}
}

func validateOrder(names []string, deps map[string][]string) error {
	position := make(map[string]int, len(names))
	for i, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			return fmt.Errorf("table #%d has an empty name", i+1)
		}
		if _, dup := position[name]; dup {
			return fmt.Errorf("table %s is listed twice", name)
		}
		position[name] = i
	}

	for child, parents := range deps {
		childPos, ok := position[child]
		if !ok {
			continue
		}
		for _, parent := range parents {
			parentPos, ok := position[parent]
			if !ok || parent == child {
				continue
			}
			if parentPos > childPos {
				return fmt.Errorf("table %s must come after %s", child, parent)
			}
		}
	}
	return nil
}

// Tables returns a copy of the ordered table list.
func (r *TableRegistry) Tables() []TableSpec {
	out := make([]TableSpec, len(r.tables))
	copy(out, r.tables)
	return out
}

func (r *TableRegistry) Names() []string {
	names := make([]string, len(r.tables))
	for i, t := range r.tables {
		names[i] = t.Name
	}
	return names
}

func (r *TableRegistry) Len() int {
	return len(r.tables)
}
