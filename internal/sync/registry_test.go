package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableRegistry_DependencyOrder(t *testing.T) {
	r := DefaultTableRegistry()
	require.NoError(t, validateOrder(r.Names(), DefaultDependencies))

	pos := map[string]int{}
	for _, spec := range r.Tables() {
		pos[spec.Name] = spec.Ordinal
	}
	assert.Less(t, pos["role"], pos["employee"])
	assert.Less(t, pos["type"], pos["accesories"])
	assert.Less(t, pos["employee"], pos["attendence"])
	assert.Len(t, pos, 9)

	for child, parents := range DefaultDependencies {
		for _, parent := range parents {
			assert.Lessf(t, pos[parent], pos[child], "%s must precede %s", parent, child)
		}
	}
}

func TestTableRegistry_OrdinalsStrictlyIncrease(t *testing.T) {
	tables := DefaultTableRegistry().Tables()
	for i := 1; i < len(tables); i++ {
		assert.Greater(t, tables[i].Ordinal, tables[i-1].Ordinal)
	}
}

func TestTableRegistry_TablesIsACopy(t *testing.T) {
	r := DefaultTableRegistry()
	tables := r.Tables()
	tables[0].Name = "mutated"
	assert.Equal(t, "role", r.Tables()[0].Name)
}

func TestNewTableRegistry_Validation(t *testing.T) {
	_, err := NewTableRegistry([]string{"employee", "role"}, DefaultDependencies)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "employee must come after role")

	_, err = NewTableRegistry([]string{"role", "role"}, nil)
	require.Error(t, err)

	_, err = NewTableRegistry([]string{"role", " "}, nil)
	require.Error(t, err)

	_, err = NewTableRegistry(nil, nil)
	require.Error(t, err)

	// parents outside the configured list are not enforced
	r, err := NewTableRegistry([]string{"attendence", "stock"}, DefaultDependencies)
	require.NoError(t, err)
	assert.Equal(t, []string{"attendence", "stock"}, r.Names())
}
