package proctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameColumnCycles(t *testing.T) {
	spec := DefaultSortSpec()

	spec = spec.Activate(ColumnName)
	assert.Equal(t, NameAsc, spec.Name)
	spec = spec.Activate(ColumnName)
	assert.Equal(t, NameDesc, spec.Name)
	spec = spec.Activate(ColumnName)
	assert.Equal(t, NameUnsorted, spec.Name)
	assert.False(t, spec.NameSorted())
	spec = spec.Activate(ColumnName)
	assert.Equal(t, NameAsc, spec.Name)
}

func TestOtherColumnsToggle(t *testing.T) {
	for _, c := range []Column{ColumnPID, ColumnCPU, ColumnRAM, ColumnDisk} {
		t.Run(c.String(), func(t *testing.T) {
			spec := DefaultSortSpec().Activate(c)
			assert.Equal(t, c, spec.Active)
			assert.False(t, spec.Ascending, "first activation is descending")

			spec = spec.Activate(c)
			assert.True(t, spec.Ascending)
			spec = spec.Activate(c)
			assert.False(t, spec.Ascending)
		})
	}
}

func TestSwitchingColumnsLandsOnDescending(t *testing.T) {
	spec := DefaultSortSpec().Activate(ColumnCPU).Activate(ColumnCPU)
	require.True(t, spec.Ascending)

	spec = spec.Activate(ColumnDisk)
	assert.Equal(t, ColumnDisk, spec.Active)
	assert.False(t, spec.Ascending)
}

func TestLeavingNameColumnResetsTriState(t *testing.T) {
	spec := DefaultSortSpec().Activate(ColumnName).Activate(ColumnName)
	require.Equal(t, NameDesc, spec.Name)

	spec = spec.Activate(ColumnRAM)
	assert.Equal(t, NameUnsorted, spec.Name)

	spec = spec.Activate(ColumnName)
	assert.Equal(t, NameAsc, spec.Name, "returning to name starts the cycle over")
}

func TestParseColumn(t *testing.T) {
	for c, name := range columnNames {
		got, err := ParseColumn(name)
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseColumn("threads")
	assert.Error(t, err)
}

func TestSortSpecString(t *testing.T) {
	assert.Equal(t, "ram desc", DefaultSortSpec().String())
	assert.Equal(t, "name asc", DefaultSortSpec().Activate(ColumnName).String())
	assert.Equal(t, "cpu asc", DefaultSortSpec().Activate(ColumnCPU).Activate(ColumnCPU).String())
}
