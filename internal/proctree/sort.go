package proctree

import "fmt"

// Column identifies a sortable process column.
type Column int

const (
	ColumnNone Column = iota
	ColumnName
	ColumnPID
	ColumnCPU
	ColumnRAM
	ColumnDisk
)

var columnNames = map[Column]string{
	ColumnNone: "none",
	ColumnName: "name",
	ColumnPID:  "pid",
	ColumnCPU:  "cpu",
	ColumnRAM:  "ram",
	ColumnDisk: "disk",
}

func (c Column) String() string {
	if s, ok := columnNames[c]; ok {
		return s
	}
	return fmt.Sprintf("column(%d)", int(c))
}

// ParseColumn maps a column name as used on the command line and in the
// HTTP API back to a Column.
func ParseColumn(s string) (Column, error) {
	for c, name := range columnNames {
		if name == s {
			return c, nil
		}
	}
	return ColumnNone, fmt.Errorf("unknown sort column %q", s)
}

// NameOrder is the tri-state of the name column.
type NameOrder int

const (
	NameUnsorted NameOrder = iota
	NameAsc
	NameDesc
)

func (o NameOrder) String() string {
	switch o {
	case NameAsc:
		return "asc"
	case NameDesc:
		return "desc"
	default:
		return "unsorted"
	}
}

// SortSpec is the sort state driven by the user.
//
// Ascending only applies to non-name columns.
type SortSpec struct {
	Active    Column
	Name      NameOrder
	Ascending bool
}

// DefaultSortSpec orders groups by RAM, largest first.
func DefaultSortSpec() SortSpec {
	return SortSpec{Active: ColumnNone}
}

// Activate returns the spec that results from the user activating column c.
//
// The name column cycles unsorted, ascending, descending. Any other column
// starts descending and flips direction on each repeated activation.
func (s SortSpec) Activate(c Column) SortSpec {
	switch c {
	case ColumnNone:
		return DefaultSortSpec()
	case ColumnName:
		order := NameAsc
		if s.Active == ColumnName {
			order = (s.Name + 1) % 3
		}
		return SortSpec{Active: ColumnName, Name: order}
	default:
		if s.Active == c {
			return SortSpec{Active: c, Ascending: !s.Ascending}
		}
		return SortSpec{Active: c, Ascending: false}
	}
}

// NameSorted reports whether groups are explicitly ordered by name.
func (s SortSpec) NameSorted() bool {
	return s.Active == ColumnName && s.Name != NameUnsorted
}

func (s SortSpec) String() string {
	switch {
	case s.Active == ColumnName:
		return "name " + s.Name.String()
	case s.Active == ColumnNone:
		return "ram desc"
	case s.Ascending:
		return s.Active.String() + " asc"
	default:
		return s.Active.String() + " desc"
	}
}
