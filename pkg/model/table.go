// pkg/model/table.go
package model

import (
	"strconv"
	"strings"
)

// CellKind is the inferred semantic type of a column.
type CellKind int

const (
	KindUnknown CellKind = iota
	KindNumeric
	KindText
	KindBoolean
	KindTemporal
)

// String returns a string representation of the cell kind
func (k CellKind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindText:
		return "text"
	case KindBoolean:
		return "boolean"
	case KindTemporal:
		return "temporal"
	default:
		return "unknown"
	}
}

// Cell is a single value in a column. Missing cells keep an empty Value.
type Cell struct {
	Value   string
	Missing bool
}

// Column is an ordered sequence of cells sharing one inferred kind.
type Column struct {
	Name  string
	Kind  CellKind
	Mixed bool // raw values of more than one kind were coerced to text
	Cells []Cell
}

// Table is an in-memory structured dataset with named, typed columns.
// All columns have equal length and column names are unique.
type Table struct {
	Name    string
	Columns []Column
}

// RowCount returns the number of data rows in the table
func (t *Table) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0].Cells)
}

// Column returns the column with the given name, or nil if absent
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Header returns the ordered column names
func (t *Table) Header() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// Row returns the raw values of row i in column order.
// Missing cells are rendered as empty strings.
func (t *Table) Row(i int) []string {
	row := make([]string, len(t.Columns))
	for c := range t.Columns {
		if !t.Columns[c].Cells[i].Missing {
			row[c] = t.Columns[c].Cells[i].Value
		}
	}
	return row
}

// RowKey encodes row i for exact-duplicate comparison. Each value is
// length-prefixed so cell content can never collide with the field
// separator; a missing cell compares equal only to another missing
// cell. Both the profiler's duplicate count and the transform engine's
// deduplication use this encoding, so the two can never disagree.
func (t *Table) RowKey(i int) string {
	var b strings.Builder
	for c := range t.Columns {
		cell := t.Columns[c].Cells[i]
		if cell.Missing {
			b.WriteString("-\x1f")
			continue
		}
		b.WriteString(strconv.Itoa(len(cell.Value)))
		b.WriteByte(':')
		b.WriteString(cell.Value)
		b.WriteByte('\x1f')
	}
	return b.String()
}

// Clone returns a deep copy of the table
func (t *Table) Clone() *Table {
	out := &Table{Name: t.Name, Columns: make([]Column, len(t.Columns))}
	for i, col := range t.Columns {
		cells := make([]Cell, len(col.Cells))
		copy(cells, col.Cells)
		out.Columns[i] = Column{Name: col.Name, Kind: col.Kind, Mixed: col.Mixed, Cells: cells}
	}
	return out
}
