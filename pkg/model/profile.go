// pkg/model/profile.go
package model

// NumericSummary holds population statistics for a numeric column.
// Population (1/N) variance is used rather than the sample-corrected
// form so that repeated profiling of the same table is reproducible
// down to the last bit.
type NumericSummary struct {
	Min  float64
	Max  float64
	Mean float64
	Std  float64
}

// ValueCount pairs a raw value with its number of occurrences.
type ValueCount struct {
	Value string
	Count int
}

// ColumnProfile describes one column of a profiled table.
// Computed once per profiler invocation and never mutated afterwards.
type ColumnProfile struct {
	Name          string
	Kind          CellKind
	MissingCount  int
	DistinctCount int
	Mixed         bool

	// Numeric is set only for numeric columns.
	Numeric *NumericSummary

	// TopValues holds the most frequent values of a categorical column,
	// most frequent first, ties broken by value for determinism.
	TopValues []ValueCount
}

// MissingFraction returns the fraction of missing cells given the table row count.
func (cp *ColumnProfile) MissingFraction(rowCount int) float64 {
	if rowCount == 0 {
		return 0
	}
	return float64(cp.MissingCount) / float64(rowCount)
}

// TableProfile describes the shape and data quality of a table.
type TableProfile struct {
	RowCount          int
	ColumnCount       int
	DuplicateRowCount int
	TotalMissing      int
	Columns           []ColumnProfile
}

// Column returns the profile for the named column, or nil if absent
func (p *TableProfile) Column(name string) *ColumnProfile {
	for i := range p.Columns {
		if p.Columns[i].Name == name {
			return &p.Columns[i]
		}
	}
	return nil
}
