// pkg/profiler/profiler.go
package profiler

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tablebot/tablebot/pkg/model"
)

// topK is the number of frequent values recorded per categorical column.
const topK = 5

// Profile computes exact statistics for a table. It is a pure function:
// the same table always produces the same profile, and every count comes
// from a full scan rather than a sample. Downstream cleaning policy
// selects strategies by thresholds over these counts, so approximation
// here would silently change cleaning behavior.
func Profile(t *model.Table) *model.TableProfile {
	p := &model.TableProfile{
		RowCount:    t.RowCount(),
		ColumnCount: len(t.Columns),
		Columns:     make([]model.ColumnProfile, 0, len(t.Columns)),
	}

	for i := range t.Columns {
		cp := profileColumn(&t.Columns[i])
		p.TotalMissing += cp.MissingCount
		p.Columns = append(p.Columns, cp)
	}

	p.DuplicateRowCount = countDuplicateRows(t)
	return p
}

func profileColumn(col *model.Column) model.ColumnProfile {
	cp := model.ColumnProfile{
		Name:  col.Name,
		Kind:  col.Kind,
		Mixed: col.Mixed,
	}

	counts := make(map[string]int)
	for _, cell := range col.Cells {
		if cell.Missing {
			cp.MissingCount++
			continue
		}
		counts[cell.Value]++
	}
	cp.DistinctCount = len(counts)

	switch col.Kind {
	case model.KindNumeric:
		cp.Numeric = numericSummary(col)
	case model.KindText, model.KindBoolean:
		cp.TopValues = topValues(counts)
	}
	return cp
}

// numericSummary computes min/max/mean and the population standard
// deviation of the non-missing cells.
func numericSummary(col *model.Column) *model.NumericSummary {
	var (
		n    int
		sum  float64
		vals []float64
	)
	for _, cell := range col.Cells {
		if cell.Missing {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell.Value), 64)
		if err != nil {
			continue
		}
		vals = append(vals, v)
		sum += v
		n++
	}
	if n == 0 {
		return nil
	}

	s := &model.NumericSummary{Min: vals[0], Max: vals[0], Mean: sum / float64(n)}
	for _, v := range vals {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	var sq float64
	for _, v := range vals {
		d := v - s.Mean
		sq += d * d
	}
	s.Std = math.Sqrt(sq / float64(n))
	return s
}

// topValues returns at most topK most frequent values, most frequent
// first, ties broken by value so the ordering is deterministic.
func topValues(counts map[string]int) []model.ValueCount {
	out := make([]model.ValueCount, 0, len(counts))
	for v, c := range counts {
		out = append(out, model.ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

// countDuplicateRows counts rows identical across all columns to an
// earlier row, using the table's collision-free row-key encoding.
func countDuplicateRows(t *model.Table) int {
	rows := t.RowCount()
	if rows == 0 || len(t.Columns) == 0 {
		return 0
	}
	seen := make(map[string]bool, rows)
	dups := 0
	for i := 0; i < rows; i++ {
		key := t.RowKey(i)
		if seen[key] {
			dups++
		} else {
			seen[key] = true
		}
	}
	return dups
}
