// pkg/cleaner/cleaner.go
package cleaner

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/tablebot/tablebot/pkg/model"
)

// PlanError reports a cleaning plan that references a column absent
// from the table. A malformed plan is a programming error, not a data
// error, so the whole run aborts.
type PlanError struct {
	Column string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("cleaning plan references unknown column %q", e.Column)
}

// IsPlanError reports whether err is (or wraps) a PlanError.
func IsPlanError(err error) bool {
	var pe *PlanError
	return errors.As(err, &pe)
}

// Apply runs the plan against the table and returns the cleaned table
// plus the change log. The input table is never mutated. Deterministic:
// identical inputs yield a byte-identical table and an identical log.
//
// Operations run in a fixed order: duplicate rows, column drops, row
// drops, then fills, with columns in table order inside each stage.
// Every mutation is logged as one aggregated entry per (operation,
// column) pair, keeping the log proportional to operation kinds rather
// than data volume.
func Apply(t *model.Table, profile *model.TableProfile, plan model.CleaningPlan) (*model.Table, []model.ChangeLogEntry, error) {
	for name := range plan.Columns {
		if t.Column(name) == nil {
			return nil, nil, &PlanError{Column: name}
		}
	}

	out := t.Clone()
	var log []model.ChangeLogEntry

	if plan.Duplicates == model.DuplicatesDrop {
		var dropped int
		out, dropped = dropDuplicateRows(out)
		if dropped > 0 {
			log = append(log, model.ChangeLogEntry{Op: model.OpDropDuplicateRows, Count: dropped})
		}
	}

	out, log = dropColumns(out, plan, log)
	out, log = dropMissingRows(out, plan, log)
	log = fillMissing(out, plan, log)

	return out, log, nil
}

// dropDuplicateRows removes rows identical across all columns, keeping
// the first occurrence in original order. Row identity comes from the
// table's collision-free row-key encoding, shared with the profiler.
func dropDuplicateRows(t *model.Table) (*model.Table, int) {
	rows := t.RowCount()
	if rows == 0 || len(t.Columns) == 0 {
		return t, 0
	}

	seen := make(map[string]bool, rows)
	keep := make([]int, 0, rows)
	for i := 0; i < rows; i++ {
		key := t.RowKey(i)
		if !seen[key] {
			seen[key] = true
			keep = append(keep, i)
		}
	}
	if len(keep) == rows {
		return t, 0
	}
	return selectRows(t, keep), rows - len(keep)
}

// dropColumns removes columns whose rule is drop-column. The entry
// count is the number of rows the column spanned when removed.
func dropColumns(t *model.Table, plan model.CleaningPlan, log []model.ChangeLogEntry) (*model.Table, []model.ChangeLogEntry) {
	kept := t.Columns[:0:0]
	for _, col := range t.Columns {
		rule := plan.Columns[col.Name]
		if rule.Strategy == model.MissingDropColumn {
			log = append(log, model.ChangeLogEntry{
				Op:     model.OpDropColumn,
				Column: col.Name,
				Count:  len(col.Cells),
			})
			continue
		}
		kept = append(kept, col)
	}
	t.Columns = kept
	return t, log
}

// dropMissingRows removes, per drop-row column in table order, every
// row whose cell in that column is missing.
func dropMissingRows(t *model.Table, plan model.CleaningPlan, log []model.ChangeLogEntry) (*model.Table, []model.ChangeLogEntry) {
	for c := range t.Columns {
		col := &t.Columns[c]
		if plan.Columns[col.Name].Strategy != model.MissingDropRow {
			continue
		}
		rows := t.RowCount()
		keep := make([]int, 0, rows)
		for i := 0; i < rows; i++ {
			if !col.Cells[i].Missing {
				keep = append(keep, i)
			}
		}
		if len(keep) == rows {
			continue
		}
		dropped := rows - len(keep)
		*t = *selectRows(t, keep)
		log = append(log, model.ChangeLogEntry{
			Op:     model.OpDropRowsMissing,
			Column: col.Name,
			Count:  dropped,
		})
	}
	return t, log
}

// fillMissing resolves remaining missing cells column by column. Fill
// values are recomputed from the surviving rows so a second application
// of the same policy is a no-op.
func fillMissing(t *model.Table, plan model.CleaningPlan, log []model.ChangeLogEntry) []model.ChangeLogEntry {
	for c := range t.Columns {
		col := &t.Columns[c]
		rule := plan.Columns[col.Name]

		var op model.OpKind
		var fill string
		var ok bool
		switch rule.Strategy {
		case model.MissingFillMean:
			op = model.OpFillMean
			fill, ok = meanValue(col)
		case model.MissingFillMode:
			op = model.OpFillMode
			fill, ok = modeValue(col)
		case model.MissingFillConstant:
			op = model.OpFillConstant
			fill, ok = rule.FillValue, true
		default:
			continue
		}
		if !ok {
			continue
		}

		filled := 0
		for i := range col.Cells {
			if col.Cells[i].Missing {
				col.Cells[i] = model.Cell{Value: fill}
				filled++
			}
		}
		if filled > 0 {
			log = append(log, model.ChangeLogEntry{Op: op, Column: col.Name, Count: filled})
		}
	}
	return log
}

// meanValue formats the mean of the non-missing numeric cells. The
// shortest round-trippable formatting keeps repeated runs byte-identical.
func meanValue(col *model.Column) (string, bool) {
	var sum float64
	var n int
	for _, cell := range col.Cells {
		if cell.Missing {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(cell.Value), 64)
		if err != nil {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return "", false
	}
	return strconv.FormatFloat(sum/float64(n), 'g', -1, 64), true
}

// modeValue returns the most frequent non-missing value, ties broken by
// the lexicographically smallest value for determinism.
func modeValue(col *model.Column) (string, bool) {
	counts := make(map[string]int)
	for _, cell := range col.Cells {
		if !cell.Missing {
			counts[cell.Value]++
		}
	}
	if len(counts) == 0 {
		return "", false
	}
	values := make([]string, 0, len(counts))
	for v := range counts {
		values = append(values, v)
	}
	sort.Strings(values)
	best := values[0]
	for _, v := range values[1:] {
		if counts[v] > counts[best] {
			best = v
		}
	}
	return best, true
}

// selectRows builds a table containing only the given row indices, in order.
func selectRows(t *model.Table, keep []int) *model.Table {
	out := &model.Table{Name: t.Name, Columns: make([]model.Column, len(t.Columns))}
	for c, col := range t.Columns {
		cells := make([]model.Cell, len(keep))
		for i, idx := range keep {
			cells[i] = col.Cells[idx]
		}
		out.Columns[c] = model.Column{Name: col.Name, Kind: col.Kind, Mixed: col.Mixed, Cells: cells}
	}
	return out
}
