// pkg/summary/summary.go
package summary

import (
	"fmt"
	"strings"

	"github.com/tablebot/tablebot/pkg/model"
)

// Summarize renders the profile and change log into one report. Every
// change-log entry is stated with its exact recorded count; advisory AI
// text, when present, goes under a clearly delineated section and is
// never mixed with the deterministic facts.
func Summarize(profile *model.TableProfile, log []model.ChangeLogEntry, guidance model.Guidance) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Dataset: %d rows x %d columns, %d missing cells, %d duplicate rows\n",
		profile.RowCount, profile.ColumnCount, profile.TotalMissing, profile.DuplicateRowCount)

	b.WriteString("\nCleaning performed:\n")
	if len(log) == 0 {
		b.WriteString("No cleaning steps were necessary.\n")
	}
	for _, e := range log {
		b.WriteString("- ")
		b.WriteString(describe(e))
		b.WriteString("\n")
	}

	b.WriteString("\nColumn details:\n")
	for _, cp := range profile.Columns {
		fmt.Fprintf(&b, "- %s (%s): %d missing, %d distinct", cp.Name, cp.Kind, cp.MissingCount, cp.DistinctCount)
		if cp.Numeric != nil {
			fmt.Fprintf(&b, ", min=%g max=%g mean=%g std=%g",
				cp.Numeric.Min, cp.Numeric.Max, cp.Numeric.Mean, cp.Numeric.Std)
		}
		if cp.Mixed {
			b.WriteString(", mixed types coerced to text")
		}
		b.WriteString("\n")
	}

	if guidance.Available() {
		b.WriteString("\nAI notes (advisory only, not applied automatically):\n")
		b.WriteString(strings.TrimSpace(guidance.Advice))
		b.WriteString("\n")
	} else {
		b.WriteString("\nAI notes unavailable; cleaning used the deterministic policy only.\n")
	}

	return b.String()
}

// describe renders one change-log entry with its exact count.
func describe(e model.ChangeLogEntry) string {
	switch e.Op {
	case model.OpDropDuplicateRows:
		return fmt.Sprintf("Removed %d duplicate rows, keeping the first occurrence.", e.Count)
	case model.OpDropColumn:
		return fmt.Sprintf("Dropped column %q (%d cells) for excessive missing values.", e.Column, e.Count)
	case model.OpDropRowsMissing:
		return fmt.Sprintf("Dropped %d rows with missing values in column %q.", e.Count, e.Column)
	case model.OpFillMean:
		return fmt.Sprintf("Filled %d missing values in numeric column %q with the column mean.", e.Count, e.Column)
	case model.OpFillMode:
		return fmt.Sprintf("Filled %d missing values in column %q with the most frequent value.", e.Count, e.Column)
	case model.OpFillConstant:
		return fmt.Sprintf("Filled %d missing values in column %q with a constant.", e.Count, e.Column)
	default:
		return fmt.Sprintf("%s on column %q affected %d cells.", e.Op, e.Column, e.Count)
	}
}
