// pkg/suggest/prompt.go
package suggest

import (
	"fmt"
	"strings"

	"github.com/tablebot/tablebot/pkg/model"
)

// maxPromptLen bounds the prompt size sent to the inference service.
const maxPromptLen = 4000

const instructionTemplate = `You are a data cleaning assistant. A dataset with the profile and sample below is about to be cleaned.

Identify missing values, invalid entries, or duplicates if present.
Return only the cleaning steps you would perform and why.`

// BuildPrompt renders the profile digest plus a bounded sample of rows
// into the instruction template. Output never exceeds maxPromptLen.
func BuildPrompt(profile *model.TableProfile, sample [][]string, header []string) string {
	var b strings.Builder
	b.WriteString(instructionTemplate)
	b.WriteString("\n\nDataset profile:\n")
	fmt.Fprintf(&b, "%d rows x %d columns, %d missing cells, %d duplicate rows\n",
		profile.RowCount, profile.ColumnCount, profile.TotalMissing, profile.DuplicateRowCount)
	for _, cp := range profile.Columns {
		fmt.Fprintf(&b, "- %s: %s, %d missing, %d distinct", cp.Name, cp.Kind, cp.MissingCount, cp.DistinctCount)
		if cp.Mixed {
			b.WriteString(", mixed types coerced to text")
		}
		b.WriteString("\n")
	}

	if len(sample) > 0 {
		b.WriteString("\nSample rows:\n")
		if len(header) > 0 {
			b.WriteString(strings.Join(header, ", "))
			b.WriteString("\n")
		}
		for _, row := range sample {
			b.WriteString(strings.Join(row, ", "))
			b.WriteString("\n")
		}
	}

	return truncate(b.String(), maxPromptLen)
}

// SampleRows returns up to max rows of a table as raw values.
func SampleRows(t *model.Table, max int) [][]string {
	n := t.RowCount()
	if n > max {
		n = max
	}
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, t.Row(i))
	}
	return rows
}
