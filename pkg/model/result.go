// pkg/model/result.go
package model

// CleaningResult is everything one pipeline run produces. Ownership
// passes to the caller on return; the pipeline holds no reference.
type CleaningResult struct {
	RunID string

	// Table is the cleaned table.
	Table *Table

	// Profile describes the table before cleaning.
	Profile *TableProfile

	ChangeLog []ChangeLogEntry
	Guidance  Guidance

	// Summary is the generated human-readable report.
	Summary string

	// Artifact is the descriptor returned by the artifact store,
	// typically a file path.
	Artifact string
}
