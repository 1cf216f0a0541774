// pkg/model/cleaning.go
package model

// MissingStrategy decides how missing cells of one column are resolved.
type MissingStrategy string

const (
	MissingLeave        MissingStrategy = "leave"
	MissingDropRow      MissingStrategy = "drop-row"
	MissingFillConstant MissingStrategy = "fill-constant"
	MissingFillMean     MissingStrategy = "fill-mean"
	MissingFillMode     MissingStrategy = "fill-mode"
	MissingDropColumn   MissingStrategy = "drop-column"
)

// DuplicateStrategy decides how duplicate rows are resolved.
type DuplicateStrategy string

const (
	DuplicatesDrop DuplicateStrategy = "drop-exact-duplicates"
	DuplicatesKeep DuplicateStrategy = "keep"
)

// ColumnRule is the per-column part of a cleaning plan.
type ColumnRule struct {
	Strategy MissingStrategy

	// FillValue is used only with MissingFillConstant.
	FillValue string
}

// CleaningPlan is the full set of deterministic cleaning decisions for
// one table. Immutable once constructed; consumed exactly once by the
// transform engine.
type CleaningPlan struct {
	Duplicates DuplicateStrategy
	Columns    map[string]ColumnRule
}

// OpKind identifies a cleaning operation in the change log.
type OpKind string

const (
	OpDropDuplicateRows OpKind = "drop-duplicate-rows"
	OpDropColumn        OpKind = "drop-column"
	OpDropRowsMissing   OpKind = "drop-rows-missing"
	OpFillMean          OpKind = "fill-mean"
	OpFillMode          OpKind = "fill-mode"
	OpFillConstant      OpKind = "fill-constant"
)

// ChangeLogEntry is the factual record of one applied transform,
// aggregated per (operation, column) pair. Count is the number of rows
// or cells affected. Entries are appended only by the transform engine;
// an entry never exists without a matching mutation.
type ChangeLogEntry struct {
	Op     OpKind
	Column string
	Count  int
}
