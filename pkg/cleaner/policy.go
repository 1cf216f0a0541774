// pkg/cleaner/policy.go
package cleaner

import (
	"github.com/tablebot/tablebot/pkg/model"
)

// Policy is the deterministic cleaning policy used to build a plan.
// AI guidance may inform how a caller tunes these knobs but never
// participates in plan construction itself.
type Policy struct {
	// DropColumnThreshold is the missing-value fraction above which a
	// column is dropped entirely instead of filled. A column drop takes
	// precedence over any cell fill for that column.
	DropColumnThreshold float64

	// RowDropThreshold, when positive, switches columns whose missing
	// fraction is below it to drop-row resolution instead of filling.
	// Zero disables row dropping.
	RowDropThreshold float64

	Duplicates model.DuplicateStrategy
}

// DefaultPolicy returns the policy used when the caller supplies none:
// exact duplicates are dropped, badly incomplete columns are dropped,
// everything else is filled.
func DefaultPolicy() Policy {
	return Policy{
		DropColumnThreshold: 0.5,
		Duplicates:          model.DuplicatesDrop,
	}
}

// BuildPlan derives a cleaning plan from a profile. Deterministic given
// the same profile and policy: strategy selection uses only the exact
// counts recorded by the profiler.
//
// Per column: no missing cells leaves the column alone; a missing
// fraction above DropColumnThreshold drops the column; a fraction below
// RowDropThreshold (when enabled) drops the affected rows; otherwise
// numeric columns fill with the mean and categorical columns with the
// mode.
func BuildPlan(profile *model.TableProfile, policy Policy) model.CleaningPlan {
	plan := model.CleaningPlan{
		Duplicates: policy.Duplicates,
		Columns:    make(map[string]model.ColumnRule, len(profile.Columns)),
	}
	if plan.Duplicates == "" {
		plan.Duplicates = model.DuplicatesKeep
	}

	for _, cp := range profile.Columns {
		plan.Columns[cp.Name] = columnRule(&cp, profile.RowCount, policy)
	}
	return plan
}

func columnRule(cp *model.ColumnProfile, rowCount int, policy Policy) model.ColumnRule {
	if cp.MissingCount == 0 {
		return model.ColumnRule{Strategy: model.MissingLeave}
	}

	frac := cp.MissingFraction(rowCount)
	if policy.DropColumnThreshold > 0 && frac > policy.DropColumnThreshold {
		return model.ColumnRule{Strategy: model.MissingDropColumn}
	}
	if policy.RowDropThreshold > 0 && frac < policy.RowDropThreshold {
		return model.ColumnRule{Strategy: model.MissingDropRow}
	}

	switch cp.Kind {
	case model.KindNumeric:
		return model.ColumnRule{Strategy: model.MissingFillMean}
	case model.KindUnknown:
		// Nothing observed to fill from.
		return model.ColumnRule{Strategy: model.MissingLeave}
	default:
		return model.ColumnRule{Strategy: model.MissingFillMode}
	}
}
