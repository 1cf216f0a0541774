// pkg/cleaner/cleaner_test.go
package cleaner

import (
	"reflect"
	"testing"

	"github.com/tablebot/tablebot/pkg/loader"
	"github.com/tablebot/tablebot/pkg/model"
	"github.com/tablebot/tablebot/pkg/profiler"
)

func mustLoad(t *testing.T, csv string) *model.Table {
	t.Helper()
	table, err := loader.Load([]byte(csv), "test.csv")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return table
}

func clean(t *testing.T, table *model.Table, policy Policy) (*model.Table, []model.ChangeLogEntry) {
	t.Helper()
	profile := profiler.Profile(table)
	plan := BuildPlan(profile, policy)
	out, log, err := Apply(table, profile, plan)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return out, log
}

func TestCleanDuplicatesThenFill(t *testing.T) {
	t.Parallel()

	// Five rows: rows 3 and 5 are identical, row 2 has a missing value.
	table := mustLoad(t, "id,value\n"+
		"1,10\n"+
		"2,\n"+
		"3,30\n"+
		"4,40\n"+
		"3,30\n")

	out, log := clean(t, table, DefaultPolicy())

	if got := out.RowCount(); got != 4 {
		t.Fatalf("RowCount = %d, want 4", got)
	}

	want := []model.ChangeLogEntry{
		{Op: model.OpDropDuplicateRows, Count: 1},
		{Op: model.OpFillMean, Column: "value", Count: 1},
	}
	if !reflect.DeepEqual(log, want) {
		t.Fatalf("change log = %+v, want %+v", log, want)
	}

	// Mean of the surviving values 10, 30, 40.
	if got := out.Column("value").Cells[1].Value; got != "26.666666666666668" {
		t.Errorf("filled value = %q, want mean of survivors", got)
	}
}

func TestCleanDropColumnPrecedence(t *testing.T) {
	t.Parallel()

	// Column b is 75% missing: dropped outright, never filled.
	table := mustLoad(t, "a,b\n1,\n2,x\n3,\n4,\n")

	out, log := clean(t, table, DefaultPolicy())

	if out.Column("b") != nil {
		t.Fatal("column b still present, want dropped")
	}
	want := []model.ChangeLogEntry{{Op: model.OpDropColumn, Column: "b", Count: 4}}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("change log = %+v, want %+v", log, want)
	}
}

func TestCleanRowDropThreshold(t *testing.T) {
	t.Parallel()

	// With a row-drop threshold, a lightly missing column drops its rows.
	table := mustLoad(t, "a,b\n1,x\n2,\n3,y\n4,z\n5,w\n6,v\n7,u\n8,s\n9,r\n10,q\n")

	policy := DefaultPolicy()
	policy.RowDropThreshold = 0.2
	out, log := clean(t, table, policy)

	if got := out.RowCount(); got != 9 {
		t.Fatalf("RowCount = %d, want 9", got)
	}
	want := []model.ChangeLogEntry{{Op: model.OpDropRowsMissing, Column: "b", Count: 1}}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("change log = %+v, want %+v", log, want)
	}
}

func TestCleanModeFill(t *testing.T) {
	t.Parallel()

	table := mustLoad(t, "tag\nred\nblue\nred\n\nblue\n")
	out, log := clean(t, table, DefaultPolicy())

	// red and blue tie at two occurrences: the smaller value wins.
	if got := out.Column("tag").Cells[3].Value; got != "blue" {
		t.Errorf("mode fill = %q, want blue (lexicographic tie-break)", got)
	}
	want := []model.ChangeLogEntry{{Op: model.OpFillMode, Column: "tag", Count: 1}}
	if !reflect.DeepEqual(log, want) {
		t.Errorf("change log = %+v, want %+v", log, want)
	}
}

func TestCleanKeepsSeparatorBearingRows(t *testing.T) {
	t.Parallel()

	// Cell boundaries distinguish these rows even though their bytes
	// concatenate identically; deduplication must keep both.
	table := &model.Table{
		Name: "t.csv",
		Columns: []model.Column{
			{Name: "a", Kind: model.KindText, Cells: []model.Cell{{Value: "x\x1f"}, {Value: "x"}}},
			{Name: "b", Kind: model.KindText, Cells: []model.Cell{{Value: "y"}, {Value: "\x1fy"}}},
		},
	}

	out, log := clean(t, table, DefaultPolicy())
	if got := out.RowCount(); got != 2 {
		t.Fatalf("RowCount = %d, want 2; log = %+v", got, log)
	}
	if len(log) != 0 {
		t.Errorf("change log = %+v, want empty", log)
	}
}

func TestCleanIdempotent(t *testing.T) {
	t.Parallel()

	table := mustLoad(t, "id,value,tag\n"+
		"1,10,a\n"+
		"2,,b\n"+
		"1,10,a\n"+
		"3,30,\n")

	once, _ := clean(t, table, DefaultPolicy())
	twice, log := clean(t, once, DefaultPolicy())

	if len(log) != 0 {
		t.Errorf("second run logged %+v, want no changes", log)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Error("second run changed an already clean table")
	}
}

func TestCleanDeterministic(t *testing.T) {
	t.Parallel()

	csv := "a,b\n1,\n2,x\n1,\n3,y\n"
	t1 := mustLoad(t, csv)
	t2 := mustLoad(t, csv)

	out1, log1 := clean(t, t1, DefaultPolicy())
	out2, log2 := clean(t, t2, DefaultPolicy())

	if !reflect.DeepEqual(out1, out2) {
		t.Error("cleaned tables differ across identical runs")
	}
	if !reflect.DeepEqual(log1, log2) {
		t.Error("change logs differ across identical runs")
	}
}

func TestCleanInputNotMutated(t *testing.T) {
	t.Parallel()

	table := mustLoad(t, "a\n1\n\n1\n")
	before := table.Clone()

	clean(t, table, DefaultPolicy())

	if !reflect.DeepEqual(table, before) {
		t.Error("Apply mutated its input table")
	}
}

func TestApplyRejectsUnknownColumn(t *testing.T) {
	t.Parallel()

	table := mustLoad(t, "a\n1\n")
	profile := profiler.Profile(table)
	plan := model.CleaningPlan{
		Columns: map[string]model.ColumnRule{
			"ghost": {Strategy: model.MissingFillMode},
		},
	}

	_, _, err := Apply(table, profile, plan)
	if err == nil {
		t.Fatal("Apply succeeded, want plan error")
	}
	if !IsPlanError(err) {
		t.Errorf("error %v is not a PlanError", err)
	}
}

func TestBuildPlanLeavesCompleteColumns(t *testing.T) {
	t.Parallel()

	table := mustLoad(t, "a,b\n1,x\n2,y\n")
	profile := profiler.Profile(table)
	plan := BuildPlan(profile, DefaultPolicy())

	for name, rule := range plan.Columns {
		if rule.Strategy != model.MissingLeave {
			t.Errorf("column %q strategy = %q, want leave", name, rule.Strategy)
		}
	}
}
