// pkg/pipeline/runner.go
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tablebot/tablebot/pkg/cleaner"
	"github.com/tablebot/tablebot/pkg/loader"
	"github.com/tablebot/tablebot/pkg/model"
	"github.com/tablebot/tablebot/pkg/profiler"
	"github.com/tablebot/tablebot/pkg/storage"
	"github.com/tablebot/tablebot/pkg/suggest"
	"github.com/tablebot/tablebot/pkg/summary"
)

// Suggester retrieves advisory guidance. It is injected so tests can
// substitute a fake service; the real implementation is *suggest.Client.
type Suggester interface {
	Suggest(ctx context.Context, profile *model.TableProfile, sample [][]string, header []string) model.Guidance
}

// Upload is one raw tabular upload handed over by the transport.
// Size validation happens before the bytes reach the runner.
type Upload struct {
	UserID   int64
	Filename string
	Data     []byte
}

// Runner sequences one cleaning run: load, profile, guidance, plan,
// transform, summarize, persist. Each invocation operates only on its
// own state, so concurrent runs never share anything mutable.
//
// Failure policy: loader and plan errors abort the run before anything
// is persisted; profiling cannot fail on a valid table; the suggestion
// outcome never aborts the run; a storage failure aborts and leaves no
// partial artifact behind.
type Runner struct {
	suggester Suggester
	records   storage.RecordStore
	artifacts storage.ArtifactStore
	policy    cleaner.Policy
	sample    int
	logger    *zap.Logger
}

// Options configures a Runner.
type Options struct {
	// Policy is the cleaning policy; zero value means DefaultPolicy.
	Policy cleaner.Policy

	// SampleRows caps the rows sent to the inference service.
	SampleRows int
}

// NewRunner wires a runner from its collaborators.
func NewRunner(
	suggester Suggester,
	records storage.RecordStore,
	artifacts storage.ArtifactStore,
	opts Options,
	logger *zap.Logger,
) *Runner {
	policy := opts.Policy
	if policy == (cleaner.Policy{}) {
		policy = cleaner.DefaultPolicy()
	}
	sample := opts.SampleRows
	if sample <= 0 {
		sample = 5
	}
	return &Runner{
		suggester: suggester,
		records:   records,
		artifacts: artifacts,
		policy:    policy,
		sample:    sample,
		logger:    logger,
	}
}

// Run processes one upload end to end. On success the returned result
// is owned by the caller. Two runs over the same bytes with the same
// policy produce byte-identical cleaned output and an identical change
// log; only the advisory guidance text may differ between runs.
func (r *Runner) Run(ctx context.Context, up Upload) (*model.CleaningResult, error) {
	runID := uuid.New().String()
	log := r.logger.With(zap.String("run_id", runID), zap.String("filename", up.Filename))
	start := time.Now()

	table, err := loader.Load(up.Data, up.Filename)
	if err != nil {
		log.Warn("upload rejected", zap.Error(err))
		return nil, err
	}
	log.Info("table loaded",
		zap.Int("rows", table.RowCount()),
		zap.Int("columns", len(table.Columns)))

	profile := profiler.Profile(table)
	log.Info("table profiled",
		zap.Int("missing_cells", profile.TotalMissing),
		zap.Int("duplicate_rows", profile.DuplicateRowCount))

	// Guidance is advisory: the suggester absorbs every failure mode,
	// including cancellation, into source=unavailable.
	guidance := r.suggester.Suggest(ctx, profile, suggest.SampleRows(table, r.sample), table.Header())
	log.Info("guidance retrieved", zap.String("source", string(guidance.Source)))

	plan := cleaner.BuildPlan(profile, r.policy)
	cleaned, changeLog, err := cleaner.Apply(table, profile, plan)
	if err != nil {
		log.Error("cleaning plan invalid", zap.Error(err))
		return nil, err
	}
	log.Info("table cleaned",
		zap.Int("rows_after", cleaned.RowCount()),
		zap.Int("columns_after", len(cleaned.Columns)),
		zap.Int("operations", len(changeLog)))

	text := summary.Summarize(profile, changeLog, guidance)

	artifact, err := r.artifacts.Save(ctx, cleaned, up.Filename)
	if err != nil {
		log.Error("artifact persistence failed", zap.Error(err))
		return nil, err
	}

	if err := r.records.SaveResult(ctx, up.UserID, storage.ResultRecord{
		RunID:          runID,
		Filename:       up.Filename,
		Artifact:       artifact,
		RowsBefore:     profile.RowCount,
		RowsAfter:      cleaned.RowCount(),
		ColumnsBefore:  profile.ColumnCount,
		ColumnsAfter:   len(cleaned.Columns),
		GuidanceSource: string(guidance.Source),
	}); err != nil {
		// No partial output: the artifact goes away with the failed record.
		if rmErr := r.artifacts.Remove(ctx, artifact); rmErr != nil {
			log.Error("orphaned artifact could not be removed",
				zap.String("artifact", artifact), zap.Error(rmErr))
		}
		log.Error("result record failed", zap.Error(err))
		return nil, err
	}

	log.Info("cleaning run complete",
		zap.String("artifact", artifact),
		zap.Duration("duration", time.Since(start)))

	return &model.CleaningResult{
		RunID:     runID,
		Table:     cleaned,
		Profile:   profile,
		ChangeLog: changeLog,
		Guidance:  guidance,
		Summary:   text,
		Artifact:  artifact,
	}, nil
}
