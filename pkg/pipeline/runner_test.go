// pkg/pipeline/runner_test.go
package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/tablebot/tablebot/pkg/loader"
	"github.com/tablebot/tablebot/pkg/model"
	"github.com/tablebot/tablebot/pkg/storage"
)

type fakeSuggester struct {
	guidance model.Guidance
}

func (f *fakeSuggester) Suggest(context.Context, *model.TableProfile, [][]string, []string) model.Guidance {
	return f.guidance
}

type fakeRecords struct {
	storage.RecordStore

	saved   []storage.ResultRecord
	saveErr error
}

func (f *fakeRecords) SaveResult(_ context.Context, _ int64, rec storage.ResultRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, rec)
	return nil
}

type fakeArtifacts struct {
	saved   []string
	removed []string
	saveErr error
}

func (f *fakeArtifacts) Save(_ context.Context, _ *model.Table, sourceName string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	path := "outputs/cleaned_" + sourceName
	f.saved = append(f.saved, path)
	return path, nil
}

func (f *fakeArtifacts) Remove(_ context.Context, descriptor string) error {
	f.removed = append(f.removed, descriptor)
	return nil
}

const uploadCSV = "id,value\n1,10\n2,\n3,30\n4,40\n3,30\n"

func newTestRunner(records *fakeRecords, artifacts *fakeArtifacts, g model.Guidance) *Runner {
	return NewRunner(&fakeSuggester{guidance: g}, records, artifacts, Options{}, zap.NewNop())
}

func TestRunEndToEnd(t *testing.T) {
	t.Parallel()

	records := &fakeRecords{}
	artifacts := &fakeArtifacts{}
	guidance := model.Guidance{Advice: "drop the dupes", Source: model.GuidanceAPI, Model: "m"}
	runner := newTestRunner(records, artifacts, guidance)

	res, err := runner.Run(context.Background(), Upload{
		UserID:   7,
		Filename: "orders.csv",
		Data:     []byte(uploadCSV),
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.RunID == "" {
		t.Error("result has no run ID")
	}
	if got := res.Table.RowCount(); got != 4 {
		t.Errorf("cleaned rows = %d, want 4", got)
	}
	if len(res.ChangeLog) != 2 {
		t.Errorf("change log has %d entries, want 2", len(res.ChangeLog))
	}
	if res.Summary == "" {
		t.Error("result has no summary")
	}
	if res.Guidance.Source != model.GuidanceAPI {
		t.Errorf("guidance source = %q, want api", res.Guidance.Source)
	}

	if len(records.saved) != 1 {
		t.Fatalf("records saved = %d, want 1", len(records.saved))
	}
	rec := records.saved[0]
	if rec.RowsBefore != 5 || rec.RowsAfter != 4 {
		t.Errorf("record rows = %d->%d, want 5->4", rec.RowsBefore, rec.RowsAfter)
	}
	if rec.Artifact != res.Artifact {
		t.Errorf("record artifact %q != result artifact %q", rec.Artifact, res.Artifact)
	}
	if rec.GuidanceSource != "api" {
		t.Errorf("record guidance source = %q, want api", rec.GuidanceSource)
	}
}

func TestRunSucceedsWithoutGuidance(t *testing.T) {
	t.Parallel()

	records := &fakeRecords{}
	artifacts := &fakeArtifacts{}
	runner := newTestRunner(records, artifacts, model.Unavailable())

	res, err := runner.Run(context.Background(), Upload{Filename: "t.csv", Data: []byte(uploadCSV)})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Guidance.Available() {
		t.Error("guidance reported available, want unavailable")
	}
	if len(records.saved) != 1 || records.saved[0].GuidanceSource != "unavailable" {
		t.Error("record missing the unavailable guidance source")
	}
}

func TestRunRejectsUnparseableUpload(t *testing.T) {
	t.Parallel()

	records := &fakeRecords{}
	artifacts := &fakeArtifacts{}
	runner := newTestRunner(records, artifacts, model.Unavailable())

	_, err := runner.Run(context.Background(), Upload{
		Filename: "photo.jpg",
		Data:     []byte{0xff, 0xd8, 0xff, 0xe0},
	})
	if err == nil {
		t.Fatal("Run succeeded on binary input")
	}
	if !loader.IsFormatError(err) {
		t.Errorf("error %v is not a format error", err)
	}
	if len(artifacts.saved) != 0 || len(records.saved) != 0 {
		t.Error("rejected upload still persisted something")
	}
}

func TestRunRemovesArtifactWhenRecordFails(t *testing.T) {
	t.Parallel()

	records := &fakeRecords{saveErr: &storage.StorageError{Op: "save result", Err: errors.New("db gone")}}
	artifacts := &fakeArtifacts{}
	runner := newTestRunner(records, artifacts, model.Unavailable())

	_, err := runner.Run(context.Background(), Upload{Filename: "t.csv", Data: []byte(uploadCSV)})
	if !storage.IsStorageError(err) {
		t.Fatalf("error = %v, want storage error", err)
	}
	if len(artifacts.saved) != 1 || len(artifacts.removed) != 1 {
		t.Fatalf("artifacts saved=%d removed=%d, want 1 and 1", len(artifacts.saved), len(artifacts.removed))
	}
	if artifacts.removed[0] != artifacts.saved[0] {
		t.Error("removed a different artifact than the one saved")
	}
}

func TestRunAbortsWhenArtifactSaveFails(t *testing.T) {
	t.Parallel()

	records := &fakeRecords{}
	artifacts := &fakeArtifacts{saveErr: &storage.StorageError{Op: "save artifact", Err: errors.New("disk full")}}
	runner := newTestRunner(records, artifacts, model.Unavailable())

	_, err := runner.Run(context.Background(), Upload{Filename: "t.csv", Data: []byte(uploadCSV)})
	if !storage.IsStorageError(err) {
		t.Fatalf("error = %v, want storage error", err)
	}
	if len(records.saved) != 0 {
		t.Error("record persisted despite artifact failure")
	}
}
