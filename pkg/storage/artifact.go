// pkg/storage/artifact.go
package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tablebot/tablebot/pkg/model"
)

// ArtifactStore persists cleaned tables and returns descriptors rather
// than bytes.
type ArtifactStore interface {
	Save(ctx context.Context, t *model.Table, sourceName string) (string, error)
	Remove(ctx context.Context, descriptor string) error
}

// LocalArtifacts writes cleaned tables as CSV files under one directory.
type LocalArtifacts struct {
	Dir string

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewLocalArtifacts creates the output directory if needed.
func NewLocalArtifacts(dir string) (*LocalArtifacts, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &StorageError{Op: "init artifacts", Err: err}
	}
	return &LocalArtifacts{Dir: dir, now: time.Now}, nil
}

// Save writes the table as cleaned_<unix>_<source>.csv and returns the
// full path as the artifact descriptor. The file is written completely
// or not at all: a temp file is renamed into place only on success.
func (s *LocalArtifacts) Save(ctx context.Context, t *model.Table, sourceName string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &StorageError{Op: "save artifact", Err: err}
	}

	base := filepath.Base(sourceName)
	if base == "." || base == "/" || base == "" {
		base = "table.csv"
	}
	name := fmt.Sprintf("cleaned_%d_%s", s.now().Unix(), base)
	path := filepath.Join(s.Dir, name)

	tmp, err := os.CreateTemp(s.Dir, ".tmp-artifact-*")
	if err != nil {
		return "", &StorageError{Op: "save artifact", Err: err}
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(t.Header()); err != nil {
		tmp.Close()
		return "", &StorageError{Op: "save artifact", Err: err}
	}
	for i := 0; i < t.RowCount(); i++ {
		if err := w.Write(t.Row(i)); err != nil {
			tmp.Close()
			return "", &StorageError{Op: "save artifact", Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return "", &StorageError{Op: "save artifact", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return "", &StorageError{Op: "save artifact", Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", &StorageError{Op: "save artifact", Err: err}
	}
	return path, nil
}

// Remove deletes a previously saved artifact.
func (s *LocalArtifacts) Remove(ctx context.Context, descriptor string) error {
	if err := os.Remove(descriptor); err != nil && !os.IsNotExist(err) {
		return &StorageError{Op: "remove artifact", Err: err}
	}
	return nil
}
