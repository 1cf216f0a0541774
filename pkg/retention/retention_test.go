// pkg/retention/retention_test.go
package retention

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("data"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
	return path
}

func TestSweepDeletesOnlyExpiredFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := writeFile(t, dir, "cleaned_1_old.csv", 48*time.Hour)
	fresh := writeFile(t, dir, "cleaned_2_fresh.csv", time.Minute)
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}

	s := &Sweeper{Dir: dir, MaxAge: 24 * time.Hour, Logger: zap.NewNop()}
	deleted, errs := s.Sweep()

	if deleted != 1 || errs != 0 {
		t.Fatalf("Sweep = (%d, %d), want (1, 0)", deleted, errs)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("expired file still present")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh file was deleted")
	}
	if _, err := os.Stat(filepath.Join(dir, "nested")); err != nil {
		t.Error("subdirectory was deleted")
	}
}

func TestSweepMissingDirectory(t *testing.T) {
	t.Parallel()

	s := &Sweeper{Dir: filepath.Join(t.TempDir(), "gone"), MaxAge: time.Hour, Logger: zap.NewNop()}
	deleted, errs := s.Sweep()
	if deleted != 0 || errs != 0 {
		t.Errorf("Sweep on missing dir = (%d, %d), want (0, 0)", deleted, errs)
	}
}
