// pkg/retention/retention.go
package retention

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Sweeper deletes artifacts older than MaxAge from Dir on a fixed
// interval. Subdirectories are left alone.
type Sweeper struct {
	Dir      string
	MaxAge   time.Duration
	Interval time.Duration
	Logger   *zap.Logger
}

// Run sweeps immediately and then on every interval tick until ctx is
// cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	s.sweepAndLog()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepAndLog()
		}
	}
}

func (s *Sweeper) sweepAndLog() {
	deleted, errs := s.Sweep()
	if deleted > 0 || errs > 0 {
		s.Logger.Info("artifact retention sweep finished",
			zap.String("dir", s.Dir),
			zap.Int("deleted", deleted),
			zap.Int("errors", errs))
	}
}

// Sweep removes files in Dir whose modification time is older than
// MaxAge and returns how many were deleted and how many failed.
func (s *Sweeper) Sweep() (deleted, errs int) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.Logger.Warn("retention sweep cannot read directory",
				zap.String("dir", s.Dir), zap.Error(err))
			errs++
		}
		return deleted, errs
	}

	cutoff := time.Now().Add(-s.MaxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs++
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.Dir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.Logger.Warn("retention sweep could not delete file",
				zap.String("path", path), zap.Error(err))
			errs++
			continue
		}
		deleted++
	}
	return deleted, errs
}
