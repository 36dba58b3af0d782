package logstore

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dattu/commitlog_store/pkg/backend"
)

// Sweeper deletes staging files abandoned by crashed writers. A live
// attempt owns its temp file from creation to rename, so anything still
// matching the temp naming pattern after the TTL has no owner left.
// Committed files are never candidates.
type Sweeper struct {
	fs     backend.FileSystem
	dirs   []string
	ttl    time.Duration
	logger logrus.FieldLogger
}

// NewSweeper watches the given log directories with the given TTL.
func NewSweeper(fs backend.FileSystem, dirs []string, ttl time.Duration, logger logrus.FieldLogger) *Sweeper {
	return &Sweeper{fs: fs, dirs: dirs, ttl: ttl, logger: logger}
}

// Run sweeps at half-TTL intervals until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	tick := time.NewTicker(s.ttl / 2)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if n, err := s.Sweep(); err != nil {
				s.logger.WithError(err).Warn("temp sweep failed")
			} else if n > 0 {
				s.logger.WithField("removed", n).Info("swept abandoned staging files")
			}
		}
	}
}

// Sweep deletes stale temp files once and reports how many were removed.
func (s *Sweeper) Sweep() (int, error) {
	cutoff := time.Now().Add(-s.ttl)
	removed := 0
	for _, dir := range s.dirs {
		entries, err := s.fs.List(dir)
		if err != nil {
			return removed, err
		}
		for _, e := range entries {
			if e.IsDir || !IsTempName(e.Name) || !e.ModTime.Before(cutoff) {
				continue
			}
			ok, err := s.fs.Delete(backend.Join(dir, e.Name), false)
			if err != nil {
				s.logger.WithField("path", e.Name).WithError(err).Warn("sweep delete failed")
				continue
			}
			if ok {
				sweptTotal.Inc()
				removed++
			}
		}
	}
	return removed, nil
}
