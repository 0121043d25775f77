// SPDX-License-Identifier: MIT

// Package store manages the ephemeral download directory: identifier
// allocation, eager post-response deletion and the background reaper sweep.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/vgrab/vgrab/internal/log"
)

var (
	filesReaped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vgrab",
		Name:      "store_files_deleted_total",
		Help:      "Files deleted from the download store",
	}, []string{"cause"})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "vgrab",
		Name:      "store_sweep_duration_seconds",
		Help:      "Duration of reaper sweeps",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
	})
)

// Store is a single flat directory on the ephemeral filesystem. Collision
// avoidance relies on unique identifiers, not locks; the directory tolerates
// concurrent writers.
type Store struct {
	dir    string
	seq    atomic.Uint64
	logger zerolog.Logger
}

// New opens (creating if needed) the store directory.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create download dir %s: %w", dir, err)
	}
	return &Store{
		dir:    dir,
		logger: log.WithComponent("store"),
	}, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// NewID allocates a fresh opaque 128-bit identifier for a request. It hashes
// the URL with a monotonic clock sample and a process-local sequence so two
// concurrent requests for the same URL never collide.
func (s *Store) NewID(url string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d", url, time.Now().UnixNano(), s.seq.Add(1))
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// StagingPath returns the extension-less output path for an identifier. The
// engine appends the concrete extension.
func (s *Store) StagingPath(id string) string {
	return filepath.Join(s.dir, id)
}

// Remove deletes every file staged under the identifier, including engine
// partials. Deletion is idempotent.
func (s *Store) Remove(id string, cause string) {
	matches, err := filepath.Glob(filepath.Join(s.dir, id) + ".*")
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			if !os.IsNotExist(err) {
				s.logger.Warn().Err(err).Str("path", m).Msg("failed to delete store file")
			}
			continue
		}
		filesReaped.WithLabelValues(cause).Inc()
		s.logger.Debug().Str("path", m).Str("cause", cause).Msg("deleted store file")
	}
}

// ScheduleRemove arranges deletion of an identifier's files after delay
// without blocking the handler path. The sweep catches anything a crash
// leaks before the timer fires.
func (s *Store) ScheduleRemove(id string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.Remove(id, "eager")
	})
}

// SweepOlderThan deletes regular files whose modification time is older than
// the window. It returns the number of files deleted. A sweep over an empty
// directory is a no-op.
func (s *Store) SweepOlderThan(window time.Duration) int {
	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn().Err(err).Msg("sweep: cannot read store dir")
		return 0
	}

	cutoff := time.Now().Add(-window)
	deleted := 0
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				s.logger.Warn().Err(err).Str("path", path).Msg("sweep: delete failed")
			}
			continue
		}
		filesReaped.WithLabelValues("sweep").Inc()
		deleted++
	}
	return deleted
}

// FileCount reports the number of regular files currently staged.
func (s *Store) FileCount() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if e.Type().IsRegular() {
			n++
		}
	}
	return n
}
