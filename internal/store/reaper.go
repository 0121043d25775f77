// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vgrab/vgrab/internal/log"
)

// Reaper periodically sweeps the store, deleting files older than the window.
// It is the safety net behind eager post-response deletion: it catches files
// leaked by crashes and abandoned partials.
type Reaper struct {
	store  *Store
	window time.Duration
	tick   time.Duration
	logger zerolog.Logger
}

// NewReaper creates a Reaper over the given store.
func NewReaper(s *Store, window, tick time.Duration) *Reaper {
	return &Reaper{
		store:  s,
		window: window,
		tick:   tick,
		logger: log.WithComponent("reaper"),
	}
}

// Run sweeps every tick until ctx is cancelled. It acquires no cross-cutting
// lock and tolerates handlers creating and deleting files concurrently.
func (r *Reaper) Run(ctx context.Context) {
	r.logger.Info().
		Dur("tick", r.tick).
		Dur("window", r.window).
		Str("dir", r.store.Dir()).
		Msg("reaper started")

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("reaper stopped")
			return
		case <-ticker.C:
			if n := r.store.SweepOlderThan(r.window); n > 0 {
				r.logger.Info().Int("deleted", n).Msg("swept stale files")
			}
		}
	}
}
