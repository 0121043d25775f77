// SPDX-License-Identifier: MIT

package ytdlp

import (
	"bytes"
	"strconv"
	"strings"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/vgrab/vgrab/internal/extract"
	"github.com/vgrab/vgrab/internal/log"
)

// progressTemplate makes the engine print one machine-readable line per
// progress tick on stdout.
const progressTemplate = "download:vgrab %(progress.downloaded_bytes)s %(progress.total_bytes)s %(progress.total_bytes_estimate)s"

var milestones = []int{25, 50, 75}

// tracker parses engine progress lines and forwards milestone events to the
// consumer without ever blocking the download pipe. Events flow through a
// bounded channel drained by a dedicated goroutine; surplus events are
// dropped, milestone events always fit the buffer.
type tracker struct {
	events   chan extract.Progress
	done     chan struct{}
	partial  []byte
	nextMile int
	maxBytes int64
	overCap  atomic.Bool
	logLimit *rate.Limiter
}

func newTracker(fn extract.ProgressFunc, maxBytes int64) *tracker {
	t := &tracker{
		events:   make(chan extract.Progress, 16),
		done:     make(chan struct{}),
		maxBytes: maxBytes,
		logLimit: rate.NewLimiter(rate.Limit(1), 1),
	}
	go func() {
		defer close(t.done)
		for ev := range t.events {
			if fn != nil {
				fn(ev)
			}
		}
	}()
	return t
}

// Write implements io.Writer over the engine's stdout. Lines may arrive split
// across writes.
func (t *tracker) Write(p []byte) (int, error) {
	t.partial = append(t.partial, p...)
	for {
		idx := bytes.IndexByte(t.partial, '\n')
		if idx < 0 {
			break
		}
		line := string(t.partial[:idx])
		t.partial = t.partial[idx+1:]
		t.consume(strings.TrimSpace(line))
	}
	return len(p), nil
}

func (t *tracker) consume(line string) {
	if !strings.HasPrefix(line, "vgrab ") {
		return
	}
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return
	}
	downloaded := parseBytes(fields[1])
	total := parseBytes(fields[2])
	if total <= 0 {
		total = parseBytes(fields[3])
	}

	if t.logLimit.Allow() {
		logger := log.WithComponent("ytdlp")
		logger.Debug().
			Int64("downloaded", downloaded).
			Int64("total", total).
			Msg("download progress")
	}

	if t.maxBytes > 0 && downloaded > t.maxBytes {
		t.overCap.Store(true)
	}

	if total <= 0 || downloaded <= 0 {
		return
	}
	percent := int(downloaded * 100 / total)
	for t.nextMile < len(milestones) && percent >= milestones[t.nextMile] {
		t.offer(extract.Progress{
			Stage:      extract.StageMilestone,
			Percent:    milestones[t.nextMile],
			Downloaded: downloaded,
			Total:      total,
		})
		t.nextMile++
	}
}

// offer enqueues without blocking; a full buffer drops the event.
func (t *tracker) offer(ev extract.Progress) {
	select {
	case t.events <- ev:
	default:
	}
}

func (t *tracker) capExceeded() bool { return t.overCap.Load() }

// close stops the dispatch goroutine and waits for queued events to drain so
// callers observe milestones before the terminal event.
func (t *tracker) close() {
	close(t.events)
	<-t.done
}

// emit invokes the consumer directly for lifecycle events raised outside the
// download pipe (start, complete, failed).
func emit(fn extract.ProgressFunc, ev extract.Progress) {
	if fn != nil {
		fn(ev)
	}
}

// parseBytes handles the engine printing "NA" or float-formatted byte counts.
func parseBytes(s string) int64 {
	if s == "" || s == "NA" || s == "None" {
		return 0
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}
