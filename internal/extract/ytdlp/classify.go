// SPDX-License-Identifier: MIT

package ytdlp

import (
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/vgrab/vgrab/internal/extract"
)

// classification table, checked in order. First match wins, so the more
// specific patterns come first.
var patterns = []struct {
	needle string
	kind   extract.Kind
}{
	{"sign in to confirm you're not a bot", extract.KindBotChallenge},
	{"confirm you’re not a bot", extract.KindBotChallenge},
	{"http error 403", extract.KindBotChallenge},
	{"http error 429", extract.KindThrottled},
	{"too many requests", extract.KindThrottled},
	{"rate-limited", extract.KindThrottled},
	{"sign in to confirm your age", extract.KindAuthRequired},
	{"age-restricted", extract.KindAuthRequired},
	{"login required", extract.KindAuthRequired},
	{"use --cookies", extract.KindAuthRequired},
	{"members-only", extract.KindAuthRequired},
	{"private video", extract.KindNotFound},
	{"video unavailable", extract.KindNotFound},
	{"has been removed", extract.KindNotFound},
	{"account associated with this video has been terminated", extract.KindNotFound},
	{"available in your country", extract.KindGeoBlocked},
	{"geo restriction", extract.KindGeoBlocked},
	{"geo-restricted", extract.KindGeoBlocked},
	{"requested format is not available", extract.KindBadFormat},
	{"invalid format specification", extract.KindBadFormat},
	{"file is larger than max-filesize", extract.KindTooLarge},
	{"no space left on device", extract.KindNoSpace},
	{"unsupported url", extract.KindAmbiguousInput},
	{"is not a valid url", extract.KindAmbiguousInput},
	{"http error 5", extract.KindUnavailable},
	{"timed out", extract.KindUnavailable},
	{"connection refused", extract.KindUnavailable},
	{"temporary failure", extract.KindUnavailable},
	{"unable to download", extract.KindUnavailable},
}

// classify translates an engine failure into the service taxonomy. Everything
// above the adapter sees only classified errors.
func classify(stderr []byte, err error) error {
	if err == nil {
		return nil
	}

	// Cancellation propagates untouched so callers can tell an aborted request
	// from an upstream failure; a per-attempt deadline reads as Unavailable.
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return extract.NewError(extract.KindUnavailable, "engine timed out", err)
	}

	text := strings.ToLower(string(stderr))
	for _, p := range patterns {
		if strings.Contains(text, p.needle) {
			return extract.NewError(p.kind, firstErrorLine(string(stderr)), err)
		}
	}

	// The engine ran and reported an extractor error we don't recognise:
	// treat it as a transient upstream failure so fallback can advance.
	if strings.Contains(text, "error:") {
		return extract.NewError(extract.KindUnavailable, firstErrorLine(string(stderr)), err)
	}

	// The process could not run at all (missing binary, exec failure).
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return extract.NewError(extract.KindInternal, "engine binary not runnable", err)
	}
	return extract.NewError(extract.KindInternal, "engine failed without diagnostics", err)
}

// firstErrorLine extracts the first ERROR line from engine stderr, bounded so
// upstream noise never floods attempt records.
func firstErrorLine(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(line), "error:") {
			return truncate(line, 200)
		}
	}
	return strings.TrimSpace(truncate(stderr, 200))
}
