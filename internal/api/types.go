// SPDX-License-Identifier: MIT

package api

import (
	"github.com/vgrab/vgrab/internal/extract"
)

// probeRequest is the /api/info body.
type probeRequest struct {
	URL     string `json:"url"`
	Profile string `json:"profile,omitempty"`
}

// downloadRequest is the /api/download and /api/stream body.
type downloadRequest struct {
	URL                string `json:"url"`
	Format             string `json:"format,omitempty"`
	Profile            string `json:"profile,omitempty"`
	MaxDurationSeconds int64  `json:"maxDurationSeconds,omitempty"`
}

// probeResponse wraps a successful probe.
type probeResponse struct {
	Success bool               `json:"success"`
	Data    *extract.MediaInfo `json:"data"`
}

// attemptView is the wire form of one fallback attempt.
type attemptView struct {
	Profile   string `json:"profile"`
	Outcome   string `json:"outcome"`
	Kind      string `json:"kind,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// errorResponse is the JSON error body shared by every endpoint. Attempts are
// present only when a fallback run failed.
type errorResponse struct {
	Error    string        `json:"error"`
	Message  string        `json:"message"`
	Attempts []attemptView `json:"attempts,omitempty"`
}

func attemptViews(attempts []extract.Attempt) []attemptView {
	if len(attempts) == 0 {
		return nil
	}
	views := make([]attemptView, 0, len(attempts))
	for _, a := range attempts {
		views = append(views, attemptView{
			Profile:   a.Profile,
			Outcome:   string(a.Outcome),
			Kind:      string(a.Kind),
			ElapsedMs: a.ElapsedMs(),
		})
	}
	return views
}

// healthResponse is the /health body.
type healthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	FreeDiskBytes int64  `json:"freeDiskBytes"`
	DownloadDir   string `json:"downloadDir"`
	Version       string `json:"version"`
}
