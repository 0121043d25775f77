// SPDX-License-Identifier: MIT

// Package extract defines the engine-neutral contract between the media
// extraction engine and the rest of the service: metadata snapshots, fetch
// results, progress events and the error taxonomy.
package extract

import (
	"context"
	"time"
)

// MediaInfo is an immutable metadata snapshot returned by a probe.
// All fields except WebpageURL are optional.
type MediaInfo struct {
	Title            string `json:"title,omitempty"`
	DurationSec      int64  `json:"duration,omitempty"`
	DurationString   string `json:"duration_string,omitempty"`
	Thumbnail        string `json:"thumbnail,omitempty"`
	Uploader         string `json:"uploader,omitempty"`
	UploadDate       string `json:"upload_date,omitempty"`
	ViewCount        int64  `json:"view_count,omitempty"`
	LikeCount        int64  `json:"like_count,omitempty"`
	Description      string `json:"description,omitempty"`
	WebpageURL       string `json:"webpage_url"`
	Extractor        string `json:"extractor,omitempty"`
	FormatsAvailable int    `json:"formats_available,omitempty"`
	FilesizeApprox   int64  `json:"filesize_approx,omitempty"`
}

// FetchedFile describes a completed download staged in the store.
// The handler owns it until streamed; afterwards ownership transfers to the
// reaper via eager deletion.
type FetchedFile struct {
	Path     string
	MIMEType string
	Filename string
	Size     int64
}

// ProgressStage identifies a point in a fetch lifecycle.
type ProgressStage string

const (
	StageStart     ProgressStage = "start"
	StageMilestone ProgressStage = "milestone"
	StageComplete  ProgressStage = "complete"
	StageFailed    ProgressStage = "failed"
)

// Progress is a single fetch progress event. Events for one fetch are ordered
// monotonically by Percent.
type Progress struct {
	Stage      ProgressStage
	Percent    int
	Downloaded int64
	Total      int64
}

// ProgressFunc consumes progress events. Implementations must not block; the
// engine drops events a slow consumer cannot keep up with.
type ProgressFunc func(Progress)

// Caps bounds a single fetch.
type Caps struct {
	MaxBytes       int64
	MaxDurationSec int64
}

// ProbeRequest describes a metadata-only extraction.
type ProbeRequest struct {
	URL      string
	Client   string // upstream player-client impersonation, e.g. "ios"
	CredFile string // optional cookie file path
}

// FetchRequest describes a download.
type FetchRequest struct {
	URL      string
	Client   string
	CredFile string
	Format   string
	OutPath  string // extension-less staging path; the engine picks the extension
	Caps     Caps
	Progress ProgressFunc
}

// Engine is the narrow interface over the external extraction library.
// Both operations are synchronous and honour ctx cancellation.
type Engine interface {
	Probe(ctx context.Context, req ProbeRequest) (*MediaInfo, error)
	Fetch(ctx context.Context, req FetchRequest) (*FetchedFile, error)
}

// Attempt records one profile attempt within a request.
type Attempt struct {
	Profile string        `json:"profile"`
	Outcome Outcome       `json:"outcome"`
	Kind    Kind          `json:"kind,omitempty"`
	Elapsed time.Duration `json:"-"`
}

// ElapsedMs is the wire representation of Attempt.Elapsed.
func (a Attempt) ElapsedMs() int64 { return a.Elapsed.Milliseconds() }

// Outcome classifies an attempt result.
type Outcome string

const (
	OutcomeOK        Outcome = "ok"
	OutcomeTransient Outcome = "transient"
	OutcomePermanent Outcome = "permanent"
)
