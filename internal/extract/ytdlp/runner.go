// SPDX-License-Identifier: MIT

// Package ytdlp adapts the external yt-dlp engine to the extract contract.
// It shells out to the yt-dlp binary, translates its failures into the
// service's error taxonomy and confines all engine quirks to this boundary.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/vgrab/vgrab/internal/extract"
	"github.com/vgrab/vgrab/internal/log"
)

// Runner invokes the yt-dlp binary. It is stateless and safe for concurrent
// use; every call spawns one subprocess bound to the caller's context.
type Runner struct {
	binary string
	logger zerolog.Logger
}

// New returns a Runner for the given yt-dlp binary path.
func New(binary string) *Runner {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &Runner{
		binary: binary,
		logger: log.WithComponent("ytdlp"),
	}
}

// probeInfo mirrors the subset of yt-dlp's --dump-single-json output we use.
type probeInfo struct {
	Type           string  `json:"_type"`
	Title          string  `json:"title"`
	Duration       float64 `json:"duration"`
	DurationString string  `json:"duration_string"`
	Thumbnail      string  `json:"thumbnail"`
	Uploader       string  `json:"uploader"`
	UploadDate     string  `json:"upload_date"`
	ViewCount      int64   `json:"view_count"`
	LikeCount      int64   `json:"like_count"`
	Description    string  `json:"description"`
	WebpageURL     string  `json:"webpage_url"`
	Extractor      string  `json:"extractor"`
	Ext            string  `json:"ext"`
	FilesizeApprox int64   `json:"filesize_approx"`
	Formats        []struct {
		Filesize int64 `json:"filesize"`
	} `json:"formats"`
}

const maxDescriptionLen = 500

// Probe extracts metadata without downloading any media bytes.
func (r *Runner) Probe(ctx context.Context, req extract.ProbeRequest) (*extract.MediaInfo, error) {
	args := []string{
		"--dump-single-json",
		"--no-download",
		"--no-playlist",
		"--no-warnings",
		"--quiet",
	}
	args = append(args, clientArgs(req.Client, req.CredFile)...)
	args = append(args, "--", req.URL)

	stdout, stderr, err := r.run(ctx, args, nil)
	if err != nil {
		return nil, classify(stderr, err)
	}

	var info probeInfo
	if err := json.Unmarshal(stdout, &info); err != nil {
		return nil, extract.NewError(extract.KindInternal, "engine produced unparseable metadata", err)
	}
	if info.Type == "playlist" || info.Type == "multi_video" {
		return nil, extract.NewError(extract.KindAmbiguousInput, "url resolves to a playlist", nil)
	}

	return toMediaInfo(req.URL, info), nil
}

// Fetch downloads media to req.OutPath (plus an engine-chosen extension),
// enforcing the duration and size caps before any bytes move. Partial output
// is deleted on every failure path.
func (r *Runner) Fetch(ctx context.Context, req extract.FetchRequest) (*extract.FetchedFile, error) {
	emit(req.Progress, extract.Progress{Stage: extract.StageStart})

	info, err := r.Probe(ctx, extract.ProbeRequest{URL: req.URL, Client: req.Client, CredFile: req.CredFile})
	if err != nil {
		emit(req.Progress, extract.Progress{Stage: extract.StageFailed})
		return nil, err
	}

	// Caps are inclusive: a probe exactly at the cap is accepted.
	if req.Caps.MaxDurationSec > 0 && int64(info.DurationSec) > req.Caps.MaxDurationSec {
		emit(req.Progress, extract.Progress{Stage: extract.StageFailed})
		return nil, extract.NewError(extract.KindTooLong,
			fmt.Sprintf("duration %ds exceeds cap %ds", info.DurationSec, req.Caps.MaxDurationSec), nil)
	}
	if req.Caps.MaxBytes > 0 && info.FilesizeApprox > req.Caps.MaxBytes {
		emit(req.Progress, extract.Progress{Stage: extract.StageFailed})
		return nil, extract.NewError(extract.KindTooLarge,
			fmt.Sprintf("approximate size %d exceeds cap %d", info.FilesizeApprox, req.Caps.MaxBytes), nil)
	}

	format := req.Format
	if format == "" {
		format = "best[ext=mp4]/best"
	}

	args := []string{
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"-f", format,
		"-o", req.OutPath + ".%(ext)s",
		"--progress-template", progressTemplate,
	}
	if req.Caps.MaxBytes > 0 {
		args = append(args, "--max-filesize", fmt.Sprintf("%d", req.Caps.MaxBytes))
	}
	args = append(args, clientArgs(req.Client, req.CredFile)...)
	args = append(args, "--", req.URL)

	tracker := newTracker(req.Progress, req.Caps.MaxBytes)
	_, stderr, err := r.run(ctx, args, tracker)
	tracker.close()

	if err == nil && tracker.capExceeded() {
		// The engine kept going past the byte cap; treat as oversize.
		err = errors.New("byte cap exceeded during download")
		stderr = []byte("File is larger than max-filesize")
	}
	if err != nil {
		r.removePartials(req.OutPath)
		emit(req.Progress, extract.Progress{Stage: extract.StageFailed})
		return nil, classify(stderr, err)
	}

	path, size, err := r.locateOutput(req.OutPath)
	if err != nil {
		r.removePartials(req.OutPath)
		emit(req.Progress, extract.Progress{Stage: extract.StageFailed})
		return nil, extract.NewError(extract.KindInternal, "output file missing after download", err)
	}
	if req.Caps.MaxBytes > 0 && size > req.Caps.MaxBytes {
		r.removePartials(req.OutPath)
		emit(req.Progress, extract.Progress{Stage: extract.StageFailed})
		return nil, extract.NewError(extract.KindTooLarge,
			fmt.Sprintf("downloaded %d bytes, cap is %d", size, req.Caps.MaxBytes), nil)
	}

	emit(req.Progress, extract.Progress{Stage: extract.StageComplete, Percent: 100, Downloaded: size, Total: size})

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	return &extract.FetchedFile{
		Path:     path,
		MIMEType: mimeForExt(ext),
		Filename: sanitizeFilename(info.Title) + "." + ext,
		Size:     size,
	}, nil
}

// run spawns the engine and waits for it. Progress lines on stdout are fed to
// the tracker; stderr is retained (bounded) for classification.
func (r *Runner) run(ctx context.Context, args []string, tracker *tracker) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.WaitDelay = 5 * time.Second

	var stderr limitedBuffer
	cmd.Stderr = &stderr

	var stdout bytes.Buffer
	if tracker != nil {
		cmd.Stdout = tracker
	} else {
		cmd.Stdout = &stdout
	}

	start := time.Now()
	err := cmd.Run()
	r.logger.Debug().
		Strs("args", redactArgs(args)).
		Dur("elapsed", time.Since(start)).
		Bool("ok", err == nil).
		Msg("engine invocation finished")

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// clientArgs renders the impersonation and credential flags for a profile.
func clientArgs(client, credFile string) []string {
	var args []string
	if client != "" {
		args = append(args, "--extractor-args", "youtube:player_client="+client)
	}
	if credFile != "" {
		args = append(args, "--cookies", credFile)
	}
	return args
}

// redactArgs masks credential file paths before logging.
func redactArgs(args []string) []string {
	out := make([]string, len(args))
	copy(out, args)
	for i := 0; i < len(out)-1; i++ {
		if out[i] == "--cookies" {
			out[i+1] = "[redacted]"
		}
	}
	return out
}

// locateOutput finds the file the engine wrote for the extension-less staging
// path, skipping in-progress .part files.
func (r *Runner) locateOutput(outPath string) (string, int64, error) {
	matches, err := filepath.Glob(outPath + ".*")
	if err != nil {
		return "", 0, err
	}
	for _, m := range matches {
		if strings.HasSuffix(m, ".part") || strings.HasSuffix(m, ".ytdl") {
			continue
		}
		st, err := os.Stat(m)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		return m, st.Size(), nil
	}
	return "", 0, fmt.Errorf("no output for %s", outPath)
}

// removePartials deletes anything the engine left behind for this identifier.
func (r *Runner) removePartials(outPath string) {
	matches, err := filepath.Glob(outPath + ".*")
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("path", m).Msg("failed to remove partial download")
		}
	}
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func toMediaInfo(url string, info probeInfo) *extract.MediaInfo {
	desc := truncate(info.Description, maxDescriptionLen)
	webpage := info.WebpageURL
	if webpage == "" {
		webpage = url
	}

	// Refine the approximate size with the largest known per-format size,
	// mirroring what clients get when they download "best".
	approx := info.FilesizeApprox
	for _, f := range info.Formats {
		if f.Filesize > approx {
			approx = f.Filesize
		}
	}

	return &extract.MediaInfo{
		Title:            info.Title,
		DurationSec:      int64(info.Duration),
		DurationString:   info.DurationString,
		Thumbnail:        info.Thumbnail,
		Uploader:         info.Uploader,
		UploadDate:       info.UploadDate,
		ViewCount:        info.ViewCount,
		LikeCount:        info.LikeCount,
		Description:      desc,
		WebpageURL:       webpage,
		Extractor:        info.Extractor,
		FormatsAvailable: len(info.Formats),
		FilesizeApprox:   approx,
	}
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case "mp4", "m4v":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "mkv":
		return "video/x-matroska"
	case "m4a":
		return "audio/mp4"
	case "mp3":
		return "audio/mpeg"
	case "opus", "ogg":
		return "audio/ogg"
	default:
		return "application/octet-stream"
	}
}

// sanitizeFilename reduces a title to a safe attachment filename.
func sanitizeFilename(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "video"
	}
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), " .")
	if out == "" {
		return "video"
	}
	if len(out) > 120 {
		out = out[:120]
	}
	return out
}

// limitedBuffer retains at most 64 KiB of engine stderr for classification.
type limitedBuffer struct {
	buf bytes.Buffer
}

func (lb *limitedBuffer) Write(p []byte) (int, error) {
	const limit = 64 * 1024
	if lb.buf.Len() < limit {
		n := limit - lb.buf.Len()
		if n > len(p) {
			n = len(p)
		}
		lb.buf.Write(p[:n])
	}
	return len(p), nil
}

func (lb *limitedBuffer) Bytes() []byte { return lb.buf.Bytes() }
