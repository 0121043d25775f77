// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vgrab/vgrab/internal/extract"
	"github.com/vgrab/vgrab/internal/fallback"
	"github.com/vgrab/vgrab/internal/log"
	"github.com/vgrab/vgrab/internal/store"
	"github.com/vgrab/vgrab/internal/telemetry"
	"github.com/vgrab/vgrab/internal/version"
)

// maxBodyBytes bounds request bodies; the endpoints only ever receive small
// JSON documents.
const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	free, err := store.FreeBytes(s.store.Dir())
	if err != nil {
		status = "degraded"
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Warn().Err(err).Msg("health: cannot stat store dir")
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        status,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		FreeDiskBytes: free,
		DownloadDir:   s.store.Dir(),
		Version:       version.Version,
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	var req probeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := validateURL(req.URL); msg != "" {
		writeBadRequest(w, msg)
		return
	}

	preferred := req.Profile
	if preferred == "" {
		preferred = s.cfg.DefaultProfile
	}

	info, _, err := s.ctrl.RunProbe(r.Context(), req.URL, preferred, fallback.Timeouts{
		PerAttempt: s.cfg.ProbeTimeout,
		PerRequest: s.cfg.RequestTimeout,
	})
	if err != nil {
		writeFallbackError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, probeResponse{Success: true, Data: info})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.serveFetch(w, r, false)
}

// handleStream degrades to a synchronous fetch followed by a chunked copy;
// the subprocess engine offers no tee of its own output.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.serveFetch(w, r, true)
}

func (s *Server) serveFetch(w http.ResponseWriter, r *http.Request, chunked bool) {
	var req downloadRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := validateURL(req.URL); msg != "" {
		writeBadRequest(w, msg)
		return
	}
	if req.MaxDurationSeconds < 0 {
		writeBadRequest(w, "maxDurationSeconds must be positive")
		return
	}

	// A request may tighten the duration cap but never widen it.
	maxDuration := int64(s.cfg.MaxDurationSec)
	if req.MaxDurationSeconds > 0 && req.MaxDurationSeconds < maxDuration {
		maxDuration = req.MaxDurationSeconds
	}

	format := req.Format
	if format == "" {
		format = s.cfg.DefaultFormat
	}
	preferred := req.Profile
	if preferred == "" {
		preferred = s.cfg.DefaultProfile
	}

	ctx := r.Context()
	if err := s.fetchSem.Acquire(ctx, 1); err != nil {
		return
	}
	defer s.fetchSem.Release(1)

	logger := log.WithComponentFromContext(ctx, "api")

	id := s.store.NewID(req.URL)
	trace.SpanFromContext(ctx).SetAttributes(attribute.String(telemetry.DownloadIDKey, id))
	file, _, err := s.ctrl.RunFetch(ctx, fallback.FetchSpec{
		URL:     req.URL,
		Format:  format,
		OutPath: s.store.StagingPath(id),
		Caps: extract.Caps{
			MaxBytes:       s.cfg.MaxDownloadBytes(),
			MaxDurationSec: maxDuration,
		},
		Progress: func(p extract.Progress) {
			if p.Stage == extract.StageMilestone {
				logger.Info().
					Str("id", id).
					Int("percent", p.Percent).
					Int64("downloaded", p.Downloaded).
					Msg("download progress")
			}
		},
	}, preferred, fallback.Timeouts{
		PerAttempt: s.cfg.FetchTimeout,
		PerRequest: s.cfg.FetchTimeout,
	})
	if err != nil {
		// The engine removes its own partials; this catches anything staged
		// under the identifier before the failing attempt.
		s.store.Remove(id, "failure")
		writeFallbackError(w, r, err)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64(telemetry.DownloadBytesKey, file.Size))
	s.sendFile(w, r, file, chunked)
	s.store.ScheduleRemove(id, s.cfg.PostResponseDelay)
}

// sendFile streams a fetched file to the client. The chunked path omits
// Content-Length and flushes every chunk.
func (s *Server) sendFile(w http.ResponseWriter, r *http.Request, file *extract.FetchedFile, chunked bool) {
	f, err := os.Open(file.Path)
	if err != nil {
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Error().Err(err).Msg("fetched file vanished before send")
		writeError(w, http.StatusInternalServerError, errorResponse{
			Error:   "Internal",
			Message: messageForKind(extract.KindInternal),
		})
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", file.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	if !chunked {
		w.Header().Set("Content-Length", strconv.FormatInt(file.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	var dst io.Writer = w
	if chunked {
		if fl, ok := w.(http.Flusher); ok {
			dst = flushWriter{w: w, f: fl}
		}
	}

	n, err := io.Copy(dst, f)
	downloadBytesTotal.Add(float64(n))
	if err != nil {
		// Almost always the client going away mid-transfer.
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Debug().Err(err).Int64("sent", n).Msg("send aborted")
	}
}

// flushWriter flushes after every write so chunked responses reach the
// client without buffering delay.
type flushWriter struct {
	w io.Writer
	f http.Flusher
}

func (fw flushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	fw.f.Flush()
	return n, err
}

// decodeBody parses the JSON request body, answering 400 on malformed input.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeBadRequest(w, "request body too large")
			return false
		}
		writeBadRequest(w, "request body must be a JSON object")
		return false
	}
	return true
}

// validateURL returns an error message for unusable URLs, empty when valid.
// Only absolute http(s) URLs reach the engine.
func validateURL(raw string) string {
	if raw == "" {
		return "url is required"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "url is not parseable"
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "url must be an absolute http(s) URL"
	}
	return ""
}
