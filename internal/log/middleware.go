// SPDX-License-Identifier: MIT

package log

import (
	"net/http"
	"time"
)

// Middleware returns an HTTP middleware that emits one structured access log
// entry per request, correlated with the request ID from context.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(lw, r)

			logger := WithComponentFromContext(r.Context(), "http")
			logger.Info().
				Str("event", "http.request").
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", lw.status).
				Int64("bytes", lw.bytes).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}

type loggingWriter struct {
	http.ResponseWriter
	status  int
	bytes   int64
	written bool
}

func (lw *loggingWriter) WriteHeader(status int) {
	if !lw.written {
		lw.status = status
		lw.written = true
	}
	lw.ResponseWriter.WriteHeader(status)
}

func (lw *loggingWriter) Write(b []byte) (int, error) {
	if !lw.written {
		lw.WriteHeader(http.StatusOK)
	}
	n, err := lw.ResponseWriter.Write(b)
	lw.bytes += int64(n)
	return n, err
}

// Flush lets streaming handlers flush through the logging writer.
func (lw *loggingWriter) Flush() {
	if f, ok := lw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
