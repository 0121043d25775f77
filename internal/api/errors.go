// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vgrab/vgrab/internal/extract"
	"github.com/vgrab/vgrab/internal/fallback"
	"github.com/vgrab/vgrab/internal/log"
)

// statusForKind maps a symbolic error kind to an HTTP status. Kinds the table
// does not name are internal malfunction.
func statusForKind(kind extract.Kind) int {
	switch kind {
	case extract.KindAmbiguousInput:
		return http.StatusBadRequest
	case extract.KindNotFound:
		return http.StatusNotFound
	case extract.KindGeoBlocked:
		return http.StatusForbidden
	case extract.KindTooLong, extract.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	case extract.KindBadFormat:
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

// messageForKind returns the operator-safe human string for a kind. Engine
// internals never leak here.
func messageForKind(kind extract.Kind) string {
	switch kind {
	case extract.KindNotFound:
		return "The requested media does not exist or is private."
	case extract.KindGeoBlocked:
		return "The requested media is not available from this region."
	case extract.KindTooLong:
		return "The media exceeds the configured duration cap."
	case extract.KindTooLarge:
		return "The media exceeds the configured size cap."
	case extract.KindBadFormat:
		return "No matching format is available for this media."
	case extract.KindAmbiguousInput:
		return "The URL does not resolve to a single downloadable item."
	case extract.KindNoSpace:
		return "The server is out of storage space."
	default:
		return "An unexpected error occurred. Please try again later."
	}
}

// writeFallbackError translates a controller failure into the HTTP error
// contract: status from the failure reason or kind, attempts attached.
func writeFallbackError(w http.ResponseWriter, r *http.Request, err error) {
	var failure *fallback.Failure
	if !errors.As(err, &failure) {
		// Client disconnect surfaces as a bare context error; there is nobody
		// left to answer.
		logger := log.WithComponentFromContext(r.Context(), "api")
		logger.Debug().Err(err).Msg("request aborted")
		return
	}

	switch failure.Reason {
	case fallback.ReasonTimeout:
		writeError(w, http.StatusGatewayTimeout, errorResponse{
			Error:    "Timeout",
			Message:  "The request exceeded its time budget.",
			Attempts: attemptViews(failure.Attempts),
		})
	case fallback.ReasonNoProfiles:
		writeError(w, http.StatusBadGateway, errorResponse{
			Error:   "NoProfilesAvailable",
			Message: "No extraction profiles are available for this request.",
		})
	case fallback.ReasonExhausted:
		writeError(w, http.StatusBadGateway, errorResponse{
			Error:    string(failure.Kind),
			Message:  "Every extraction profile failed; the upstream may be blocking requests.",
			Attempts: attemptViews(failure.Attempts),
		})
	default: // ReasonPermanent
		writeError(w, statusForKind(failure.Kind), errorResponse{
			Error:    string(failure.Kind),
			Message:  messageForKind(failure.Kind),
			Attempts: attemptViews(failure.Attempts),
		})
	}
}

func writeError(w http.ResponseWriter, status int, body errorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, errorResponse{
		Error:   "BadRequest",
		Message: message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
