// SPDX-License-Identifier: MIT

package extract

import (
	"errors"
	"fmt"
)

// Kind is a symbolic error classification. Every engine failure maps to
// exactly one kind; the fallback controller keys its advance/stop decision on
// the kind's class.
type Kind string

const (
	// Transient kinds: the controller advances to the next profile.
	KindBotChallenge Kind = "BotChallenge"
	KindUnavailable  Kind = "Unavailable"
	KindThrottled    Kind = "Throttled"
	KindAuthRequired Kind = "AuthRequired"

	// Permanent kinds: the controller stops immediately.
	KindNotFound       Kind = "NotFound"
	KindGeoBlocked     Kind = "GeoBlocked"
	KindTooLong        Kind = "TooLong"
	KindTooLarge       Kind = "TooLarge"
	KindBadFormat      Kind = "BadFormat"
	KindAmbiguousInput Kind = "AmbiguousInput"
	KindNoSpace        Kind = "NoSpace"
	KindInternal       Kind = "Internal"
)

// Transient reports whether the controller should advance past a failure of
// this kind rather than stop.
func (k Kind) Transient() bool {
	switch k {
	case KindBotChallenge, KindUnavailable, KindThrottled, KindAuthRequired:
		return true
	}
	return false
}

// Error is the classified failure emitted at the engine boundary. Everything
// above the adapter receives tagged outcomes, never raw engine errors.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // underlying cause, logged but never surfaced to clients
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a classified extraction error.
func NewError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf extracts the classification from err, defaulting to Internal for
// anything outside the taxonomy.
func KindOf(err error) Kind {
	var xe *Error
	if errors.As(err, &xe) {
		return xe.Kind
	}
	return KindInternal
}
