// SPDX-License-Identifier: MIT

// Package auth implements API key extraction and verification.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// HeaderAPIKey is the header automation clients present the shared secret in.
const HeaderAPIKey = "X-API-Key"

// ExtractKey retrieves the API key from the request.
// 1. X-API-Key header
// 2. Authorization: Bearer <key>
func ExtractKey(r *http.Request) string {
	if k := r.Header.Get(HeaderAPIKey); k != "" {
		return strings.TrimSpace(k)
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// AuthorizeKey returns true if got matches expected using constant-time
// comparison. Empty keys are always treated as unauthorized.
func AuthorizeKey(got, expected string) bool {
	if strings.TrimSpace(expected) == "" || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

// AuthorizeRequest extracts a key from r and validates it against expected.
func AuthorizeRequest(r *http.Request, expected string) bool {
	if r == nil {
		return false
	}
	return AuthorizeKey(ExtractKey(r), expected)
}
