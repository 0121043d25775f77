// SPDX-License-Identifier: MIT

// Package creds holds the optional upstream credential blob in memory and
// materialises it as short-lived files only while a profile needs one.
package creds

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/renameio/v2"
	"github.com/google/uuid"

	"github.com/vgrab/vgrab/internal/log"
)

const netscapeHeader = "# Netscape HTTP Cookie File"

// Cookie names that indicate a signed-in upstream identity.
var authCookieNames = map[string]bool{
	"SID": true, "HSID": true, "SSID": true,
	"APISID": true, "SAPISID": true, "LOGIN_INFO": true,
}

// Store holds the decoded credential blob. The blob is read-only after Load;
// each Acquire materialises an independent copy, so concurrent fetches never
// share a file.
type Store struct {
	blob       []byte
	scratchDir string
}

// Load decodes the base64 credential blob and prepares a private scratch
// directory. Invalid encoding is a non-fatal warning: the store comes back
// empty and credentialled profiles are disabled.
func Load(blobBase64 string) *Store {
	logger := log.WithComponent("creds")
	s := &Store{}

	blobBase64 = strings.TrimSpace(blobBase64)
	if blobBase64 == "" {
		logger.Info().Msg("no credential blob configured, credentialled profiles disabled")
		return s
	}

	raw, err := base64.StdEncoding.DecodeString(blobBase64)
	if err != nil {
		logger.Warn().Err(err).Msg("credential blob is not valid base64, credentialled profiles disabled")
		return s
	}
	if len(raw) == 0 || !utf8.Valid(raw) {
		logger.Warn().Msg("credential blob is empty or not UTF-8, credentialled profiles disabled")
		return s
	}

	content := normalize(string(raw))
	if warn := inspect(content); warn != "" {
		logger.Warn().Str("reason", warn).Msg("credential blob looks incomplete, keeping it anyway")
	}

	dir, err := os.MkdirTemp("", "vgrab-creds-*")
	if err != nil {
		logger.Warn().Err(err).Msg("cannot create credential scratch dir, credentialled profiles disabled")
		return s
	}
	if err := os.Chmod(dir, 0o700); err != nil {
		logger.Warn().Err(err).Msg("cannot restrict credential scratch dir, credentialled profiles disabled")
		_ = os.RemoveAll(dir)
		return s
	}

	s.blob = []byte(content)
	s.scratchDir = dir
	logger.Info().Msg("credential blob loaded")
	return s
}

// IsPopulated reports whether credential material is available.
func (s *Store) IsPopulated() bool { return len(s.blob) > 0 }

// Handle is a scoped credential file. The path stays valid until Release.
type Handle struct {
	path string
}

// Path returns the materialised credential file path.
func (h *Handle) Path() string { return h.path }

// Release unlinks the credential file. It is safe to call more than once.
func (h *Handle) Release() {
	if h == nil || h.path == "" {
		return
	}
	if err := os.Remove(h.path); err != nil && !os.IsNotExist(err) {
		logger := log.WithComponent("creds")
		logger.Warn().Err(err).Msg("failed to remove credential file")
	}
	h.path = ""
}

// Acquire writes a fresh owner-only copy of the blob and returns its handle.
// Callers must Release on every exit path.
func (s *Store) Acquire() (*Handle, error) {
	if !s.IsPopulated() {
		return nil, fmt.Errorf("credential store is empty")
	}
	path := filepath.Join(s.scratchDir, uuid.NewString()+".txt")
	if err := renameio.WriteFile(path, s.blob, 0o600); err != nil {
		return nil, fmt.Errorf("materialise credential file: %w", err)
	}
	return &Handle{path: path}, nil
}

// Close wipes the scratch directory, removing any leaked credential files.
func (s *Store) Close() error {
	if s.scratchDir == "" {
		return nil
	}
	return os.RemoveAll(s.scratchDir)
}

// normalize ensures the Netscape header and a trailing newline so the engine
// accepts the jar.
func normalize(content string) string {
	if !strings.HasPrefix(content, netscapeHeader) {
		content = netscapeHeader + "\n# This is a generated file! Do not edit.\n" + content
	}
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content
}

// inspect parses the jar and returns a warning reason when no authentication
// or consent cookies are present. Cookie values are never logged.
func inspect(content string) string {
	names := make(map[string]bool)
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "#") || strings.TrimSpace(line) == "" {
			continue
		}
		// Netscape format: 7 tab-separated fields, name is the 6th.
		parts := strings.Split(line, "\t")
		if len(parts) >= 7 {
			names[parts[5]] = true
		}
	}
	if len(names) == 0 {
		return "no parseable cookies"
	}
	for name := range names {
		if authCookieNames[name] || strings.Contains(name, "LOGIN") || name == "CONSENT" {
			return ""
		}
	}
	return "no authentication or consent cookies found"
}
