// SPDX-License-Identifier: MIT

// Package config loads the immutable application configuration from process
// environment at startup.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// AppConfig is the immutable application context constructed once at startup
// and passed explicitly to every component.
type AppConfig struct {
	// Auth
	APIKey string

	// Download store
	DownloadDir       string
	MaxDownloadSizeMB int
	MaxDurationSec    int

	// Reaper
	ReaperWindow      time.Duration
	ReaperTick        time.Duration
	PostResponseDelay time.Duration

	// Fallback
	DefaultProfile         string
	DefaultOrder           []string
	AllowCredentialProfile bool

	// Credentials
	CredentialBlobBase64 string

	// Extractor engine
	EngineBinary  string
	DefaultFormat string
	ProbeTimeout  time.Duration
	FetchTimeout  time.Duration

	// Runtime
	RequestTimeout     time.Duration
	WorkerCount        int
	RateLimitPerMinute int
	LogLevel           string
	TraceService       string

	// Transport
	ListenAddr  string
	MetricsAddr string
}

// FromEnv builds the AppConfig from VGRAB_* environment variables.
func FromEnv() AppConfig {
	order := splitOrder(ParseString("VGRAB_DEFAULT_ORDER", "tv,ios,cookies,android"))

	return AppConfig{
		APIKey: ParseString("VGRAB_API_KEY", ""),

		DownloadDir:       ParseString("VGRAB_DOWNLOAD_DIR", "/tmp/vgrab"),
		MaxDownloadSizeMB: ParseInt("VGRAB_MAX_DOWNLOAD_SIZE_MB", 500),
		MaxDurationSec:    ParseInt("VGRAB_MAX_DURATION_SECONDS", 7200),

		ReaperWindow:      time.Duration(ParseInt("VGRAB_REAPER_WINDOW_MINUTES", 30)) * time.Minute,
		ReaperTick:        time.Duration(ParseInt("VGRAB_REAPER_TICK_SECONDS", 300)) * time.Second,
		PostResponseDelay: time.Duration(ParseInt("VGRAB_POST_RESPONSE_DELAY_SECONDS", 60)) * time.Second,

		DefaultProfile:         strings.ToLower(ParseString("VGRAB_DEFAULT_PROFILE", "tv")),
		DefaultOrder:           order,
		AllowCredentialProfile: ParseBool("VGRAB_ALLOW_CREDENTIAL_PROFILE", true),

		CredentialBlobBase64: ParseString("VGRAB_COOKIES_BASE64", ""),

		EngineBinary:  ParseString("VGRAB_YTDLP_PATH", "yt-dlp"),
		DefaultFormat: ParseString("VGRAB_DEFAULT_FORMAT", "best[ext=mp4]/best"),
		ProbeTimeout:  ParseDuration("VGRAB_PROBE_TIMEOUT", 2*time.Minute),
		FetchTimeout:  ParseDuration("VGRAB_FETCH_TIMEOUT", 30*time.Minute),

		RequestTimeout:     ParseDuration("VGRAB_REQUEST_TIMEOUT", 5*time.Minute),
		WorkerCount:        ParseInt("VGRAB_WORKER_COUNT", 4),
		RateLimitPerMinute: ParseInt("VGRAB_RATE_LIMIT_PER_MINUTE", 10),
		LogLevel:           ParseString("VGRAB_LOG_LEVEL", "info"),
		TraceService:       ParseString("VGRAB_TRACE_SERVICE", ""),

		ListenAddr:  ParseString("VGRAB_LISTEN", ":8080"),
		MetricsAddr: ParseString("VGRAB_METRICS_ADDR", ""),
	}
}

// Validate performs fail-fast startup checks. It returns an error describing
// the first fatal misconfiguration found.
func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("VGRAB_API_KEY must be set")
	}
	if len(c.DefaultOrder) == 0 {
		return fmt.Errorf("VGRAB_DEFAULT_ORDER resolved to an empty fallback order")
	}
	if c.MaxDownloadSizeMB <= 0 {
		return fmt.Errorf("VGRAB_MAX_DOWNLOAD_SIZE_MB must be positive, got %d", c.MaxDownloadSizeMB)
	}
	if c.MaxDurationSec <= 0 {
		return fmt.Errorf("VGRAB_MAX_DURATION_SECONDS must be positive, got %d", c.MaxDurationSec)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("VGRAB_WORKER_COUNT must be positive, got %d", c.WorkerCount)
	}
	if err := ensureWritableDir(c.DownloadDir); err != nil {
		return fmt.Errorf("download dir: %w", err)
	}
	return nil
}

// MaxDownloadBytes returns the configured size cap in bytes.
func (c AppConfig) MaxDownloadBytes() int64 {
	return int64(c.MaxDownloadSizeMB) * 1024 * 1024
}

func splitOrder(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

func ensureWritableDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("path is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".writecheck-*")
	if err != nil {
		return fmt.Errorf("%s is not writable: %w", dir, err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}

// ServerConfig holds HTTP server transport settings.
type ServerConfig struct {
	ListenAddr      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
}

// ParseServerConfig reads transport settings from environment with defaults
// sized for long-running download responses.
func ParseServerConfig(listenAddr string) ServerConfig {
	return ServerConfig{
		ListenAddr:  listenAddr,
		ReadTimeout: ParseDuration("VGRAB_READ_TIMEOUT", 30*time.Second),
		// Downloads stream for as long as the fetch ceiling allows; the write
		// timeout must not undercut it.
		WriteTimeout:    ParseDuration("VGRAB_WRITE_TIMEOUT", 35*time.Minute),
		IdleTimeout:     ParseDuration("VGRAB_IDLE_TIMEOUT", 2*time.Minute),
		ShutdownTimeout: ParseDuration("VGRAB_SHUTDOWN_TIMEOUT", 20*time.Second),
		MaxHeaderBytes:  ParseInt("VGRAB_MAX_HEADER_BYTES", 1<<20),
	}
}
