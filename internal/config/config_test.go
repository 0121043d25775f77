// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv()

	assert.Equal(t, "/tmp/vgrab", cfg.DownloadDir)
	assert.Equal(t, 500, cfg.MaxDownloadSizeMB)
	assert.Equal(t, 7200, cfg.MaxDurationSec)
	assert.Equal(t, 30*time.Minute, cfg.ReaperWindow)
	assert.Equal(t, 300*time.Second, cfg.ReaperTick)
	assert.Equal(t, "tv", cfg.DefaultProfile)
	assert.Equal(t, []string{"tv", "ios", "cookies", "android"}, cfg.DefaultOrder)
	assert.True(t, cfg.AllowCredentialProfile)
	assert.Equal(t, "yt-dlp", cfg.EngineBinary)
	assert.Equal(t, "best[ext=mp4]/best", cfg.DefaultFormat)
	assert.Equal(t, 2*time.Minute, cfg.ProbeTimeout)
	assert.Equal(t, 30*time.Minute, cfg.FetchTimeout)
	assert.Equal(t, 4, cfg.WorkerCount)
	assert.Equal(t, 10, cfg.RateLimitPerMinute)
	assert.Equal(t, ":8080", cfg.ListenAddr)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("VGRAB_API_KEY", "secret")
	t.Setenv("VGRAB_MAX_DOWNLOAD_SIZE_MB", "42")
	t.Setenv("VGRAB_DEFAULT_ORDER", "Android, web ,android")
	t.Setenv("VGRAB_PROBE_TIMEOUT", "45s")
	t.Setenv("VGRAB_ALLOW_CREDENTIAL_PROFILE", "false")

	cfg := FromEnv()
	assert.Equal(t, "secret", cfg.APIKey)
	assert.Equal(t, 42, cfg.MaxDownloadSizeMB)
	assert.Equal(t, []string{"android", "web", "android"}, cfg.DefaultOrder,
		"order is normalised but not deduplicated here; the registry collapses duplicates")
	assert.Equal(t, 45*time.Second, cfg.ProbeTimeout)
	assert.False(t, cfg.AllowCredentialProfile)
}

func TestFromEnv_InvalidIntFallsBackToDefault(t *testing.T) {
	t.Setenv("VGRAB_WORKER_COUNT", "many")
	cfg := FromEnv()
	assert.Equal(t, 4, cfg.WorkerCount)
}

func validConfig(t *testing.T) AppConfig {
	t.Helper()
	return AppConfig{
		APIKey:            "secret",
		DownloadDir:       t.TempDir(),
		MaxDownloadSizeMB: 500,
		MaxDurationSec:    7200,
		DefaultOrder:      []string{"tv"},
		WorkerCount:       4,
	}
}

func TestValidate_AcceptsCompleteConfig(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())
}

func TestValidate_RejectsMissingAPIKey(t *testing.T) {
	cfg := validConfig(t)
	cfg.APIKey = "  "
	assert.ErrorContains(t, cfg.Validate(), "VGRAB_API_KEY")
}

func TestValidate_RejectsEmptyOrder(t *testing.T) {
	cfg := validConfig(t)
	cfg.DefaultOrder = nil
	assert.ErrorContains(t, cfg.Validate(), "VGRAB_DEFAULT_ORDER")
}

func TestValidate_RejectsNonPositiveCaps(t *testing.T) {
	cfg := validConfig(t)
	cfg.MaxDownloadSizeMB = 0
	assert.ErrorContains(t, cfg.Validate(), "VGRAB_MAX_DOWNLOAD_SIZE_MB")

	cfg = validConfig(t)
	cfg.MaxDurationSec = -1
	assert.ErrorContains(t, cfg.Validate(), "VGRAB_MAX_DURATION_SECONDS")

	cfg = validConfig(t)
	cfg.WorkerCount = 0
	assert.ErrorContains(t, cfg.Validate(), "VGRAB_WORKER_COUNT")
}

func TestValidate_CreatesDownloadDir(t *testing.T) {
	cfg := validConfig(t)
	cfg.DownloadDir = cfg.DownloadDir + "/nested/store"
	require.NoError(t, cfg.Validate())
}

func TestMaxDownloadBytes(t *testing.T) {
	cfg := AppConfig{MaxDownloadSizeMB: 10}
	assert.Equal(t, int64(10*1024*1024), cfg.MaxDownloadBytes())
}

func TestSplitOrder(t *testing.T) {
	assert.Equal(t, []string{"tv", "ios"}, splitOrder("TV, ios ,"))
	assert.Nil(t, splitOrder(" , ,"))
}

func TestParseServerConfig_Defaults(t *testing.T) {
	sc := ParseServerConfig(":9090")
	assert.Equal(t, ":9090", sc.ListenAddr)
	assert.Equal(t, 30*time.Second, sc.ReadTimeout)
	assert.Equal(t, 35*time.Minute, sc.WriteTimeout)
	assert.Equal(t, 20*time.Second, sc.ShutdownTimeout)
}
