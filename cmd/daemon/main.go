// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vgrab/vgrab/internal/api"
	"github.com/vgrab/vgrab/internal/config"
	"github.com/vgrab/vgrab/internal/creds"
	"github.com/vgrab/vgrab/internal/daemon"
	"github.com/vgrab/vgrab/internal/extract/ytdlp"
	"github.com/vgrab/vgrab/internal/fallback"
	"github.com/vgrab/vgrab/internal/health"
	vlog "github.com/vgrab/vgrab/internal/log"
	"github.com/vgrab/vgrab/internal/profile"
	"github.com/vgrab/vgrab/internal/store"
	"github.com/vgrab/vgrab/internal/telemetry"
	"github.com/vgrab/vgrab/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		os.Exit(0)
	}

	// Safe defaults until configuration is loaded
	vlog.Configure(vlog.Config{
		Level:   "info",
		Service: "vgrab",
		Version: version.Version,
	})

	logger := vlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.invalid").
			Msg("configuration validation failed")
	}

	vlog.Configure(vlog.Config{
		Level:   cfg.LogLevel,
		Service: "vgrab",
		Version: version.Version,
	})

	telemetry.Init()

	blob := cfg.CredentialBlobBase64
	if !cfg.AllowCredentialProfile {
		blob = ""
	}
	credStore := creds.Load(blob)

	registry, err := profile.NewRegistry(cfg.DefaultOrder)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "profiles.invalid").
			Msg("no usable extraction profiles configured")
	}

	st, err := store.New(cfg.DownloadDir)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "store.open_failed").
			Str("dir", cfg.DownloadDir).
			Msg("cannot open download store")
	}

	engine := ytdlp.New(cfg.EngineBinary)
	ctrl := fallback.New(registry, credStore, engine)

	hm := health.NewManager()
	hm.RegisterChecker(health.NewWritableDirChecker("download_dir", cfg.DownloadDir))
	hm.RegisterChecker(health.NewEngineChecker(cfg.EngineBinary, exec.LookPath))

	server := api.New(cfg, ctrl, st, hm)

	mgr, err := daemon.NewManager(config.ParseServerConfig(cfg.ListenAddr), daemon.Deps{
		APIHandler:     server.Routes(),
		MetricsHandler: promhttp.Handler(),
		MetricsAddr:    cfg.MetricsAddr,
		Logger:         logger,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "daemon.init_failed").
			Msg("cannot initialise daemon manager")
	}

	reaper := store.NewReaper(st, cfg.ReaperWindow, cfg.ReaperTick)
	reaperCtx, stopReaper := context.WithCancel(context.Background())
	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		reaper.Run(reaperCtx)
	}()

	mgr.RegisterShutdownHook("reaper", func(ctx context.Context) error {
		stopReaper()
		select {
		case <-reaperDone:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	mgr.RegisterShutdownHook("credential-store", func(context.Context) error {
		return credStore.Close()
	})

	logger.Info().
		Str("event", "daemon.starting").
		Str("version", version.Version).
		Str("listen", cfg.ListenAddr).
		Str("download_dir", cfg.DownloadDir).
		Strs("profile_order", cfg.DefaultOrder).
		Bool("credentials", credStore.IsPopulated()).
		Msg("starting vgrab")

	if err := mgr.Start(ctx); err != nil {
		logger.Error().
			Err(err).
			Str("event", "daemon.failed").
			Msg("daemon exited with error")
		os.Exit(1)
	}

	logger.Info().Str("event", "daemon.stopped").Msg("vgrab stopped")
}
