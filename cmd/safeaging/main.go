package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/studio-tech-hub/SafeAging/internal/config"
	"github.com/studio-tech-hub/SafeAging/internal/service"
	"github.com/studio-tech-hub/SafeAging/modules/streamcapture"
	"github.com/studio-tech-hub/SafeAging/modules/streamcapture/gstrtsp"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (optional; env overrides apply)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("starting safeaging agent",
		"config", *configPath,
		"debug", *debug,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var components service.Components
	if cfg.Camera.RTSPURL != "" {
		stream, err := gstrtsp.New(streamcapture.Config{
			URL:      cfg.Camera.RTSPURL,
			Width:    cfg.Camera.Width,
			Height:   cfg.Camera.Height,
			SourceID: cfg.Camera.ID,
		})
		if err != nil {
			slog.Error("failed to create rtsp stream", "error", err)
			os.Exit(1)
		}
		components.Source = stream
	} else {
		slog.Warn("no rtsp_url configured, agent will idle")
	}

	svc, err := service.New(cfg, components)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	if cfg.Health.Addr != "" {
		healthSrv := svc.StartHealthServer(cfg.Health.Addr)
		defer healthSrv.Close()
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- svc.Run(ctx)
	}()

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			slog.Error("service error", "error", err)
		}
		cancel()
	}

	shutdownTimeout := svc.ShutdownTimeout()
	slog.Info("shutting down gracefully", "timeout", shutdownTimeout)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := svc.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("safeaging agent stopped")
}
