// filesim replays a directory of images through the full agent pipeline
// and records the run (config.yaml, stats.json) under a timestamped
// directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/studio-tech-hub/SafeAging/internal/config"
	"github.com/studio-tech-hub/SafeAging/internal/filesource"
	"github.com/studio-tech-hub/SafeAging/internal/service"
)

var (
	configPath = flag.String("config", "", "Agent configuration file (optional)")
	inputDir   = flag.String("input", "data/frames", "Input directory with frame images")
	pattern    = flag.String("pattern", "*.png", "File pattern to match")
	fps        = flag.Float64("fps", 5.0, "Synthetic frames per second")
	loops      = flag.Int("n", 1, "Number of loops (0 = infinite)")
	realtime   = flag.Bool("realtime", false, "Pace frames at -fps instead of replaying as fast as possible")
	runsDir    = flag.String("runs-dir", "runs", "Base runs directory")
	debug      = flag.Bool("debug", false, "Enable debug logging")
)

// RunRecord is written to config.yaml at the start of a run
type RunRecord struct {
	Run struct {
		Timestamp string `yaml:"timestamp"`
		Command   string `yaml:"command"`
		RunPath   string `yaml:"run_path"`
	} `yaml:"run"`

	Replay struct {
		InputDir string  `yaml:"input_dir"`
		Pattern  string  `yaml:"pattern"`
		FPS      float64 `yaml:"fps"`
		Loops    int     `yaml:"loops"`
		Realtime bool    `yaml:"realtime"`
		Frames   int     `yaml:"frames"`
	} `yaml:"replay"`

	Agent config.Config `yaml:"agent"`
}

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(); err != nil {
		slog.Error("filesim failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	src, err := filesource.New(filesource.Config{
		Dir:      *inputDir,
		Pattern:  *pattern,
		FPS:      *fps,
		Loops:    *loops,
		Realtime: *realtime,
		SourceID: cfg.Camera.ID,
	})
	if err != nil {
		return err
	}
	slog.Info("frames loaded", "count", len(src.Files()), "dir", *inputDir)

	runPath, err := newRunDir(*runsDir, time.Now())
	if err != nil {
		return err
	}
	if err := saveRecord(runPath, cfg, len(src.Files())); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	svc, err := service.New(cfg, service.Components{Source: src})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errChan := make(chan error, 1)
	go func() { errChan <- svc.Run(ctx) }()

	// a finite replay ends when the source goes idle
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
wait:
	for {
		select {
		case <-ctx.Done():
			break wait
		case err := <-errChan:
			if err != nil {
				return err
			}
			break wait
		case <-ticker.C:
			if *loops > 0 && src.Loops() >= *loops && svc.Agent().Stats().Queue.Depth == 0 {
				break wait
			}
		}
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), svc.ShutdownTimeout())
	defer stop()
	if err := svc.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown incomplete", "error", err)
	}

	statsPath := filepath.Join(runPath, "stats.json")
	data, err := json.MarshalIndent(svc.Report(), "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(statsPath, data, 0o644); err != nil {
		return err
	}

	slog.Info("run complete", "run_path", runPath, "loops", src.Loops())
	return nil
}

// newRunDir creates runs/YYYYMMDD_HHMMSS_NNN and points runs/latest at it.
func newRunDir(base string, now time.Time) (string, error) {
	stamp := now.Format("20060102_150405")
	seq := 1
	if entries, err := os.ReadDir(base); err == nil {
		for _, e := range entries {
			if e.IsDir() && strings.HasPrefix(e.Name(), stamp+"_") {
				seq++
			}
		}
	}

	runPath := filepath.Join(base, fmt.Sprintf("%s_%03d", stamp, seq))
	if err := os.MkdirAll(runPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create run dir: %w", err)
	}

	latest := filepath.Join(base, "latest")
	os.Remove(latest)
	if err := os.Symlink(filepath.Base(runPath), latest); err != nil {
		slog.Debug("could not update latest link", "error", err)
	}
	return runPath, nil
}

func saveRecord(runPath string, cfg *config.Config, frames int) error {
	var rec RunRecord
	rec.Run.Timestamp = time.Now().Format(time.RFC3339)
	rec.Run.Command = strings.Join(os.Args, " ")
	rec.Run.RunPath = runPath
	rec.Replay.InputDir = *inputDir
	rec.Replay.Pattern = *pattern
	rec.Replay.FPS = *fps
	rec.Replay.Loops = *loops
	rec.Replay.Realtime = *realtime
	rec.Replay.Frames = frames
	rec.Agent = *cfg
	rec.Agent.Redis.Password = ""

	data, err := yaml.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(runPath, "config.yaml"), data, 0o644)
}
