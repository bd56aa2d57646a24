package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hushkey/hushkey/internal/config"
	"github.com/hushkey/hushkey/internal/runtime"
)

var version = "0.1.0-dev"

func main() {
	var (
		configPath  string
		model       string
		maxDuration int
		debug       bool
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "hushkey.yaml", "Path to configuration file")
	flag.StringVar(&model, "model", "", "Whisper model size (tiny, base, small, medium, large)")
	flag.IntVar(&maxDuration, "max-duration", -1, "Maximum recording length in seconds (0 = unlimited)")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(version)
		return
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// The default config file is optional; an explicitly passed one is not.
	if configPath == "hushkey.yaml" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = ""
		}
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if !debug {
		if lvl := parseLevel(cfg.Telemetry.LogLevel); lvl != level {
			level = lvl
			logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		}
	}

	applyFlagOverrides(&cfg, model, maxDuration)
	if err := config.Validate(cfg); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rt := runtime.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rt.Start(ctx); err != nil {
		logger.Error("runtime exited with error", slog.String("error", err.Error()))
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

// applyFlagOverrides layers CLI flags over the loaded config. maxDuration -1
// means the flag was not passed; 0 explicitly disables the duration cap.
func applyFlagOverrides(cfg *config.Config, model string, maxDuration int) {
	if model != "" {
		cfg.Transcriber.Model = model
		cfg.Transcriber.ModelPath = ""
	}
	if maxDuration >= 0 {
		cfg.Audio.MaxDurationS = maxDuration
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
