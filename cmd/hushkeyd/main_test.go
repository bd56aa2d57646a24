package main

import (
	"log/slog"
	"testing"

	"github.com/hushkey/hushkey/internal/config"
)

func TestFlagOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Transcriber.ModelPath = "/models/custom.bin"

	applyFlagOverrides(&cfg, "", -1)
	if cfg.Audio.MaxDurationS != 30 {
		t.Fatalf("unset flag must keep config value, got %d", cfg.Audio.MaxDurationS)
	}
	if cfg.Transcriber.ModelPath != "/models/custom.bin" {
		t.Fatal("empty model flag must not clear model_path")
	}

	applyFlagOverrides(&cfg, "", 0)
	if cfg.Audio.MaxDurationS != 0 {
		t.Fatalf("--max-duration 0 must disable the cap, got %d", cfg.Audio.MaxDurationS)
	}

	applyFlagOverrides(&cfg, "tiny", 45)
	if cfg.Audio.MaxDurationS != 45 {
		t.Fatalf("explicit cap not applied, got %d", cfg.Audio.MaxDurationS)
	}
	if cfg.Transcriber.Model != "tiny" || cfg.Transcriber.ModelPath != "" {
		t.Fatalf("model flag must win over model_path: %+v", cfg.Transcriber)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"bogus": slog.LevelInfo,
		"":      slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
