package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 16000 {
		t.Fatalf("expected default sample rate, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.ChunkMS != 100 {
		t.Fatalf("expected default chunk duration, got %d", cfg.Audio.ChunkMS)
	}
	if cfg.Transcriber.Model != "base" {
		t.Fatalf("expected default model size, got %q", cfg.Transcriber.Model)
	}
	if cfg.Bus.Enabled {
		t.Fatal("bus should be disabled by default")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hushkey.yaml")
	data := []byte("audio:\n  sample_rate: 48000\n  channels: 2\n  max_duration_s: 0\ntranscriber:\n  mode: mock\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 48000 || cfg.Audio.Channels != 2 {
		t.Fatalf("expected file overrides, got %+v", cfg.Audio)
	}
	if cfg.Audio.MaxDurationS != 0 {
		t.Fatalf("expected uncapped duration, got %d", cfg.Audio.MaxDurationS)
	}
	if cfg.Transcriber.Mode != "mock" {
		t.Fatalf("expected mock transcriber, got %q", cfg.Transcriber.Mode)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HUSHKEY_AUDIO_SAMPLE_RATE", "44100")
	t.Setenv("HUSHKEY_AUDIO_MAX_DURATION_S", "60")
	t.Setenv("HUSHKEY_TRANSCRIBER_MODE", "exec")
	t.Setenv("HUSHKEY_TRANSCRIBER_COMMAND", "whisper-cli --output-json")
	t.Setenv("HUSHKEY_HOTKEY_KEYS", "ctrl, alt, d")
	t.Setenv("HUSHKEY_HISTORY_RETENTION_MODE", "persistent")
	t.Setenv("HUSHKEY_HISTORY_RETENTION_DAYS", "7")
	t.Setenv("HUSHKEY_BUS_ENABLED", "true")
	t.Setenv("HUSHKEY_BUS_SERVERS", "nats://one:4222, nats://two:4222")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Fatalf("expected sample rate override, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Audio.MaxDurationS != 60 {
		t.Fatalf("expected max duration override, got %d", cfg.Audio.MaxDurationS)
	}
	if cfg.Transcriber.Mode != "exec" || cfg.Transcriber.Command == "" {
		t.Fatalf("expected transcriber override, got %+v", cfg.Transcriber)
	}
	if len(cfg.Hotkey.Keys) != 3 || cfg.Hotkey.Keys[2] != "d" {
		t.Fatalf("expected hotkey override, got %v", cfg.Hotkey.Keys)
	}
	if cfg.History.RetentionMode != "persistent" || cfg.History.RetentionDays != 7 {
		t.Fatalf("expected history override, got %+v", cfg.History)
	}
	if !cfg.Bus.Enabled || len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected bus override, got %+v", cfg.Bus)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"bad channels", func(c *Config) { c.Audio.Channels = 3 }},
		{"zero chunk", func(c *Config) { c.Audio.ChunkMS = 0 }},
		{"negative cap", func(c *Config) { c.Audio.MaxDurationS = -1 }},
		{"no hotkey", func(c *Config) { c.Hotkey.Keys = nil }},
		{"bad mode", func(c *Config) { c.Transcriber.Mode = "cloud" }},
		{"exec without command", func(c *Config) {
			c.Transcriber.Mode = "exec"
			c.Transcriber.Command = ""
		}},
		{"bad model size", func(c *Config) { c.Transcriber.Model = "gigantic" }},
		{"bad retention", func(c *Config) { c.History.RetentionMode = "forever" }},
		{"bus without servers", func(c *Config) {
			c.Bus.Enabled = true
			c.Bus.Servers = nil
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
