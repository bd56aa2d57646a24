package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type TelemetryConfig struct {
	LogLevel     string `yaml:"log_level"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
	TraceStdout  bool   `yaml:"trace_stdout"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Bind    string `yaml:"bind"`
	Port    int    `yaml:"port"`
}

type AudioConfig struct {
	SampleRate   int    `yaml:"sample_rate"`
	Channels     int    `yaml:"channels"`
	ChunkMS      int    `yaml:"chunk_ms"`
	MaxDurationS int    `yaml:"max_duration_s"`
	Device       string `yaml:"device"`
}

type HotkeyConfig struct {
	Keys []string `yaml:"keys"`
}

type TranscriberConfig struct {
	Mode      string `yaml:"mode"` // mock, exec, native
	Command   string `yaml:"command"`
	Model     string `yaml:"model"`
	ModelPath string `yaml:"model_path"`
	Language  string `yaml:"language"`
}

type InjectConfig struct {
	SettleDelayMS int  `yaml:"settle_delay_ms"`
	TrailingSpace bool `yaml:"trailing_space"`
}

type StorageConfig struct {
	Dir    string `yaml:"dir"`
	Prefix string `yaml:"prefix"`
}

type HistoryConfig struct {
	Path          string `yaml:"path"`
	RetentionMode string `yaml:"retention_mode"`
	RetentionDays int    `yaml:"retention_days"`
	MaxSessions   int    `yaml:"max_sessions"`
	VacuumOnStart bool   `yaml:"vacuum_on_start"`
}

type BusConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Servers        []string `yaml:"servers"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	Token          string   `yaml:"token"`
	TLSInsecure    bool     `yaml:"tls_insecure"`
	ConnectTimeout int      `yaml:"connect_timeout_ms"`
}

type Config struct {
	RuntimeName string            `yaml:"runtime_name"`
	Environment string            `yaml:"environment"`
	HTTP        HTTPConfig        `yaml:"http"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Audio       AudioConfig       `yaml:"audio"`
	Hotkey      HotkeyConfig      `yaml:"hotkey"`
	Transcriber TranscriberConfig `yaml:"transcriber"`
	Inject      InjectConfig      `yaml:"inject"`
	Storage     StorageConfig     `yaml:"storage"`
	History     HistoryConfig     `yaml:"history"`
	Bus         BusConfig         `yaml:"bus"`
}

// ModelSizes lists the whisper model sizes accepted by the --model flag.
var ModelSizes = []string{"tiny", "base", "small", "medium", "large"}

func Default() Config {
	return Config{
		RuntimeName: "hushkey",
		Environment: "development",
		HTTP: HTTPConfig{
			Enabled: true,
			Bind:    "127.0.0.1",
			Port:    8099,
		},
		Telemetry: TelemetryConfig{
			LogLevel:     "info",
			OTLPEndpoint: "",
			OTLPInsecure: true,
			TraceStdout:  false,
		},
		Audio: AudioConfig{
			SampleRate:   16000,
			Channels:     1,
			ChunkMS:      100,
			MaxDurationS: 30,
		},
		Hotkey: HotkeyConfig{
			Keys: []string{"ctrl", "shift", "space"},
		},
		Transcriber: TranscriberConfig{
			Mode:     "native",
			Model:    "base",
			Language: "en",
		},
		Inject: InjectConfig{
			SettleDelayMS: 200,
			TrailingSpace: true,
		},
		Storage: StorageConfig{
			Dir:    "",
			Prefix: "audio_",
		},
		History: HistoryConfig{
			Path:          "./data/hushkey-history.db",
			RetentionMode: "session",
			RetentionDays: 30,
			MaxSessions:   10000,
		},
		Bus: BusConfig{
			Enabled:        false,
			Servers:        []string{"nats://localhost:4222"},
			ConnectTimeout: 2000,
		},
	}
}

func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return cfg, fmt.Errorf("config file not found: %w", err)
			}
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	overrideString(&cfg.RuntimeName, "HUSHKEY_RUNTIME_NAME")
	overrideString(&cfg.Environment, "HUSHKEY_ENVIRONMENT")
	overrideBool(&cfg.HTTP.Enabled, "HUSHKEY_HTTP_ENABLED")
	overrideString(&cfg.HTTP.Bind, "HUSHKEY_HTTP_BIND")
	overrideInt(&cfg.HTTP.Port, "HUSHKEY_HTTP_PORT")
	overrideString(&cfg.Telemetry.LogLevel, "HUSHKEY_TELEMETRY_LOG_LEVEL")
	overrideString(&cfg.Telemetry.OTLPEndpoint, "HUSHKEY_TELEMETRY_OTLP_ENDPOINT")
	overrideBool(&cfg.Telemetry.OTLPInsecure, "HUSHKEY_TELEMETRY_OTLP_INSECURE")
	overrideBool(&cfg.Telemetry.TraceStdout, "HUSHKEY_TELEMETRY_TRACE_STDOUT")
	overrideInt(&cfg.Audio.SampleRate, "HUSHKEY_AUDIO_SAMPLE_RATE")
	overrideInt(&cfg.Audio.Channels, "HUSHKEY_AUDIO_CHANNELS")
	overrideInt(&cfg.Audio.ChunkMS, "HUSHKEY_AUDIO_CHUNK_MS")
	overrideInt(&cfg.Audio.MaxDurationS, "HUSHKEY_AUDIO_MAX_DURATION_S")
	overrideString(&cfg.Audio.Device, "HUSHKEY_AUDIO_DEVICE")
	overrideStringSlice(&cfg.Hotkey.Keys, "HUSHKEY_HOTKEY_KEYS")
	overrideString(&cfg.Transcriber.Mode, "HUSHKEY_TRANSCRIBER_MODE")
	overrideString(&cfg.Transcriber.Command, "HUSHKEY_TRANSCRIBER_COMMAND")
	overrideString(&cfg.Transcriber.Model, "HUSHKEY_TRANSCRIBER_MODEL")
	overrideString(&cfg.Transcriber.ModelPath, "HUSHKEY_TRANSCRIBER_MODEL_PATH")
	overrideString(&cfg.Transcriber.Language, "HUSHKEY_TRANSCRIBER_LANGUAGE")
	overrideInt(&cfg.Inject.SettleDelayMS, "HUSHKEY_INJECT_SETTLE_DELAY_MS")
	overrideBool(&cfg.Inject.TrailingSpace, "HUSHKEY_INJECT_TRAILING_SPACE")
	overrideString(&cfg.Storage.Dir, "HUSHKEY_STORAGE_DIR")
	overrideString(&cfg.Storage.Prefix, "HUSHKEY_STORAGE_PREFIX")
	overrideString(&cfg.History.Path, "HUSHKEY_HISTORY_PATH")
	overrideString(&cfg.History.RetentionMode, "HUSHKEY_HISTORY_RETENTION_MODE")
	overrideInt(&cfg.History.RetentionDays, "HUSHKEY_HISTORY_RETENTION_DAYS")
	overrideInt(&cfg.History.MaxSessions, "HUSHKEY_HISTORY_MAX_SESSIONS")
	overrideBool(&cfg.History.VacuumOnStart, "HUSHKEY_HISTORY_VACUUM_ON_START")
	overrideBool(&cfg.Bus.Enabled, "HUSHKEY_BUS_ENABLED")
	overrideStringSlice(&cfg.Bus.Servers, "HUSHKEY_BUS_SERVERS")
	overrideString(&cfg.Bus.Username, "HUSHKEY_BUS_USERNAME")
	overrideString(&cfg.Bus.Password, "HUSHKEY_BUS_PASSWORD")
	overrideString(&cfg.Bus.Token, "HUSHKEY_BUS_TOKEN")
	overrideBool(&cfg.Bus.TLSInsecure, "HUSHKEY_BUS_TLS_INSECURE")
	overrideInt(&cfg.Bus.ConnectTimeout, "HUSHKEY_BUS_CONNECT_TIMEOUT_MS")
}

func overrideString(target *string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok && strings.TrimSpace(value) != "" {
		*target = value
	}
}

func overrideInt(target *int, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}

func overrideBool(target *bool, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*target = parsed
		}
	}
}

func overrideStringSlice(target *[]string, envKey string) {
	if value, ok := os.LookupEnv(envKey); ok {
		parts := strings.Split(value, ",")
		var trimmed []string
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				trimmed = append(trimmed, s)
			}
		}
		if len(trimmed) > 0 {
			*target = trimmed
		}
	}
}

// Validate checks configuration invariants. Exported so the CLI can
// re-validate after applying flag overrides on top of a loaded config.
func Validate(cfg Config) error {
	if cfg.RuntimeName == "" {
		return errors.New("runtime_name must not be empty")
	}
	if cfg.HTTP.Enabled {
		if cfg.HTTP.Port <= 0 || cfg.HTTP.Port > 65535 {
			return errors.New("http.port must be between 1 and 65535")
		}
	}
	if cfg.Audio.SampleRate <= 0 {
		return errors.New("audio.sample_rate must be positive")
	}
	if cfg.Audio.Channels != 1 && cfg.Audio.Channels != 2 {
		return errors.New("audio.channels must be 1 (mono) or 2 (stereo)")
	}
	if cfg.Audio.ChunkMS <= 0 {
		return errors.New("audio.chunk_ms must be positive")
	}
	if cfg.Audio.MaxDurationS < 0 {
		return errors.New("audio.max_duration_s must be >= 0 (0 disables the cap)")
	}
	if len(cfg.Hotkey.Keys) == 0 {
		return errors.New("hotkey.keys must not be empty")
	}
	switch cfg.Transcriber.Mode {
	case "mock", "exec", "native":
	default:
		return errors.New("transcriber.mode must be one of mock|exec|native")
	}
	if cfg.Transcriber.Mode == "exec" && cfg.Transcriber.Command == "" {
		return errors.New("transcriber.command must be set when mode=exec")
	}
	if cfg.Transcriber.Mode == "native" && cfg.Transcriber.Model == "" && cfg.Transcriber.ModelPath == "" {
		return errors.New("transcriber.model or transcriber.model_path must be set when mode=native")
	}
	if cfg.Transcriber.Model != "" && !validModelSize(cfg.Transcriber.Model) {
		return fmt.Errorf("transcriber.model must be one of %s", strings.Join(ModelSizes, "|"))
	}
	if cfg.Inject.SettleDelayMS < 0 {
		return errors.New("inject.settle_delay_ms must be >= 0")
	}
	switch cfg.History.RetentionMode {
	case "ephemeral", "session", "persistent":
		// ok
	default:
		return errors.New("history.retention_mode must be one of ephemeral|session|persistent")
	}
	if cfg.History.RetentionMode != "ephemeral" && cfg.History.Path == "" {
		return errors.New("history.path must not be empty")
	}
	if cfg.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	if cfg.Bus.Enabled && len(cfg.Bus.Servers) == 0 {
		return errors.New("bus.servers must not be empty when the bus is enabled")
	}
	return nil
}

func validModelSize(model string) bool {
	for _, m := range ModelSizes {
		if m == model {
			return true
		}
	}
	return false
}
