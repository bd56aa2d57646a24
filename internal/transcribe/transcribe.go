// Package transcribe converts recorded WAV files into text. Backends are
// selected by configuration: "mock" for development, "exec" to shell out to
// an external recognizer, and "native" for in-process whisper.cpp inference.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hushkey/hushkey/internal/config"
)

// Result captures transcriber output.
type Result struct {
	Text       string
	Confidence float64
}

// Transcriber abstracts speech-to-text backends. Transcribe reads the WAV
// file at path; it does not delete it, the caller owns the file's lifetime.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (Result, error)
	Close() error
}

// New builds the transcriber selected by cfg.Mode.
func New(cfg config.TranscriberConfig, log *slog.Logger) (Transcriber, error) {
	switch cfg.Mode {
	case "mock":
		return NewMock(), nil
	case "exec":
		return NewExec(cfg)
	case "native":
		return NewNative(cfg, log)
	default:
		return nil, fmt.Errorf("unknown transcriber mode %q", cfg.Mode)
	}
}
