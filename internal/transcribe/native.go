// The whisper.cpp static library (libwhisper.a) and headers must be
// available at link time via LIBRARY_PATH and C_INCLUDE_PATH.

package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	"github.com/go-audio/wav"
	"github.com/hushkey/hushkey/internal/config"
)

type nativeTranscriber struct {
	model    whisperlib.Model
	language string
	log      *slog.Logger
	mu       sync.Mutex
}

// NewNative loads a whisper.cpp model in-process. The model is loaded once
// and reused across recordings; each Transcribe call gets a fresh whisper
// context because contexts are not reusable.
func NewNative(cfg config.TranscriberConfig, log *slog.Logger) (Transcriber, error) {
	path, err := resolveModelPath(cfg)
	if err != nil {
		return nil, err
	}
	model, err := whisperlib.New(path)
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", path, err)
	}
	return &nativeTranscriber{model: model, language: cfg.Language, log: log}, nil
}

// resolveModelPath prefers an explicit path; otherwise it maps the model
// size name to a ggml file in the user cache directory.
func resolveModelPath(cfg config.TranscriberConfig) (string, error) {
	if cfg.ModelPath != "" {
		return cfg.ModelPath, nil
	}
	if cfg.Model == "" {
		return "", fmt.Errorf("native transcriber requires model or model_path")
	}
	cache, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("locate cache dir: %w", err)
	}
	return filepath.Join(cache, "hushkey", "ggml-"+cfg.Model+".bin"), nil
}

func (n *nativeTranscriber) Transcribe(ctx context.Context, path string) (Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if n.model == nil {
		return Result{}, errors.New("transcriber is closed")
	}

	samples, err := loadWAVMono(path)
	if err != nil {
		return Result{}, err
	}

	wctx, err := n.model.NewContext()
	if err != nil {
		return Result{}, fmt.Errorf("create whisper context: %w", err)
	}
	if n.language != "" {
		if err := wctx.SetLanguage(n.language); err != nil {
			n.log.Warn("failed to set language, using default",
				slog.String("language", n.language), slog.String("error", err.Error()))
		}
	}
	if err := wctx.Process(samples, nil, nil, nil); err != nil {
		return Result{}, fmt.Errorf("process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return Result{Text: strings.Join(parts, " "), Confidence: 1}, nil
}

// Close takes the same lock as Transcribe: the model must never be freed
// while a whisper context is processing on it.
func (n *nativeTranscriber) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.model == nil {
		return nil
	}
	err := n.model.Close()
	n.model = nil
	return err
}

// loadWAVMono decodes a WAV file into float32 samples, averaging channels
// down to mono as whisper expects.
func loadWAVMono(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	channels := buf.Format.NumChannels
	if channels <= 0 {
		channels = 1
	}

	frames := len(buf.Data) / channels
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += float32(buf.Data[i*channels+c]) / 32768
		}
		samples[i] = sum / float32(channels)
	}
	return samples, nil
}
