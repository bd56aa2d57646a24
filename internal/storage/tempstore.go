package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
	"github.com/hushkey/hushkey/internal/capture"
)

// dirPrefix names the per-process temp directories so CleanupAll can sweep
// leftovers from crashed runs.
const dirPrefix = "hushkey-"

// staleAge is how old a sibling directory must be before the sweep removes
// it. Anything younger may belong to a concurrently running instance.
const staleAge = 24 * time.Hour

// TempStore writes recordings into an isolated directory under the system
// temp dir (or a caller-supplied base directory). Each process gets its own
// directory, so concurrent instances never collide.
type TempStore struct {
	base string
	dir  string
	log  *slog.Logger
}

// NewTempStore creates the store directory. baseDir empty means the system
// temp directory.
func NewTempStore(baseDir string, log *slog.Logger) (*TempStore, error) {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	dir := filepath.Join(baseDir, dirPrefix+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	return &TempStore{base: baseDir, dir: dir, log: log}, nil
}

// Dir returns the store's directory, mainly for logging.
func (t *TempStore) Dir() string {
	return t.dir
}

func (t *TempStore) CreateTempTarget(suffix, prefix string) (string, error) {
	f, err := os.CreateTemp(t.dir, prefix+"*"+suffix)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// WriteSamples converts the float32 clip to 16-bit PCM and writes a WAV
// container.
func (t *TempStore) WriteSamples(path string, clip *capture.Clip) error {
	if clip == nil || len(clip.Samples) == 0 {
		return fmt.Errorf("empty clip")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: clip.Channels, SampleRate: clip.SampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(clip.Samples)),
	}
	for i, s := range clip.Samples {
		buf.Data[i] = clampPCM16(s)
	}

	enc := wav.NewEncoder(f, clip.SampleRate, 16, clip.Channels, 1)
	if err := enc.Write(buf); err != nil {
		enc.Close()
		f.Close()
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("close wav encoder: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	t.log.Info("audio saved", slog.String("path", path), slog.Duration("duration", clip.Duration()))
	return nil
}

func clampPCM16(s float32) int {
	v := int(s * 32767)
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}

func (t *TempStore) Cleanup(path string) error {
	// Refuse to delete outside our directory.
	if filepath.Dir(path) != t.dir {
		return fmt.Errorf("path %s is not managed by this store", path)
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	t.log.Debug("cleaned up file", slog.String("path", path))
	return nil
}

// CleanupAll removes this store's directory and sweeps sibling directories
// old enough to be leftovers from crashed runs. Returns the number of
// directories removed.
func (t *TempStore) CleanupAll() int {
	count := 0
	if err := os.RemoveAll(t.dir); err != nil {
		t.log.Error("failed to remove temp dir", slog.String("dir", t.dir), slog.String("error", err.Error()))
	} else {
		count++
	}

	entries, err := os.ReadDir(t.base)
	if err != nil {
		return count
	}
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		stale := filepath.Join(t.base, e.Name())
		if stale == t.dir {
			continue
		}
		info, err := e.Info()
		if err != nil || time.Since(info.ModTime()) < staleAge {
			continue
		}
		if err := os.RemoveAll(stale); err != nil {
			t.log.Error("failed to remove stale temp dir", slog.String("dir", stale), slog.String("error", err.Error()))
			continue
		}
		t.log.Debug("removed stale temp dir", slog.String("dir", stale))
		count++
	}
	return count
}
