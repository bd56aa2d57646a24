package storage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/hushkey/hushkey/internal/capture"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func monoClip(frames int) *capture.Clip {
	samples := make([]float32, frames)
	for i := range samples {
		samples[i] = float32(i%10) / 10
	}
	return &capture.Clip{SampleRate: 16000, Channels: 1, Samples: samples}
}

func TestCreateTargetAndWrite(t *testing.T) {
	st, err := NewTempStore(t.TempDir(), newLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	path, err := st.CreateTempTarget(".wav", "audio_")
	if err != nil {
		t.Fatalf("create target: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "audio_") || !strings.HasSuffix(path, ".wav") {
		t.Fatalf("unexpected target name: %s", path)
	}

	clip := monoClip(1600)
	if err := st.WriteSamples(path, clip); err != nil {
		t.Fatalf("write samples: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open wav: %v", err)
	}
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode wav: %v", err)
	}
	if len(buf.Data) != 1600 {
		t.Fatalf("expected 1600 samples, got %d", len(buf.Data))
	}
	if buf.Format.SampleRate != 16000 || buf.Format.NumChannels != 1 {
		t.Fatalf("unexpected format: %+v", buf.Format)
	}
}

func TestWriteClampsToPCM16(t *testing.T) {
	st, err := NewTempStore(t.TempDir(), newLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	clip := &capture.Clip{
		SampleRate: 16000,
		Channels:   1,
		Samples:    []float32{2.0, -2.0, 0},
	}
	path, _ := st.CreateTempTarget(".wav", "audio_")
	if err := st.WriteSamples(path, clip); err != nil {
		t.Fatalf("write samples: %v", err)
	}

	f, _ := os.Open(path)
	defer f.Close()
	buf, err := wav.NewDecoder(f).FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buf.Data[0] != 32767 || buf.Data[1] != -32768 || buf.Data[2] != 0 {
		t.Fatalf("expected clamped samples, got %v", buf.Data[:3])
	}
}

func TestWriteEmptyClipRejected(t *testing.T) {
	st, err := NewTempStore(t.TempDir(), newLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	path, _ := st.CreateTempTarget(".wav", "audio_")
	if err := st.WriteSamples(path, &capture.Clip{SampleRate: 16000, Channels: 1}); err == nil {
		t.Fatal("expected error for empty clip")
	}
}

func TestCleanupRefusesForeignPaths(t *testing.T) {
	base := t.TempDir()
	st, err := NewTempStore(base, newLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	foreign := filepath.Join(base, "not-ours.wav")
	if err := os.WriteFile(foreign, []byte("x"), 0o600); err != nil {
		t.Fatalf("write foreign: %v", err)
	}
	if err := st.Cleanup(foreign); err == nil {
		t.Fatal("expected refusal for unmanaged path")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatal("foreign file must be untouched")
	}

	path, _ := st.CreateTempTarget(".wav", "audio_")
	if err := st.Cleanup(path); err != nil {
		t.Fatalf("cleanup managed path: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("managed file should be gone")
	}
	// Cleaning an already-removed file is not an error.
	if err := st.Cleanup(path); err != nil {
		t.Fatalf("cleanup twice: %v", err)
	}
}

func TestCleanupAllSweepsStaleDirs(t *testing.T) {
	base := t.TempDir()
	// Simulate a directory left behind by a crashed run days ago.
	stale := filepath.Join(base, dirPrefix+"deadbeef")
	if err := os.MkdirAll(stale, 0o700); err != nil {
		t.Fatalf("mk stale: %v", err)
	}
	old := time.Now().Add(-2 * staleAge)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("age stale: %v", err)
	}
	// A fresh sibling may belong to a concurrently running instance.
	fresh := filepath.Join(base, dirPrefix+"cafe")
	if err := os.MkdirAll(fresh, 0o700); err != nil {
		t.Fatalf("mk fresh: %v", err)
	}
	// Unrelated directories must survive.
	other := filepath.Join(base, "keepme")
	if err := os.MkdirAll(other, 0o700); err != nil {
		t.Fatalf("mk other: %v", err)
	}

	st, err := NewTempStore(base, newLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if got := st.CleanupAll(); got != 2 {
		t.Fatalf("expected 2 directories removed, got %d", got)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale dir should be swept")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh sibling must survive the sweep")
	}
	if _, err := os.Stat(other); err != nil {
		t.Fatal("unrelated dir must survive")
	}
}

func TestWriteAsync(t *testing.T) {
	st, err := NewTempStore(t.TempDir(), newLogger())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	path, _ := st.CreateTempTarget(".wav", "audio_")
	res := <-WriteAsync(st, path, monoClip(160))
	if res.Err != nil {
		t.Fatalf("async write: %v", res.Err)
	}
	if res.Path != path {
		t.Fatalf("unexpected path: %s", res.Path)
	}
}
