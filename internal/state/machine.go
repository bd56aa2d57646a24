// Package state implements the dictation lifecycle: a three-state machine
// driven by hotkey presses. Idle waits for a press, Recording captures
// audio, Processing turns the capture into injected text. Processing is
// synchronous, so a press can never observe a half-finished pipeline.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hushkey/hushkey/internal/capture"
	"github.com/hushkey/hushkey/internal/history"
	"github.com/hushkey/hushkey/internal/inject"
	"github.com/hushkey/hushkey/internal/protocol"
	"github.com/hushkey/hushkey/internal/storage"
	"github.com/hushkey/hushkey/internal/telemetry"
	"github.com/hushkey/hushkey/internal/transcribe"
)

// State names the machine's position in the dictation lifecycle.
type State int

const (
	Idle State = iota
	Recording
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case Processing:
		return "processing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recorder is the capture capability the machine drives. Both capture
// engines satisfy it.
type Recorder interface {
	Start() error
	Stop() (*capture.Clip, error)
}

// Historian records finished sessions. *history.Store satisfies it.
type Historian interface {
	RecordSession(ctx context.Context, sess history.Session) error
	RecordTranscript(ctx context.Context, sessionID, text string, confidence float64) error
}

// TranscriptPublisher broadcasts finished transcripts. *bus.Publisher
// satisfies it.
type TranscriptPublisher interface {
	PublishTranscript(tr protocol.Transcript) error
}

// Machine coordinates recorder, storage, transcriber and injector. One
// hotkey press starts a recording, the next one stops it and runs the
// pipeline to completion before returning to Idle.
type Machine struct {
	rec     Recorder
	store   storage.Store
	stt     transcribe.Transcriber
	typist  inject.Injector
	hist    Historian           // optional
	pub     TranscriptPublisher // optional
	metrics *telemetry.Metrics
	log     *slog.Logger
	clock   func() time.Time
	prefix  string

	mu        sync.Mutex
	state     State
	sessionID string
	startedAt time.Time
	procDone  chan struct{} // closed when the in-flight pipeline finishes
}

func NewMachine(rec Recorder, store storage.Store, stt transcribe.Transcriber, typist inject.Injector, metrics *telemetry.Metrics, log *slog.Logger) *Machine {
	return &Machine{
		rec:     rec,
		store:   store,
		stt:     stt,
		typist:  typist,
		metrics: metrics,
		log:     log,
		clock:   time.Now,
		prefix:  "audio_",
	}
}

// WithFilePrefix overrides the temp file name prefix for recordings.
func (m *Machine) WithFilePrefix(prefix string) *Machine {
	if prefix != "" {
		m.prefix = prefix
	}
	return m
}

// WithHistory attaches a session recorder.
func (m *Machine) WithHistory(h Historian) *Machine {
	m.hist = h
	return m
}

// WithPublisher attaches a transcript publisher.
func (m *Machine) WithPublisher(p TranscriptPublisher) *Machine {
	m.pub = p
	return m
}

// State reports the current lifecycle position.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// HandleHotkey advances the machine one step. In Idle it starts a
// recording; in Recording it stops and processes; in Processing the press
// is ignored. Processing runs on the caller's goroutine.
func (m *Machine) HandleHotkey(ctx context.Context) {
	m.mu.Lock()
	switch m.state {
	case Idle:
		m.startLocked(ctx)
		m.mu.Unlock()
		return
	case Recording:
		m.state = Processing
		m.procDone = make(chan struct{})
		sessionID := m.sessionID
		startedAt := m.startedAt
		done := m.procDone
		m.mu.Unlock()

		m.process(ctx, sessionID, startedAt)

		m.mu.Lock()
		m.state = Idle
		m.procDone = nil
		m.mu.Unlock()
		close(done)
		return
	case Processing:
		m.mu.Unlock()
		m.log.Warn("hotkey ignored while processing")
		return
	default:
		m.mu.Unlock()
	}
}

func (m *Machine) startLocked(ctx context.Context) {
	if err := m.rec.Start(); err != nil {
		m.log.Error("failed to start recording", slog.String("error", err.Error()))
		m.metrics.RecordRecording(ctx, "start_failed", 0)
		return
	}
	m.state = Recording
	m.sessionID = uuid.NewString()
	m.startedAt = m.clock()
	m.metrics.ActiveSessions.Add(ctx, 1)
	m.log.Info("recording started", slog.String("session", m.sessionID))
}

// process stops the recorder, persists the clip, transcribes it and injects
// the text. Every failure logs and short-circuits; the machine always ends
// up Idle. The audio file is deleted as soon as transcription finishes,
// whether it succeeded or not.
func (m *Machine) process(ctx context.Context, sessionID string, startedAt time.Time) {
	m.metrics.ActiveSessions.Add(ctx, -1)

	clip, err := m.rec.Stop()
	if err != nil {
		if errors.Is(err, capture.ErrEmptyCapture) {
			m.log.Warn("recording produced no audio", slog.String("session", sessionID))
			m.metrics.RecordRecording(ctx, "empty", 0)
		} else {
			m.log.Error("failed to stop recording",
				slog.String("session", sessionID), slog.String("error", err.Error()))
			m.metrics.RecordRecording(ctx, "stop_failed", 0)
		}
		return
	}
	m.log.Info("recording stopped",
		slog.String("session", sessionID),
		slog.Duration("duration", clip.Duration()),
		slog.Int("overflows", clip.Overflows))
	if clip.Overflows > 0 {
		m.metrics.Overflows.Add(ctx, int64(clip.Overflows))
	}

	if m.hist != nil {
		sess := history.Session{
			ID:        sessionID,
			StartedAt: startedAt,
			Duration:  clip.Duration(),
			Frames:    clip.Frames(),
			Overflows: clip.Overflows,
		}
		if err := m.hist.RecordSession(ctx, sess); err != nil {
			m.log.Warn("failed to record session", slog.String("error", err.Error()))
		}
	}

	path, err := m.store.CreateTempTarget(".wav", m.prefix)
	if err != nil {
		m.log.Error("failed to allocate audio file", slog.String("error", err.Error()))
		m.metrics.RecordRecording(ctx, "storage_failed", clip.Duration())
		return
	}
	if err := m.store.WriteSamples(path, clip); err != nil {
		m.log.Error("failed to write audio file",
			slog.String("path", path), slog.String("error", err.Error()))
		m.store.Cleanup(path)
		m.metrics.RecordRecording(ctx, "storage_failed", clip.Duration())
		return
	}

	sttStart := m.clock()
	result, err := m.stt.Transcribe(ctx, path)
	m.metrics.TranscriptionDuration.Record(ctx, m.clock().Sub(sttStart).Seconds())
	if cerr := m.store.Cleanup(path); cerr != nil {
		m.log.Warn("failed to clean up audio file",
			slog.String("path", path), slog.String("error", cerr.Error()))
	}
	if err != nil {
		m.log.Error("transcription failed",
			slog.String("session", sessionID), slog.String("error", err.Error()))
		m.metrics.RecordRecording(ctx, "transcription_failed", clip.Duration())
		return
	}

	if err := m.typist.Inject(result.Text); err != nil {
		if errors.Is(err, inject.ErrEmptyText) {
			m.log.Info("transcript was empty, nothing to inject",
				slog.String("session", sessionID))
			m.metrics.RecordRecording(ctx, "empty_transcript", clip.Duration())
		} else {
			m.log.Error("injection failed",
				slog.String("session", sessionID), slog.String("error", err.Error()))
			m.metrics.InjectionFailures.Add(ctx, 1)
			m.metrics.RecordRecording(ctx, "injection_failed", clip.Duration())
		}
		return
	}

	if m.hist != nil {
		if err := m.hist.RecordTranscript(ctx, sessionID, result.Text, result.Confidence); err != nil {
			m.log.Warn("failed to record transcript", slog.String("error", err.Error()))
		}
	}
	if m.pub != nil {
		tr := protocol.Transcript{
			SessionID:  sessionID,
			Text:       result.Text,
			Duration:   clip.Duration().Seconds(),
			Timestamp:  m.clock(),
			Confidence: result.Confidence,
		}
		if err := m.pub.PublishTranscript(tr); err != nil {
			m.log.Warn("failed to publish transcript", slog.String("error", err.Error()))
		}
	}

	m.metrics.RecordRecording(ctx, "ok", clip.Duration())
	m.log.Info("dictation complete",
		slog.String("session", sessionID), slog.Int("chars", len(result.Text)))
}

// Shutdown quiesces the machine. An in-flight recording is force-stopped and
// its audio discarded so the device is released. An in-flight Processing
// pipeline is waited for, bounded by ctx, so collaborators (model, stores)
// are not closed underneath it.
func (m *Machine) Shutdown(ctx context.Context) {
	m.mu.Lock()
	switch m.state {
	case Processing:
		done := m.procDone
		m.mu.Unlock()
		if done == nil {
			return
		}
		select {
		case <-done:
		case <-ctx.Done():
			m.log.Warn("shutdown deadline reached with pipeline still running")
		}
		return
	case Recording:
		if _, err := m.rec.Stop(); err != nil && !errors.Is(err, capture.ErrEmptyCapture) {
			m.log.Warn("failed to stop recording during shutdown", slog.String("error", err.Error()))
		}
		m.metrics.ActiveSessions.Add(ctx, -1)
		m.metrics.RecordRecording(ctx, "aborted", 0)
		m.state = Idle
		m.log.Info("recording aborted by shutdown")
	}
	m.mu.Unlock()
}
