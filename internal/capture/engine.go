package capture

import (
	"log/slog"
	"time"
)

// Config holds the capture parameters shared by both engines.
type Config struct {
	SampleRate int
	Channels   int
	// ChunkDuration is the fixed read size; 100ms when zero.
	ChunkDuration time.Duration
	// MaxDuration caps a session's length with one-chunk granularity.
	// Zero disables the cap.
	MaxDuration time.Duration
	// Device selects a specific input by name; empty means the default.
	Device string
}

func (c Config) chunkDuration() time.Duration {
	if c.ChunkDuration <= 0 {
		return 100 * time.Millisecond
	}
	return c.ChunkDuration
}

func (c Config) chunkFrames() int {
	return int(float64(c.SampleRate) * c.chunkDuration().Seconds())
}

// Engine records audio on a dedicated worker goroutine. At most one session
// is active at a time; starting a second one is rejected, not queued. The
// session buffer is written only by the worker and read only after Stop has
// joined it, so no reader ever observes a partially written buffer.
type Engine struct {
	cfg Config
	dev Device
	log *slog.Logger

	sess *session
}

// session is one start-to-stop capture lifecycle. Created on Start, consumed
// exactly once by Stop, then discarded.
type session struct {
	pump   *pump
	cancel chan struct{}
	done   chan struct{}
}

// NewEngine returns an engine reading from dev. The engine itself is not
// safe for concurrent Start/Stop from multiple goroutines; the state machine
// serializes access.
func NewEngine(cfg Config, dev Device, log *slog.Logger) *Engine {
	return &Engine{cfg: cfg, dev: dev, log: log}
}

// Active reports whether a session is in flight.
func (e *Engine) Active() bool {
	return e.sess != nil
}

// Start launches a capture worker and returns immediately. It fails with
// ErrAlreadyActive when a session is in flight, leaving it untouched.
func (e *Engine) Start() error {
	if e.sess != nil {
		e.log.Warn("recording already in progress")
		return ErrAlreadyActive
	}

	s := &session{
		pump: &pump{
			chunkDur: e.cfg.chunkDuration(),
			maxDur:   e.cfg.MaxDuration,
			log:      e.log,
		},
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
	e.sess = s
	e.log.Info("recording started",
		slog.Int("sample_rate", e.cfg.SampleRate),
		slog.Int("channels", e.cfg.Channels))

	go e.record(s)
	return nil
}

// record is the capture worker. It owns the session's pump exclusively until
// done is closed. Cancellation is cooperative: the flag is checked at chunk
// boundaries, so worst-case stop latency is one chunk duration.
func (e *Engine) record(s *session) {
	defer close(s.done)

	stream, err := e.dev.Open(StreamConfig{
		SampleRate:  e.cfg.SampleRate,
		Channels:    e.cfg.Channels,
		ChunkFrames: e.cfg.chunkFrames(),
		Device:      e.cfg.Device,
	})
	if err != nil {
		e.log.Error("failed to open input stream", slog.String("error", err.Error()))
		s.pump.failed = true
		return
	}
	defer stream.Close()

	for {
		select {
		case <-s.cancel:
			return
		default:
		}
		if !s.pump.step(stream) {
			return
		}
	}
}

// Stop cancels the worker, waits for it to terminate, and returns the
// finalized clip. It fails with ErrNoSession when nothing is recording and
// ErrEmptyCapture when the worker accumulated no chunks (including early
// device failures). The session is discarded regardless of outcome.
func (e *Engine) Stop() (*Clip, error) {
	s := e.sess
	e.sess = nil
	if s == nil {
		e.log.Warn("no recording in progress")
		return nil, ErrNoSession
	}

	close(s.cancel)
	<-s.done

	clip := s.pump.finalize(e.cfg.SampleRate, e.cfg.Channels)
	if clip == nil {
		e.log.Warn("no audio data recorded")
		return nil, ErrEmptyCapture
	}
	e.log.Info("recording stopped",
		slog.Duration("duration", clip.Duration()),
		slog.Int("overflows", clip.Overflows))
	return clip, nil
}
