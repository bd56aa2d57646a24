package capture

import (
	"log/slog"
	"time"

	"github.com/hushkey/hushkey/internal/runloop"
)

// ProgressFunc receives recording progress after each captured chunk. Two
// contracts apply, depending on whether a duration cap is configured:
//
//   - capped: the value is min(elapsed/max, 1.0), a fraction in [0, 1]
//   - uncapped: the value is raw elapsed seconds and grows without bound;
//     callers must clamp or interpret it themselves
//
// The sequence is non-decreasing within a session.
type ProgressFunc func(progress float64)

// CoopEngine is the cooperative variant of Engine for single-threaded
// callers: the capture worker runs as self-reposting steps on a
// runloop.Loop, yielding to other loop tasks after every chunk. Stop must be
// called from off the loop; it suspends the caller until the capture task
// has finished.
type CoopEngine struct {
	cfg  Config
	dev  Device
	loop *runloop.Loop
	log  *slog.Logger

	// clock is swapped in tests for deterministic progress values.
	clock func() time.Time

	sess *session
}

// NewCoopEngine returns a cooperative engine scheduling its capture steps on
// loop.
func NewCoopEngine(cfg Config, dev Device, loop *runloop.Loop, log *slog.Logger) *CoopEngine {
	return &CoopEngine{cfg: cfg, dev: dev, loop: loop, log: log, clock: time.Now}
}

// Active reports whether a session is in flight.
func (e *CoopEngine) Active() bool {
	return e.sess != nil
}

// Start schedules the capture task and returns immediately. progress may be
// nil. Fails with ErrAlreadyActive when a session is in flight.
func (e *CoopEngine) Start(progress ProgressFunc) error {
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

	if err := e.loop.Post(func() { e.begin(s, progress) }); err != nil {
		e.sess = nil
		close(s.done)
		return err
	}
	return nil
}

// begin opens the stream on the loop and kicks off the step chain.
func (e *CoopEngine) begin(s *session, progress ProgressFunc) {
	stream, err := e.dev.Open(StreamConfig{
		SampleRate:  e.cfg.SampleRate,
		Channels:    e.cfg.Channels,
		ChunkFrames: e.cfg.chunkFrames(),
		Device:      e.cfg.Device,
	})
	if err != nil {
		e.log.Error("failed to open input stream", slog.String("error", err.Error()))
		s.pump.failed = true
		close(s.done)
		return
	}

	started := e.clock()
	var step func()
	step = func() {
		select {
		case <-s.cancel:
			e.finish(s, stream)
			return
		default:
		}
		if !s.pump.step(stream) {
			e.finish(s, stream)
			return
		}
		if progress != nil {
			elapsed := e.clock().Sub(started)
			if e.cfg.MaxDuration > 0 {
				p := elapsed.Seconds() / e.cfg.MaxDuration.Seconds()
				if p > 1 {
					p = 1
				}
				progress(p)
			} else {
				progress(elapsed.Seconds())
			}
		}
		// Yield: requeue instead of looping so other loop tasks interleave.
		if err := e.loop.Post(step); err != nil {
			e.finish(s, stream)
		}
	}
	step()
}

func (e *CoopEngine) finish(s *session, stream Stream) {
	if err := stream.Close(); err != nil {
		e.log.Warn("failed to close input stream", slog.String("error", err.Error()))
	}
	close(s.done)
}

// Stop cancels the capture task, waits for it to complete, and returns the
// finalized clip. Callers on an event loop should hand the clip to
// storage.WriteAsync so persistence does not stall the loop. Error contract
// matches Engine.Stop.
func (e *CoopEngine) Stop() (*Clip, error) {
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
