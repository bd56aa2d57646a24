// Package capture implements chunked microphone capture with a bounded
// session lifecycle. Two engines share one capture algorithm: Engine drives
// it from a dedicated goroutine, CoopEngine schedules it as steps on a
// runloop.Loop so a single-threaded caller can interleave other work.
package capture

import (
	"errors"
	"time"
)

// Capture lifecycle errors. Device failures during capture are logged and
// wrapped; everything here is recoverable by starting a new session.
var (
	ErrAlreadyActive = errors.New("capture: session already active")
	ErrNoSession     = errors.New("capture: no active session")
	ErrEmptyCapture  = errors.New("capture: no audio captured")
	ErrDevice        = errors.New("capture: audio device failure")
)

// Chunk is one fixed-duration block of interleaved samples produced by a
// single stream read. Chunks are immutable once returned by a Stream.
type Chunk struct {
	// Samples holds frames*channels float32 values in [-1, 1], interleaved.
	Samples []float32
	// Frames is the per-channel sample count of this chunk.
	Frames int
}

// Clip is the finalized audio of one session: every captured chunk
// concatenated in capture order. Clips are read-only after finalization.
type Clip struct {
	SampleRate int
	Channels   int
	// Samples is the full interleaved sample sequence. For mono capture this
	// is already the flat one-dimensional result.
	Samples []float32
	// Overflows counts device overflow reports seen during the session.
	// Repeated overflow indicates the reader could not keep up and the clip
	// may have gaps.
	Overflows int
}

// Frames returns the per-channel sample count of the clip.
func (c *Clip) Frames() int {
	if c.Channels == 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the clip length in wall time.
func (c *Clip) Duration() time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	frames := c.Frames()
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// Deinterleaved returns the clip as frames x channels, preserving the
// two-dimensional shape of multi-channel audio. Mono callers should use
// Samples directly.
func (c *Clip) Deinterleaved() [][]float32 {
	frames := c.Frames()
	out := make([][]float32, frames)
	for i := 0; i < frames; i++ {
		out[i] = c.Samples[i*c.Channels : (i+1)*c.Channels]
	}
	return out
}
