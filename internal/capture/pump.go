package capture

import (
	"log/slog"
	"time"
)

// pump is the capture algorithm shared by both engines: read one chunk,
// account for overflow, enforce the duration cap, append. The scheduling
// strategy around it (goroutine loop vs runloop steps) is supplied by the
// owning engine. A pump belongs to exactly one session and is only ever
// touched by that session's worker.
type pump struct {
	chunkDur time.Duration
	maxDur   time.Duration // 0 disables the cap

	chunks    []Chunk
	overflows int
	failed    bool

	log *slog.Logger
}

// step performs one capture iteration. It returns false when the session
// should end: on a read error (the session is marked failed) or once the
// accumulated duration has reached the cap. The cap is checked against the
// chunk count before appending, so a capped session holds at most
// maxDur/chunkDur chunks and the overshoot is bounded by one chunk period.
func (p *pump) step(s Stream) bool {
	chunk, overflowed, err := s.Read()
	if err != nil {
		p.log.Error("audio read failed", slog.String("error", err.Error()))
		p.failed = true
		return false
	}
	if overflowed {
		p.log.Warn("audio input overflow detected")
		p.overflows++
	}
	if p.maxDur > 0 && time.Duration(len(p.chunks))*p.chunkDur >= p.maxDur {
		p.log.Warn("maximum recording duration reached", slog.Duration("max", p.maxDur))
		return false
	}
	p.chunks = append(p.chunks, chunk)
	return true
}

// finalize concatenates all chunks into a Clip. Returns nil when nothing was
// captured. Must only be called after the session worker has terminated.
func (p *pump) finalize(sampleRate, channels int) *Clip {
	if len(p.chunks) == 0 {
		return nil
	}
	total := 0
	for _, c := range p.chunks {
		total += len(c.Samples)
	}
	samples := make([]float32, 0, total)
	for _, c := range p.chunks {
		samples = append(samples, c.Samples...)
	}
	return &Clip{
		SampleRate: sampleRate,
		Channels:   channels,
		Samples:    samples,
		Overflows:  p.overflows,
	}
}
