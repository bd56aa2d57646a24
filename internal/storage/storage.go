// Package storage abstracts where finalized recordings land. The engine and
// state machine only see the Store interface; TempStore is the default
// implementation writing WAV files under a per-process temp directory.
package storage

import "github.com/hushkey/hushkey/internal/capture"

// Store is the persistence capability consumed by the dictation pipeline.
type Store interface {
	// CreateTempTarget allocates an empty file and returns its path.
	CreateTempTarget(suffix, prefix string) (string, error)
	// WriteSamples encodes the clip as 16-bit PCM WAV at path.
	WriteSamples(path string, clip *capture.Clip) error
	// Cleanup removes one file.
	Cleanup(path string) error
	// CleanupAll removes everything this store created, returning the number
	// of entries removed.
	CleanupAll() int
}

// WriteResult is delivered by WriteAsync when the write completes.
type WriteResult struct {
	Path string
	Err  error
}

// WriteAsync persists a clip on a background goroutine so event-loop callers
// are never stalled by file I/O. The result arrives on the returned channel.
func WriteAsync(st Store, path string, clip *capture.Clip) <-chan WriteResult {
	out := make(chan WriteResult, 1)
	go func() {
		out <- WriteResult{Path: path, Err: st.WriteSamples(path, clip)}
	}()
	return out
}
