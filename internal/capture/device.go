package capture

// StreamConfig describes how an input stream should be opened.
type StreamConfig struct {
	SampleRate  int
	Channels    int
	ChunkFrames int
	// Device selects a specific input by name; empty means the default.
	Device string
}

// Stream is a live audio input. Read blocks until one chunk of ChunkFrames
// frames is available and reports whether the device signalled an input
// overflow while filling it.
type Stream interface {
	Read() (Chunk, bool, error)
	Close() error
}

// Device opens input streams. Implementations wrap a real audio backend or
// a test fake.
type Device interface {
	Open(cfg StreamConfig) (Stream, error)
}
