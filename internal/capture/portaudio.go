package capture

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice is the production Device backed by PortAudio. It owns the
// library-wide initialization, so exactly one instance should exist per
// process and Close must be called before exit.
type PortAudioDevice struct{}

// NewPortAudioDevice initializes the PortAudio library.
func NewPortAudioDevice() (*PortAudioDevice, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init: %w", err)
	}
	return &PortAudioDevice{}, nil
}

// Close terminates the PortAudio library.
func (d *PortAudioDevice) Close() error {
	return portaudio.Terminate()
}

// Open opens an input stream reading float32 chunks of cfg.ChunkFrames
// frames.
func (d *PortAudioDevice) Open(cfg StreamConfig) (Stream, error) {
	buf := make([]float32, cfg.ChunkFrames*cfg.Channels)

	var (
		stream *portaudio.Stream
		err    error
	)
	if cfg.Device == "" {
		stream, err = portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), cfg.ChunkFrames, buf)
	} else {
		var info *portaudio.DeviceInfo
		info, err = findInputDevice(cfg.Device)
		if err != nil {
			return nil, err
		}
		params := portaudio.StreamParameters{
			Input: portaudio.StreamDeviceParameters{
				Device:   info,
				Channels: cfg.Channels,
				Latency:  info.DefaultLowInputLatency,
			},
			SampleRate:      float64(cfg.SampleRate),
			FramesPerBuffer: cfg.ChunkFrames,
		}
		stream, err = portaudio.OpenStream(params, buf)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open input stream: %v", ErrDevice, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: start input stream: %v", ErrDevice, err)
	}
	return &paStream{stream: stream, buf: buf, frames: cfg.ChunkFrames}, nil
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}
	return nil, fmt.Errorf("input device %q not found", name)
}

type paStream struct {
	stream *portaudio.Stream
	buf    []float32
	frames int
}

// Read blocks until the device fills one chunk. InputOverflowed is reported
// as the overflow flag rather than an error; the chunk contents are still
// usable.
func (s *paStream) Read() (Chunk, bool, error) {
	overflowed := false
	if err := s.stream.Read(); err != nil {
		if !errors.Is(err, portaudio.InputOverflowed) {
			return Chunk{}, false, fmt.Errorf("%w: read input stream: %v", ErrDevice, err)
		}
		overflowed = true
	}
	samples := make([]float32, len(s.buf))
	copy(samples, s.buf)
	return Chunk{Samples: samples, Frames: s.frames}, overflowed, nil
}

func (s *paStream) Close() error {
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return err
	}
	return s.stream.Close()
}
