package transcribe

import (
	"context"
	"fmt"
	"path/filepath"
)

type mockTranscriber struct{}

// NewMock returns a transcriber that echoes the file name instead of running
// inference. Useful for wiring tests and dry runs without a model.
func NewMock() Transcriber {
	return &mockTranscriber{}
}

func (m *mockTranscriber) Transcribe(_ context.Context, path string) (Result, error) {
	return Result{
		Text:       fmt.Sprintf("[transcript of %s]", filepath.Base(path)),
		Confidence: 0,
	}, nil
}

func (m *mockTranscriber) Close() error { return nil }
