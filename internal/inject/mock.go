package inject

import "sync"

// Recorder collects injected text instead of typing it. It enforces the
// same empty-input contract as the real typist.
type Recorder struct {
	mu    sync.Mutex
	texts []string
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Inject(text string) error {
	if err := validate(text); err != nil {
		return err
	}
	r.mu.Lock()
	r.texts = append(r.texts, text)
	r.mu.Unlock()
	return nil
}

// Texts returns everything injected so far.
func (r *Recorder) Texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.texts))
	copy(out, r.texts)
	return out
}
