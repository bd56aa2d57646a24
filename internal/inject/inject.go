// Package inject places transcribed text into the currently focused
// application by synthesizing keystrokes.
package inject

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when there is nothing to type. Whitespace-only
// input counts as empty: no keystrokes are synthesized for it.
var ErrEmptyText = errors.New("nothing to inject")

// Injector delivers text to the focused window.
type Injector interface {
	Inject(text string) error
}

// validate rejects input that must not produce keystrokes.
func validate(text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}
	return nil
}
