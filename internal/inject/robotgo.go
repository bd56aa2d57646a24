package inject

import (
	"log/slog"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/hushkey/hushkey/internal/config"
)

// Typist types text with robotgo. A short settle delay before typing lets
// the user release the hotkey modifiers, otherwise the synthesized
// keystrokes combine with the held modifiers.
type Typist struct {
	settle   time.Duration
	trailing bool
	log      *slog.Logger
}

func NewTypist(cfg config.InjectConfig, log *slog.Logger) *Typist {
	return &Typist{
		settle:   time.Duration(cfg.SettleDelayMS) * time.Millisecond,
		trailing: cfg.TrailingSpace,
		log:      log,
	}
}

func (t *Typist) Inject(text string) error {
	if err := validate(text); err != nil {
		return err
	}
	if t.settle > 0 {
		time.Sleep(t.settle)
	}
	if t.trailing {
		text += " "
	}
	robotgo.TypeStr(text)
	t.log.Debug("text injected", slog.Int("chars", len(text)))
	return nil
}
