package hotkey

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/hushkey/hushkey/internal/config"
	hook "github.com/robotn/gohook"
)

// GlobalDetector listens for the combination on the raw system-wide event
// stream. Raw events (rather than gohook's Register matcher) are needed to
// see releases, which is what re-arms the press edge.
type GlobalDetector struct {
	keys []string
	log  *slog.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}
}

func NewGlobalDetector(cfg config.HotkeyConfig, log *slog.Logger) (*GlobalDetector, error) {
	if len(cfg.Keys) == 0 {
		return nil, fmt.Errorf("hotkey combination is empty")
	}
	return &GlobalDetector{keys: cfg.Keys, log: log}, nil
}

func (d *GlobalDetector) StartListening(onPress func()) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return fmt.Errorf("hotkey listener already running")
	}
	d.running = true
	d.done = make(chan struct{})

	events := hook.Start()
	go d.watch(events, onPress, d.done)
	d.log.Info("hotkey listener started", slog.Any("keys", d.keys))
	return nil
}

func (d *GlobalDetector) watch(events chan hook.Event, onPress func(), done chan struct{}) {
	tracker := newEdgeTracker(d.keys)
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			name := hook.RawcodetoKeychar(ev.Rawcode)
			switch ev.Kind {
			case hook.KeyDown, hook.KeyHold:
				if tracker.keyDown(name) {
					onPress()
				}
			case hook.KeyUp:
				tracker.keyUp(name)
			}
		}
	}
}

func (d *GlobalDetector) StopListening() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	d.running = false
	close(d.done)
	hook.End()
	d.log.Info("hotkey listener stopped")
}
