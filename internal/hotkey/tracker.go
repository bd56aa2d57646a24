package hotkey

import "strings"

// modifierAliases folds left/right variants and common synonyms into one
// canonical name, so a combo configured as "ctrl" matches either control key.
var modifierAliases = map[string]string{
	"lshift": "shift", "rshift": "shift",
	"lctrl": "ctrl", "rctrl": "ctrl", "control": "ctrl",
	"lalt": "alt", "ralt": "alt", "option": "alt",
	"lcmd": "cmd", "rcmd": "cmd",
	"lmeta": "cmd", "rmeta": "cmd",
	"command": "cmd", "meta": "cmd", "super": "cmd", "win": "cmd",
}

func canonical(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if alias, ok := modifierAliases[key]; ok {
		return alias
	}
	return key
}

// edgeTracker decides when the combination counts as freshly pressed. It is
// not safe for concurrent use; the detector feeds it from one goroutine.
type edgeTracker struct {
	combo map[string]bool
	down  map[string]bool
	fired bool
}

func newEdgeTracker(keys []string) *edgeTracker {
	combo := make(map[string]bool, len(keys))
	for _, k := range keys {
		combo[canonical(k)] = true
	}
	return &edgeTracker{combo: combo, down: make(map[string]bool)}
}

// keyDown records a press and reports whether the full combination just
// became active. Repeats while held (key auto-repeat) do not re-fire.
func (t *edgeTracker) keyDown(key string) bool {
	key = canonical(key)
	t.down[key] = true
	if t.fired || !t.comboHeld() {
		return false
	}
	t.fired = true
	return true
}

// keyUp records a release. Releasing any combo key re-arms the tracker.
func (t *edgeTracker) keyUp(key string) {
	key = canonical(key)
	delete(t.down, key)
	if t.combo[key] {
		t.fired = false
	}
}

func (t *edgeTracker) comboHeld() bool {
	for k := range t.combo {
		if !t.down[k] {
			return false
		}
	}
	return len(t.combo) > 0
}
