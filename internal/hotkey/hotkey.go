// Package hotkey turns global keyboard events into press-edge callbacks for
// a configured key combination. The callback fires exactly once per press of
// the full combination; the combination must be released before it can fire
// again.
package hotkey

// Detector watches for the configured combination system-wide.
type Detector interface {
	// StartListening begins watching and invokes onPress on each press edge.
	// It returns once the listener is running.
	StartListening(onPress func()) error
	// StopListening tears the listener down. Safe to call more than once.
	StopListening()
}
