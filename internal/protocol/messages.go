// Package protocol defines the message types published on the bus.
package protocol

import "time"

// Transcript is a finished dictation result broadcast for local
// integrations (editors, note takers) that subscribe to the bus.
type Transcript struct {
	SessionID  string    `json:"session_id"`
	Text       string    `json:"text"`
	Duration   float64   `json:"duration_seconds"`
	Timestamp  time.Time `json:"timestamp"`
	Confidence float64   `json:"confidence,omitempty"`
}

const SubjectTranscriptFinal = "dictation.transcript.final"
