package models

import "time"

// Role of a single conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one utterance in a call's conversation history.
type Turn struct {
	Role      string    `json:"role"` // "user" | "assistant"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// CallSession is the live, in-memory record of one telephony conversation.
// It is owned by the session store for its whole lifetime; history is
// append-only while the session is active.
type CallSession struct {
	CallSID  string `json:"call_sid"` // provider-assigned call identifier
	From     string `json:"from"`     // caller identity, ex: "+15551234567"
	Language string `json:"language"` // language code, ex: "en"

	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	History []Turn `json:"history"`
	Active  bool   `json:"active"`

	LastTurnAt time.Time `json:"last_turn_at"`
}

// Duration returns the elapsed call time, using EndedAt once set.
func (s *CallSession) Duration(now time.Time) time.Duration {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	d := end.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// WindowedHistory returns the most recent n turns in original order.
// The returned slice aliases History and must be treated as read-only.
func (s *CallSession) WindowedHistory(n int) []Turn {
	if n <= 0 || len(s.History) <= n {
		return s.History
	}
	return s.History[len(s.History)-n:]
}
