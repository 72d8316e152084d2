package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Call lifecycle event types written to the event log.
const (
	EventCallInitiated    = "call_initiated"
	EventConversationTurn = "conversation_turn"
	EventCallEnded        = "call_ended"
)

// CallEvent is one append-only lifecycle record for a call. Events are
// best-effort: the call pipeline never depends on them being written.
type CallEvent struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	EventID string             `bson:"event_id" json:"event_id"` // uuid v4
	CallSID string             `bson:"call_sid" json:"call_sid"`
	Type    string             `bson:"type" json:"type"` // call_initiated|conversation_turn|call_ended

	Payload map[string]any `bson:"payload,omitempty" json:"payload,omitempty"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"` // for TTL index
}
