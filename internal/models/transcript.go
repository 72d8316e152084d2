package models

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// TranscriptEntry is the durable per-utterance record written to Postgres.
// The embedding column is optional and only populated when an embedder is
// configured; the analytics dashboard queries these rows by call.
type TranscriptEntry struct {
	ID        string          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CallSID   string          `gorm:"column:call_sid;type:text;index" json:"call_sid"`
	From      string          `gorm:"column:caller;type:text" json:"caller"`
	Role      string          `gorm:"column:role;type:text" json:"role"` // "user" | "assistant"
	Content   string          `gorm:"column:content;type:text" json:"content"`
	Embedding pgvector.Vector `gorm:"column:embedding;type:vector(768)" json:"embedding"`
	Timestamp time.Time       `gorm:"column:timestamp;type:timestamptz;index" json:"timestamp"`
	Metadata  datatypes.JSON  `gorm:"column:metadata;type:jsonb" json:"metadata"`
}

func (TranscriptEntry) TableName() string { return "call_transcripts" }
