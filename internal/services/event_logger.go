package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/northcall/voicebridge/internal/models"
	mongorepo "github.com/northcall/voicebridge/internal/repositories/mongo"
)

// EventLogger records call lifecycle events. Every implementation is
// fire-and-forget: a logging failure must never reach the caller's control
// flow, so LogEvent returns nothing and swallows errors at this boundary.
type EventLogger interface {
	LogEvent(ctx context.Context, callSID, eventType string, payload map[string]any)
}

type mongoEventLogger struct {
	events mongorepo.EventRepository
	log    *logrus.Logger
	ttl    time.Duration
}

func NewMongoEventLogger(events mongorepo.EventRepository, log *logrus.Logger, ttl time.Duration) EventLogger {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	if log == nil {
		log = logrus.New()
	}
	return &mongoEventLogger{events: events, log: log, ttl: ttl}
}

func (l *mongoEventLogger) LogEvent(ctx context.Context, callSID, eventType string, payload map[string]any) {
	now := time.Now().UTC()
	ev := &models.CallEvent{
		EventID:   uuid.NewString(),
		CallSID:   callSID,
		Type:      eventType,
		Payload:   payload,
		Timestamp: now,
		ExpiresAt: now.Add(l.ttl),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := l.events.Insert(writeCtx, ev); err != nil {
		l.log.WithError(err).WithFields(logrus.Fields{
			"call_sid": callSID,
			"type":     eventType,
		}).Warn("event log write failed")
	}
}

type nopEventLogger struct{}

// NewNopEventLogger is used when no event database is configured: logging
// silently disables, the call pipeline is unaffected.
func NewNopEventLogger() EventLogger { return nopEventLogger{} }

func (nopEventLogger) LogEvent(context.Context, string, string, map[string]any) {}
