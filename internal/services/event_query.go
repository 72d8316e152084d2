package services

import (
	"context"

	"github.com/northcall/voicebridge/internal/models"
	mongorepo "github.com/northcall/voicebridge/internal/repositories/mongo"
	"github.com/northcall/voicebridge/internal/utils"
)

// EventQueryService reads back the lifecycle events LogEvent recorded, for
// the per-call analytics surface.
type EventQueryService interface {
	ListByCall(ctx context.Context, callSID string, limit int64) ([]models.CallEvent, error)
}

type eventQueryService struct {
	events mongorepo.EventRepository
}

func NewEventQueryService(events mongorepo.EventRepository) EventQueryService {
	return &eventQueryService{events: events}
}

func (s *eventQueryService) ListByCall(ctx context.Context, callSID string, limit int64) ([]models.CallEvent, error) {
	const op = "EventQueryService.ListByCall"

	if callSID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_sid is required", nil)
	}

	rows, err := s.events.ListByCall(ctx, callSID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list call events", err)
	}
	return rows, nil
}
