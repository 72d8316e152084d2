package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/northcall/voicebridge/internal/models"
	"github.com/northcall/voicebridge/internal/utils"
)

type eventRepoStub struct {
	rows []models.CallEvent
	err  error
}

func (s *eventRepoStub) Insert(context.Context, *models.CallEvent) error { return s.err }

func (s *eventRepoStub) ListByCall(_ context.Context, _ string, _ int64) ([]models.CallEvent, error) {
	return s.rows, s.err
}

func TestEventQueryListByCall(t *testing.T) {
	repo := &eventRepoStub{rows: []models.CallEvent{
		{EventID: "ev-1", CallSID: "CA1", Type: models.EventCallInitiated, Timestamp: time.Now().UTC()},
	}}
	svc := NewEventQueryService(repo)

	rows, err := svc.ListByCall(context.Background(), "CA1", 10)
	if err != nil || len(rows) != 1 || rows[0].EventID != "ev-1" {
		t.Fatalf("unexpected result: rows=%+v err=%v", rows, err)
	}
}

func TestEventQueryRequiresCallSID(t *testing.T) {
	svc := NewEventQueryService(&eventRepoStub{})

	_, err := svc.ListByCall(context.Background(), "", 10)
	var appErr *utils.AppError
	if !errors.As(err, &appErr) || appErr.Code != utils.CodeInvalidArgument {
		t.Fatalf("expected an invalid-argument error, got %v", err)
	}
}
