package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/northcall/voicebridge/internal/models"
	"github.com/northcall/voicebridge/internal/services"
)

type eventQueryStub struct {
	calls []string
	limit int64
	rows  []models.CallEvent
	err   error
}

func (s *eventQueryStub) ListByCall(_ context.Context, callSID string, limit int64) ([]models.CallEvent, error) {
	s.calls = append(s.calls, callSID)
	s.limit = limit
	return s.rows, s.err
}

func newCallRouter(events services.EventQueryService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewCallHandler(&callServiceStub{}, nil, events)

	r := gin.New()
	r.GET("/calls/active", h.Active)
	r.GET("/calls/:call_sid/transcript", h.Transcript)
	r.GET("/calls/:call_sid/events", h.Events)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestEventsListsCallEvents(t *testing.T) {
	stub := &eventQueryStub{rows: []models.CallEvent{
		{EventID: "ev-1", CallSID: "CA1", Type: models.EventCallInitiated, Timestamp: time.Now().UTC()},
		{EventID: "ev-2", CallSID: "CA1", Type: models.EventConversationTurn, Timestamp: time.Now().UTC()},
	}}
	r := newCallRouter(stub)

	w := get(r, "/calls/CA1/events?limit=50")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(stub.calls) != 1 || stub.calls[0] != "CA1" || stub.limit != 50 {
		t.Fatalf("unexpected query: calls=%v limit=%d", stub.calls, stub.limit)
	}
	if !strings.Contains(w.Body.String(), "ev-1") || !strings.Contains(w.Body.String(), "ev-2") {
		t.Fatalf("expected both events in the response, got %s", w.Body.String())
	}
}

func TestEventsUnavailableWithoutStorage(t *testing.T) {
	r := newCallRouter(nil)

	w := get(r, "/calls/CA1/events")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without event storage, got %d", w.Code)
	}
}

func TestTranscriptUnavailableWithoutStorage(t *testing.T) {
	r := newCallRouter(nil)

	w := get(r, "/calls/CA1/transcript")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without transcript storage, got %d", w.Code)
	}
}
