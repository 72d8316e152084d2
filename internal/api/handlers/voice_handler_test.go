package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/northcall/voicebridge/internal/models"
	"github.com/northcall/voicebridge/internal/services"
)

type callServiceStub struct {
	created    []string
	turns      []string
	terminated []string

	turnResult *services.TurnResult
	turnErr    error
}

func (s *callServiceStub) Create(_ context.Context, callSID, from, language string) (*models.CallSession, error) {
	s.created = append(s.created, callSID)
	return &models.CallSession{
		CallSID:   callSID,
		From:      from,
		Language:  "en",
		StartedAt: time.Now().UTC(),
		Active:    true,
	}, nil
}

func (s *callServiceStub) HandleTurn(_ context.Context, callSID string, _ services.TurnInput) (*services.TurnResult, error) {
	s.turns = append(s.turns, callSID)
	return s.turnResult, s.turnErr
}

func (s *callServiceStub) Terminate(_ context.Context, callSID, _ string) {
	s.terminated = append(s.terminated, callSID)
}

func (s *callServiceStub) ActiveCount() int                  { return len(s.created) }
func (s *callServiceStub) ActiveCalls() []models.CallSession { return nil }
func (s *callServiceStub) SweepIdle(context.Context) int     { return 0 }

func newVoiceRouter(stub *callServiceStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewVoiceHandler(stub, nil, nil)

	r := gin.New()
	r.POST("/voice/incoming", h.Incoming)
	r.POST("/voice/speech", h.SpeechResult)
	r.POST("/voice/status", h.StatusCallback)
	return r
}

func postForm(r *gin.Engine, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIncomingCreatesSession(t *testing.T) {
	stub := &callServiceStub{}
	r := newVoiceRouter(stub)

	w := postForm(r, "/voice/incoming", url.Values{
		"call_sid": {"CA1"},
		"from":     {"+15551234567"},
		"language": {"en"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(stub.created) != 1 || stub.created[0] != "CA1" {
		t.Fatalf("expected one create for CA1, got %v", stub.created)
	}
}

func TestIncomingRequiresCallSID(t *testing.T) {
	stub := &callServiceStub{}
	r := newVoiceRouter(stub)

	w := postForm(r, "/voice/incoming", url.Values{"from": {"+15551234567"}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if len(stub.created) != 0 {
		t.Fatalf("expected no create call, got %v", stub.created)
	}
}

func TestSpeechResultReturnsUtterance(t *testing.T) {
	stub := &callServiceStub{
		turnResult: &services.TurnResult{
			Outcome:    services.OutcomeReply,
			Utterance:  "Sunny all day.",
			Transcript: "What's the weather?",
			VoiceID:    "en-US-Neural2-C",
		},
	}
	r := newVoiceRouter(stub)

	w := postForm(r, "/voice/speech", url.Values{
		"call_sid":      {"CA1"},
		"speech_result": {"What's the weather?"},
		"confidence":    {"0.93"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "Sunny all day.") || !strings.Contains(body, `"outcome":"reply"`) {
		t.Fatalf("unexpected body: %s", body)
	}
}

func TestStatusCallbackTerminatesOnTerminalStatus(t *testing.T) {
	stub := &callServiceStub{}
	r := newVoiceRouter(stub)

	w := postForm(r, "/voice/status", url.Values{
		"call_sid":    {"CA1"},
		"call_status": {"completed"},
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(stub.terminated) != 1 || stub.terminated[0] != "CA1" {
		t.Fatalf("expected CA1 terminated, got %v", stub.terminated)
	}
}

func TestStatusCallbackIgnoresNonTerminalStatus(t *testing.T) {
	stub := &callServiceStub{}
	r := newVoiceRouter(stub)

	w := postForm(r, "/voice/status", url.Values{
		"call_sid":    {"CA1"},
		"call_status": {"in-progress"},
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if len(stub.terminated) != 0 {
		t.Fatalf("expected no termination, got %v", stub.terminated)
	}
}
