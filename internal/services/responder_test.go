package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/northcall/voicebridge/internal/languages"
	"github.com/northcall/voicebridge/internal/models"
	"github.com/northcall/voicebridge/internal/providers/llm"
)

type llmStub struct {
	mu       sync.Mutex
	calls    int
	failures int // fail this many calls before succeeding
	reply    string

	lastSystem  string
	lastHistory []llm.Message
}

func (s *llmStub) StreamReply(_ context.Context, system string, history []llm.Message) (<-chan string, <-chan error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.lastSystem = system
	s.lastHistory = append([]llm.Message(nil), history...)

	out := make(chan string, 1)
	errs := make(chan error, 1)
	if s.calls <= s.failures {
		errs <- errors.New("provider unavailable")
	} else if s.reply != "" {
		out <- s.reply
	}
	close(out)
	close(errs)
	return out, errs
}

func (s *llmStub) Close() error { return nil }

func newTestResponder(stub *llmStub) (*Responder, *[]time.Duration) {
	r := NewResponder(stub, nil)
	delays := &[]time.Duration{}
	r.sleep = func(d time.Duration) { *delays = append(*delays, d) }
	return r, delays
}

func turnWindow(texts ...string) []models.Turn {
	var w []models.Turn
	for i, txt := range texts {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		w = append(w, models.Turn{Role: role, Text: txt, Timestamp: time.Now()})
	}
	return w
}

func TestRespondSucceedsFirstTry(t *testing.T) {
	stub := &llmStub{reply: "Hello there!"}
	r, delays := newTestResponder(stub)

	reply := r.Respond(context.Background(), languages.Resolve("en"), turnWindow("hi"))
	if reply.Fallback {
		t.Fatalf("unexpected fallback: %+v", reply)
	}
	if reply.Text != "Hello there!" || reply.Attempts != 1 {
		t.Fatalf("unexpected reply: %+v", reply)
	}
	if len(*delays) != 0 {
		t.Fatalf("expected no backoff waits, got %v", *delays)
	}
	if stub.lastSystem == "" {
		t.Fatalf("expected system instruction to be passed through")
	}
}

func TestRespondRetriesThenSucceeds(t *testing.T) {
	stub := &llmStub{failures: 3, reply: "Recovered."}
	r, delays := newTestResponder(stub)

	reply := r.Respond(context.Background(), languages.Resolve("en"), turnWindow("hi"))
	if reply.Fallback {
		t.Fatalf("expected success after retries, got fallback")
	}
	if reply.Text != "Recovered." || reply.Attempts != 4 {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	if len(*delays) != len(want) {
		t.Fatalf("expected %d backoff waits, got %v", len(want), *delays)
	}
	for i, d := range want {
		if (*delays)[i] != d {
			t.Fatalf("backoff %d: expected %v, got %v", i, d, (*delays)[i])
		}
	}
}

func TestRespondExhaustsToApology(t *testing.T) {
	stub := &llmStub{failures: 4, reply: "never seen"}
	r, delays := newTestResponder(stub)

	profile := languages.Resolve("en")
	reply := r.Respond(context.Background(), profile, turnWindow("hi"))
	if !reply.Fallback {
		t.Fatalf("expected fallback, got %+v", reply)
	}
	if reply.Text != profile.Apology {
		t.Fatalf("expected the apology utterance, got %q", reply.Text)
	}
	if reply.Attempts != 4 {
		t.Fatalf("expected 4 attempts, got %d", reply.Attempts)
	}
	if len(*delays) != 3 {
		t.Fatalf("expected 3 backoff waits, got %v", *delays)
	}
	if stub.calls != 4 {
		t.Fatalf("expected 4 provider calls, got %d", stub.calls)
	}
}

func TestRespondTreatsEmptyReplyAsFailure(t *testing.T) {
	stub := &llmStub{reply: ""}
	r, _ := newTestResponder(stub)

	profile := languages.Resolve("en")
	reply := r.Respond(context.Background(), profile, turnWindow("hi"))
	if !reply.Fallback || reply.Text != profile.Apology {
		t.Fatalf("expected empty replies to fall back to the apology, got %+v", reply)
	}
}

func TestRespondStopsRetryingOnCanceledContext(t *testing.T) {
	stub := &llmStub{failures: 10}
	r, delays := newTestResponder(stub)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply := r.Respond(ctx, languages.Resolve("en"), turnWindow("hi"))
	if !reply.Fallback {
		t.Fatalf("expected fallback on canceled context")
	}
	if len(*delays) != 0 {
		t.Fatalf("expected no backoff waits on canceled context, got %v", *delays)
	}
}
