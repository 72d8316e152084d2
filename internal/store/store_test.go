package store

import (
	"sync"
	"testing"
	"time"

	"github.com/northcall/voicebridge/internal/models"
)

func newSession(sid string) *models.CallSession {
	return &models.CallSession{
		CallSID:   sid,
		From:      "+15551234567",
		Language:  "en",
		StartedAt: time.Now().UTC(),
		Active:    true,
	}
}

func TestPutGetRemove(t *testing.T) {
	s := New()

	if _, ok := s.Get("CA1"); ok {
		t.Fatalf("expected empty store to miss")
	}

	s.Put(newSession("CA1"))
	got, ok := s.Get("CA1")
	if !ok || got.CallSID != "CA1" || !got.Active {
		t.Fatalf("expected active CA1, got %+v ok=%v", got, ok)
	}
	if s.Len() != 1 {
		t.Fatalf("expected length 1, got %d", s.Len())
	}

	s.Remove("CA1")
	if _, ok := s.Get("CA1"); ok {
		t.Fatalf("expected CA1 to be gone after remove")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
}

func TestAcquireSerializesTurns(t *testing.T) {
	s := New()
	s.Put(newSession("CA1"))

	locked, ok := s.Acquire("CA1")
	if !ok {
		t.Fatalf("expected acquire to succeed")
	}

	second := make(chan struct{})
	go func() {
		l, ok := s.Acquire("CA1")
		if !ok {
			t.Error("expected second acquire to succeed")
		}
		close(second)
		l.Release()
	}()

	select {
	case <-second:
		t.Fatalf("second acquire completed while turn lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	locked.Update(func(cs *models.CallSession) {
		cs.History = append(cs.History, models.Turn{Role: models.RoleUser, Text: "hi"})
	})
	locked.Release()

	select {
	case <-second:
	case <-time.After(time.Second):
		t.Fatalf("second acquire never completed after release")
	}
}

func TestAcquireUnknownCall(t *testing.T) {
	s := New()
	if _, ok := s.Acquire("nope"); ok {
		t.Fatalf("expected acquire on unknown call to fail")
	}
}

func TestSnapshotCopiesHistory(t *testing.T) {
	s := New()
	sess := newSession("CA1")
	sess.History = []models.Turn{{Role: models.RoleUser, Text: "hello"}}
	s.Put(sess)

	snap := s.Snapshot()
	if len(snap) != 1 || len(snap[0].History) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	snap[0].History[0].Text = "mutated"
	if sess.History[0].Text != "hello" {
		t.Fatalf("snapshot mutation leaked into the store")
	}
}

func TestIdleBefore(t *testing.T) {
	s := New()

	stale := newSession("CA-old")
	stale.StartedAt = time.Now().Add(-time.Hour)
	stale.LastTurnAt = time.Now().Add(-45 * time.Minute)
	s.Put(stale)

	fresh := newSession("CA-new")
	fresh.LastTurnAt = time.Now()
	s.Put(fresh)

	ids := s.IdleBefore(time.Now().Add(-30 * time.Minute))
	if len(ids) != 1 || ids[0] != "CA-old" {
		t.Fatalf("expected only CA-old to be idle, got %v", ids)
	}
}

// Snapshot and IdleBefore may run from the API layer and the sweeper while
// a turn is mid-flight and appending history. Both sides must observe
// consistent session fields.
func TestSnapshotDuringActiveTurn(t *testing.T) {
	s := New()
	s.Put(newSession("CA1"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			locked, ok := s.Acquire("CA1")
			if !ok {
				t.Error("expected acquire to succeed")
				return
			}
			locked.Update(func(cs *models.CallSession) {
				cs.History = append(cs.History, models.Turn{Role: models.RoleUser, Text: "hi"})
				cs.LastTurnAt = time.Now().UTC()
			})
			locked.Release()
		}
	}()

	cutoff := time.Now().Add(-30 * time.Minute)
	for i := 0; i < 200; i++ {
		for _, cp := range s.Snapshot() {
			if cp.CallSID != "CA1" {
				t.Fatalf("unexpected session in snapshot: %+v", cp)
			}
		}
		if ids := s.IdleBefore(cutoff); len(ids) != 0 {
			t.Fatalf("active call reported idle: %v", ids)
		}
	}
	<-done

	snap := s.Snapshot()
	if len(snap) != 1 || len(snap[0].History) != 200 {
		t.Fatalf("expected 200 turns after writer finished, got %+v", snap)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			sid := "CA" + string(rune('A'+n%26))
			s.Put(newSession(sid))
			s.Get(sid)
			s.Snapshot()
			s.Len()
		}(i)
	}
	wg.Wait()
}
