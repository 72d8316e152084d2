package store

import (
	"sync"
	"time"

	"github.com/northcall/voicebridge/internal/models"
)

// CallStore is the in-memory registry of active call sessions, keyed by the
// provider's call SID. Map access is guarded by an RWMutex. Each entry
// carries two locks: turnMu serializes turns so at most one turn (or a
// terminate racing with it) runs per call at a time, and dataMu guards the
// session's fields so snapshot reads neither race with a turn's history
// append nor wait out a provider call. Provider calls are made while
// holding only the owning session's turn lock, never the map lock or
// dataMu.
type CallStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

type entry struct {
	turnMu  sync.Mutex
	dataMu  sync.Mutex
	session *models.CallSession
}

func New() *CallStore {
	return &CallStore{entries: make(map[string]*entry)}
}

// LockedSession is a session held under its turn lock. Reading through
// Session is safe while the lock is held, because every mutation also runs
// under the turn lock; mutations must go through Update so concurrent
// Snapshot and IdleBefore reads stay consistent.
type LockedSession struct {
	e *entry
}

func (l *LockedSession) Session() *models.CallSession { return l.e.session }

// Update applies fn under the entry's field lock. fn must not block on
// providers; it is meant for short field writes.
func (l *LockedSession) Update(fn func(*models.CallSession)) {
	l.e.dataMu.Lock()
	defer l.e.dataMu.Unlock()
	fn(l.e.session)
}

func (l *LockedSession) Release() { l.e.turnMu.Unlock() }

// Put registers a session under its call SID, replacing any previous entry.
func (s *CallStore) Put(sess *models.CallSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sess.CallSID] = &entry{session: sess}
}

// Get returns the live session for the call SID. The returned pointer is
// only safe to read once no turn can be in flight for the call; live
// access goes through Acquire.
func (s *CallStore) Get(callSID string) (*models.CallSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[callSID]
	if !ok {
		return nil, false
	}
	return e.session, true
}

// Acquire looks up the session and takes its turn lock, blocking until any
// in-flight turn for the same call finishes. The caller must invoke
// Release. The session may have been terminated while waiting; callers
// re-check Active after acquiring.
func (s *CallStore) Acquire(callSID string) (*LockedSession, bool) {
	s.mu.RLock()
	e, ok := s.entries[callSID]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	e.turnMu.Lock()
	return &LockedSession{e: e}, true
}

// Remove drops the session from the registry. Holders of the session
// pointer observe Active=false rather than a dangling entry.
func (s *CallStore) Remove(callSID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, callSID)
}

// Len reports the number of registered sessions.
func (s *CallStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns copies of every registered session, history included,
// safe to hand to the API layer without further locking. Each entry's
// field lock is held only for the copy, so a snapshot never waits on an
// in-flight turn's provider calls.
func (s *CallStore) Snapshot() []models.CallSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.CallSession, 0, len(s.entries))
	for _, e := range s.entries {
		e.dataMu.Lock()
		cp := *e.session
		cp.History = append([]models.Turn(nil), e.session.History...)
		e.dataMu.Unlock()
		out = append(out, cp)
	}
	return out
}

// IdleBefore returns the call SIDs of sessions whose last activity is
// older than the cutoff. Used by the inactivity sweeper; termination
// itself goes through the call manager so lifecycle events still fire.
func (s *CallStore) IdleBefore(cutoff time.Time) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for sid, e := range s.entries {
		e.dataMu.Lock()
		last := e.session.LastTurnAt
		if last.IsZero() {
			last = e.session.StartedAt
		}
		e.dataMu.Unlock()
		if last.Before(cutoff) {
			ids = append(ids, sid)
		}
	}
	return ids
}
