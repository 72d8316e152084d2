package services

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/northcall/voicebridge/internal/languages"
	"github.com/northcall/voicebridge/internal/models"
	"github.com/northcall/voicebridge/internal/providers/stt"
	"github.com/northcall/voicebridge/internal/store"
	"github.com/northcall/voicebridge/internal/utils"
)

const (
	// HistoryWindow is how many recent turns are passed as generation
	// context.
	HistoryWindow = 10

	// LowConfidenceThreshold rejects a speech result without invoking
	// generation; the caller is asked to repeat instead.
	LowConfidenceThreshold = 0.5

	// DefaultMaxIdle is how long a call may sit without a turn before the
	// sweeper terminates it. Calls the provider never closes out would
	// otherwise accumulate forever.
	DefaultMaxIdle = 30 * time.Minute
)

// TurnInput carries one caller utterance: either already-recognized text
// (speech webhooks) or raw audio routed through transcription (recording
// callbacks). Confidence is optional.
type TurnInput struct {
	Text       string
	Audio      []byte
	Confidence *float64
}

type TurnOutcome string

const (
	// OutcomeReply is a generated assistant reply.
	OutcomeReply TurnOutcome = "reply"
	// OutcomeReprompt asks the caller to repeat; history is untouched.
	OutcomeReprompt TurnOutcome = "reprompt"
	// OutcomeFallback is the apology spoken after generation exhausted its
	// retries. It is recorded in history like any reply.
	OutcomeFallback TurnOutcome = "fallback"
)

// TurnResult is what gets spoken back to the caller.
type TurnResult struct {
	Outcome    TurnOutcome
	Utterance  string
	Transcript string // recognized user text, empty on reprompt
	VoiceID    string // synthesis voice for the session's language
}

type CallService interface {
	Create(ctx context.Context, callSID, from, language string) (*models.CallSession, error)
	HandleTurn(ctx context.Context, callSID string, in TurnInput) (*TurnResult, error)
	Terminate(ctx context.Context, callSID, reason string)
	ActiveCount() int
	ActiveCalls() []models.CallSession
	SweepIdle(ctx context.Context) int
}

type callService struct {
	calls       *store.CallStore
	stt         stt.Provider
	responder   *Responder
	events      EventLogger
	transcripts TranscriptService // optional
	log         *logrus.Logger

	maxIdle time.Duration
}

func NewCallService(calls *store.CallStore, transcriber stt.Provider, responder *Responder, events EventLogger, transcripts TranscriptService, log *logrus.Logger) CallService {
	if events == nil {
		events = NewNopEventLogger()
	}
	if log == nil {
		log = logrus.New()
	}
	return &callService{
		calls:       calls,
		stt:         transcriber,
		responder:   responder,
		events:      events,
		transcripts: transcripts,
		log:         log,
		maxIdle:     DefaultMaxIdle,
	}
}

// Create registers a session for the call SID. Creation is idempotent: a
// second inbound event for an already-active call returns the existing
// session untouched.
func (s *callService) Create(ctx context.Context, callSID, from, language string) (*models.CallSession, error) {
	const op = "CallService.Create"

	if callSID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_sid is required", nil)
	}

	if locked, ok := s.calls.Acquire(callSID); ok {
		existing := locked.Session()
		active := existing.Active
		locked.Release()
		if active {
			return existing, nil
		}
	}

	profile := languages.Resolve(language)
	now := time.Now().UTC()
	sess := &models.CallSession{
		CallSID:    callSID,
		From:       from,
		Language:   profile.Code,
		StartedAt:  now,
		History:    []models.Turn{},
		Active:     true,
		LastTurnAt: now,
	}
	s.calls.Put(sess)

	s.events.LogEvent(ctx, callSID, models.EventCallInitiated, map[string]any{
		"from":     from,
		"language": profile.Code,
	})

	s.log.WithFields(logrus.Fields{
		"call_sid": callSID,
		"from":     from,
		"language": profile.Code,
	}).Info("call session created")

	return sess, nil
}

// HandleTurn runs one caller utterance through transcribe → contextualize →
// generate. Turns for the same call are serialized on the session's turn
// lock; transcription and generation run while holding only that lock.
func (s *callService) HandleTurn(ctx context.Context, callSID string, in TurnInput) (*TurnResult, error) {
	const op = "CallService.HandleTurn"

	if callSID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_sid is required", nil)
	}

	locked, ok := s.calls.Acquire(callSID)
	if !ok {
		return nil, utils.E(utils.CodeNotFound, op, "no active session for call", nil)
	}
	defer locked.Release()

	sess := locked.Session()
	if !sess.Active {
		// terminated while we waited on the turn lock
		return nil, utils.E(utils.CodeNotFound, op, "session already ended", nil)
	}

	profile := languages.Resolve(sess.Language)

	if in.Confidence != nil && *in.Confidence < LowConfidenceThreshold {
		return &TurnResult{Outcome: OutcomeReprompt, Utterance: profile.Reprompt, VoiceID: profile.VoiceID}, nil
	}

	text := in.Text
	if text == "" && len(in.Audio) > 0 {
		recognized, conf, err := s.stt.Transcribe(ctx, in.Audio, profile.STTCode)
		if err != nil {
			if err != stt.ErrNoSpeech {
				s.log.WithError(err).WithField("call_sid", callSID).Warn("transcription failed")
			}
			return &TurnResult{Outcome: OutcomeReprompt, Utterance: profile.Reprompt, VoiceID: profile.VoiceID}, nil
		}
		if conf < LowConfidenceThreshold {
			return &TurnResult{Outcome: OutcomeReprompt, Utterance: profile.Reprompt, VoiceID: profile.VoiceID}, nil
		}
		text = recognized
	}
	if text == "" {
		return &TurnResult{Outcome: OutcomeReprompt, Utterance: profile.Reprompt, VoiceID: profile.VoiceID}, nil
	}

	now := time.Now().UTC()
	locked.Update(func(cs *models.CallSession) {
		cs.History = append(cs.History, models.Turn{Role: models.RoleUser, Text: text, Timestamp: now})
		cs.LastTurnAt = now
	})

	reply := s.responder.Respond(ctx, profile, sess.WindowedHistory(HistoryWindow))

	locked.Update(func(cs *models.CallSession) {
		cs.History = append(cs.History, models.Turn{
			Role:      models.RoleAssistant,
			Text:      reply.Text,
			Timestamp: time.Now().UTC(),
		})
	})

	s.events.LogEvent(ctx, callSID, models.EventConversationTurn, map[string]any{
		"transcript": text,
		"reply":      reply.Text,
		"fallback":   reply.Fallback,
		"attempts":   reply.Attempts,
	})
	s.persistTurn(ctx, sess, text, reply.Text)

	outcome := OutcomeReply
	if reply.Fallback {
		outcome = OutcomeFallback
	}
	return &TurnResult{Outcome: outcome, Utterance: reply.Text, Transcript: text, VoiceID: profile.VoiceID}, nil
}

// Terminate ends the call and evicts it from the store. Unknown or
// already-ended calls are a no-op, so provider status callbacks can be
// delivered more than once.
func (s *callService) Terminate(ctx context.Context, callSID, reason string) {
	locked, ok := s.calls.Acquire(callSID)
	if !ok {
		return
	}
	defer locked.Release()

	sess := locked.Session()
	if !sess.Active {
		return
	}

	now := time.Now().UTC()
	locked.Update(func(cs *models.CallSession) {
		cs.Active = false
		cs.EndedAt = &now
	})
	s.calls.Remove(callSID)

	s.events.LogEvent(ctx, callSID, models.EventCallEnded, map[string]any{
		"reason":           reason,
		"duration_seconds": int64(sess.Duration(now).Seconds()),
		"turns":            len(sess.History),
	})

	s.log.WithFields(logrus.Fields{
		"call_sid": callSID,
		"reason":   reason,
		"turns":    len(sess.History),
		"duration": sess.Duration(now).String(),
	}).Info("call session ended")
}

func (s *callService) ActiveCount() int { return s.calls.Len() }

func (s *callService) ActiveCalls() []models.CallSession { return s.calls.Snapshot() }

// SweepIdle terminates sessions with no activity for maxIdle. Termination
// goes through Terminate so the call_ended event still fires.
func (s *callService) SweepIdle(ctx context.Context) int {
	ids := s.calls.IdleBefore(time.Now().UTC().Add(-s.maxIdle))
	for _, sid := range ids {
		s.Terminate(ctx, sid, "inactivity")
	}
	return len(ids)
}

func (s *callService) persistTurn(ctx context.Context, sess *models.CallSession, userText, assistantText string) {
	if s.transcripts == nil {
		return
	}
	if _, err := s.transcripts.Append(ctx, sess.CallSID, sess.From, models.RoleUser, userText, nil, nil); err != nil {
		s.log.WithError(err).WithField("call_sid", sess.CallSID).Warn("transcript write failed")
	}
	if _, err := s.transcripts.Append(ctx, sess.CallSID, sess.From, models.RoleAssistant, assistantText, nil, nil); err != nil {
		s.log.WithError(err).WithField("call_sid", sess.CallSID).Warn("transcript write failed")
	}
}
