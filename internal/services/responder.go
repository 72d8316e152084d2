package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/northcall/voicebridge/internal/languages"
	"github.com/northcall/voicebridge/internal/models"
	"github.com/northcall/voicebridge/internal/providers/llm"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = time.Second
)

// Reply is the outcome of one generation request. A live caller can never
// be shown a provider error, so exhausted retries yield the language
// profile's apology with Fallback set instead of an error.
type Reply struct {
	Text     string
	Fallback bool
	Attempts int
}

// Responder turns a windowed history into the next assistant utterance,
// retrying transient provider failures with exponential backoff. Backoff
// sleeps block only the calling turn, never other sessions.
type Responder struct {
	llm llm.Provider
	log *logrus.Logger

	maxRetries     int
	initialBackoff time.Duration
	sleep          func(time.Duration)
}

func NewResponder(provider llm.Provider, log *logrus.Logger) *Responder {
	if log == nil {
		log = logrus.New()
	}
	return &Responder{
		llm:            provider,
		log:            log,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		sleep:          time.Sleep,
	}
}

// Respond generates the next utterance for the window, which is ordered
// oldest-first and ends with the user turn being answered.
func (r *Responder) Respond(ctx context.Context, profile languages.Profile, window []models.Turn) Reply {
	msgs := make([]llm.Message, 0, len(window))
	for _, t := range window {
		msgs = append(msgs, llm.Message{Role: t.Role, Text: t.Text})
	}

	attempt := 0
	backoff := r.initialBackoff

	for {
		text, err := r.collect(ctx, profile.SystemPrompt, msgs)
		if err == nil {
			return Reply{Text: text, Attempts: attempt + 1}
		}

		if attempt >= r.maxRetries || ctx.Err() != nil {
			r.log.WithError(err).WithField("attempts", attempt+1).Error("generation exhausted, falling back")
			return Reply{Text: profile.Apology, Fallback: true, Attempts: attempt + 1}
		}

		r.log.WithError(err).WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"backoff": backoff.String(),
		}).Warn("generation failed, retrying")

		r.sleep(backoff)
		backoff *= 2
		attempt++
	}
}

func (r *Responder) collect(ctx context.Context, system string, msgs []llm.Message) (string, error) {
	chunks, errs := r.llm.StreamReply(ctx, system, msgs)

	full := strings.Builder{}
	for chunk := range chunks {
		full.WriteString(chunk)
	}
	if err := <-errs; err != nil {
		return "", err
	}

	text := strings.TrimSpace(full.String())
	if text == "" {
		return "", errors.New("provider returned an empty reply")
	}
	return text, nil
}
