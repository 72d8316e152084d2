package services

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/northcall/voicebridge/internal/cache"
	"github.com/northcall/voicebridge/internal/providers/tts"
	"github.com/northcall/voicebridge/internal/storage"
	"github.com/northcall/voicebridge/internal/utils"
)

// SpeechService renders assistant utterances to audio. Reprompts and
// apologies repeat across calls, so rendered audio is cached by voice and
// text; cache failures degrade to a plain synthesis call.
type SpeechService interface {
	Render(ctx context.Context, text, voiceID string) ([]byte, error)
	RenderURL(ctx context.Context, text, voiceID string) (string, error)
}

type speechService struct {
	tts      tts.Provider
	audio    cache.AudioCache // optional
	uploader storage.Uploader // optional
	log      *logrus.Logger
	ttl      time.Duration
}

func NewSpeechService(provider tts.Provider, audio cache.AudioCache, uploader storage.Uploader, log *logrus.Logger) SpeechService {
	if log == nil {
		log = logrus.New()
	}
	return &speechService{
		tts:      provider,
		audio:    audio,
		uploader: uploader,
		log:      log,
		ttl:      24 * time.Hour,
	}
}

func (s *speechService) Render(ctx context.Context, text, voiceID string) ([]byte, error) {
	const op = "SpeechService.Render"

	if text == "" || voiceID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "text and voice are required", nil)
	}

	key := cache.AudioKey(voiceID, text)
	if s.audio != nil {
		if b, hit, err := s.audio.Get(ctx, key); err == nil && hit {
			return b, nil
		} else if err != nil {
			s.log.WithError(err).Debug("audio cache read failed")
		}
	}

	b, err := s.tts.Synthesize(ctx, text, voiceID)
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "synthesis failed", err)
	}

	if s.audio != nil {
		if err := s.audio.Set(ctx, key, b, s.ttl); err != nil {
			s.log.WithError(err).Debug("audio cache write failed")
		}
	}
	return b, nil
}

func (s *speechService) RenderURL(ctx context.Context, text, voiceID string) (string, error) {
	const op = "SpeechService.RenderURL"

	if s.uploader == nil {
		return "", utils.E(utils.CodeUnavailable, op, "no audio storage configured", nil)
	}

	b, err := s.Render(ctx, text, voiceID)
	if err != nil {
		return "", err
	}

	object := "replies/" + uuid.NewString() + ".mp3"
	url, err := s.uploader.Upload(ctx, object, "audio/mpeg", bytes.NewReader(b))
	if err != nil {
		return "", utils.E(utils.CodeUnavailable, op, "failed to upload reply audio", err)
	}
	return url, nil
}
