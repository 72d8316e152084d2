package stt

import (
	"context"
	"errors"
)

// ErrNoSpeech is returned when the provider recognized nothing in the
// audio. The call pipeline recovers locally by reprompting the caller.
var ErrNoSpeech = errors.New("no speech detected")

type Provider interface {
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}
