package tts

import "context"

type Provider interface {
	// Synthesize renders text with the given voice and returns encoded
	// audio ready for playback to the caller.
	Synthesize(ctx context.Context, text, voiceID string) (audio []byte, err error)
	Close() error
}
