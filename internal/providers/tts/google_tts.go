package tts

import (
	"context"
	"errors"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
)

// GoogleTTS renders reply audio as MP3, which telephony providers accept
// for URL playback.
type GoogleTTS struct {
	c *texttospeech.Client
}

func NewGoogleTTS(ctx context.Context) (*GoogleTTS, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &GoogleTTS{c: c}, nil
}

func (g *GoogleTTS) Close() error { return g.c.Close() }

// voiceID example: "en-US-Neural2-C"; the language code is its first two
// segments.
func (g *GoogleTTS) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	if text == "" {
		return nil, errors.New("empty synthesis text")
	}

	language := "en-US"
	if parts := strings.SplitN(voiceID, "-", 3); len(parts) >= 2 {
		language = parts[0] + "-" + parts[1]
	}

	resp, err := g.c.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: language,
			Name:         voiceID,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	})
	if err != nil {
		return nil, err
	}
	return resp.AudioContent, nil
}
