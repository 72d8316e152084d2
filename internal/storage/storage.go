package storage

import (
	"context"
	"io"
)

// Uploader stores synthesized reply audio and returns a URL the telephony
// provider can fetch for playback.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (playbackURL string, err error)
}
