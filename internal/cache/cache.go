package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// AudioCache caches synthesized audio by voice and text, so repeated
// phrases (reprompts, apologies) are not re-synthesized per call.
type AudioCache interface {
	Get(ctx context.Context, key string) (audio []byte, hit bool, err error)
	Set(ctx context.Context, key string, audio []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// AudioKey derives a stable cache key for a voice/text pair.
func AudioKey(voiceID, text string) string {
	h := sha1.Sum([]byte(voiceID + "|" + text))
	return "tts:" + hex.EncodeToString(h[:])
}
