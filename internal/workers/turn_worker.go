package workers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/northcall/voicebridge/internal/services"
)

// TurnWorkerPool consumes recorded-audio turn jobs from a Redis stream and
// drives them through the call manager. Webhook speech results are handled
// inline; this path serves recording callbacks, where the provider hands
// over an audio URL instead of text. Per-call ordering is enforced by the
// manager's turn lock, not by the stream.
type TurnWorkerPool struct {
	Redis      *redis.Client
	Calls      services.CallService
	Speech     services.SpeechService // optional: reply synthesis disabled when nil
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

// turnJob is one decoded stream entry.
type turnJob struct {
	CallSID  string
	Audio    []byte
	AudioURL string
}

func (p *TurnWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Calls == nil {
		return errors.New("TurnWorkerPool missing dependency: Redis/Calls must be set")
	}
	if p.Stream == "" {
		p.Stream = "calls:turns"
	}
	if p.Group == "" {
		p.Group = "turn-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 5
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	return nil
}

func (p *TurnWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

// decodeJob pulls a turn job out of a stream entry. Entries carry call_sid
// plus either audio_base64 (possibly a data: URL) or audio_url.
func decodeJob(values map[string]any) (turnJob, error) {
	getStr := func(k string) string {
		v, ok := values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	job := turnJob{CallSID: getStr("call_sid")}
	if job.CallSID == "" {
		return job, errors.New("missing call_sid")
	}

	if b64 := getStr("audio_base64"); b64 != "" {
		raw := b64
		if i := strings.Index(raw, ","); i >= 0 {
			raw = raw[i+1:] // strip data:...;base64,
		}
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return job, errors.New("invalid audio_base64")
		}
		job.Audio = decoded
		return job, nil
	}

	if url := getStr("audio_url"); url != "" {
		job.AudioURL = url
		return job, nil
	}

	return job, errors.New("missing audio_base64 or audio_url")
}

func (p *TurnWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	job, err := decodeJob(msg.Values)
	if err != nil {
		p.Logger.WithError(err).WithField("redis_id", msg.ID).Warn("dropping malformed turn job")
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id": msg.ID,
		"call_sid": job.CallSID,
	})

	eventsCh := "call:" + job.CallSID + ":events"

	if len(job.Audio) == 0 {
		audio, err := p.fetchAudio(ctx, job.AudioURL)
		if err != nil {
			log.WithError(err).Warn("audio fetch failed")
			p.publish(ctx, eventsCh, map[string]any{"type": "turn_failed", "message": "failed to fetch audio"})
			return
		}
		job.Audio = audio
	}

	res, err := p.Calls.HandleTurn(ctx, job.CallSID, services.TurnInput{Audio: job.Audio})
	if err != nil {
		log.WithError(err).Warn("turn rejected")
		p.publish(ctx, eventsCh, map[string]any{"type": "turn_failed", "message": "no active session"})
		return
	}

	payload := map[string]any{
		"type":       "turn_result",
		"outcome":    string(res.Outcome),
		"transcript": res.Transcript,
		"utterance":  res.Utterance,
	}

	if p.Speech != nil {
		url, err := p.Speech.RenderURL(ctx, res.Utterance, res.VoiceID)
		if err != nil {
			// the spoken text still reaches the caller through the provider's
			// own TTS fallback; playback audio is an enhancement
			log.WithError(err).Warn("reply synthesis failed")
		} else {
			payload["reply_audio_url"] = url
		}
	}

	p.publish(ctx, eventsCh, payload)
}

func (p *TurnWorkerPool) fetchAudio(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status %d fetching audio", resp.StatusCode)
	}

	const maxBytes = 10 << 20
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if len(body) == 0 {
		return nil, errors.New("empty audio")
	}
	return body, nil
}

func (p *TurnWorkerPool) publish(ctx context.Context, channel string, payload map[string]any) {
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_ = p.Redis.Publish(ctx, channel, string(b)).Err()
}
