package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/northcall/voicebridge/config"
	"github.com/northcall/voicebridge/internal/api/handlers"
	"github.com/northcall/voicebridge/internal/api/middleware"
	"github.com/northcall/voicebridge/internal/api/routes"
	"github.com/northcall/voicebridge/internal/cache"
	"github.com/northcall/voicebridge/internal/logger"
	"github.com/northcall/voicebridge/internal/providers/llm"
	"github.com/northcall/voicebridge/internal/providers/stt"
	"github.com/northcall/voicebridge/internal/providers/tts"
	mongorepo "github.com/northcall/voicebridge/internal/repositories/mongo"
	pgrepo "github.com/northcall/voicebridge/internal/repositories/postgres"
	"github.com/northcall/voicebridge/internal/services"
	"github.com/northcall/voicebridge/internal/storage"
	"github.com/northcall/voicebridge/internal/store"
	"github.com/northcall/voicebridge/internal/workers"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()
	ctx := context.Background()

	// Core providers: a call cannot be served without generation and
	// transcription.
	llmProvider, err := llm.NewVertexGemini(ctx,
		os.Getenv("VERTEX_PROJECT_ID"),
		os.Getenv("VERTEX_LOCATION"),
		os.Getenv("VERTEX_MODEL"),
	)
	if err != nil {
		log.Fatalf("Vertex init error: %v", err)
	}
	defer llmProvider.Close()

	sttProvider, err := stt.NewGoogleSpeech(ctx)
	if err != nil {
		log.Fatalf("Speech-to-Text init error: %v", err)
	}
	defer sttProvider.Close()

	// Event log (Mongo): optional, disables only logging and the events
	// surface.
	events := services.NewNopEventLogger()
	var eventQuery services.EventQueryService
	if err := config.InitMongo(); err != nil {
		log.WithError(err).Warn("MongoDB unavailable; event logging disabled")
	} else {
		if err := config.EnsureMongoIndexes(); err != nil {
			log.WithError(err).Warn("failed to ensure Mongo indexes")
		}
		eventRepo := mongorepo.NewEventRepo(config.MongoDatabase())
		events = services.NewMongoEventLogger(eventRepo, log, 0)
		eventQuery = services.NewEventQueryService(eventRepo)
		log.Info("MongoDB connected")
	}

	// Transcript store (Postgres): optional, disables only the transcript
	// surface.
	var transcripts services.TranscriptService
	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Warn("PostgreSQL unavailable; transcripts disabled")
	} else {
		transcripts = services.NewTranscriptService(pgrepo.NewTranscriptRepo(config.PostgresDB))
		log.Info("PostgreSQL connected")
	}

	// Redis: optional; powers the audio cache, the turn worker pool, and
	// live call monitoring.
	redisUp := false
	if err := config.InitRedis(); err != nil {
		log.WithError(err).Warn("Redis unavailable; audio cache, turn workers, and monitoring disabled")
	} else {
		redisUp = true
		log.Info("Redis connected")
	}

	calls := store.New()
	responder := services.NewResponder(llmProvider, log)
	callSvc := services.NewCallService(calls, sttProvider, responder, events, transcripts, log)

	// Reply synthesis: optional enhancement on top of the provider's own
	// TTS fallback.
	var speech services.SpeechService
	if ttsProvider, err := tts.NewGoogleTTS(ctx); err != nil {
		log.WithError(err).Warn("Text-to-Speech unavailable; reply synthesis disabled")
	} else {
		defer ttsProvider.Close()

		var audioCache cache.AudioCache
		if redisUp {
			audioCache = cache.NewRedisAudioCache(config.RedisClient)
		}

		var uploader storage.Uploader
		if bucket := os.Getenv("AUDIO_BUCKET"); bucket != "" {
			if gcsUploader, err := storage.NewGCSUploader(ctx, bucket); err != nil {
				log.WithError(err).Warn("GCS unavailable; reply audio URLs disabled")
			} else {
				defer gcsUploader.Close()
				uploader = gcsUploader
			}
		}

		speech = services.NewSpeechService(ttsProvider, audioCache, uploader, log)
	}

	if redisUp {
		pool := &workers.TurnWorkerPool{
			Redis:  config.RedisClient,
			Calls:  callSvc,
			Speech: speech,
			Logger: log,
		}
		if err := pool.Start(ctx); err != nil {
			log.WithError(err).Warn("turn worker pool failed to start")
		}
	}

	// Inactivity sweeper: calls the provider never closes out are ended
	// after the idle ceiling.
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			if n := callSvc.SweepIdle(ctx); n > 0 {
				log.WithField("count", n).Info("swept idle calls")
			}
		}
	}()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	routes.RegisterRoutes(r, routes.Deps{
		Voice:   handlers.NewVoiceHandler(callSvc, speech, log),
		Call:    handlers.NewCallHandler(callSvc, transcripts, eventQuery),
		Monitor: handlers.NewMonitorHandler(config.RedisClient),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
