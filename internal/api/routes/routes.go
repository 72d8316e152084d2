package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/northcall/voicebridge/internal/api/handlers"
)

type Deps struct {
	Voice   *handlers.VoiceHandler
	Call    *handlers.CallHandler
	Monitor *handlers.MonitorHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Telephony provider webhooks
	r.POST("/voice/incoming", d.Voice.Incoming)
	r.POST("/voice/speech", d.Voice.SpeechResult)
	r.POST("/voice/status", d.Voice.StatusCallback)

	// Read-only call surfaces
	r.GET("/calls/active", d.Call.Active)
	r.GET("/calls/:call_sid/transcript", d.Call.Transcript)
	r.GET("/calls/:call_sid/events", d.Call.Events)

	// WebSocket
	r.GET("/ws/calls/:call_sid/monitor", d.Monitor.CallMonitor)
}
