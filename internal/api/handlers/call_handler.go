package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/northcall/voicebridge/internal/services"
	"github.com/northcall/voicebridge/internal/utils"
)

// CallHandler serves the read-only surfaces: the active-call snapshot for
// health and analytics, the persisted transcript of a call, and its
// recorded lifecycle events.
type CallHandler struct {
	calls       services.CallService
	transcripts services.TranscriptService // optional
	events      services.EventQueryService // optional
}

func NewCallHandler(calls services.CallService, transcripts services.TranscriptService, events services.EventQueryService) *CallHandler {
	return &CallHandler{calls: calls, transcripts: transcripts, events: events}
}

func (h *CallHandler) Active(c *gin.Context) {
	snapshot := h.calls.ActiveCalls()
	c.JSON(http.StatusOK, gin.H{
		"count": h.calls.ActiveCount(),
		"calls": snapshot,
	})
}

func (h *CallHandler) Transcript(c *gin.Context) {
	if h.transcripts == nil {
		writeError(c, utils.E(utils.CodeUnavailable, "CallHandler.Transcript", "transcript storage is not configured", nil))
		return
	}

	callSID := c.Param("call_sid")
	limit, _ := strconv.Atoi(c.Query("limit"))

	rows, err := h.transcripts.ListByCall(c.Request.Context(), callSID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"call_sid": callSID,
		"entries":  rows,
	})
}

func (h *CallHandler) Events(c *gin.Context) {
	if h.events == nil {
		writeError(c, utils.E(utils.CodeUnavailable, "CallHandler.Events", "event storage is not configured", nil))
		return
	}

	callSID := c.Param("call_sid")
	limit, _ := strconv.ParseInt(c.Query("limit"), 10, 64)

	rows, err := h.events.ListByCall(c.Request.Context(), callSID, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"call_sid": callSID,
		"events":   rows,
	})
}
