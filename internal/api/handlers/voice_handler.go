package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/northcall/voicebridge/internal/services"
	"github.com/northcall/voicebridge/internal/utils"
)

// VoiceHandler is the inbound face of the telephony provider: call
// initiation, speech results, and status callbacks all land here. Providers
// may redeliver callbacks, so every endpoint tolerates repeats.
type VoiceHandler struct {
	calls  services.CallService
	speech services.SpeechService // optional
	log    *logrus.Logger
}

func NewVoiceHandler(calls services.CallService, speech services.SpeechService, log *logrus.Logger) *VoiceHandler {
	if log == nil {
		log = logrus.New()
	}
	return &VoiceHandler{calls: calls, speech: speech, log: log}
}

type IncomingCallRequest struct {
	CallSID  string `form:"call_sid" json:"call_sid" binding:"required"`
	From     string `form:"from" json:"from"`
	Language string `form:"language" json:"language"`
}

type IncomingCallResponse struct {
	CallSID   string `json:"call_sid"`
	Language  string `json:"language"`
	StartedAt string `json:"started_at"`
}

func (h *VoiceHandler) Incoming(c *gin.Context) {
	var req IncomingCallRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "VoiceHandler.Incoming", "invalid request body", err))
		return
	}

	sess, err := h.calls.Create(c.Request.Context(), req.CallSID, req.From, req.Language)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, IncomingCallResponse{
		CallSID:   sess.CallSID,
		Language:  sess.Language,
		StartedAt: sess.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

type SpeechResultRequest struct {
	CallSID      string   `form:"call_sid" json:"call_sid" binding:"required"`
	SpeechResult string   `form:"speech_result" json:"speech_result"`
	Confidence   *float64 `form:"confidence" json:"confidence"`
}

type SpeechResultResponse struct {
	Outcome    string `json:"outcome"`
	Utterance  string `json:"utterance"`
	Transcript string `json:"transcript,omitempty"`
	AudioURL   string `json:"audio_url,omitempty"`
}

func (h *VoiceHandler) SpeechResult(c *gin.Context) {
	var req SpeechResultRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "VoiceHandler.SpeechResult", "invalid request body", err))
		return
	}

	res, err := h.calls.HandleTurn(c.Request.Context(), req.CallSID, services.TurnInput{
		Text:       req.SpeechResult,
		Confidence: req.Confidence,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	out := SpeechResultResponse{
		Outcome:    string(res.Outcome),
		Utterance:  res.Utterance,
		Transcript: res.Transcript,
	}

	if h.speech != nil {
		url, err := h.speech.RenderURL(c.Request.Context(), res.Utterance, res.VoiceID)
		if err != nil {
			// provider falls back to its own TTS on the utterance text
			h.log.WithError(err).WithField("call_sid", req.CallSID).Warn("reply synthesis failed")
		} else {
			out.AudioURL = url
		}
	}

	c.JSON(http.StatusOK, out)
}

type StatusCallbackRequest struct {
	CallSID    string `form:"call_sid" json:"call_sid" binding:"required"`
	CallStatus string `form:"call_status" json:"call_status" binding:"required"`
}

// terminalStatuses are provider call states that end a session.
var terminalStatuses = map[string]bool{
	"completed": true,
	"failed":    true,
	"busy":      true,
	"no-answer": true,
	"canceled":  true,
}

func (h *VoiceHandler) StatusCallback(c *gin.Context) {
	var req StatusCallbackRequest
	if err := c.ShouldBind(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "VoiceHandler.StatusCallback", "invalid request body", err))
		return
	}

	if terminalStatuses[req.CallStatus] {
		h.calls.Terminate(c.Request.Context(), req.CallSID, req.CallStatus)
	}

	c.Status(http.StatusNoContent)
}
