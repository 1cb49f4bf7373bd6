// Package server exposes the workflow engine over HTTP.
package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/smartinbox/server/agent/contract"
	statex "github.com/smartinbox/server/agent/state"
	"github.com/smartinbox/server/agent/workflow"
)

type Config struct {
	Addr  string `envconfig:"ADDR" split_words:"true" default:":8080"`
	Debug bool   `envconfig:"DEBUG" split_words:"true" default:"false"`
}

// Handler handles HTTP requests for the inbox workflow.
type Handler struct {
	engine *workflow.Engine
	now    func() time.Time
}

func NewHandler(engine *workflow.Engine) *Handler {
	return &Handler{engine: engine, now: time.Now}
}

// Router builds the gin engine with all inbox routes registered.
func Router(h *Handler, cfg Config) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api")
	{
		api.POST("/process-email", h.ProcessEmail)
		api.POST("/chat", h.Chat)
		api.GET("/state", h.State)
		api.POST("/reset", h.Reset)
		api.GET("/health", h.Health)
	}
	return r
}

// ProcessEmailRequest is the inbound message payload. The id is
// optional; one is generated when absent.
type ProcessEmailRequest struct {
	ID          string   `json:"id"`
	Sender      string   `json:"sender" binding:"required"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body" binding:"required"`
	Attachments []string `json:"attachments"`
}

// ConversationResponse is the API view of a conversation after a run.
type ConversationResponse struct {
	ID             string            `json:"id"`
	Status         statex.Status     `json:"status"`
	Classification statex.Category   `json:"classification,omitempty"`
	Confidence     float64           `json:"classification_confidence,omitempty"`
	Reply          string            `json:"reply,omitempty"`
	MissingInfo    []string          `json:"missing_info,omitempty"`
	Results        statex.Results    `json:"results"`
	Log            []statex.LogEntry `json:"log,omitempty"`
	Error          string            `json:"error,omitempty"`
}

func conversationView(st *statex.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:             st.ID,
		Status:         st.Status,
		Classification: st.Classification,
		Confidence:     st.ClassificationConfidence,
		Reply:          st.FinalReply,
		MissingInfo:    st.MissingInfo,
		Results:        st.Results,
		Log:            st.Log,
		Error:          st.Error,
	}
}

func (h *Handler) ProcessEmail(c *gin.Context) {
	var req ProcessEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	st, err := h.engine.Run(c.Request.Context(), statex.IncomingMessage{
		ID:          id,
		Sender:      req.Sender,
		Subject:     req.Subject,
		Body:        req.Body,
		ReceivedAt:  h.now().UTC(),
		Attachments: req.Attachments,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, conversationView(st))
}

// ChatRequest is a user follow-up on an existing conversation. Without
// a conversation id the most recent conversation is addressed.
type ChatRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message" binding:"required"`
}

type ChatResponse struct {
	ConversationID string        `json:"conversation_id"`
	Reply          string        `json:"reply"`
	Status         statex.Status `json:"status"`
	MissingInfo    []string      `json:"missing_info,omitempty"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id := req.ConversationID
	if id == "" {
		latest, ok := h.engine.Latest()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no conversation to reply to"})
			return
		}
		id = latest.ID
	}

	st, err := h.engine.Resume(c.Request.Context(), id, req.Message)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		ConversationID: st.ID,
		Reply:          st.FinalReply,
		Status:         st.Status,
		MissingInfo:    st.MissingInfo,
	})
}

func (h *Handler) State(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		latest, ok := h.engine.Latest()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "no conversation yet"})
			return
		}
		c.JSON(http.StatusOK, latest)
		return
	}

	st, err := h.engine.State(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type ResetRequest struct {
	ConversationID string `json:"conversation_id"`
}

func (h *Handler) Reset(c *gin.Context) {
	var req ResetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	if req.ConversationID == "" {
		h.engine.Clear()
		c.JSON(http.StatusOK, gin.H{"status": "reset"})
		return
	}

	if err := h.engine.Reset(c.Request.Context(), req.ConversationID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset", "conversation_id": req.ConversationID})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, contractx.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, statex.ErrConversationNotFound), errors.Is(err, statex.ErrInvalidID):
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, workflow.ErrNotResumable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		log.Error().Err(err).Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
