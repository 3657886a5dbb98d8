package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/teemow/slotbot/internal/assistant"
	"github.com/teemow/slotbot/internal/logging"
)

// Chatter answers a user message. *assistant.Dispatcher implements it.
type Chatter interface {
	Handle(ctx context.Context, req assistant.Request) string
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// ChatHandler serves the chat API.
type ChatHandler struct {
	chatter Chatter
	logger  *slog.Logger
}

// NewChatHandler returns a ChatHandler answering with chatter.
func NewChatHandler(chatter Chatter, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatHandler{
		chatter: chatter,
		logger:  logging.WithOperation(logger, "chat"),
	}
}

// RegisterRoutes registers the chat routes on rg.
func (h *ChatHandler) RegisterRoutes(rg gin.IRoutes) {
	rg.POST("/chat", h.Chat)
}

// Chat handles POST /chat.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", logging.Err(err), logging.RequestID(RequestIDFrom(c)))
		c.JSON(http.StatusInternalServerError, ChatResponse{Response: assistant.MsgApology})
		return
	}

	h.logger.Debug("received message",
		logging.Message(req.Message),
		logging.SessionID(req.SessionID),
		logging.RequestID(RequestIDFrom(c)))

	reply := h.chatter.Handle(c.Request.Context(), assistant.Request{
		Message:   req.Message,
		SessionID: req.SessionID,
	})

	h.logger.Debug("sending reply",
		logging.Message(reply),
		logging.RequestID(RequestIDFrom(c)))

	c.JSON(http.StatusOK, ChatResponse{Response: reply})
}
