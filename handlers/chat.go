package handlers

import (
	"net/http"
	"strings"

	"smartcalendar/models"
	ai "smartcalendar/services/intelligence"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChatHandler exposes the command interpreter over HTTP.
type ChatHandler struct {
	Interpreter ai.CommandInterpreter
}

func NewChatHandler(interpreter ai.CommandInterpreter) *ChatHandler {
	return &ChatHandler{Interpreter: interpreter}
}

// SendMessage runs one conversation turn. Interpreter failures come back as
// a normal reply; only a missing message is a client error.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	logger := getLogger(c)

	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Requisição inválida: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Mensagem é obrigatória"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	result := h.Interpreter.Turn(c.Request.Context(), req.Message, req.SessionID)
	c.JSON(http.StatusOK, models.ChatResponse{
		Message:   result.Reply,
		SessionID: req.SessionID,
		Action:    result.Action,
		Data:      result.Payload,
	})
}

// ClearContext drops the session's pending action and model history.
func (h *ChatHandler) ClearContext(c *gin.Context) {
	logger := getLogger(c)

	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId é obrigatório"})
		return
	}
	if err := h.Interpreter.Reset(c.Request.Context(), req.SessionID); err != nil {
		logger.Error("Failed to clear conversation context", zap.String("session", req.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível limpar o contexto"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Contexto da conversa limpo com sucesso"})
}

// History returns the persisted chat log of a session.
func (h *ChatHandler) History(c *gin.Context) {
	logger := getLogger(c)

	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sessionId é obrigatório"})
		return
	}
	logs, err := h.Interpreter.History(c.Request.Context(), sessionID)
	if err != nil {
		logger.Error("Failed to load chat history", zap.String("session", sessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Não foi possível carregar o histórico"})
		return
	}
	c.JSON(http.StatusOK, logs)
}
