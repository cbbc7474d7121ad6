package models

import (
	"encoding/json"
	"time"
)

// ChatRequest is the payload coming from the frontend into /api/chat/message.
type ChatRequest struct {
	Message   string `json:"message"`             // user's utterance (typed or transcribed)
	SessionID string `json:"sessionId,omitempty"` // conversation identifier, generated when empty
}

// ChatResponse is what the chat handler returns to the frontend.
type ChatResponse struct {
	Message   string      `json:"message"`        // natural-language reply
	SessionID string      `json:"sessionId"`      // echoed or generated session id
	Action    ActionKind  `json:"acao"`           // action that produced the reply
	Data      interface{} `json:"data,omitempty"` // e.g. the created event or the candidate list
}

// ChatMessage is one turn sent to the language model.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// AIContext is the per-session conversation state.
type AIContext struct {
	PendingAction json.RawMessage `json:"pendingAction,omitempty"` // acao/dados envelope awaiting confirmation
	History       []ChatMessage   `json:"history,omitempty"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// HasPending reports whether an action awaits confirmation.
func (c *AIContext) HasPending() bool {
	return c != nil && len(c.PendingAction) > 0
}

// Chat senders, as persisted in the chat log.
const (
	SenderUser      = "usuario"
	SenderAssistant = "assistente"
)

// ChatLog is one persisted chat line.
type ChatLog struct {
	ID        string    `bson:"id" json:"id"`
	SessionID string    `bson:"sessionId" json:"sessionId"`
	Sender    string    `bson:"remetente" json:"remetente"`
	Text      string    `bson:"texto" json:"texto"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	Error     bool      `bson:"erro" json:"erro"`
}
