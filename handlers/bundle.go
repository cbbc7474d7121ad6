package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// Chat endpoints
	SendMessageHandler  gin.HandlerFunc
	ClearContextHandler gin.HandlerFunc
	ChatHistoryHandler  gin.HandlerFunc

	// Event endpoints
	ListEventsHandler  gin.HandlerFunc
	GetEventHandler    gin.HandlerFunc
	CreateEventHandler gin.HandlerFunc
	UpdateEventHandler gin.HandlerFunc
	DeleteEventHandler gin.HandlerFunc
}

// NewHandlerBundle wires the chat and event handlers.
func NewHandlerBundle(chat *ChatHandler, events *EventHandler) *HandlerBundle {
	return &HandlerBundle{
		SendMessageHandler:  chat.SendMessage,
		ClearContextHandler: chat.ClearContext,
		ChatHistoryHandler:  chat.History,

		ListEventsHandler:  events.List,
		GetEventHandler:    events.Get,
		CreateEventHandler: events.Create,
		UpdateEventHandler: events.Update,
		DeleteEventHandler: events.Delete,
	}
}
