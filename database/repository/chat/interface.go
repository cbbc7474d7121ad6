package chatRepo

import (
	"context"

	"smartcalendar/database"
	"smartcalendar/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ChatRepository persists the chat log of every session.
type ChatRepository interface {
	Append(ctx context.Context, entry models.ChatLog) error
	History(ctx context.Context, sessionID string) ([]models.ChatLog, error)
}

type mongoChatRepo struct {
	coll *mongo.Collection
}

// NewMongoChatRepo returns a ChatRepository backed by the "chats" collection.
func NewMongoChatRepo() ChatRepository {
	return &mongoChatRepo{coll: database.Database().Collection("chats")}
}
