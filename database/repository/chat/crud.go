package chatRepo

import (
	"context"
	"sync"
	"time"

	"smartcalendar/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (r *mongoChatRepo) Append(ctx context.Context, entry models.ChatLog) error {
	_, err := r.coll.InsertOne(ctx, stamp(entry))
	return err
}

// History returns a session's chat log, oldest first.
func (r *mongoChatRepo) History(ctx context.Context, sessionID string) ([]models.ChatLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"sessionId": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	logs := []models.ChatLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// MemoryChatRepo is an in-process ChatRepository.
type MemoryChatRepo struct {
	mu   sync.Mutex
	logs []models.ChatLog
}

func NewMemoryChatRepo() *MemoryChatRepo {
	return &MemoryChatRepo{}
}

func (r *MemoryChatRepo) Append(_ context.Context, entry models.ChatLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, stamp(entry))
	return nil
}

func (r *MemoryChatRepo) History(_ context.Context, sessionID string) ([]models.ChatLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.ChatLog{}
	for _, l := range r.logs {
		if l.SessionID == sessionID {
			out = append(out, l)
		}
	}
	return out, nil
}

func stamp(entry models.ChatLog) models.ChatLog {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return entry
}
