package eventRepo

import (
	"context"
	"errors"

	"smartcalendar/database"
	"smartcalendar/models"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrEventNotFound is returned when an id does not match any event.
var ErrEventNotFound = errors.New("event not found")

// EventRepository is the event store used by the interpreter and the REST handlers.
type EventRepository interface {
	// ListMatching returns the events matching filter, earliest first.
	ListMatching(ctx context.Context, filter models.EventFilter) ([]models.Event, error)
	GetByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event models.Event) (*models.Event, error)
	Update(ctx context.Context, id string, changes models.EventChanges) (*models.Event, error)
	// Delete reports false when no event had the given id.
	Delete(ctx context.Context, id string) (bool, error)
}

type mongoEventRepo struct {
	coll *mongo.Collection
}

// NewMongoEventRepo returns a new EventRepository instance using MongoDB.
func NewMongoEventRepo() EventRepository {
	return &mongoEventRepo{
		coll: database.Database().Collection("events"),
	}
}
