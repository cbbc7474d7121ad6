package eventRepo

import (
	"context"
	"errors"
	"time"

	"smartcalendar/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Create inserts a new event and returns the stored copy.
func (r *mongoEventRepo) Create(ctx context.Context, event models.Event) (*models.Event, error) {
	event = prepareNew(event)
	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		return nil, err
	}
	return &event, nil
}

// GetByID returns an event by its ID.
func (r *mongoEventRepo) GetByID(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// Update applies changes and returns the updated event.
func (r *mongoEventRepo) Update(ctx context.Context, id string, changes models.EventChanges) (*models.Event, error) {
	set := changeSet(changes)
	if len(set) == 0 {
		return r.GetByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Event
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, bson.M{"$set": set}, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an event by ID.
func (r *mongoEventRepo) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func prepareNew(event models.Event) models.Event {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Duration <= 0 {
		event.Duration = models.DefaultDuration
	}
	event.CreatedAt = time.Now()
	return event
}

func changeSet(changes models.EventChanges) bson.M {
	set := bson.M{}
	if changes.ClientName != nil {
		set["nomeCliente"] = *changes.ClientName
	}
	if changes.Service != nil {
		set["servico"] = *changes.Service
	}
	if changes.DateTime != nil {
		set["dataHora"] = *changes.DateTime
	}
	if changes.Duration != nil {
		set["duracao"] = *changes.Duration
	}
	if changes.Notes != nil {
		set["observacoes"] = *changes.Notes
	}
	return set
}
