package eventRepo

import (
	"context"
	"regexp"

	"smartcalendar/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ListMatching returns every event matching filter ordered by start time.
func (r *mongoEventRepo) ListMatching(ctx context.Context, filter models.EventFilter) ([]models.Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "dataHora", Value: 1}})
	cursor, err := r.coll.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func buildQuery(filter models.EventFilter) bson.M {
	query := bson.M{}
	if filter.ClientName != "" {
		query["nomeCliente"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.ClientName), Options: "i"}
	}
	if filter.Service != "" {
		query["servico"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Service), Options: "i"}
	}
	if filter.From != nil || filter.To != nil {
		rng := bson.M{}
		if filter.From != nil {
			rng["$gte"] = *filter.From
		}
		if filter.To != nil {
			rng["$lte"] = *filter.To
		}
		query["dataHora"] = rng
	}
	return query
}
