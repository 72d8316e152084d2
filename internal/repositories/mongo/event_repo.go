package mongo

import (
	"context"
	"time"

	"github.com/northcall/voicebridge/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type EventRepository interface {
	Insert(ctx context.Context, ev *models.CallEvent) error
	ListByCall(ctx context.Context, callSID string, limit int64) ([]models.CallEvent, error)
}

type eventRepo struct {
	col *mongo.Collection
}

func NewEventRepo(db *mongo.Database) EventRepository {
	return &eventRepo{col: db.Collection("call_events")}
}

func (r *eventRepo) Insert(ctx context.Context, ev *models.CallEvent) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	_, err := r.col.InsertOne(ctx, ev)
	return err
}

func (r *eventRepo) ListByCall(ctx context.Context, callSID string, limit int64) ([]models.CallEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: 1}}).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, bson.M{"call_sid": callSID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CallEvent
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
