package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/user-accounts/internal/core/domain"
)

const collectionAudit = "user_audit"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(collectionAudit)}
}

// Insert appends an event to the user_audit collection.
func (r *AuditRepository) Insert(ctx context.Context, event *domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := bson.M{
		"action":      string(event.Action),
		"target_id":   event.TargetID,
		"username":    event.Username,
		"at":          event.At.UTC(),
		"recorded_at": time.Now().UTC(),
	}
	if event.ActorID != "" {
		doc["actor_id"] = event.ActorID
	}

	_, err := r.col.InsertOne(ctx, doc)
	return err
}

// EnsureIndexes creates lookup indexes on the audit collection.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "target_id", Value: 1}, {Key: "at", Value: -1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}}},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
