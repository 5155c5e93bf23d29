package audit

import (
	"context"

	"go-hr/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AuditRepository interface {
	Create(ctx context.Context, log AuditLog) error
	List(ctx context.Context, q Query, limit, offset int64) ([]AuditLog, error)
}

type AuditRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewAuditRepository(mongodb *database.MongodbDB) AuditRepository {
	return &AuditRepositoryImpl{Collection: mongodb.DB.Collection("audit_logs")}
}

func (r *AuditRepositoryImpl) Create(ctx context.Context, log AuditLog) error {
	_, err := r.Collection.InsertOne(ctx, log)
	return err
}

// List returns the newest entries first. A request's own history reads oldest first.
func (r *AuditRepositoryImpl) List(ctx context.Context, q Query, limit, offset int64) ([]AuditLog, error) {
	order := -1
	if q.RequestID != "" {
		order = 1
	}
	opts := options.Find().
		SetLimit(limit).
		SetSkip(offset).
		SetSort(bson.D{{Key: "timestamp", Value: order}})

	cursor, err := r.Collection.Find(ctx, q.filter(), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []AuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []AuditLog{}
	}
	return logs, nil
}
