package escalation

import (
	"context"

	"go-hr/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type RunRepository interface {
	Create(ctx context.Context, run *SweepRun) error
	ListRecent(ctx context.Context, limit int64) ([]SweepRun, error)
}

type RunRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewRunRepository(mongodb *database.MongodbDB) RunRepository {
	return &RunRepositoryImpl{
		Collection: mongodb.DB.Collection("escalation_runs"),
	}
}

func (r *RunRepositoryImpl) Create(ctx context.Context, run *SweepRun) error {
	_, err := r.Collection.InsertOne(ctx, run)
	return err
}

func (r *RunRepositoryImpl) ListRecent(ctx context.Context, limit int64) ([]SweepRun, error) {
	opts := options.Find().SetSort(bson.D{{Key: "started_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cursor, err := r.Collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	runs := []SweepRun{}
	if err = cursor.All(ctx, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}
