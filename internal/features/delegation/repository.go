package delegation

import (
	"context"
	"time"

	"go-hr/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DelegationRepository interface {
	Create(ctx context.Context, setting *DelegateSetting) error
	ListByUser(ctx context.Context, userID string) ([]DelegateSetting, error)
	// ActiveAt returns the settings of userID in force at t.
	ActiveAt(ctx context.Context, userID string, t time.Time) ([]DelegateSetting, error)
	// ActiveFor returns the settings naming delegateID as delegate in force at t.
	ActiveFor(ctx context.Context, delegateID string, t time.Time) ([]DelegateSetting, error)
	Deactivate(ctx context.Context, id, userID string) error
}

type DelegationRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewDelegationRepository(mongodb *database.MongodbDB) DelegationRepository {
	return &DelegationRepositoryImpl{
		Collection: mongodb.DB.Collection("delegations"),
	}
}

func (r *DelegationRepositoryImpl) Create(ctx context.Context, setting *DelegateSetting) error {
	res, err := r.Collection.InsertOne(ctx, setting)
	if err != nil {
		return err
	}
	setting.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *DelegationRepositoryImpl) ListByUser(ctx context.Context, userID string) ([]DelegateSetting, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

func (r *DelegationRepositoryImpl) ActiveAt(ctx context.Context, userID string, t time.Time) ([]DelegateSetting, error) {
	return r.find(ctx, bson.M{
		"user_id":    userID,
		"is_active":  true,
		"start_date": bson.M{"$lte": t},
		"end_date":   bson.M{"$gte": t},
	})
}

func (r *DelegationRepositoryImpl) ActiveFor(ctx context.Context, delegateID string, t time.Time) ([]DelegateSetting, error) {
	return r.find(ctx, bson.M{
		"delegate_to_id": delegateID,
		"is_active":      true,
		"start_date":     bson.M{"$lte": t},
		"end_date":       bson.M{"$gte": t},
	})
}

func (r *DelegationRepositoryImpl) find(ctx context.Context, filter bson.M) ([]DelegateSetting, error) {
	cursor, err := r.Collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	settings := []DelegateSetting{}
	if err = cursor.All(ctx, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (r *DelegationRepositoryImpl) Deactivate(ctx context.Context, id, userID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	res, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": userID},
		bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
