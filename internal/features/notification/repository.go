package notification

import (
	"context"
	"time"

	"go-hr/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
	GetByRecipients(ctx context.Context, recipients []string, q InboxQuery, page, limit int64) ([]Notification, int64, error)
	GetUnreadCount(ctx context.Context, recipients []string) (int64, error)
	// MarkAsRead reports whether a notification addressed to recipients matched id.
	MarkAsRead(ctx context.Context, id primitive.ObjectID, recipients []string) (bool, error)
	MarkAllAsRead(ctx context.Context, recipients []string) (int64, error)
}

type NotificationRepositoryImpl struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *database.MongodbDB) NotificationRepository {
	return &NotificationRepositoryImpl{collection: db.DB.Collection("notifications")}
}

func (r *NotificationRepositoryImpl) Create(ctx context.Context, n *Notification) error {
	n.CreatedAt = time.Now()
	n.IsRead = false
	res, err := r.collection.InsertOne(ctx, n)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		n.ID = oid
	}
	return nil
}

func (r *NotificationRepositoryImpl) GetByRecipients(ctx context.Context, recipients []string, q InboxQuery, page, limit int64) ([]Notification, int64, error) {
	filter := q.filter(recipients)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	out := []Notification{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *NotificationRepositoryImpl) GetUnreadCount(ctx context.Context, recipients []string) (int64, error) {
	return r.collection.CountDocuments(ctx, InboxQuery{UnreadOnly: true}.filter(recipients))
}

func (r *NotificationRepositoryImpl) MarkAsRead(ctx context.Context, id primitive.ObjectID, recipients []string) (bool, error) {
	filter := InboxQuery{}.filter(recipients)
	filter["_id"] = id
	res, err := r.collection.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"is_read": true, "read_at": time.Now()}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(ctx context.Context, recipients []string) (int64, error) {
	res, err := r.collection.UpdateMany(ctx,
		InboxQuery{UnreadOnly: true}.filter(recipients),
		bson.M{"$set": bson.M{"is_read": true, "read_at": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
