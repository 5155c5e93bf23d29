package audit

import (
	"time"

	"go-hr/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is one structured audit record of an approval action.
type Event struct {
	Action    models.AuditAction     `json:"action"`
	RequestID string                 `json:"request_id"`
	ActorID   string                 `json:"actor_id,omitempty"`
	ActorName string                 `json:"actor_name"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
}

type AuditLog struct {
	ID        primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Action    models.AuditAction     `bson:"action" json:"action"`
	RequestID string                 `bson:"request_id" json:"request_id"`
	ActorID   string                 `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	ActorName string                 `bson:"actor_name" json:"actor_name"`
	Detail    map[string]interface{} `bson:"detail,omitempty" json:"detail,omitempty"`
	Timestamp time.Time              `bson:"timestamp" json:"timestamp"`
}

// Query narrows an audit listing. Zero fields are ignored; Since and Until bound Timestamp.
type Query struct {
	RequestID string
	Action    models.AuditAction
	ActorID   string
	Since     *time.Time
	Until     *time.Time
}

func (q Query) filter() bson.M {
	f := bson.M{}
	if q.RequestID != "" {
		f["request_id"] = q.RequestID
	}
	if q.Action != "" {
		f["action"] = q.Action
	}
	if q.ActorID != "" {
		f["actor_id"] = q.ActorID
	}
	if q.Since != nil || q.Until != nil {
		ts := bson.M{}
		if q.Since != nil {
			ts["$gte"] = *q.Since
		}
		if q.Until != nil {
			ts["$lt"] = *q.Until
		}
		f["timestamp"] = ts
	}
	return f
}
