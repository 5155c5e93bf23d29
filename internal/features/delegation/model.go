package delegation

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DelegateSetting lets DelegateToID act on UserID's approval steps within a time window.
type DelegateSetting struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       string             `bson:"user_id" json:"user_id"`
	DelegateToID string             `bson:"delegate_to_id" json:"delegate_to_id"`
	DelegateName string             `bson:"delegate_name" json:"delegate_name"`
	StartDate    time.Time          `bson:"start_date" json:"start_date"`
	EndDate      time.Time          `bson:"end_date" json:"end_date"`
	Reason       string             `bson:"reason,omitempty" json:"reason,omitempty"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// CoversAt reports whether the setting is in force at t. The end date is inclusive.
func (d DelegateSetting) CoversAt(t time.Time) bool {
	return d.IsActive && !t.Before(d.StartDate) && !t.After(d.EndDate)
}
