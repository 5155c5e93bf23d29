package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Kind string

const (
	KindSubmitted     Kind = "submitted"      // to the first approver
	KindStepApproved  Kind = "step_approved"  // to the requester
	KindActionNeeded  Kind = "action_needed"  // to the newly active approver
	KindFullyApproved Kind = "fully_approved" // to the requester
	KindRejected      Kind = "rejected"       // to the requester, carries the reason
	KindEscalated     Kind = "escalated"      // to the next role on the escalation path
	KindDelegated     Kind = "delegated"      // to the delegate
	KindReturned      Kind = "returned"       // to the requester
)

// RolePrefix marks a recipient that names a role rather than a member.
const RolePrefix = "role:"

// Notice is what the approval engine asks to have delivered.
type Notice struct {
	RecipientUserID  string `json:"recipient_user_id"`
	Kind             Kind   `json:"kind"`
	Subject          string `json:"subject"`
	Message          string `json:"message,omitempty"`
	RelatedRequestID string `json:"related_request_id"`
}

type Notification struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientUserID  string             `bson:"recipient_user_id" json:"recipient_user_id"`
	Kind             Kind               `bson:"kind" json:"kind"`
	Subject          string             `bson:"subject" json:"subject"`
	Message          string             `bson:"message,omitempty" json:"message,omitempty"`
	RelatedRequestID string             `bson:"related_request_id" json:"related_request_id"`
	IsRead           bool               `bson:"is_read" json:"is_read"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	ReadAt           *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
}

// InboxQuery narrows an inbox listing.
type InboxQuery struct {
	UnreadOnly bool
	Kind       Kind
	RequestID  string
}

func (q InboxQuery) filter(recipients []string) bson.M {
	f := bson.M{"recipient_user_id": bson.M{"$in": recipients}}
	if q.UnreadOnly {
		f["is_read"] = false
	}
	if q.Kind != "" {
		f["kind"] = q.Kind
	}
	if q.RequestID != "" {
		f["related_request_id"] = q.RequestID
	}
	return f
}
