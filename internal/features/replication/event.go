package replication

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventNew      EventType = "new"
	EventUpdated  EventType = "updated"
	EventApproved EventType = "approved"
	EventRejected EventType = "rejected"
	EventReturned EventType = "returned"
)

// Event announces a committed request transition. Version is the stored version after the
// write, so redeliveries of the same transition carry the same Version.
type Event struct {
	ID         string          `json:"id"`
	Type       EventType       `json:"type"`
	RequestID  string          `json:"request_id"`
	Status     string          `json:"status"`
	Version    int64           `json:"version"`
	Snapshot   json.RawMessage `json:"snapshot,omitempty"`
	Origin     string          `json:"origin,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent builds an event carrying the JSON form of snapshot.
func NewEvent(typ EventType, requestID, status string, version int64, snapshot interface{}) (Event, error) {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		RequestID:  requestID,
		Status:     status,
		Version:    version,
		Snapshot:   raw,
		OccurredAt: time.Now().UTC(),
	}, nil
}
