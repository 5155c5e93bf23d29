package escalation

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerManual   Trigger = "manual"
)

// SweepRun records one pass of the escalation sweep.
type SweepRun struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Trigger    Trigger            `json:"trigger" bson:"trigger"`
	StartedAt  time.Time          `json:"started_at" bson:"started_at"`
	FinishedAt time.Time          `json:"finished_at" bson:"finished_at"`
	Escalated  int                `json:"escalated" bson:"escalated"`
	Error      string             `json:"error,omitempty" bson:"error,omitempty"`
}

// Status is what the admin API reports about the scheduler.
type Status struct {
	Schedule string     `json:"schedule"`
	Running  bool       `json:"running"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	LastRun  *SweepRun  `json:"last_run,omitempty"`
}
