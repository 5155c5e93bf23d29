package request

import (
	"time"

	"go-hr/internal/features/flow"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusDraft             Status = "draft"
	StatusPending           Status = "pending"
	StatusPartiallyApproved Status = "partially_approved"
	StatusEscalated         Status = "escalated"
	StatusApproved          Status = "approved"
	StatusRejected          Status = "rejected"
	StatusCancelled         Status = "cancelled"
)

// InFlight lists the statuses in which approval actions are accepted.
var InFlight = []Status{StatusPending, StatusPartiallyApproved, StatusEscalated}

func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

func (s Status) InFlight() bool {
	return s == StatusPending || s == StatusPartiallyApproved || s == StatusEscalated
}

type StepStatus string

const (
	StepPending  StepStatus = "pending"
	StepApproved StepStatus = "approved"
	StepRejected StepStatus = "rejected"
	StepSkipped  StepStatus = "skipped"
)

// Priority is explicit; an unset priority is stored as normal, never guessed.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func ParsePriority(p string) (Priority, bool) {
	switch Priority(p) {
	case "":
		return PriorityNormal, true
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return Priority(p), true
	}
	return "", false
}

type TimelineAction string

const (
	ActionCreated   TimelineAction = "created"
	ActionSubmitted TimelineAction = "submitted"
	ActionApproved  TimelineAction = "approved"
	ActionRejected  TimelineAction = "rejected"
	ActionDelegated TimelineAction = "delegated"
	ActionEscalated TimelineAction = "escalated"
	ActionCancelled TimelineAction = "cancelled"
	ActionReturned  TimelineAction = "returned"
)

type TimelineEntry struct {
	ID        string         `bson:"id" json:"id"`
	Action    TimelineAction `bson:"action" json:"action"`
	ActorID   string         `bson:"actor_id" json:"actor_id"`
	ActorName string         `bson:"actor_name" json:"actor_name"`
	StepID    string         `bson:"step_id,omitempty" json:"step_id,omitempty"`
	Comment   string         `bson:"comment,omitempty" json:"comment,omitempty"`
	At        time.Time      `bson:"at" json:"at"`
}

// StepApproval is one approver's vote on a step.
// StepApproval is one vote. OnBehalfOf names the authority the vote was cast with: the
// step's assigned approver, which differs from ApproverID when an active delegate votes.
type StepApproval struct {
	ApproverID   string    `bson:"approver_id" json:"approver_id"`
	ApproverName string    `bson:"approver_name" json:"approver_name"`
	OnBehalfOf   string    `bson:"on_behalf_of,omitempty" json:"on_behalf_of,omitempty"`
	Comment      string    `bson:"comment,omitempty" json:"comment,omitempty"`
	At           time.Time `bson:"at" json:"at"`
}

type DelegatedTo struct {
	ID           string    `bson:"id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Reason       string    `bson:"reason,omitempty" json:"reason,omitempty"`
	OriginalID   string    `bson:"original_id,omitempty" json:"original_id,omitempty"`
	OriginalName string    `bson:"original_name,omitempty" json:"original_name,omitempty"`
	At           time.Time `bson:"at" json:"at"`
}

type ApprovalStep struct {
	ID                 string         `bson:"id" json:"id"`
	Order              int            `bson:"order" json:"order"`
	Name               string         `bson:"name" json:"name"`
	ApproverRole       string         `bson:"approver_role,omitempty" json:"approver_role,omitempty"`
	ApproverID         string         `bson:"approver_id,omitempty" json:"approver_id,omitempty"`
	ApproverName       string         `bson:"approver_name,omitempty" json:"approver_name,omitempty"`
	Mode               flow.StepMode  `bson:"mode" json:"mode"`
	RequiredApprovals  int            `bson:"required_approvals" json:"required_approvals"`
	Status             StepStatus     `bson:"status" json:"status"`
	IsOptional         bool           `bson:"is_optional" json:"is_optional"`
	Placeholder        bool           `bson:"placeholder,omitempty" json:"placeholder,omitempty"`
	TimeoutHours       int            `bson:"timeout_hours" json:"timeout_hours"`
	Approvals          []StepApproval `bson:"approvals,omitempty" json:"approvals,omitempty"`
	Comments           string         `bson:"comments,omitempty" json:"comments,omitempty"`
	ActionDate         *time.Time     `bson:"action_date,omitempty" json:"action_date,omitempty"`
	EscalationDeadline *time.Time     `bson:"escalation_deadline,omitempty" json:"escalation_deadline,omitempty"`
	DelegatedTo        *DelegatedTo   `bson:"delegated_to,omitempty" json:"delegated_to,omitempty"`
}

// Unassigned reports whether nobody can act on the step until it is delegated.
func (s *ApprovalStep) Unassigned() bool {
	return s.Placeholder || (s.ApproverID == "" && s.ApproverRole == "")
}

// principal is the authority actorID votes with on s. Everyone acting on an assigned step,
// delegates included, holds the assignee's single vote; role steps give each holder one.
func (s *ApprovalStep) principal(actorID string) string {
	if s.ApproverID != "" {
		return s.ApproverID
	}
	return actorID
}

func (s *ApprovalStep) votedFor(principal string) bool {
	for _, a := range s.Approvals {
		cast := a.OnBehalfOf
		if cast == "" {
			cast = a.ApproverID
		}
		if cast == principal {
			return true
		}
	}
	return false
}

// quorumUnreachable reports a step pinned to one member that still needs several votes.
func (s *ApprovalStep) quorumUnreachable() bool {
	return s.ApproverID != "" && s.RequiredApprovals > 1
}

// EscalationSettings tracks deadline escalation. Level counts the hops applied to the
// currently active step and resets on activation. Escalated requests are not swept again,
// so each activation escalates at most one rung.
type EscalationSettings struct {
	Enabled         bool       `bson:"enabled" json:"enabled"`
	Path            []string   `bson:"path,omitempty" json:"path,omitempty"`
	Level           int        `bson:"level" json:"level"`
	LastEscalatedAt *time.Time `bson:"last_escalated_at,omitempty" json:"last_escalated_at,omitempty"`
}

type Attachment struct {
	Name        string `bson:"name" json:"name"`
	URL         string `bson:"url" json:"url"`
	ContentType string `bson:"content_type,omitempty" json:"content_type,omitempty"`
}

// WorkflowRequest is the aggregate owned by the lifecycle service.
type WorkflowRequest struct {
	ID             primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	Category       string                 `bson:"category" json:"category"`
	Title          string                 `bson:"title" json:"title"`
	Description    string                 `bson:"description,omitempty" json:"description,omitempty"`
	RequesterID    string                 `bson:"requester_id" json:"requester_id"`
	RequesterName  string                 `bson:"requester_name" json:"requester_name"`
	Status         Status                 `bson:"status" json:"status"`
	Priority       Priority               `bson:"priority" json:"priority"`
	Details        map[string]interface{} `bson:"details,omitempty" json:"details,omitempty"`
	ApprovalSteps  []ApprovalStep         `bson:"approval_steps" json:"approval_steps"`
	CurrentStep    int                    `bson:"current_step" json:"current_step"` // index into ApprovalSteps, -1 when none
	Attachments    []Attachment           `bson:"attachments,omitempty" json:"attachments,omitempty"`
	Timeline       []TimelineEntry        `bson:"timeline" json:"timeline"`
	FlowID         primitive.ObjectID     `bson:"flow_id,omitempty" json:"flow_id,omitempty"`
	FlowName       string                 `bson:"flow_name,omitempty" json:"flow_name,omitempty"`
	RequireComment bool                   `bson:"require_comment" json:"require_comment"`
	ActionRequired bool                   `bson:"action_required" json:"action_required"`
	Escalation     EscalationSettings     `bson:"escalation" json:"escalation"`
	Version        int64                  `bson:"version" json:"version"`
	CancelReason   string                 `bson:"cancel_reason,omitempty" json:"cancel_reason,omitempty"`
	CreatedAt      time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time              `bson:"updated_at" json:"updated_at"`
	SubmittedAt    *time.Time             `bson:"submitted_at,omitempty" json:"submitted_at,omitempty"`
	CompletedAt    *time.Time             `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}

func (r *WorkflowRequest) stepIndex(stepID string) int {
	for i := range r.ApprovalSteps {
		if r.ApprovalSteps[i].ID == stepID {
			return i
		}
	}
	return -1
}

// activeStep returns the step approvals currently wait on, or nil.
func (r *WorkflowRequest) activeStep() *ApprovalStep {
	if r.CurrentStep < 0 || r.CurrentStep >= len(r.ApprovalSteps) {
		return nil
	}
	return &r.ApprovalSteps[r.CurrentStep]
}

// actionable reports whether step i accepts approval actions now: the active step, or any
// pending optional step.
func (r *WorkflowRequest) actionable(i int) bool {
	s := &r.ApprovalSteps[i]
	if s.Status != StepPending {
		return false
	}
	return i == r.CurrentStep || s.IsOptional
}

// nextRequired returns the index of the lowest-order pending required step with order
// greater than after, falling back to the lowest-order pending required step. -1 if none.
func (r *WorkflowRequest) nextRequired(after int) int {
	best, fallback := -1, -1
	for i := range r.ApprovalSteps {
		s := &r.ApprovalSteps[i]
		if s.IsOptional || s.Status != StepPending {
			continue
		}
		if fallback < 0 || s.Order < r.ApprovalSteps[fallback].Order {
			fallback = i
		}
		if s.Order > after && (best < 0 || s.Order < r.ApprovalSteps[best].Order) {
			best = i
		}
	}
	if best >= 0 {
		return best
	}
	return fallback
}

func (r *WorkflowRequest) allRequiredApproved() bool {
	required := 0
	for _, s := range r.ApprovalSteps {
		if s.IsOptional {
			continue
		}
		required++
		if s.Status != StepApproved {
			return false
		}
	}
	return required > 0
}

// needsAction reports whether an administrator must intervene before approval can proceed:
// a required step nobody can act on, one that can never reach its quorum, or no required
// step at all.
func (r *WorkflowRequest) needsAction() bool {
	required := 0
	for i := range r.ApprovalSteps {
		s := &r.ApprovalSteps[i]
		if s.IsOptional {
			continue
		}
		required++
		if s.Status == StepPending && (s.Unassigned() || s.quorumUnreachable()) {
			return true
		}
	}
	return required == 0
}

// CreateInput carries what a requester supplies for a new request.
type CreateInput struct {
	Category    string                 `json:"category"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Priority    string                 `json:"priority"`
	Details     map[string]interface{} `json:"details"`
	Attachments []Attachment           `json:"attachments"`
	// Steps are used when no flow applies to the category.
	Steps      []flow.StepTemplate `json:"steps"`
	Escalation *EscalationInput    `json:"escalation"`
}

type EscalationInput struct {
	Enabled bool     `json:"enabled"`
	Path    []string `json:"path"`
}

// Filter narrows request listings. Zero values are ignored.
type Filter struct {
	Statuses       []Status
	Category       string
	RequesterID    string
	ApproverID     string
	ApproverIDs    []string
	ApproverRoles  []string
	ActionRequired *bool
	Limit          int64
}

type BulkOutcome string

const (
	BulkApplied BulkOutcome = "applied"
	BulkSkipped BulkOutcome = "skipped"
	BulkFailed  BulkOutcome = "failed"
)

type BulkResult struct {
	RequestID string      `json:"request_id"`
	Outcome   BulkOutcome `json:"outcome"`
	Error     string      `json:"error,omitempty"`
}
