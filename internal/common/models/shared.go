package models

import (
	"time"
)

type ContextKey string

const (
	ActorKey ContextKey = "actor"
)

type AuditAction string

const (
	AuditActionCreate   AuditAction = "create"
	AuditActionSubmit   AuditAction = "submit"
	AuditActionApprove  AuditAction = "approve"
	AuditActionReject   AuditAction = "reject"
	AuditActionCancel   AuditAction = "cancel"
	AuditActionDelegate AuditAction = "delegate"
	AuditActionEscalate AuditAction = "escalate"
	AuditActionReturn   AuditAction = "return"
)

// Actor identifies the member performing an operation.
type Actor struct {
	ID    string   `json:"id" bson:"id"`
	Name  string   `json:"name" bson:"name"`
	Roles []string `json:"roles,omitempty" bson:"roles,omitempty"`
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleHRAdmin may administer flows, the directory and stuck requests.
const RoleHRAdmin = "hr_admin"

// System is the actor used for scheduled transitions such as escalation.
var System = Actor{ID: "system", Name: "System"}

type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
	MemberStatusOnLeave  MemberStatus = "on_leave"
)

// Member is a position in the reporting hierarchy. ManagerID is a weak reference.
type Member struct {
	ID         string       `bson:"_id" json:"id"`
	Name       string       `bson:"name" json:"name"`
	Email      string       `bson:"email,omitempty" json:"email,omitempty"`
	Department string       `bson:"department,omitempty" json:"department,omitempty"`
	Position   string       `bson:"position,omitempty" json:"position,omitempty"`
	ManagerID  *string      `bson:"manager_id,omitempty" json:"manager_id,omitempty"`
	Roles      []string     `bson:"roles" json:"roles"`
	Status     MemberStatus `bson:"status" json:"status"`
	CreatedAt  time.Time    `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time    `bson:"updated_at" json:"updated_at"`
}

func (m *Member) HasRole(role string) bool {
	for _, r := range m.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// MemberFilter narrows directory listings. Empty fields are ignored.
type MemberFilter struct {
	Department string       `json:"department,omitempty"`
	Role       string       `json:"role,omitempty"`
	Status     MemberStatus `json:"status,omitempty"`
	ManagerID  string       `json:"manager_id,omitempty"`
}

type ConditionOperator string

const (
	OperatorGTE ConditionOperator = "gte"
	OperatorLTE ConditionOperator = "lte"
	OperatorGT  ConditionOperator = "gt"
	OperatorLT  ConditionOperator = "lt"
	OperatorEQ  ConditionOperator = "eq"
	OperatorNE  ConditionOperator = "ne"
)

// FlowCondition is a value predicate evaluated against a request's details.
type FlowCondition struct {
	Field       string            `json:"field" bson:"field"`
	Operator    ConditionOperator `json:"operator" bson:"operator"`
	Value       interface{}       `json:"value" bson:"value"`
	Description string            `json:"description,omitempty" bson:"description,omitempty"`
}

// Filter is a generic listing predicate compiled into a store query.
type Filter struct {
	Field    string      `json:"field" bson:"field"`
	Operator string      `json:"operator" bson:"operator"` // eq, ne, gt, lt, gte, lte, in, nin
	Value    interface{} `json:"value" bson:"value"`
}

type Log struct {
	AppID        string    `bson:"app_id" json:"app_id"`
	Message      string    `bson:"message" json:"message"`
	RequestID    string    `bson:"request_id,omitempty" json:"request_id,omitempty"`
	ActorID      string    `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
