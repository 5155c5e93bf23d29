package flow

import (
	"time"

	common_models "go-hr/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type FlowMode string

const (
	ModeOrganization FlowMode = "organization" // walk the reporting hierarchy
	ModeCustom       FlowMode = "custom"       // fixed chain of step templates
)

type StepMode string

const (
	StepSerial   StepMode = "serial"
	StepParallel StepMode = "parallel"
)

const (
	DefaultRequiredApprovals = 1
	DefaultTimeoutHours      = 48
)

// ApprovalFlowDefinition is a reusable approval policy for a request category.
type ApprovalFlowDefinition struct {
	ID                 primitive.ObjectID            `bson:"_id,omitempty" json:"id"`
	Name               string                        `bson:"name" json:"name"`
	Description        string                        `bson:"description,omitempty" json:"description,omitempty"`
	Category           string                        `bson:"category" json:"category"`
	Mode               FlowMode                      `bson:"mode" json:"mode"`
	OrganizationLevels int                           `bson:"organization_levels,omitempty" json:"organization_levels,omitempty"`
	StepTemplates      []StepTemplate                `bson:"step_templates" json:"step_templates"`
	Conditions         []common_models.FlowCondition `bson:"conditions" json:"conditions"`
	IsActive           bool                          `bson:"is_active" json:"is_active"`
	IsDefault          bool                          `bson:"is_default" json:"is_default"`
	Priority           int                           `bson:"priority" json:"priority"` // higher wins
	EscalationPath     []string                      `bson:"escalation_path,omitempty" json:"escalation_path,omitempty"`
	RequireComment     bool                          `bson:"require_comment" json:"require_comment"`
	CreatedAt          time.Time                     `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time                     `bson:"updated_at" json:"updated_at"`
}

// StepTemplate describes one approver slot of a custom chain.
type StepTemplate struct {
	Name              string   `bson:"name" json:"name"`
	ApproverRole      string   `bson:"approver_role,omitempty" json:"approver_role,omitempty"`
	ApproverID        string   `bson:"approver_id,omitempty" json:"approver_id,omitempty"`
	ApproverName      string   `bson:"approver_name,omitempty" json:"approver_name,omitempty"`
	Mode              StepMode `bson:"mode,omitempty" json:"mode,omitempty"`
	RequiredApprovals int      `bson:"required_approvals,omitempty" json:"required_approvals,omitempty"`
	TimeoutHours      int      `bson:"timeout_hours,omitempty" json:"timeout_hours,omitempty"`
	IsOptional        bool     `bson:"is_optional" json:"is_optional"`
}

// ResolvedStep is a step template bound to a concrete position in the route.
type ResolvedStep struct {
	Order             int      `json:"order"`
	Name              string   `json:"name"`
	ApproverRole      string   `json:"approver_role,omitempty"`
	ApproverID        string   `json:"approver_id,omitempty"`
	ApproverName      string   `json:"approver_name,omitempty"`
	Mode              StepMode `json:"mode"`
	RequiredApprovals int      `json:"required_approvals"`
	TimeoutHours      int      `json:"timeout_hours"`
	IsOptional        bool     `json:"is_optional"`
	Placeholder       bool     `json:"placeholder,omitempty"`
}

type ResolvedApprovalRoute struct {
	FlowID   primitive.ObjectID `json:"flow_id"`
	FlowName string             `json:"flow_name"`
	Steps    []ResolvedStep     `json:"steps"`
	// Degraded marks a route built from placeholders because the hierarchy was unavailable.
	Degraded bool `json:"degraded,omitempty"`
}

// withDefaults fills unset template fields.
func (t StepTemplate) withDefaults() StepTemplate {
	if t.RequiredApprovals <= 0 {
		t.RequiredApprovals = DefaultRequiredApprovals
	}
	if t.TimeoutHours <= 0 {
		t.TimeoutHours = DefaultTimeoutHours
	}
	if t.Mode == "" {
		t.Mode = StepSerial
	}
	return t
}
