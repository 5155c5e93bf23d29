package flow

import (
	"context"
	"fmt"
	"time"

	"go-hr/internal/common/apperrors"
	"go-hr/pkg/condition"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type FlowService interface {
	CreateFlow(ctx context.Context, flow *ApprovalFlowDefinition) error
	UpdateFlow(ctx context.Context, id string, flow *ApprovalFlowDefinition) error
	DeleteFlow(ctx context.Context, id string) error
	GetFlow(ctx context.Context, id string) (*ApprovalFlowDefinition, error)
	ListFlows(ctx context.Context, category string) ([]ApprovalFlowDefinition, error)
	// Select returns the flow governing a request, or nil when the category has none.
	Select(ctx context.Context, category string, fields map[string]interface{}) (*ApprovalFlowDefinition, error)
	Preview(ctx context.Context, category, requesterID string, fields map[string]interface{}) (*ResolvedApprovalRoute, error)
}

type FlowServiceImpl struct {
	Repo     FlowRepository
	Resolver *Resolver
	Logger   *zap.Logger
}

func NewFlowService(repo FlowRepository, resolver *Resolver, logger *zap.Logger) FlowService {
	return &FlowServiceImpl{
		Repo:     repo,
		Resolver: resolver,
		Logger:   logger,
	}
}

func (s *FlowServiceImpl) CreateFlow(ctx context.Context, flow *ApprovalFlowDefinition) error {
	if err := s.validate(ctx, flow); err != nil {
		return err
	}

	if flow.ID.IsZero() {
		flow.ID = primitive.NewObjectID()
	}
	flow.CreatedAt = time.Now()
	flow.UpdatedAt = flow.CreatedAt

	if err := s.Repo.Create(ctx, flow); err != nil {
		return apperrors.Persistence(err, "failed to create flow %s", flow.Name)
	}
	s.Logger.Info("Approval flow created", zap.String("flow_id", flow.ID.Hex()), zap.String("category", flow.Category))
	return nil
}

func (s *FlowServiceImpl) UpdateFlow(ctx context.Context, id string, flow *ApprovalFlowDefinition) error {
	existing, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return apperrors.NotFound("flow", id)
	}
	flow.ID = existing.ID
	flow.CreatedAt = existing.CreatedAt

	if err := s.validate(ctx, flow); err != nil {
		return err
	}

	flow.UpdatedAt = time.Now()
	if err := s.Repo.Update(ctx, id, flow); err != nil {
		return apperrors.Persistence(err, "failed to update flow %s", id)
	}
	return nil
}

func (s *FlowServiceImpl) validate(ctx context.Context, flow *ApprovalFlowDefinition) error {
	if flow.Name == "" || flow.Category == "" {
		return apperrors.Validation("flow name and category are required")
	}
	switch flow.Mode {
	case ModeOrganization:
		if flow.OrganizationLevels < 1 {
			return apperrors.Validation("organization flows need at least one level")
		}
	case ModeCustom:
		if len(flow.StepTemplates) == 0 {
			return apperrors.Validation("custom flows need at least one step template")
		}
		if err := ValidateStepTemplates(flow.StepTemplates); err != nil {
			return err
		}
	default:
		return apperrors.Validation("unknown flow mode %q", flow.Mode)
	}
	for _, c := range flow.Conditions {
		if c.Field == "" || !condition.ValidOperator(c.Operator) {
			return apperrors.Validation("invalid condition on field %q with operator %q", c.Field, c.Operator)
		}
	}
	return s.validateFlowOverlaps(ctx, flow)
}

// ValidateStepTemplates checks custom step templates. A step pinned to one member can
// collect only one vote, so it may not require more.
func ValidateStepTemplates(templates []StepTemplate) error {
	for i, tpl := range templates {
		if tpl.RequiredApprovals < 0 || tpl.TimeoutHours < 0 {
			return apperrors.Validation("step template %d has a negative setting", i+1)
		}
		if tpl.Mode != "" && tpl.Mode != StepSerial && tpl.Mode != StepParallel {
			return apperrors.Validation("step template %d has unknown mode %q", i+1, tpl.Mode)
		}
		if tpl.ApproverID != "" && tpl.RequiredApprovals > 1 {
			return apperrors.Validation("step template %d is assigned to %s but requires %d approvals", i+1, tpl.ApproverID, tpl.RequiredApprovals)
		}
	}
	return nil
}

// validateFlowOverlaps keeps one active default per category and refuses two active flows
// with identical conditions.
func (s *FlowServiceImpl) validateFlowOverlaps(ctx context.Context, flow *ApprovalFlowDefinition) error {
	if !flow.IsActive {
		return nil
	}

	existing, err := s.Repo.ListByCategory(ctx, flow.Category, true)
	if err != nil {
		return err
	}

	for _, ef := range existing {
		if ef.ID == flow.ID {
			continue
		}

		if flow.IsDefault && ef.IsDefault {
			return apperrors.Conflict("category %s already has a default flow (%s)", flow.Category, ef.Name)
		}

		if len(flow.Conditions) > 0 && len(ef.Conditions) == len(flow.Conditions) {
			matchCount := 0
			for _, c1 := range flow.Conditions {
				for _, c2 := range ef.Conditions {
					if c1.Field == c2.Field && c1.Operator == c2.Operator && fmt.Sprint(c1.Value) == fmt.Sprint(c2.Value) {
						matchCount++
						break
					}
				}
			}
			if matchCount == len(flow.Conditions) {
				return apperrors.Conflict("a flow with identical conditions already exists (%s)", ef.Name)
			}
		}
	}
	return nil
}

func (s *FlowServiceImpl) DeleteFlow(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func (s *FlowServiceImpl) GetFlow(ctx context.Context, id string) (*ApprovalFlowDefinition, error) {
	flow, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return nil, apperrors.NotFound("flow", id)
	}
	return flow, nil
}

func (s *FlowServiceImpl) ListFlows(ctx context.Context, category string) ([]ApprovalFlowDefinition, error) {
	if category != "" {
		return s.Repo.ListByCategory(ctx, category, false)
	}
	return s.Repo.List(ctx)
}

func (s *FlowServiceImpl) Select(ctx context.Context, category string, fields map[string]interface{}) (*ApprovalFlowDefinition, error) {
	flows, err := s.Repo.ListByCategory(ctx, category, true)
	if err != nil {
		return nil, err
	}
	flow, ok := SelectFlow(flows, category, fields)
	if !ok {
		return nil, nil
	}
	return flow, nil
}

// Preview resolves the route a request would get without storing anything.
func (s *FlowServiceImpl) Preview(ctx context.Context, category, requesterID string, fields map[string]interface{}) (*ResolvedApprovalRoute, error) {
	flow, err := s.Select(ctx, category, fields)
	if err != nil {
		return nil, err
	}
	if flow == nil {
		return nil, apperrors.NotFound("flow for category", category)
	}
	return s.Resolver.Resolve(ctx, flow, requesterID)
}
