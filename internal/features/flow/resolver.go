package flow

import (
	"context"
	"fmt"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/config"
	"go-hr/internal/features/organization"

	"go.uber.org/zap"
)

// DefaultApproverRole is the role given to hierarchy steps beyond the escalation path.
const DefaultApproverRole = "manager"

// Resolver expands a flow definition into the concrete steps of one request.
type Resolver struct {
	Directory      organization.Directory
	EscalationPath []string
	TimeoutHours   int
	Logger         *zap.Logger
}

func NewResolver(directory organization.Directory, cfg *config.Config, logger *zap.Logger) *Resolver {
	return &Resolver{
		Directory:      directory,
		EscalationPath: cfg.EscalationPath,
		TimeoutHours:   cfg.DefaultStepTimeoutHours,
		Logger:         logger,
	}
}

// LevelLabel names the approval step for the n-th manager above the requester.
func LevelLabel(level int) string {
	if level == 1 {
		return "direct manager approval"
	}
	return fmt.Sprintf("%d-levels-up approval", level)
}

// Resolve builds the route for requesterID. Identical inputs always produce identical
// routes. An unreachable hierarchy is not an error: the route is returned with
// placeholder steps and Degraded set.
func (r *Resolver) Resolve(ctx context.Context, flow *ApprovalFlowDefinition, requesterID string) (*ResolvedApprovalRoute, error) {
	if flow == nil {
		return nil, apperrors.Validation("no approval flow to resolve")
	}
	route := &ResolvedApprovalRoute{FlowID: flow.ID, FlowName: flow.Name}

	switch flow.Mode {
	case ModeCustom:
		r.resolveCustom(ctx, flow, route)
	case ModeOrganization, "":
		r.resolveOrganization(ctx, flow, requesterID, route)
	default:
		return nil, apperrors.Validation("unknown flow mode %q", flow.Mode)
	}
	return route, nil
}

func (r *Resolver) resolveCustom(ctx context.Context, flow *ApprovalFlowDefinition, route *ResolvedApprovalRoute) {
	for i, tpl := range flow.StepTemplates {
		tpl = r.applyDefaults(tpl)
		step := ResolvedStep{
			Order:             i + 1,
			Name:              tpl.Name,
			ApproverRole:      tpl.ApproverRole,
			ApproverID:        tpl.ApproverID,
			ApproverName:      tpl.ApproverName,
			Mode:              tpl.Mode,
			RequiredApprovals: tpl.RequiredApprovals,
			TimeoutHours:      tpl.TimeoutHours,
			IsOptional:        tpl.IsOptional,
			Placeholder:       tpl.ApproverID == "" && tpl.ApproverRole == "",
		}
		if step.Name == "" {
			step.Name = fmt.Sprintf("step %d", i+1)
		}
		if step.ApproverID != "" && step.ApproverName == "" && r.Directory != nil {
			if m, err := r.Directory.FindMemberByID(ctx, step.ApproverID); err == nil && m != nil {
				step.ApproverName = m.Name
			}
		}
		route.Steps = append(route.Steps, step)
	}
}

func (r *Resolver) resolveOrganization(ctx context.Context, flow *ApprovalFlowDefinition, requesterID string, route *ResolvedApprovalRoute) {
	levels := flow.OrganizationLevels
	if levels <= 0 {
		levels = 1
	}
	path := flow.EscalationPath
	if len(path) == 0 {
		path = r.EscalationPath
	}

	var requesterKnown bool
	if r.Directory != nil {
		requester, err := r.Directory.FindMemberByID(ctx, requesterID)
		if err != nil {
			r.Logger.Warn("Directory lookup failed, resolving with placeholders",
				zap.String("requester_id", requesterID), zap.Error(err))
		}
		requesterKnown = err == nil && requester != nil
	}

	if !requesterKnown {
		route.Degraded = true
		for level := 1; level <= levels; level++ {
			route.Steps = append(route.Steps, r.hierarchyStep(level, path, "", ""))
		}
		route.Steps = markPlaceholders(route.Steps)
		r.Logger.Warn("Approval route degraded",
			zap.String("flow", flow.Name),
			zap.String("requester_id", requesterID),
			zap.Int("levels", levels))
		return
	}

	seen := map[string]bool{requesterID: true}
	current := requesterID
	for level := 1; level <= levels; level++ {
		manager, err := r.Directory.GetManagerOf(ctx, current)
		if err != nil {
			r.Logger.Warn("Manager lookup failed, route truncated",
				zap.String("member_id", current), zap.Int("level", level), zap.Error(err))
			route.Degraded = true
			return
		}
		if manager == nil || seen[manager.ID] {
			return
		}
		seen[manager.ID] = true
		route.Steps = append(route.Steps, r.hierarchyStep(level, path, manager.ID, manager.Name))
		current = manager.ID
	}
}

func (r *Resolver) hierarchyStep(level int, path []string, approverID, approverName string) ResolvedStep {
	role := DefaultApproverRole
	if level-1 < len(path) {
		role = path[level-1]
	}
	tpl := r.applyDefaults(StepTemplate{})
	return ResolvedStep{
		Order:             level,
		Name:              LevelLabel(level),
		ApproverRole:      role,
		ApproverID:        approverID,
		ApproverName:      approverName,
		Mode:              tpl.Mode,
		RequiredApprovals: tpl.RequiredApprovals,
		TimeoutHours:      tpl.TimeoutHours,
	}
}

func (r *Resolver) applyDefaults(tpl StepTemplate) StepTemplate {
	if tpl.TimeoutHours <= 0 && r.TimeoutHours > 0 {
		tpl.TimeoutHours = r.TimeoutHours
	}
	return tpl.withDefaults()
}

func markPlaceholders(steps []ResolvedStep) []ResolvedStep {
	for i := range steps {
		steps[i].Placeholder = true
	}
	return steps
}
