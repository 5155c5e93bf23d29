package request

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/common/models"
	"go-hr/internal/config"
	"go-hr/internal/features/audit"
	"go-hr/internal/features/delegation"
	"go-hr/internal/features/flow"
	"go-hr/internal/features/notification"
	"go-hr/internal/features/organization"
	"go-hr/internal/features/replication"
	"go-hr/internal/metrics"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type RequestService interface {
	Create(ctx context.Context, actor models.Actor, input CreateInput) (*WorkflowRequest, error)
	Submit(ctx context.Context, id string, actor models.Actor) (*WorkflowRequest, error)
	Approve(ctx context.Context, id, stepID string, actor models.Actor, comment string, requireComment bool) (*WorkflowRequest, error)
	Reject(ctx context.Context, id, stepID string, actor models.Actor, reason string) (*WorkflowRequest, error)
	Delegate(ctx context.Context, id, stepID string, actor models.Actor, delegateID, delegateName, reason string) (*WorkflowRequest, error)
	Cancel(ctx context.Context, id string, actor models.Actor, reason string) (*WorkflowRequest, error)
	ReturnForRevision(ctx context.Context, id, stepID string, actor models.Actor, reason string) (*WorkflowRequest, error)
	BulkApprove(ctx context.Context, actor models.Actor, ids []string, comment string) ([]BulkResult, error)
	BulkReject(ctx context.Context, actor models.Actor, ids []string, reason string) ([]BulkResult, error)
	// CheckAndEscalate escalates every in-flight request whose active step is overdue at now
	// and returns how many moved.
	CheckAndEscalate(ctx context.Context, now time.Time) (int, error)
	Get(ctx context.Context, id string) (*WorkflowRequest, error)
	List(ctx context.Context, filter Filter) ([]WorkflowRequest, error)
	PendingFor(ctx context.Context, actor models.Actor) ([]WorkflowRequest, error)
	CanAct(ctx context.Context, req *WorkflowRequest, step *ApprovalStep, actor models.Actor) (bool, error)
}

// FlowSelector picks the flow governing a new request.
type FlowSelector interface {
	Select(ctx context.Context, category string, fields map[string]interface{}) (*flow.ApprovalFlowDefinition, error)
}

type RouteResolver interface {
	Resolve(ctx context.Context, def *flow.ApprovalFlowDefinition, requesterID string) (*flow.ResolvedApprovalRoute, error)
}

type ServiceImpl struct {
	Repo           RequestRepository
	Flows          FlowSelector
	Resolver       RouteResolver
	Directory      organization.Directory
	Delegations    delegation.Lookup
	Notifier       notification.Notifier
	Audit          audit.Recorder
	Bus            replication.EventBus
	Logger         *zap.Logger
	Now            func() time.Time
	EscalationPath []string
	Origin         string

	locks *keyedMutex
}

func NewRequestService(
	repo RequestRepository,
	flows flow.FlowService,
	resolver *flow.Resolver,
	directory organization.Directory,
	delegations delegation.DelegationService,
	notifier notification.Notifier,
	auditService audit.AuditService,
	bus replication.EventBus,
	cfg *config.Config,
	logger *zap.Logger,
) RequestService {
	return &ServiceImpl{
		Repo:           repo,
		Flows:          flows,
		Resolver:       resolver,
		Directory:      directory,
		Delegations:    delegations,
		Notifier:       notifier,
		Audit:          auditService,
		Bus:            bus,
		Logger:         logger,
		Now:            time.Now,
		EscalationPath: cfg.EscalationPath,
		Origin:         replication.ReplicaName(cfg),
		locks:          newKeyedMutex(),
	}
}

// effects are applied after a transition is stored, outside the request lock.
type effects struct {
	noop    bool
	notices []notification.Notice
	audit   *audit.Event
	event   replication.EventType
}

func (e *effects) notify(recipient string, kind notification.Kind, req *WorkflowRequest, subject, message string) {
	if recipient == "" {
		return
	}
	e.notices = append(e.notices, notification.Notice{
		RecipientUserID:  recipient,
		Kind:             kind,
		Subject:          subject,
		Message:          message,
		RelatedRequestID: req.ID.Hex(),
	})
}

func (e *effects) record(action models.AuditAction, req *WorkflowRequest, actor models.Actor, detail map[string]interface{}) {
	e.audit = &audit.Event{
		Action:    action,
		RequestID: req.ID.Hex(),
		ActorID:   actor.ID,
		ActorName: actor.Name,
		Detail:    detail,
	}
}

type transition func(req *WorkflowRequest, eff *effects) error

func (s *ServiceImpl) lockFor(id string) func() {
	if s.locks == nil {
		s.locks = newKeyedMutex()
	}
	return s.locks.Lock(id)
}

// mutate runs fn against the stored request under its lock and persists the result with an
// optimistic version check. Side effects run only after the write succeeded.
func (s *ServiceImpl) mutate(ctx context.Context, id, action string, fn transition) (*WorkflowRequest, error) {
	started := time.Now()
	req, eff, err := s.commit(ctx, id, fn)
	metrics.ObserveTransition(action, resultLabel(err, eff), started)
	if err != nil {
		return nil, err
	}
	if !eff.noop {
		s.apply(ctx, req, eff)
	}
	return req, nil
}

func (s *ServiceImpl) commit(ctx context.Context, id string, fn transition) (*WorkflowRequest, *effects, error) {
	unlock := s.lockFor(id)
	defer unlock()

	req, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, apperrors.Persistence(err, "failed to load request %s", id)
	}
	if req == nil {
		return nil, nil, apperrors.NotFound("request", id)
	}

	eff := &effects{}
	if err := fn(req, eff); err != nil {
		return nil, eff, err
	}
	if eff.noop {
		return req, eff, nil
	}

	expected := req.Version
	req.Version++
	req.UpdatedAt = s.Now()
	req.ActionRequired = !req.Status.IsTerminal() && req.needsAction()
	if err := s.Repo.Update(ctx, req, expected); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, eff, apperrors.Conflict("request %s was modified concurrently", id)
		}
		return nil, eff, apperrors.Persistence(err, "failed to save request %s", id)
	}
	return req, eff, nil
}

func resultLabel(err error, eff *effects) string {
	switch {
	case err == nil && eff != nil && eff.noop:
		return "noop"
	case err == nil:
		return "ok"
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return "invalid"
	case apperrors.KindNotFound:
		return "not_found"
	case apperrors.KindConflict:
		return "conflict"
	}
	return "error"
}

// apply delivers notices, the audit record and the replication event. Failures are logged
// and counted but never undo the stored transition.
func (s *ServiceImpl) apply(ctx context.Context, req *WorkflowRequest, eff *effects) {
	ctx = context.WithoutCancel(ctx)
	requestID := req.ID.Hex()

	if s.Notifier != nil {
		for _, n := range eff.notices {
			if err := s.Notifier.Notify(ctx, n); err != nil {
				metrics.SideEffectFailures.WithLabelValues("notification").Inc()
				s.Logger.Warn("Notification failed",
					zap.String("request_id", requestID),
					zap.String("recipient", n.RecipientUserID),
					zap.Error(err))
			}
		}
	}

	if eff.audit != nil && s.Audit != nil {
		if err := s.Audit.Record(ctx, *eff.audit); err != nil {
			metrics.SideEffectFailures.WithLabelValues("audit").Inc()
			s.Logger.Warn("Audit record failed", zap.String("request_id", requestID), zap.Error(err))
		}
	}

	if eff.event != "" && s.Bus != nil {
		evt, err := replication.NewEvent(eff.event, requestID, string(req.Status), req.Version, req)
		if err == nil {
			evt.Origin = s.Origin
			err = s.Bus.Publish(ctx, evt)
		}
		if err != nil {
			metrics.SideEffectFailures.WithLabelValues("replication").Inc()
			s.Logger.Warn("Replication publish failed", zap.String("request_id", requestID), zap.Error(err))
		}
	}
}

func (s *ServiceImpl) appendTimeline(req *WorkflowRequest, action TimelineAction, actor models.Actor, stepID, comment string) {
	req.Timeline = append(req.Timeline, TimelineEntry{
		ID:        uuid.NewString(),
		Action:    action,
		ActorID:   actor.ID,
		ActorName: actor.Name,
		StepID:    stepID,
		Comment:   comment,
		At:        s.Now(),
	})
}

// activate makes step i the one approvals wait on and starts its escalation clock.
func (s *ServiceImpl) activate(req *WorkflowRequest, i int, now time.Time) {
	req.CurrentStep = i
	req.Escalation.Level = 0
	if i < 0 {
		return
	}
	step := &req.ApprovalSteps[i]
	step.Status = StepPending
	step.EscalationDeadline = nil
	if step.TimeoutHours > 0 {
		deadline := now.Add(time.Duration(step.TimeoutHours) * time.Hour)
		step.EscalationDeadline = &deadline
	}
}

// recipientOf names who is notified when step needs attention: the assigned approver,
// otherwise everyone holding the step's role.
func recipientOf(step *ApprovalStep) string {
	switch {
	case step.ApproverID != "":
		return step.ApproverID
	case step.ApproverRole != "":
		return notification.RolePrefix + step.ApproverRole
	}
	return ""
}

func (s *ServiceImpl) Create(ctx context.Context, actor models.Actor, input CreateInput) (*WorkflowRequest, error) {
	started := time.Now()
	req, err := s.create(ctx, actor, input)
	metrics.ObserveTransition("create", resultLabel(err, nil), started)
	if err != nil {
		return nil, err
	}

	eff := &effects{event: replication.EventNew}
	eff.record(models.AuditActionCreate, req, actor, map[string]interface{}{
		"category": req.Category,
		"flow":     req.FlowName,
		"steps":    len(req.ApprovalSteps),
	})
	s.apply(ctx, req, eff)
	return req, nil
}

func (s *ServiceImpl) create(ctx context.Context, actor models.Actor, input CreateInput) (*WorkflowRequest, error) {
	if actor.ID == "" {
		return nil, apperrors.Validation("requester is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return nil, apperrors.Validation("category is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, apperrors.Validation("title is required")
	}
	priority, ok := ParsePriority(input.Priority)
	if !ok {
		return nil, apperrors.Validation("unknown priority %q", input.Priority)
	}

	def, err := s.Flows.Select(ctx, input.Category, input.Details)
	if err != nil {
		return nil, err
	}
	if def == nil {
		if len(input.Steps) == 0 {
			return nil, apperrors.Validation("no approval flow for category %q and no steps supplied", input.Category)
		}
		if err := flow.ValidateStepTemplates(input.Steps); err != nil {
			return nil, err
		}
		def = &flow.ApprovalFlowDefinition{Name: "manual", Mode: flow.ModeCustom, StepTemplates: input.Steps}
	}
	route, err := s.Resolver.Resolve(ctx, def, actor.ID)
	if err != nil {
		return nil, err
	}
	if route.Degraded {
		metrics.DegradedRoutes.Inc()
	}

	now := s.Now()
	req := &WorkflowRequest{
		ID:             primitive.NewObjectID(),
		Category:       input.Category,
		Title:          input.Title,
		Description:    input.Description,
		RequesterID:    actor.ID,
		RequesterName:  actor.Name,
		Status:         StatusDraft,
		Priority:       priority,
		Details:        input.Details,
		CurrentStep:    -1,
		Attachments:    input.Attachments,
		FlowID:         def.ID,
		FlowName:       def.Name,
		RequireComment: def.RequireComment,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, rs := range route.Steps {
		req.ApprovalSteps = append(req.ApprovalSteps, ApprovalStep{
			ID:                uuid.NewString(),
			Order:             rs.Order,
			Name:              rs.Name,
			ApproverRole:      rs.ApproverRole,
			ApproverID:        rs.ApproverID,
			ApproverName:      rs.ApproverName,
			Mode:              rs.Mode,
			RequiredApprovals: rs.RequiredApprovals,
			Status:            StepPending,
			IsOptional:        rs.IsOptional,
			Placeholder:       rs.Placeholder,
			TimeoutHours:      rs.TimeoutHours,
		})
	}

	req.Escalation = EscalationSettings{Enabled: true, Path: def.EscalationPath}
	if input.Escalation != nil {
		req.Escalation.Enabled = input.Escalation.Enabled
		if len(input.Escalation.Path) > 0 {
			req.Escalation.Path = input.Escalation.Path
		}
	}
	if len(req.Escalation.Path) == 0 {
		req.Escalation.Path = s.EscalationPath
	}

	req.ActionRequired = req.needsAction()
	s.appendTimeline(req, ActionCreated, actor, "", "")

	if err := s.Repo.Create(ctx, req); err != nil {
		return nil, apperrors.Persistence(err, "failed to create request")
	}
	s.Logger.Info("Request created",
		zap.String("request_id", req.ID.Hex()),
		zap.String("category", req.Category),
		zap.String("flow", req.FlowName),
		zap.Int("steps", len(req.ApprovalSteps)),
		zap.Bool("action_required", req.ActionRequired))
	return req, nil
}

func (s *ServiceImpl) Submit(ctx context.Context, id string, actor models.Actor) (*WorkflowRequest, error) {
	return s.mutate(ctx, id, "submit", func(req *WorkflowRequest, eff *effects) error {
		if req.Status.IsTerminal() {
			return apperrors.Validation("request %s is %s", id, req.Status)
		}
		if req.Status != StatusDraft {
			eff.noop = true
			return nil
		}
		if actor.ID != req.RequesterID && !actor.HasRole(models.RoleHRAdmin) {
			return apperrors.Validation("only the requester can submit request %s", id)
		}
		if req.needsAction() {
			return apperrors.Validation("request %s has unassigned approval steps", id)
		}
		first := req.nextRequired(0)
		if first < 0 {
			return apperrors.Validation("request %s has no approval steps", id)
		}

		now := s.Now()
		s.activate(req, first, now)
		req.Status = StatusPending
		req.SubmittedAt = &now
		s.appendTimeline(req, ActionSubmitted, actor, "", "")

		step := &req.ApprovalSteps[first]
		eff.notify(recipientOf(step), notification.KindSubmitted, req,
			fmt.Sprintf("Approval needed: %s", req.Title),
			fmt.Sprintf("%s submitted a %s request for your approval", req.RequesterName, req.Category))
		eff.record(models.AuditActionSubmit, req, actor, map[string]interface{}{"first_step": step.Name})
		eff.event = replication.EventUpdated
		return nil
	})
}

// checkActionable resolves stepID and verifies that actor may act on it now.
func (s *ServiceImpl) checkActionable(ctx context.Context, req *WorkflowRequest, stepID string, actor models.Actor) (int, error) {
	if !req.Status.InFlight() {
		return -1, apperrors.Validation("request %s is %s", req.ID.Hex(), req.Status)
	}
	i := req.stepIndex(stepID)
	if i < 0 {
		return -1, apperrors.Validation("request %s has no step %q", req.ID.Hex(), stepID)
	}
	step := &req.ApprovalSteps[i]
	if step.Status != StepPending {
		return -1, apperrors.Validation("step %s is already %s", step.Name, step.Status)
	}
	if !req.actionable(i) {
		return -1, apperrors.Validation("step %s is not active", step.Name)
	}
	ok, err := s.CanAct(ctx, req, step, actor)
	if err != nil {
		return -1, err
	}
	if !ok {
		return -1, apperrors.Validation("%s is not an approver for step %s", actor.ID, step.Name)
	}
	return i, nil
}

func (s *ServiceImpl) Approve(ctx context.Context, id, stepID string, actor models.Actor, comment string, requireComment bool) (*WorkflowRequest, error) {
	return s.mutate(ctx, id, "approve", func(req *WorkflowRequest, eff *effects) error {
		i, err := s.checkActionable(ctx, req, stepID, actor)
		if err != nil {
			return err
		}
		step := &req.ApprovalSteps[i]
		if (requireComment || req.RequireComment) && strings.TrimSpace(comment) == "" {
			return apperrors.Validation("a comment is required to approve step %s", step.Name)
		}
		principal := step.principal(actor.ID)
		if step.votedFor(principal) {
			return apperrors.Validation("%s already approved step %s", principal, step.Name)
		}

		now := s.Now()
		vote := StepApproval{
			ApproverID:   actor.ID,
			ApproverName: actor.Name,
			Comment:      comment,
			At:           now,
		}
		if principal != actor.ID {
			vote.OnBehalfOf = principal
		}
		step.Approvals = append(step.Approvals, vote)
		s.appendTimeline(req, ActionApproved, actor, step.ID, comment)
		eff.record(models.AuditActionApprove, req, actor, map[string]interface{}{
			"step_id":   step.ID,
			"step_name": step.Name,
			"votes":     len(step.Approvals),
		})
		eff.event = replication.EventUpdated

		// Status only moves once a step completes.
		if len(step.Approvals) < max(step.RequiredApprovals, 1) {
			return nil
		}

		step.Status = StepApproved
		step.ActionDate = &now
		step.Comments = comment

		if req.allRequiredApproved() {
			req.Status = StatusApproved
			req.CompletedAt = &now
			req.CurrentStep = -1
			for j := range req.ApprovalSteps {
				if req.ApprovalSteps[j].Status == StepPending {
					req.ApprovalSteps[j].Status = StepSkipped
				}
			}
			eff.notify(req.RequesterID, notification.KindFullyApproved, req,
				fmt.Sprintf("Approved: %s", req.Title), "All required approvals were given")
			eff.event = replication.EventApproved
			return nil
		}

		eff.notify(req.RequesterID, notification.KindStepApproved, req,
			fmt.Sprintf("Step approved: %s", step.Name),
			fmt.Sprintf("%s approved %q", actor.Name, req.Title))

		if i == req.CurrentStep {
			next := req.nextRequired(step.Order)
			s.activate(req, next, now)
			req.Status = StatusPartiallyApproved
			if next >= 0 {
				nextStep := &req.ApprovalSteps[next]
				eff.notify(recipientOf(nextStep), notification.KindActionNeeded, req,
					fmt.Sprintf("Approval needed: %s", req.Title),
					fmt.Sprintf("%s is waiting on %s", req.Title, nextStep.Name))
			}
		} else if req.Status == StatusPending {
			req.Status = StatusPartiallyApproved
		}
		return nil
	})
}

func (s *ServiceImpl) Reject(ctx context.Context, id, stepID string, actor models.Actor, reason string) (*WorkflowRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("a reason is required to reject")
	}
	return s.mutate(ctx, id, "reject", func(req *WorkflowRequest, eff *effects) error {
		i, err := s.checkActionable(ctx, req, stepID, actor)
		if err != nil {
			return err
		}
		now := s.Now()
		step := &req.ApprovalSteps[i]
		step.Status = StepRejected
		step.ActionDate = &now
		step.Comments = reason

		req.Status = StatusRejected
		req.CompletedAt = &now
		req.CurrentStep = -1
		s.appendTimeline(req, ActionRejected, actor, step.ID, reason)

		eff.notify(req.RequesterID, notification.KindRejected, req,
			fmt.Sprintf("Rejected: %s", req.Title), reason)
		eff.record(models.AuditActionReject, req, actor, map[string]interface{}{
			"step_id": step.ID,
			"reason":  reason,
		})
		eff.event = replication.EventRejected
		return nil
	})
}

func (s *ServiceImpl) Delegate(ctx context.Context, id, stepID string, actor models.Actor, delegateID, delegateName, reason string) (*WorkflowRequest, error) {
	if delegateID == "" {
		return nil, apperrors.Validation("delegate is required")
	}
	if delegateName == "" && s.Directory != nil {
		member, err := s.Directory.FindMemberByID(ctx, delegateID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			return nil, apperrors.NotFound("member", delegateID)
		}
		delegateName = member.Name
	}
	if delegateName == "" {
		delegateName = delegateID
	}

	return s.mutate(ctx, id, "delegate", func(req *WorkflowRequest, eff *effects) error {
		if req.Status != StatusDraft && !req.Status.InFlight() {
			return apperrors.Validation("request %s is %s", id, req.Status)
		}
		i := req.stepIndex(stepID)
		if i < 0 {
			return apperrors.Validation("request %s has no step %q", id, stepID)
		}
		step := &req.ApprovalSteps[i]
		if step.Status != StepPending {
			return apperrors.Validation("step %s is already %s", step.Name, step.Status)
		}
		if !actor.HasRole(models.RoleHRAdmin) {
			ok, err := s.CanAct(ctx, req, step, actor)
			if err != nil {
				return err
			}
			if !ok {
				return apperrors.Validation("%s may not delegate step %s", actor.ID, step.Name)
			}
		}
		if step.RequiredApprovals > 1 {
			return apperrors.Validation("step %s needs %d approvals and cannot be handed to one member", step.Name, step.RequiredApprovals)
		}
		if delegateID == step.ApproverID {
			return apperrors.Validation("step %s is already assigned to %s", step.Name, delegateID)
		}
		if delegateID == req.RequesterID {
			return apperrors.Validation("cannot delegate to the requester")
		}

		now := s.Now()
		original := step.ApproverName
		if original == "" {
			original = step.ApproverRole
		}
		step.DelegatedTo = &DelegatedTo{
			ID:           delegateID,
			Name:         delegateName,
			Reason:       reason,
			OriginalID:   step.ApproverID,
			OriginalName: original,
			At:           now,
		}
		step.ApproverID = delegateID
		step.ApproverName = delegateName
		step.Placeholder = false
		s.appendTimeline(req, ActionDelegated, actor, step.ID, reason)

		if req.Status.InFlight() {
			eff.notify(delegateID, notification.KindDelegated, req,
				fmt.Sprintf("Delegated to you: %s", req.Title),
				fmt.Sprintf("%s delegated %s to you", actor.Name, step.Name))
		}
		eff.record(models.AuditActionDelegate, req, actor, map[string]interface{}{
			"step_id": step.ID,
			"from":    step.DelegatedTo.OriginalID,
			"to":      delegateID,
		})
		eff.event = replication.EventUpdated
		return nil
	})
}

func (s *ServiceImpl) Cancel(ctx context.Context, id string, actor models.Actor, reason string) (*WorkflowRequest, error) {
	return s.mutate(ctx, id, "cancel", func(req *WorkflowRequest, eff *effects) error {
		if req.Status.IsTerminal() {
			return apperrors.Validation("request %s is already %s", id, req.Status)
		}
		if actor.ID != req.RequesterID && !actor.HasRole(models.RoleHRAdmin) {
			return apperrors.Validation("only the requester can cancel request %s", id)
		}
		now := s.Now()
		req.Status = StatusCancelled
		req.CancelReason = reason
		req.CompletedAt = &now
		req.CurrentStep = -1
		s.appendTimeline(req, ActionCancelled, actor, "", reason)

		eff.record(models.AuditActionCancel, req, actor, map[string]interface{}{"reason": reason})
		eff.event = replication.EventUpdated
		return nil
	})
}

func (s *ServiceImpl) ReturnForRevision(ctx context.Context, id, stepID string, actor models.Actor, reason string) (*WorkflowRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("a reason is required to return a request")
	}
	return s.mutate(ctx, id, "return", func(req *WorkflowRequest, eff *effects) error {
		i, err := s.checkActionable(ctx, req, stepID, actor)
		if err != nil {
			return err
		}
		stepName := req.ApprovalSteps[i].Name

		for j := range req.ApprovalSteps {
			step := &req.ApprovalSteps[j]
			step.Status = StepPending
			step.Approvals = nil
			step.Comments = ""
			step.ActionDate = nil
			step.EscalationDeadline = nil
		}
		req.Status = StatusDraft
		req.CurrentStep = -1
		req.SubmittedAt = nil
		req.Escalation.Level = 0
		req.Escalation.LastEscalatedAt = nil
		s.appendTimeline(req, ActionReturned, actor, stepID, reason)

		eff.notify(req.RequesterID, notification.KindReturned, req,
			fmt.Sprintf("Returned for revision: %s", req.Title), reason)
		eff.record(models.AuditActionReturn, req, actor, map[string]interface{}{
			"step_id": stepID,
			"step":    stepName,
			"reason":  reason,
		})
		eff.event = replication.EventReturned
		return nil
	})
}

// directStep returns the active step of req assigned to actor by id, or "" when the actor
// is not its direct approver. Bulk actions never act through roles or delegations.
func directStep(req *WorkflowRequest, actor models.Actor) string {
	if !req.Status.InFlight() {
		return ""
	}
	step := req.activeStep()
	if step == nil || step.Status != StepPending || step.ApproverID != actor.ID {
		return ""
	}
	return step.ID
}

func (s *ServiceImpl) bulk(ctx context.Context, actor models.Actor, ids []string, act func(id, stepID string) error) []BulkResult {
	results := make([]BulkResult, 0, len(ids))
	for _, id := range ids {
		result := BulkResult{RequestID: id}
		req, err := s.Repo.GetByID(ctx, id)
		switch {
		case err != nil:
			result.Outcome = BulkFailed
			result.Error = err.Error()
		case req == nil:
			result.Outcome = BulkFailed
			result.Error = apperrors.NotFound("request", id).Error()
		default:
			stepID := directStep(req, actor)
			if stepID == "" {
				result.Outcome = BulkSkipped
				break
			}
			if err := act(id, stepID); err != nil {
				result.Outcome = BulkFailed
				result.Error = err.Error()
				break
			}
			result.Outcome = BulkApplied
		}
		results = append(results, result)
	}
	return results
}

func (s *ServiceImpl) BulkApprove(ctx context.Context, actor models.Actor, ids []string, comment string) ([]BulkResult, error) {
	return s.bulk(ctx, actor, ids, func(id, stepID string) error {
		_, err := s.Approve(ctx, id, stepID, actor, comment, false)
		return err
	}), nil
}

func (s *ServiceImpl) BulkReject(ctx context.Context, actor models.Actor, ids []string, reason string) ([]BulkResult, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("a reason is required to reject")
	}
	return s.bulk(ctx, actor, ids, func(id, stepID string) error {
		_, err := s.Reject(ctx, id, stepID, actor, reason)
		return err
	}), nil
}

// escalationTarget returns the rung above the active step's role when its deadline has
// lapsed. Roles missing from the path escalate to its first rung.
func (s *ServiceImpl) escalationTarget(req *WorkflowRequest, now time.Time) (string, bool) {
	if req.Status != StatusPending && req.Status != StatusPartiallyApproved {
		return "", false
	}
	if !req.Escalation.Enabled {
		return "", false
	}
	step := req.activeStep()
	if step == nil || step.Status != StepPending || step.EscalationDeadline == nil || !now.After(*step.EscalationDeadline) {
		return "", false
	}
	path := req.Escalation.Path
	if len(path) == 0 {
		path = s.EscalationPath
	}
	idx := -1
	for i, role := range path {
		if role == step.ApproverRole {
			idx = i
			break
		}
	}
	next := idx + 1
	if next >= len(path) {
		return "", false
	}
	return path[next], true
}

func (s *ServiceImpl) CheckAndEscalate(ctx context.Context, now time.Time) (int, error) {
	candidates, err := s.Repo.FindEscalationCandidates(ctx, now)
	if err != nil {
		return 0, apperrors.Persistence(err, "failed to load escalation candidates")
	}

	escalated := 0
	var errs []error
	for _, candidate := range candidates {
		moved := false
		_, err := s.mutate(ctx, candidate.ID.Hex(), "escalate", func(req *WorkflowRequest, eff *effects) error {
			role, ok := s.escalationTarget(req, now)
			if !ok {
				eff.noop = true
				return nil
			}
			step := req.activeStep()
			req.Status = StatusEscalated
			req.Escalation.Level++
			req.Escalation.LastEscalatedAt = &now
			comment := fmt.Sprintf("%s overdue, escalated to %s", step.Name, role)
			s.appendTimeline(req, ActionEscalated, models.System, step.ID, comment)

			eff.notify(notification.RolePrefix+role, notification.KindEscalated, req,
				fmt.Sprintf("Escalated: %s", req.Title), comment)
			eff.record(models.AuditActionEscalate, req, models.System, map[string]interface{}{
				"step_id": step.ID,
				"role":    role,
				"level":   req.Escalation.Level,
			})
			eff.event = replication.EventUpdated
			moved = true
			return nil
		})
		if err != nil {
			s.Logger.Error("Escalation failed", zap.String("request_id", candidate.ID.Hex()), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if moved {
			escalated++
			metrics.EscalationsTotal.Inc()
		}
	}
	return escalated, errors.Join(errs...)
}

func (s *ServiceImpl) Get(ctx context.Context, id string) (*WorkflowRequest, error) {
	req, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, apperrors.NotFound("request", id)
	}
	return req, nil
}

func (s *ServiceImpl) List(ctx context.Context, filter Filter) ([]WorkflowRequest, error) {
	return s.Repo.Find(ctx, filter)
}

// PendingFor lists requests waiting on actor, directly, through a role, or as a delegate.
func (s *ServiceImpl) PendingFor(ctx context.Context, actor models.Actor) ([]WorkflowRequest, error) {
	ids := []string{actor.ID}
	if s.Delegations != nil {
		delegators, err := s.Delegations.DelegatorsOf(ctx, actor.ID, s.Now())
		if err != nil {
			return nil, err
		}
		ids = append(ids, delegators...)
	}
	candidates, err := s.Repo.Find(ctx, Filter{
		Statuses:      InFlight,
		ApproverIDs:   ids,
		ApproverRoles: actor.Roles,
	})
	if err != nil {
		return nil, err
	}

	pending := []WorkflowRequest{}
	for _, req := range candidates {
		for i := range req.ApprovalSteps {
			if !req.actionable(i) {
				continue
			}
			ok, err := s.CanAct(ctx, &req, &req.ApprovalSteps[i], actor)
			if err != nil {
				return nil, err
			}
			if ok {
				pending = append(pending, req)
				break
			}
		}
	}
	return pending, nil
}

// CanAct reports whether actor may approve, reject or return step: as its assigned
// approver, as that approver's active delegate, or through the step's role when no
// member is assigned.
func (s *ServiceImpl) CanAct(ctx context.Context, req *WorkflowRequest, step *ApprovalStep, actor models.Actor) (bool, error) {
	if step.Unassigned() || actor.ID == "" {
		return false, nil
	}
	if step.ApproverID == "" {
		return actor.HasRole(step.ApproverRole), nil
	}
	if step.ApproverID == actor.ID {
		return true, nil
	}
	if s.Delegations == nil {
		return false, nil
	}
	return s.Delegations.IsDelegateOf(ctx, actor.ID, step.ApproverID, s.Now())
}
