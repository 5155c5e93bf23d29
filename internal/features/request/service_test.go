package request

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/common/models"
	"go-hr/internal/features/flow"
	"go-hr/internal/features/notification"
	"go-hr/internal/features/replication"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func (h *harness) draft(t *testing.T, requester string) *WorkflowRequest {
	t.Helper()
	req, err := h.svc.Create(ctx, actor(requester), CreateInput{Category: "leave", Title: "Vacation"})
	require.NoError(t, err)
	return req
}

func (h *harness) submitted(t *testing.T, requester string) *WorkflowRequest {
	t.Helper()
	req := h.draft(t, requester)
	req, err := h.svc.Submit(ctx, req.ID.Hex(), actor(requester))
	require.NoError(t, err)
	return req
}

func (h *harness) stored(t *testing.T, id string) *WorkflowRequest {
	t.Helper()
	req, err := h.repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, req)
	return req
}

func timelineActions(req *WorkflowRequest) []TimelineAction {
	var out []TimelineAction
	for _, e := range req.Timeline {
		out = append(out, e.Action)
	}
	return out
}

func TestTwoLevelApprovalCompletes(t *testing.T) {
	h := newHarness(orgFlow(2))

	req := h.draft(t, "ic")
	assert.Equal(t, StatusDraft, req.Status)
	assert.Equal(t, PriorityNormal, req.Priority)
	assert.Equal(t, -1, req.CurrentStep)
	assert.False(t, req.ActionRequired)
	require.Len(t, req.ApprovalSteps, 2)
	assert.Equal(t, "mgr", req.ApprovalSteps[0].ApproverID)
	assert.Equal(t, "ceo", req.ApprovalSteps[1].ApproverID)
	id := req.ID.Hex()

	req, err := h.svc.Submit(ctx, id, actor("ic"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, 0, req.CurrentStep)
	require.NotNil(t, req.ApprovalSteps[0].EscalationDeadline)
	assert.True(t, h.now.Add(48*time.Hour).Equal(*req.ApprovalSteps[0].EscalationDeadline))
	assert.Equal(t, []notification.Kind{notification.KindSubmitted}, h.notices.kinds("mgr"))

	req, err = h.svc.Approve(ctx, id, req.ApprovalSteps[0].ID, actor("mgr"), "enjoy", false)
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyApproved, req.Status)
	assert.Equal(t, StepApproved, req.ApprovalSteps[0].Status)
	assert.NotNil(t, req.ApprovalSteps[0].ActionDate)
	assert.Equal(t, 1, req.CurrentStep)
	assert.NotNil(t, req.ApprovalSteps[1].EscalationDeadline)
	assert.Equal(t, []notification.Kind{notification.KindActionNeeded}, h.notices.kinds("ceo"))

	req, err = h.svc.Approve(ctx, id, req.ApprovalSteps[1].ID, actor("ceo"), "", false)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, req.Status)
	assert.NotNil(t, req.CompletedAt)
	assert.Equal(t, -1, req.CurrentStep)
	assert.Equal(t, int64(4), req.Version)

	assert.Equal(t, []notification.Kind{notification.KindStepApproved, notification.KindFullyApproved}, h.notices.kinds("ic"))
	assert.Equal(t, []models.AuditAction{
		models.AuditActionCreate, models.AuditActionSubmit, models.AuditActionApprove, models.AuditActionApprove,
	}, h.audit.actions())
	assert.Equal(t, []replication.EventType{
		replication.EventNew, replication.EventUpdated, replication.EventUpdated, replication.EventApproved,
	}, h.bus.types())
	assert.Equal(t, []TimelineAction{ActionCreated, ActionSubmitted, ActionApproved, ActionApproved},
		timelineActions(h.stored(t, id)))
}

func TestRejectAtAnyStepIsTerminal(t *testing.T) {
	h := newHarness(orgFlow(2))
	req := h.submitted(t, "ic")
	id := req.ID.Hex()

	req, err := h.svc.Approve(ctx, id, req.ApprovalSteps[0].ID, actor("mgr"), "", false)
	require.NoError(t, err)

	_, err = h.svc.Reject(ctx, id, req.ApprovalSteps[1].ID, actor("ceo"), " ")
	assert.True(t, apperrors.IsValidation(err))

	req, err = h.svc.Reject(ctx, id, req.ApprovalSteps[1].ID, actor("ceo"), "peak season")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, req.Status)
	assert.Equal(t, StepRejected, req.ApprovalSteps[1].Status)
	assert.Equal(t, "peak season", req.ApprovalSteps[1].Comments)
	assert.NotNil(t, req.CompletedAt)
	assert.Contains(t, h.notices.kinds("ic"), notification.KindRejected)
	types := h.bus.types()
	assert.Equal(t, replication.EventRejected, types[len(types)-1])

	_, err = h.svc.Approve(ctx, id, req.ApprovalSteps[1].ID, actor("ceo"), "", false)
	assert.True(t, apperrors.IsValidation(err))
	_, err = h.svc.Cancel(ctx, id, actor("ic"), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestApproveGuards(t *testing.T) {
	h := newHarness(orgFlow(2))

	draft := h.draft(t, "ic")
	_, err := h.svc.Approve(ctx, draft.ID.Hex(), draft.ApprovalSteps[0].ID, actor("mgr"), "", false)
	assert.True(t, apperrors.IsValidation(err), "draft requests cannot be approved")

	req := h.submitted(t, "ic")
	id := req.ID.Hex()

	_, err = h.svc.Approve(ctx, id, req.ApprovalSteps[1].ID, actor("ceo"), "", false)
	assert.True(t, apperrors.IsValidation(err), "second step is not active yet")

	_, err = h.svc.Approve(ctx, id, req.ApprovalSteps[0].ID, actor("sub"), "", false)
	assert.True(t, apperrors.IsValidation(err), "sub is not the approver")

	_, err = h.svc.Approve(ctx, id, "no-such-step", actor("mgr"), "", false)
	assert.True(t, apperrors.IsValidation(err), "unknown step")

	_, err = h.svc.Approve(ctx, "507f1f77bcf86cd799439011", req.ApprovalSteps[0].ID, actor("mgr"), "", false)
	assert.True(t, apperrors.IsNotFound(err))

	assert.Equal(t, StatusPending, h.stored(t, id).Status)
}

func TestOptionalStepNeverBlocks(t *testing.T) {
	def := customFlow(
		flow.StepTemplate{Name: "manager", ApproverID: "mgr"},
		flow.StepTemplate{Name: "advisor", ApproverID: "sub", IsOptional: true},
	)

	t.Run("skipped when required steps finish", func(t *testing.T) {
		h := newHarness(def)
		req := h.submitted(t, "ic")
		assert.Equal(t, "Sam", req.ApprovalSteps[1].ApproverName)

		req, err := h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, actor("mgr"), "", false)
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, req.Status)
		assert.Equal(t, StepSkipped, req.ApprovalSteps[1].Status)
	})

	t.Run("actionable while the request is in flight", func(t *testing.T) {
		h := newHarness(def)
		req := h.submitted(t, "ic")

		req, err := h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[1].ID, actor("sub"), "fine by me", false)
		require.NoError(t, err)
		assert.Equal(t, StatusPartiallyApproved, req.Status)
		assert.Equal(t, 0, req.CurrentStep)
		assert.Equal(t, StepApproved, req.ApprovalSteps[1].Status)

		req, err = h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, actor("mgr"), "", false)
		require.NoError(t, err)
		assert.Equal(t, StatusApproved, req.Status)
	})
}

func TestParallelStepCountsVotes(t *testing.T) {
	h := newHarness(customFlow(flow.StepTemplate{
		Name:              "finance review",
		ApproverRole:      "finance",
		Mode:              flow.StepParallel,
		RequiredApprovals: 2,
	}))
	req := h.submitted(t, "ic")
	id, stepID := req.ID.Hex(), req.ApprovalSteps[0].ID
	assert.Equal(t, []notification.Kind{notification.KindSubmitted}, h.notices.kinds("role:finance"))

	req, err := h.svc.Approve(ctx, id, stepID, actor("f1", "finance"), "", false)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status, "no step has completed yet")
	assert.Equal(t, StepPending, req.ApprovalSteps[0].Status)
	assert.Empty(t, h.notices.kinds("ic"))
	assert.Len(t, req.ApprovalSteps[0].Approvals, 1)

	_, err = h.svc.Approve(ctx, id, stepID, actor("f1", "finance"), "", false)
	assert.True(t, apperrors.IsValidation(err), "one vote per member")

	_, err = h.svc.Approve(ctx, id, stepID, actor("outsider"), "", false)
	assert.True(t, apperrors.IsValidation(err))

	req, err = h.svc.Approve(ctx, id, stepID, actor("f2", "finance"), "", false)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, req.Status)
	assert.Len(t, req.ApprovalSteps[0].Approvals, 2)
}

func TestRequireComment(t *testing.T) {
	def := orgFlow(1)
	def.RequireComment = true
	h := newHarness(def)
	req := h.submitted(t, "ic")
	assert.True(t, req.RequireComment)

	_, err := h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, actor("mgr"), "", false)
	assert.True(t, apperrors.IsValidation(err))

	req, err = h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, actor("mgr"), "ok", false)
	require.NoError(t, err)
	assert.Equal(t, "ok", req.ApprovalSteps[0].Comments)

	h = newHarness(orgFlow(1))
	req = h.submitted(t, "ic")
	_, err = h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, actor("mgr"), "  ", true)
	assert.True(t, apperrors.IsValidation(err), "caller may demand a comment")
}

func TestDelegateReassignsStep(t *testing.T) {
	h := newHarness(orgFlow(2))
	req := h.submitted(t, "ic")
	id, stepID := req.ID.Hex(), req.ApprovalSteps[0].ID

	_, err := h.svc.Delegate(ctx, id, stepID, actor("deputy"), "sub", "", "")
	assert.True(t, apperrors.IsValidation(err), "only the approver delegates")

	_, err = h.svc.Delegate(ctx, id, stepID, actor("mgr"), "ic", "", "")
	assert.True(t, apperrors.IsValidation(err), "never to the requester")

	_, err = h.svc.Delegate(ctx, id, stepID, actor("mgr"), "nobody", "", "")
	assert.True(t, apperrors.IsNotFound(err))

	req, err = h.svc.Delegate(ctx, id, stepID, actor("mgr"), "sub", "", "travelling")
	require.NoError(t, err)
	step := req.ApprovalSteps[0]
	assert.Equal(t, "sub", step.ApproverID)
	assert.Equal(t, "Sam", step.ApproverName)
	require.NotNil(t, step.DelegatedTo)
	assert.Equal(t, "mgr", step.DelegatedTo.OriginalID)
	assert.Equal(t, "travelling", step.DelegatedTo.Reason)
	assert.Equal(t, []notification.Kind{notification.KindDelegated}, h.notices.kinds("sub"))

	_, err = h.svc.Approve(ctx, id, stepID, actor("mgr"), "", false)
	assert.True(t, apperrors.IsValidation(err), "original approver lost the step")

	req, err = h.svc.Approve(ctx, id, stepID, actor("sub"), "", false)
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyApproved, req.Status)
	assert.Contains(t, h.audit.actions(), models.AuditActionDelegate)
}

func TestActiveDelegateActsForApprover(t *testing.T) {
	h := newHarness(orgFlow(1))
	h.deleg.active["deputy"] = []string{"mgr"}
	req := h.submitted(t, "ic")

	pending, err := h.svc.PendingFor(ctx, actor("deputy"))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.ID, pending[0].ID)

	req, err = h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, actor("deputy"), "", false)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, req.Status)
	assert.Equal(t, "deputy", req.ApprovalSteps[0].Approvals[0].ApproverID)
	assert.Equal(t, "mgr", req.ApprovalSteps[0].Approvals[0].OnBehalfOf)
}

func TestDelegateSharesApproverVote(t *testing.T) {
	h := newHarness(customFlow(flow.StepTemplate{Name: "manager", ApproverID: "mgr", RequiredApprovals: 2}))
	h.deleg.active["deputy"] = []string{"mgr"}

	// Stored before pinned quorums were refused; forced in flight.
	legacy := h.draft(t, "ic")
	legacy.Status = StatusPending
	legacy.CurrentStep = 0
	legacy.ActionRequired = false
	require.NoError(t, h.repo.Create(ctx, legacy))
	id, stepID := legacy.ID.Hex(), legacy.ApprovalSteps[0].ID

	req, err := h.svc.Approve(ctx, id, stepID, actor("mgr"), "", false)
	require.NoError(t, err)
	assert.Len(t, req.ApprovalSteps[0].Approvals, 1)

	_, err = h.svc.Approve(ctx, id, stepID, actor("deputy"), "", false)
	assert.True(t, apperrors.IsValidation(err), "the delegate holds mgr's vote, not a second one")

	stored := h.stored(t, id)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, StepPending, stored.ApprovalSteps[0].Status)
	assert.Len(t, stored.ApprovalSteps[0].Approvals, 1)
}

func TestPinnedQuorumNeedsAdministrator(t *testing.T) {
	h := newHarness(customFlow(flow.StepTemplate{Name: "manager", ApproverID: "mgr", RequiredApprovals: 2}))

	req := h.draft(t, "ic")
	assert.True(t, req.ActionRequired)

	_, err := h.svc.Submit(ctx, req.ID.Hex(), actor("ic"))
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, StatusDraft, h.stored(t, req.ID.Hex()).Status)

	manual := newHarness(nil)
	_, err = manual.svc.Create(ctx, actor("ic"), CreateInput{
		Category: "equipment",
		Title:    "Laptop",
		Steps:    []flow.StepTemplate{{Name: "it", ApproverID: "ceo", RequiredApprovals: 2}},
	})
	assert.True(t, apperrors.IsValidation(err), "manual steps are validated like flows")
	assert.Empty(t, manual.repo.docs)
}

func TestDelegateRefusesQuorumStep(t *testing.T) {
	h := newHarness(customFlow(flow.StepTemplate{Name: "finance", ApproverRole: "finance", RequiredApprovals: 2}))
	req := h.submitted(t, "ic")

	_, err := h.svc.Delegate(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, admin, "sub", "", "")
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, h.stored(t, req.ID.Hex()).ApprovalSteps[0].ApproverID)
}

func TestPlaceholderRouteNeedsAdministrator(t *testing.T) {
	h := newHarness(orgFlow(1))
	req := h.draft(t, "ghost")
	id := req.ID.Hex()
	require.Len(t, req.ApprovalSteps, 1)
	assert.True(t, req.ApprovalSteps[0].Placeholder)
	assert.True(t, req.ActionRequired)

	stuck := true
	listed, err := h.svc.List(ctx, Filter{ActionRequired: &stuck})
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	_, err = h.svc.Submit(ctx, id, actor("ghost"))
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.svc.Delegate(ctx, id, req.ApprovalSteps[0].ID, actor("mgr"), "mgr", "", "")
	assert.True(t, apperrors.IsValidation(err))

	req, err = h.svc.Delegate(ctx, id, req.ApprovalSteps[0].ID, admin, "mgr", "", "assigned by HR")
	require.NoError(t, err)
	assert.False(t, req.ActionRequired)
	assert.Empty(t, h.notices.kinds("mgr"), "draft delegation is silent")

	req, err = h.svc.Submit(ctx, id, actor("ghost"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
}

func TestTopOfHierarchyRequestNeedsAdministrator(t *testing.T) {
	h := newHarness(orgFlow(1))
	req := h.draft(t, "ceo")
	assert.Empty(t, req.ApprovalSteps)
	assert.True(t, req.ActionRequired)

	_, err := h.svc.Submit(ctx, req.ID.Hex(), actor("ceo"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestEscalationFollowsPath(t *testing.T) {
	h := newHarness(orgFlow(2))
	submittedAt := h.now
	req := h.submitted(t, "ic")
	id := req.ID.Hex()

	n, err := h.svc.CheckAndEscalate(ctx, submittedAt.Add(47*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = h.svc.CheckAndEscalate(ctx, submittedAt.Add(49*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	req = h.stored(t, id)
	assert.Equal(t, StatusEscalated, req.Status)
	assert.Equal(t, 1, req.Escalation.Level)
	assert.NotNil(t, req.Escalation.LastEscalatedAt)
	assert.Equal(t, []notification.Kind{notification.KindEscalated}, h.notices.kinds("role:department_head"))
	last := h.audit.events[len(h.audit.events)-1]
	assert.Equal(t, models.AuditActionEscalate, last.Action)
	assert.Equal(t, "system", last.ActorID)

	n, err = h.svc.CheckAndEscalate(ctx, submittedAt.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n, "escalated requests are not escalated again")

	h.now = submittedAt.Add(50 * time.Hour)
	req, err = h.svc.Approve(ctx, id, req.ApprovalSteps[0].ID, actor("mgr"), "", false)
	require.NoError(t, err)
	assert.Equal(t, StatusPartiallyApproved, req.Status)
	assert.Equal(t, 0, req.Escalation.Level)

	n, err = h.svc.CheckAndEscalate(ctx, h.now.Add(49*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []notification.Kind{notification.KindEscalated}, h.notices.kinds("role:hr_director"))
}

func TestEscalationStopsAtTopOfPath(t *testing.T) {
	h := newHarness(customFlow(flow.StepTemplate{Name: "hr", ApproverRole: "hr_director"}))
	req := h.submitted(t, "ic")

	n, err := h.svc.CheckAndEscalate(ctx, h.now.Add(100*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, StatusPending, h.stored(t, req.ID.Hex()).Status)
}

func TestEscalationCanBeDisabled(t *testing.T) {
	h := newHarness(orgFlow(1))
	req, err := h.svc.Create(ctx, actor("ic"), CreateInput{
		Category:   "leave",
		Title:      "Vacation",
		Escalation: &EscalationInput{Enabled: false},
	})
	require.NoError(t, err)
	_, err = h.svc.Submit(ctx, req.ID.Hex(), actor("ic"))
	require.NoError(t, err)

	n, err := h.svc.CheckAndEscalate(ctx, h.now.Add(100*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCancel(t *testing.T) {
	h := newHarness(orgFlow(1))
	req := h.submitted(t, "ic")

	_, err := h.svc.Cancel(ctx, req.ID.Hex(), actor("mgr"), "")
	assert.True(t, apperrors.IsValidation(err), "approvers cannot cancel")

	req, err = h.svc.Cancel(ctx, req.ID.Hex(), actor("ic"), "plans changed")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, req.Status)
	assert.Equal(t, "plans changed", req.CancelReason)

	_, err = h.svc.Cancel(ctx, req.ID.Hex(), actor("ic"), "")
	assert.True(t, apperrors.IsValidation(err))

	draft := h.draft(t, "ic")
	draft, err = h.svc.Cancel(ctx, draft.ID.Hex(), admin, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, draft.Status)
	assert.Contains(t, h.audit.actions(), models.AuditActionCancel)
}

func TestReturnForRevisionResetsSteps(t *testing.T) {
	h := newHarness(orgFlow(2))
	req := h.submitted(t, "ic")
	id := req.ID.Hex()

	req, err := h.svc.Approve(ctx, id, req.ApprovalSteps[0].ID, actor("mgr"), "", false)
	require.NoError(t, err)

	_, err = h.svc.ReturnForRevision(ctx, id, req.ApprovalSteps[1].ID, actor("ceo"), "")
	assert.True(t, apperrors.IsValidation(err))

	req, err = h.svc.ReturnForRevision(ctx, id, req.ApprovalSteps[1].ID, actor("ceo"), "add dates")
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, req.Status)
	assert.Equal(t, -1, req.CurrentStep)
	for _, step := range req.ApprovalSteps {
		assert.Equal(t, StepPending, step.Status)
		assert.Empty(t, step.Approvals)
		assert.Nil(t, step.EscalationDeadline)
	}
	assert.Contains(t, h.notices.kinds("ic"), notification.KindReturned)
	types := h.bus.types()
	assert.Equal(t, replication.EventReturned, types[len(types)-1])

	req, err = h.svc.Submit(ctx, id, actor("ic"))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, 0, req.CurrentStep)
}

func TestSubmitIsNoopOutsideDraft(t *testing.T) {
	h := newHarness(orgFlow(1))
	req := h.submitted(t, "ic")
	audits := len(h.audit.actions())

	again, err := h.svc.Submit(ctx, req.ID.Hex(), actor("ic"))
	require.NoError(t, err)
	assert.Equal(t, req.Version, again.Version)
	assert.Len(t, h.audit.actions(), audits)

	draft := h.draft(t, "ic")
	_, err = h.svc.Cancel(ctx, draft.ID.Hex(), actor("ic"), "")
	require.NoError(t, err)
	_, err = h.svc.Submit(ctx, draft.ID.Hex(), actor("ic"))
	assert.True(t, apperrors.IsValidation(err), "cancelled drafts cannot be submitted")
	assert.Equal(t, StatusCancelled, h.stored(t, draft.ID.Hex()).Status)
}

func TestBulkActsOnlyOnDirectAssignments(t *testing.T) {
	h := newHarness(orgFlow(1))
	r1 := h.submitted(t, "ic")
	r2 := h.submitted(t, "ic")
	r3 := h.submitted(t, "sub") // waits on ceo

	results, err := h.svc.BulkApprove(ctx, actor("mgr"), []string{r1.ID.Hex(), r2.ID.Hex(), r3.ID.Hex(), "missing"}, "")
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, BulkApplied, results[0].Outcome)
	assert.Equal(t, BulkApplied, results[1].Outcome)
	assert.Equal(t, BulkSkipped, results[2].Outcome)
	assert.Equal(t, BulkFailed, results[3].Outcome)

	assert.Equal(t, StatusApproved, h.stored(t, r1.ID.Hex()).Status)
	assert.Equal(t, StatusPending, h.stored(t, r3.ID.Hex()).Status)

	_, err = h.svc.BulkReject(ctx, actor("ceo"), []string{r3.ID.Hex()}, "")
	assert.True(t, apperrors.IsValidation(err))

	results, err = h.svc.BulkReject(ctx, actor("ceo"), []string{r3.ID.Hex()}, "no budget")
	require.NoError(t, err)
	assert.Equal(t, BulkApplied, results[0].Outcome)
	assert.Equal(t, StatusRejected, h.stored(t, r3.ID.Hex()).Status)
}

func TestStoreFailuresLeaveRequestUnchanged(t *testing.T) {
	h := newHarness(orgFlow(1))
	req := h.submitted(t, "ic")
	events := len(h.bus.types())

	h.repo.updateErr = ErrVersionConflict
	_, err := h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, actor("mgr"), "", false)
	assert.True(t, apperrors.IsConflict(err))

	h.repo.updateErr = errBoom
	_, err = h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, actor("mgr"), "", false)
	assert.Equal(t, apperrors.KindPersistence, apperrors.KindOf(err))

	stored := h.stored(t, req.ID.Hex())
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, req.Version, stored.Version)
	assert.Len(t, h.bus.types(), events, "no event for an unsaved transition")
	assert.NotContains(t, h.notices.kinds("ic"), notification.KindFullyApproved)
}

func TestSideEffectFailuresDoNotRollBack(t *testing.T) {
	h := newHarness(orgFlow(1))
	req := h.submitted(t, "ic")
	h.notices.err = errBoom
	h.bus.err = errBoom

	req, err := h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, actor("mgr"), "", false)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, req.Status)
	assert.Equal(t, StatusApproved, h.stored(t, req.ID.Hex()).Status)
}

func TestConcurrentApprovalsApplyOnce(t *testing.T) {
	h := newHarness(orgFlow(1))
	req := h.submitted(t, "ic")
	updatesBefore := h.repo.updates

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.Approve(ctx, req.ID.Hex(), req.ApprovalSteps[0].ID, actor("mgr"), "", false)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.True(t, apperrors.IsValidation(err), err.Error())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, updatesBefore+1, h.repo.updates)
	assert.Equal(t, 0, h.svc.locks.size())
}

func TestPendingForRoleSteps(t *testing.T) {
	h := newHarness(customFlow(flow.StepTemplate{Name: "finance review", ApproverRole: "finance"}))
	h.submitted(t, "ic")

	pending, err := h.svc.PendingFor(ctx, actor("f1", "finance"))
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	pending, err = h.svc.PendingFor(ctx, actor("someone"))
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(nil)

	_, err := h.svc.Create(ctx, actor("ic"), CreateInput{Category: "leave", Title: "Vacation"})
	assert.True(t, apperrors.IsValidation(err), "no flow and no steps")

	_, err = h.svc.Create(ctx, actor("ic"), CreateInput{Category: "leave"})
	assert.True(t, apperrors.IsValidation(err))

	_, err = h.svc.Create(ctx, actor("ic"), CreateInput{Category: "leave", Title: "x", Priority: "asap"})
	assert.True(t, apperrors.IsValidation(err))

	req, err := h.svc.Create(ctx, actor("ic"), CreateInput{
		Category: "equipment",
		Title:    "Laptop",
		Priority: "high",
		Steps:    []flow.StepTemplate{{Name: "it", ApproverID: "ceo"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "manual", req.FlowName)
	assert.Equal(t, PriorityHigh, req.Priority)
	require.Len(t, req.ApprovalSteps, 1)
	assert.Equal(t, "Cleo", req.ApprovalSteps[0].ApproverName)
	assert.Equal(t, testPath, req.Escalation.Path)
}
