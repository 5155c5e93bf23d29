package request

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"go-hr/internal/common/models"
	"go-hr/internal/features/audit"
	"go-hr/internal/features/flow"
	"go-hr/internal/features/notification"
	"go-hr/internal/features/replication"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// memoryRequests stores bson copies so a failed write never leaks into the store.
type memoryRequests struct {
	mu        sync.Mutex
	docs      map[string][]byte
	updateErr error
	updates   int
}

func newMemoryRequests() *memoryRequests {
	return &memoryRequests{docs: map[string][]byte{}}
}

func (m *memoryRequests) Create(_ context.Context, req *WorkflowRequest) error {
	raw, err := bson.Marshal(req)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[req.ID.Hex()] = raw
	return nil
}

func (m *memoryRequests) load(id string) *WorkflowRequest {
	raw, ok := m.docs[id]
	if !ok {
		return nil
	}
	var req WorkflowRequest
	if err := bson.Unmarshal(raw, &req); err != nil {
		panic(err)
	}
	return &req
}

func (m *memoryRequests) GetByID(_ context.Context, id string) (*WorkflowRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id), nil
}

func (m *memoryRequests) all() []WorkflowRequest {
	var out []WorkflowRequest
	for id := range m.docs {
		out = append(out, *m.load(id))
	}
	return out
}

func (m *memoryRequests) Find(_ context.Context, f Filter) ([]WorkflowRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []WorkflowRequest{}
	for _, req := range m.all() {
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, req.Status) {
			continue
		}
		if f.RequesterID != "" && req.RequesterID != f.RequesterID {
			continue
		}
		if f.ActionRequired != nil && req.ActionRequired != *f.ActionRequired {
			continue
		}
		if len(f.ApproverIDs) > 0 || len(f.ApproverRoles) > 0 {
			match := false
			for _, s := range req.ApprovalSteps {
				if slices.Contains(f.ApproverIDs, s.ApproverID) ||
					(s.ApproverID == "" && slices.Contains(f.ApproverRoles, s.ApproverRole)) {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, req)
	}
	return out, nil
}

func (m *memoryRequests) FindEscalationCandidates(_ context.Context, _ time.Time) ([]WorkflowRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []WorkflowRequest
	for _, req := range m.all() {
		if req.Status.InFlight() {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *memoryRequests) Update(_ context.Context, req *WorkflowRequest, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	stored := m.load(req.ID.Hex())
	if stored == nil || stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	raw, err := bson.Marshal(req)
	if err != nil {
		return err
	}
	m.docs[req.ID.Hex()] = raw
	m.updates++
	return nil
}

type stubFlows struct {
	def *flow.ApprovalFlowDefinition
}

func (s *stubFlows) Select(context.Context, string, map[string]interface{}) (*flow.ApprovalFlowDefinition, error) {
	return s.def, nil
}

type fakeDirectory struct {
	members map[string]models.Member
}

func (d *fakeDirectory) FindMemberByID(_ context.Context, id string) (*models.Member, error) {
	m, ok := d.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (d *fakeDirectory) GetManagerOf(ctx context.Context, id string) (*models.Member, error) {
	m, _ := d.FindMemberByID(ctx, id)
	if m == nil || m.ManagerID == nil {
		return nil, nil
	}
	return d.FindMemberByID(ctx, *m.ManagerID)
}

func (d *fakeDirectory) GetFilteredMembers(context.Context, models.MemberFilter) ([]models.Member, error) {
	return nil, nil
}

func strPtr(s string) *string { return &s }

// ic -> mgr -> ceo
func testDirectory() *fakeDirectory {
	return &fakeDirectory{members: map[string]models.Member{
		"ic":     {ID: "ic", Name: "Ivy", ManagerID: strPtr("mgr")},
		"mgr":    {ID: "mgr", Name: "Manny", ManagerID: strPtr("ceo"), Roles: []string{"manager"}},
		"ceo":    {ID: "ceo", Name: "Cleo", Roles: []string{"department_head"}},
		"sub":    {ID: "sub", Name: "Sam", ManagerID: strPtr("ceo")},
		"deputy": {ID: "deputy", Name: "Dee", ManagerID: strPtr("ceo")},
	}}
}

type fakeDelegations struct {
	// delegate -> members they stand in for
	active map[string][]string
}

func (d *fakeDelegations) IsDelegateOf(_ context.Context, delegateID, userID string, _ time.Time) (bool, error) {
	return slices.Contains(d.active[delegateID], userID), nil
}

func (d *fakeDelegations) DelegatorsOf(_ context.Context, delegateID string, _ time.Time) ([]string, error) {
	return d.active[delegateID], nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notification.Notice
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, notice notification.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notices = append(n.notices, notice)
	return nil
}

func (n *recordingNotifier) kinds(recipient string) []notification.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notification.Kind
	for _, x := range n.notices {
		if x.RecipientUserID == recipient {
			out = append(out, x.Kind)
		}
	}
	return out
}

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (a *recordingAudit) Record(_ context.Context, evt audit.Event) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, evt)
	return nil
}

func (a *recordingAudit) actions() []models.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.AuditAction
	for _, e := range a.events {
		out = append(out, e.Action)
	}
	return out
}

type recordingBus struct {
	mu     sync.Mutex
	events []replication.Event
	err    error
}

func (b *recordingBus) Publish(_ context.Context, evt replication.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, evt)
	return nil
}

func (b *recordingBus) Subscribe() (<-chan replication.Event, func()) {
	return make(chan replication.Event), func() {}
}

func (b *recordingBus) types() []replication.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []replication.EventType
	for _, e := range b.events {
		out = append(out, e.Type)
	}
	return out
}

var testPath = []string{"manager", "department_head", "hr_director"}

type harness struct {
	svc     *ServiceImpl
	repo    *memoryRequests
	flows   *stubFlows
	notices *recordingNotifier
	audit   *recordingAudit
	bus     *recordingBus
	deleg   *fakeDelegations
	now     time.Time
}

func newHarness(def *flow.ApprovalFlowDefinition) *harness {
	h := &harness{
		repo:    newMemoryRequests(),
		flows:   &stubFlows{def: def},
		notices: &recordingNotifier{},
		audit:   &recordingAudit{},
		bus:     &recordingBus{},
		deleg:   &fakeDelegations{active: map[string][]string{}},
		now:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	dir := testDirectory()
	h.svc = &ServiceImpl{
		Repo:  h.repo,
		Flows: h.flows,
		Resolver: &flow.Resolver{
			Directory:      dir,
			EscalationPath: testPath,
			TimeoutHours:   48,
			Logger:         zap.NewNop(),
		},
		Directory:      dir,
		Delegations:    h.deleg,
		Notifier:       h.notices,
		Audit:          h.audit,
		Bus:            h.bus,
		Logger:         zap.NewNop(),
		Now:            func() time.Time { return h.now },
		EscalationPath: testPath,
		locks:          newKeyedMutex(),
	}
	return h
}

var errBoom = errors.New("boom")

func actor(id string, roles ...string) models.Actor {
	return models.Actor{ID: id, Name: id, Roles: roles}
}

var admin = actor("admin", models.RoleHRAdmin)

func orgFlow(levels int) *flow.ApprovalFlowDefinition {
	return &flow.ApprovalFlowDefinition{
		Name:               "leave",
		Category:           "leave",
		Mode:               flow.ModeOrganization,
		OrganizationLevels: levels,
		IsActive:           true,
		IsDefault:          true,
	}
}

func customFlow(steps ...flow.StepTemplate) *flow.ApprovalFlowDefinition {
	return &flow.ApprovalFlowDefinition{
		Name:          "expense",
		Category:      "expense",
		Mode:          flow.ModeCustom,
		StepTemplates: steps,
		IsActive:      true,
		IsDefault:     true,
	}
}
