package flow

import (
	"context"
	"errors"
	"testing"

	"go-hr/internal/common/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDirectory struct {
	members map[string]models.Member
	err     error
}

func (d *fakeDirectory) FindMemberByID(_ context.Context, id string) (*models.Member, error) {
	if d.err != nil {
		return nil, d.err
	}
	m, ok := d.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (d *fakeDirectory) GetManagerOf(ctx context.Context, id string) (*models.Member, error) {
	m, err := d.FindMemberByID(ctx, id)
	if err != nil || m == nil || m.ManagerID == nil {
		return nil, err
	}
	return d.FindMemberByID(ctx, *m.ManagerID)
}

func (d *fakeDirectory) GetFilteredMembers(context.Context, models.MemberFilter) ([]models.Member, error) {
	return nil, nil
}

func strPtr(s string) *string { return &s }

// ic -> mgr -> ceo
func chainDirectory() *fakeDirectory {
	return &fakeDirectory{members: map[string]models.Member{
		"ic":  {ID: "ic", Name: "Ivy", ManagerID: strPtr("mgr")},
		"mgr": {ID: "mgr", Name: "Manny", ManagerID: strPtr("ceo")},
		"ceo": {ID: "ceo", Name: "Cleo"},
	}}
}

func newTestResolver(dir *fakeDirectory) *Resolver {
	return &Resolver{
		Directory:      dir,
		EscalationPath: []string{"manager", "department_head", "hr_director"},
		TimeoutHours:   48,
		Logger:         zap.NewNop(),
	}
}

func orgFlow(levels int) *ApprovalFlowDefinition {
	f := testFlow("org", "leave", 0, true)
	f.OrganizationLevels = levels
	return &f
}

func TestResolveOrganizationWalksHierarchy(t *testing.T) {
	r := newTestResolver(chainDirectory())

	route, err := r.Resolve(context.Background(), orgFlow(2), "ic")
	require.NoError(t, err)
	require.Len(t, route.Steps, 2)
	assert.False(t, route.Degraded)

	assert.Equal(t, 1, route.Steps[0].Order)
	assert.Equal(t, "mgr", route.Steps[0].ApproverID)
	assert.Equal(t, "Manny", route.Steps[0].ApproverName)
	assert.Equal(t, "direct manager approval", route.Steps[0].Name)
	assert.Equal(t, "manager", route.Steps[0].ApproverRole)

	assert.Equal(t, 2, route.Steps[1].Order)
	assert.Equal(t, "ceo", route.Steps[1].ApproverID)
	assert.Equal(t, "2-levels-up approval", route.Steps[1].Name)
	assert.Equal(t, "department_head", route.Steps[1].ApproverRole)
	assert.Equal(t, 48, route.Steps[1].TimeoutHours)
	assert.Equal(t, 1, route.Steps[1].RequiredApprovals)
}

func TestResolveOrganizationStopsAtTopWithoutPadding(t *testing.T) {
	r := newTestResolver(chainDirectory())

	route, err := r.Resolve(context.Background(), orgFlow(5), "ic")
	require.NoError(t, err)
	require.Len(t, route.Steps, 2)
	assert.Equal(t, "ceo", route.Steps[1].ApproverID)
	for _, s := range route.Steps {
		assert.False(t, s.Placeholder)
	}
}

func TestResolveOrganizationIsDeterministic(t *testing.T) {
	r := newTestResolver(chainDirectory())
	first, err := r.Resolve(context.Background(), orgFlow(3), "ic")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), orgFlow(3), "ic")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolveOrganizationDegradesForUnknownRequester(t *testing.T) {
	tests := []struct {
		name string
		dir  *fakeDirectory
	}{
		{"empty directory", &fakeDirectory{members: map[string]models.Member{}}},
		{"directory unavailable", &fakeDirectory{err: errors.New("connection refused")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(tt.dir)
			route, err := r.Resolve(context.Background(), orgFlow(2), "ic")
			require.NoError(t, err)
			assert.True(t, route.Degraded)
			require.Len(t, route.Steps, 2)
			for i, s := range route.Steps {
				assert.True(t, s.Placeholder)
				assert.Empty(t, s.ApproverID)
				assert.Equal(t, LevelLabel(i+1), s.Name)
			}
		})
	}
}

func TestResolveOrganizationStopsOnManagerCycle(t *testing.T) {
	dir := &fakeDirectory{members: map[string]models.Member{
		"a": {ID: "a", Name: "A", ManagerID: strPtr("b")},
		"b": {ID: "b", Name: "B", ManagerID: strPtr("a")},
	}}
	r := newTestResolver(dir)

	route, err := r.Resolve(context.Background(), orgFlow(5), "a")
	require.NoError(t, err)
	require.Len(t, route.Steps, 1)
	assert.Equal(t, "b", route.Steps[0].ApproverID)
}

func TestResolveCustomCopiesTemplatesInOrder(t *testing.T) {
	r := newTestResolver(chainDirectory())
	f := testFlow("custom", "expense", 0, true)
	f.Mode = ModeCustom
	f.StepTemplates = []StepTemplate{
		{Name: "A", ApproverID: "mgr"},
		{Name: "B", ApproverRole: "finance", IsOptional: true, RequiredApprovals: 2, Mode: StepParallel},
		{Name: "C", ApproverID: "ceo", ApproverName: "The CEO", TimeoutHours: 4},
		{Name: "D"},
	}

	route, err := r.Resolve(context.Background(), &f, "ic")
	require.NoError(t, err)
	require.Len(t, route.Steps, 4)

	assert.Equal(t, []int{1, 2, 3, 4}, []int{route.Steps[0].Order, route.Steps[1].Order, route.Steps[2].Order, route.Steps[3].Order})
	assert.Equal(t, "Manny", route.Steps[0].ApproverName)
	assert.Equal(t, StepSerial, route.Steps[0].Mode)
	assert.Equal(t, 48, route.Steps[0].TimeoutHours)

	assert.True(t, route.Steps[1].IsOptional)
	assert.Equal(t, 2, route.Steps[1].RequiredApprovals)
	assert.Equal(t, StepParallel, route.Steps[1].Mode)

	assert.Equal(t, "The CEO", route.Steps[2].ApproverName)
	assert.Equal(t, 4, route.Steps[2].TimeoutHours)

	assert.True(t, route.Steps[3].Placeholder)
	assert.False(t, route.Degraded)
}

func TestResolveRejectsNilFlow(t *testing.T) {
	_, err := newTestResolver(chainDirectory()).Resolve(context.Background(), nil, "ic")
	assert.Error(t, err)
}
