package delegation

import (
	"context"
	"testing"
	"time"

	"go-hr/internal/common/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type memoryDelegations struct {
	settings []DelegateSetting
}

func (r *memoryDelegations) Create(_ context.Context, s *DelegateSetting) error {
	s.ID = primitive.NewObjectID()
	r.settings = append(r.settings, *s)
	return nil
}

func (r *memoryDelegations) ListByUser(_ context.Context, userID string) ([]DelegateSetting, error) {
	out := []DelegateSetting{}
	for _, s := range r.settings {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryDelegations) ActiveAt(_ context.Context, userID string, t time.Time) ([]DelegateSetting, error) {
	out := []DelegateSetting{}
	for _, s := range r.settings {
		if s.UserID == userID && s.CoversAt(t) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryDelegations) ActiveFor(_ context.Context, delegateID string, t time.Time) ([]DelegateSetting, error) {
	out := []DelegateSetting{}
	for _, s := range r.settings {
		if s.DelegateToID == delegateID && s.CoversAt(t) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryDelegations) Deactivate(_ context.Context, id, userID string) error {
	for i := range r.settings {
		if r.settings[i].ID.Hex() == id && r.settings[i].UserID == userID {
			r.settings[i].IsActive = false
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestService() (*DelegationServiceImpl, *memoryDelegations) {
	repo := &memoryDelegations{}
	return &DelegationServiceImpl{Repo: repo, Logger: zap.NewNop(), Now: func() time.Time { return now }}, repo
}

func window(user, delegate string, from, to time.Time) *DelegateSetting {
	return &DelegateSetting{UserID: user, DelegateToID: delegate, DelegateName: delegate, StartDate: from, EndDate: to}
}

func TestCreateValidatesWindow(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	tests := []struct {
		name    string
		setting *DelegateSetting
	}{
		{"self delegation", window("mgr", "mgr", now, now.Add(time.Hour))},
		{"missing delegate", window("mgr", "", now, now.Add(time.Hour))},
		{"end before start", window("mgr", "dep", now, now.Add(-time.Hour))},
		{"already over", window("mgr", "dep", now.Add(-48*time.Hour), now.Add(-24*time.Hour))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, apperrors.IsValidation(svc.Create(ctx, tt.setting)))
		})
	}
}

func TestCreateRejectsOverlap(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, window("mgr", "dep", now, now.Add(72*time.Hour))))
	err := svc.Create(ctx, window("mgr", "dep", now.Add(24*time.Hour), now.Add(96*time.Hour)))
	assert.True(t, apperrors.IsConflict(err))

	assert.NoError(t, svc.Create(ctx, window("mgr", "other", now.Add(24*time.Hour), now.Add(96*time.Hour))))
}

func TestIsDelegateOfHonoursWindowAndRevocation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	require.NoError(t, svc.Create(ctx, window("mgr", "dep", now, now.Add(24*time.Hour))))

	ok, err := svc.IsDelegateOf(ctx, "dep", "mgr", now.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = svc.IsDelegateOf(ctx, "dep", "mgr", now.Add(25*time.Hour))
	assert.False(t, ok)

	ok, _ = svc.IsDelegateOf(ctx, "someone", "mgr", now.Add(time.Hour))
	assert.False(t, ok)

	users, err := svc.DelegatorsOf(ctx, "dep", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"mgr"}, users)

	require.NoError(t, svc.Revoke(ctx, repo.settings[0].ID.Hex(), "mgr"))
	ok, _ = svc.IsDelegateOf(ctx, "dep", "mgr", now.Add(time.Hour))
	assert.False(t, ok)

	assert.True(t, apperrors.IsNotFound(svc.Revoke(ctx, primitive.NewObjectID().Hex(), "mgr")))
}
