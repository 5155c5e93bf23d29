package delegation

import (
	"context"
	"errors"
	"time"

	"go-hr/internal/common/apperrors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Lookup answers whether one member currently stands in for another.
type Lookup interface {
	IsDelegateOf(ctx context.Context, delegateID, userID string, at time.Time) (bool, error)
	DelegatorsOf(ctx context.Context, delegateID string, at time.Time) ([]string, error)
}

type DelegationService interface {
	Lookup
	Create(ctx context.Context, setting *DelegateSetting) error
	ListForUser(ctx context.Context, userID string) ([]DelegateSetting, error)
	Revoke(ctx context.Context, id, userID string) error
}

type DelegationServiceImpl struct {
	Repo   DelegationRepository
	Logger *zap.Logger
	Now    func() time.Time
}

func NewDelegationService(repo DelegationRepository, logger *zap.Logger) DelegationService {
	return &DelegationServiceImpl{Repo: repo, Logger: logger, Now: time.Now}
}

func (s *DelegationServiceImpl) Create(ctx context.Context, setting *DelegateSetting) error {
	if setting.UserID == "" || setting.DelegateToID == "" {
		return apperrors.Validation("user and delegate are required")
	}
	if setting.UserID == setting.DelegateToID {
		return apperrors.Validation("a member cannot delegate to themselves")
	}
	if setting.EndDate.Before(setting.StartDate) {
		return apperrors.Validation("delegation end date is before its start date")
	}
	if setting.EndDate.Before(s.Now()) {
		return apperrors.Validation("delegation window has already ended")
	}

	existing, err := s.Repo.ListByUser(ctx, setting.UserID)
	if err != nil {
		return err
	}
	for _, e := range existing {
		if e.IsActive && e.DelegateToID == setting.DelegateToID &&
			!setting.StartDate.After(e.EndDate) && !setting.EndDate.Before(e.StartDate) {
			return apperrors.Conflict("an overlapping delegation to %s already exists", setting.DelegateToID)
		}
	}

	setting.IsActive = true
	setting.CreatedAt = s.Now()
	if err := s.Repo.Create(ctx, setting); err != nil {
		return apperrors.Persistence(err, "failed to store delegation")
	}
	s.Logger.Info("Delegation created",
		zap.String("user_id", setting.UserID),
		zap.String("delegate_to_id", setting.DelegateToID),
		zap.Time("start", setting.StartDate),
		zap.Time("end", setting.EndDate))
	return nil
}

func (s *DelegationServiceImpl) ListForUser(ctx context.Context, userID string) ([]DelegateSetting, error) {
	return s.Repo.ListByUser(ctx, userID)
}

func (s *DelegationServiceImpl) Revoke(ctx context.Context, id, userID string) error {
	err := s.Repo.Deactivate(ctx, id, userID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.NotFound("delegation", id)
	}
	return err
}

func (s *DelegationServiceImpl) IsDelegateOf(ctx context.Context, delegateID, userID string, at time.Time) (bool, error) {
	settings, err := s.Repo.ActiveAt(ctx, userID, at)
	if err != nil {
		return false, err
	}
	for _, d := range settings {
		if d.DelegateToID == delegateID && d.CoversAt(at) {
			return true, nil
		}
	}
	return false, nil
}

func (s *DelegationServiceImpl) DelegatorsOf(ctx context.Context, delegateID string, at time.Time) ([]string, error) {
	settings, err := s.Repo.ActiveFor(ctx, delegateID, at)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	users := []string{}
	for _, d := range settings {
		if d.CoversAt(at) && !seen[d.UserID] {
			seen[d.UserID] = true
			users = append(users, d.UserID)
		}
	}
	return users, nil
}
