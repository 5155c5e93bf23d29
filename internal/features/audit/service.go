package audit

import (
	"context"
	"time"

	"go-hr/internal/common/apperrors"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Recorder is the audit sink used by the approval engine.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

type AuditService interface {
	Recorder
	ListLogs(ctx context.Context, q Query, page, limit int64) ([]AuditLog, error)
}

type AuditServiceImpl struct {
	Repo   AuditRepository
	Logger *zap.Logger
}

func NewAuditService(repo AuditRepository, logger *zap.Logger) AuditService {
	return &AuditServiceImpl{
		Repo:   repo,
		Logger: logger,
	}
}

func (s *AuditServiceImpl) Record(ctx context.Context, event Event) error {
	actorName := event.ActorName
	if actorName == "" {
		actorName = "System"
	}

	log := AuditLog{
		ID:        primitive.NewObjectID(),
		Action:    event.Action,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
		ActorName: actorName,
		Detail:    event.Detail,
		Timestamp: time.Now(),
	}

	s.Logger.Info("audit",
		zap.String("action", string(event.Action)),
		zap.String("request_id", event.RequestID),
		zap.String("actor_id", event.ActorID))

	return s.Repo.Create(ctx, log)
}

func (s *AuditServiceImpl) ListLogs(ctx context.Context, q Query, page, limit int64) ([]AuditLog, error) {
	if q.Since != nil && q.Until != nil && !q.Since.Before(*q.Until) {
		return nil, apperrors.Validation("since must be before until")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 10
	}
	offset := (page - 1) * limit
	logs, err := s.Repo.List(ctx, q, limit, offset)
	if err != nil {
		return nil, apperrors.Persistence(err, "failed to list audit logs")
	}
	return logs, nil
}
