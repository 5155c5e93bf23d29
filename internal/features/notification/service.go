package notification

import (
	"context"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notifier is the delivery contract used by the approval engine.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

type NotificationService interface {
	Notifier
	List(ctx context.Context, actor models.Actor, q InboxQuery, page, limit int64) ([]Notification, int64, error)
	UnreadCount(ctx context.Context, actor models.Actor) (int64, error)
	MarkAsRead(ctx context.Context, actor models.Actor, id string) error
	MarkAllAsRead(ctx context.Context, actor models.Actor) (int64, error)
}

type NotificationServiceImpl struct {
	repo   NotificationRepository
	logger *zap.Logger
}

func NewNotificationService(repo NotificationRepository, logger *zap.Logger) NotificationService {
	return &NotificationServiceImpl{
		repo:   repo,
		logger: logger,
	}
}

func (s *NotificationServiceImpl) Notify(ctx context.Context, notice Notice) error {
	if notice.RecipientUserID == "" {
		return apperrors.Validation("notification has no recipient")
	}
	n := &Notification{
		RecipientUserID:  notice.RecipientUserID,
		Kind:             notice.Kind,
		Subject:          notice.Subject,
		Message:          notice.Message,
		RelatedRequestID: notice.RelatedRequestID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return apperrors.Persistence(err, "failed to store notification for %s", notice.RecipientUserID)
	}
	s.logger.Debug("Notification stored",
		zap.String("recipient", notice.RecipientUserID),
		zap.String("kind", string(notice.Kind)),
		zap.String("request_id", notice.RelatedRequestID))
	return nil
}

// recipients lists the inbox addresses of actor: its own ID and one per role.
func recipients(actor models.Actor) []string {
	out := []string{actor.ID}
	for _, r := range actor.Roles {
		out = append(out, RolePrefix+r)
	}
	return out
}

func (s *NotificationServiceImpl) List(ctx context.Context, actor models.Actor, q InboxQuery, page, limit int64) ([]Notification, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repo.GetByRecipients(ctx, recipients(actor), q, page, limit)
}

func (s *NotificationServiceImpl) UnreadCount(ctx context.Context, actor models.Actor) (int64, error) {
	return s.repo.GetUnreadCount(ctx, recipients(actor))
}

func (s *NotificationServiceImpl) MarkAsRead(ctx context.Context, actor models.Actor, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return apperrors.Validation("invalid notification id %q", id)
	}
	found, err := s.repo.MarkAsRead(ctx, objID, recipients(actor))
	if err != nil {
		return apperrors.Persistence(err, "failed to mark notification %s read", id)
	}
	if !found {
		return apperrors.NotFound("notification", id)
	}
	return nil
}

func (s *NotificationServiceImpl) MarkAllAsRead(ctx context.Context, actor models.Actor) (int64, error) {
	n, err := s.repo.MarkAllAsRead(ctx, recipients(actor))
	if err != nil {
		return 0, apperrors.Persistence(err, "failed to mark notifications read")
	}
	return n, nil
}
