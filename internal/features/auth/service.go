package auth

import (
	"context"
	"time"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/common/models"
	"go-hr/internal/features/organization"
	"go-hr/pkg/utils"

	"go.uber.org/zap"
)

const (
	DefaultTokenTTL = 12 * time.Hour
	MaxTokenTTL     = 30 * 24 * time.Hour
)

type TokenResponse struct {
	Token     string    `json:"token"`
	MemberID  string    `json:"member_id"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AuthService interface {
	// IssueToken signs a token carrying the member's directory roles.
	IssueToken(ctx context.Context, memberID string, ttl time.Duration) (*TokenResponse, error)
	Me(ctx context.Context, actor models.Actor) (*models.Member, error)
}

type AuthServiceImpl struct {
	Directory organization.Directory
	Logger    *zap.Logger
	Now       func() time.Time
}

func NewAuthService(directory organization.Directory, logger *zap.Logger) AuthService {
	return &AuthServiceImpl{Directory: directory, Logger: logger, Now: time.Now}
}

func (s *AuthServiceImpl) IssueToken(ctx context.Context, memberID string, ttl time.Duration) (*TokenResponse, error) {
	if memberID == "" {
		return nil, apperrors.Validation("member_id is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	if ttl > MaxTokenTTL {
		return nil, apperrors.Validation("token lifetime may not exceed %s", MaxTokenTTL)
	}

	member, err := s.Directory.FindMemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.NotFound("member", memberID)
	}
	if member.Status == models.MemberStatusInactive {
		return nil, apperrors.Validation("member %s is inactive", memberID)
	}

	token, err := utils.GenerateToken(member.ID, member.Name, member.Roles, ttl)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("Token issued", zap.String("member_id", member.ID), zap.Duration("ttl", ttl))
	return &TokenResponse{
		Token:     token,
		MemberID:  member.ID,
		Roles:     member.Roles,
		ExpiresAt: s.Now().Add(ttl),
	}, nil
}

// Me returns the directory record of actor, or a synthetic one for actors the directory
// does not know, such as the development admin.
func (s *AuthServiceImpl) Me(ctx context.Context, actor models.Actor) (*models.Member, error) {
	member, err := s.Directory.FindMemberByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return &models.Member{ID: actor.ID, Name: actor.Name, Roles: actor.Roles, Status: models.MemberStatusActive}, nil
	}
	return member, nil
}
