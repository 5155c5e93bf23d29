package organization

import (
	"context"
	"fmt"
	"io"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/common/models"

	"go.uber.org/zap"
)

type ImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

type OrganizationService interface {
	GetMember(ctx context.Context, id string) (*models.Member, error)
	ListMembers(ctx context.Context, filter models.MemberFilter) ([]models.Member, error)
	SaveMember(ctx context.Context, member *models.Member) error
	DeleteMember(ctx context.Context, id string) error
	ReportingChain(ctx context.Context, id string, depth int) ([]models.Member, error)
	ImportMembers(ctx context.Context, file io.Reader) (*ImportResult, error)
}

type OrganizationServiceImpl struct {
	Repo   MemberRepository
	Logger *zap.Logger
}

func NewOrganizationService(repo MemberRepository, logger *zap.Logger) OrganizationService {
	return &OrganizationServiceImpl{Repo: repo, Logger: logger}
}

func (s *OrganizationServiceImpl) GetMember(ctx context.Context, id string) (*models.Member, error) {
	member, err := s.Repo.FindMemberByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, apperrors.NotFound("member", id)
	}
	return member, nil
}

func (s *OrganizationServiceImpl) ListMembers(ctx context.Context, filter models.MemberFilter) ([]models.Member, error) {
	return s.Repo.GetFilteredMembers(ctx, filter)
}

// SaveMember creates or replaces a member. A manager assignment that would close a
// reporting loop is refused.
func (s *OrganizationServiceImpl) SaveMember(ctx context.Context, member *models.Member) error {
	if member.ID == "" || member.Name == "" {
		return apperrors.Validation("member id and name are required")
	}
	if member.Status == "" {
		member.Status = models.MemberStatusActive
	}
	if member.ManagerID != nil {
		if *member.ManagerID == "" {
			member.ManagerID = nil
		} else if err := s.checkManagerCycle(ctx, member.ID, *member.ManagerID); err != nil {
			return err
		}
	}
	if err := s.Repo.Upsert(ctx, member); err != nil {
		return apperrors.Persistence(err, "failed to save member %s", member.ID)
	}
	return nil
}

func (s *OrganizationServiceImpl) checkManagerCycle(ctx context.Context, memberID, managerID string) error {
	seen := map[string]bool{memberID: true}
	current := managerID
	for current != "" {
		if seen[current] {
			return apperrors.Validation("assigning manager %s to %s creates a reporting cycle", managerID, memberID)
		}
		seen[current] = true
		m, err := s.Repo.FindMemberByID(ctx, current)
		if err != nil {
			return err
		}
		if m == nil || m.ManagerID == nil {
			return nil
		}
		current = *m.ManagerID
	}
	return nil
}

func (s *OrganizationServiceImpl) DeleteMember(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

// ReportingChain returns up to depth managers above id, nearest first.
func (s *OrganizationServiceImpl) ReportingChain(ctx context.Context, id string, depth int) ([]models.Member, error) {
	chain := []models.Member{}
	seen := map[string]bool{id: true}
	current := id
	for i := 0; i < depth; i++ {
		mgr, err := s.Repo.GetManagerOf(ctx, current)
		if err != nil {
			return nil, err
		}
		if mgr == nil || seen[mgr.ID] {
			break
		}
		seen[mgr.ID] = true
		chain = append(chain, *mgr)
		current = mgr.ID
	}
	return chain, nil
}

func (s *OrganizationServiceImpl) ImportMembers(ctx context.Context, file io.Reader) (*ImportResult, error) {
	members, err := ParseMembersExcel(file)
	if err != nil {
		return nil, apperrors.Validation("%v", err)
	}

	result := &ImportResult{}
	// Managers may appear after their reports, so insert everyone before checking links.
	for i := range members {
		if err := s.Repo.Upsert(ctx, &members[i]); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", members[i].ID, err))
			continue
		}
		result.Imported++
	}
	for _, m := range members {
		if m.ManagerID == nil {
			continue
		}
		if err := s.checkManagerCycle(ctx, m.ID, *m.ManagerID); err != nil {
			result.Errors = append(result.Errors, err.Error())
		}
	}

	s.Logger.Info("Imported org chart",
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed),
		zap.Int("warnings", len(result.Errors)-result.Failed))
	return result, nil
}
