package organization

import (
	"go-hr/internal/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewDirectory picks the member source the approval engine reads the hierarchy from.
func NewDirectory(lc fx.Lifecycle, cfg *config.Config, repo MemberRepository, logger *zap.Logger) (Directory, error) {
	switch cfg.DirectorySource {
	case "postgres":
		logger.Info("Using HRIS Postgres directory")
		return NewSQLDirectory(lc, cfg)
	default:
		return repo, nil
	}
}
