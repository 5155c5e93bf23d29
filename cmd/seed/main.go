package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"go-hr/internal/common/models"
	"go-hr/internal/config"
	"go-hr/internal/database"
	"go-hr/internal/features/flow"
	"go-hr/internal/features/organization"
	"go-hr/internal/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

type seedOptions struct {
	MembersPath string
	FlowsPath   string
	Workbook    string
}

// Seed loads the reporting hierarchy and the default approval flows.
func Seed(
	lc fx.Lifecycle,
	opts seedOptions,
	orgService organization.OrganizationService,
	flowService flow.FlowService,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()
				ctx := context.Background()

				logger.Info("Starting seed")

				readJSON := func(path string, v interface{}) error {
					b, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					return json.Unmarshal(b, v)
				}

				// 1. Members, managers first so the cycle check can resolve links
				var members []models.Member
				if err := readJSON(opts.MembersPath, &members); err != nil {
					logger.Warn("Failed to read members, skipping", zap.String("path", opts.MembersPath), zap.Error(err))
				}
				saved := 0
				for i := range members {
					if err := orgService.SaveMember(ctx, &members[i]); err != nil {
						logger.Error("Failed to save member", zap.String("member_id", members[i].ID), zap.Error(err))
						continue
					}
					saved++
				}
				logger.Info("Members seeded", zap.Int("count", saved))

				// 2. Optional HRIS workbook export
				if opts.Workbook != "" {
					f, err := os.Open(opts.Workbook)
					if err != nil {
						logger.Error("Failed to open workbook", zap.String("path", opts.Workbook), zap.Error(err))
					} else {
						result, err := orgService.ImportMembers(ctx, f)
						f.Close()
						if err != nil {
							logger.Error("Workbook import failed", zap.Error(err))
						} else {
							logger.Info("Workbook imported",
								zap.Int("imported", result.Imported),
								zap.Int("failed", result.Failed),
								zap.Strings("errors", result.Errors))
						}
					}
				}

				// 3. Flows, skipping names already present in a category
				var flows []flow.ApprovalFlowDefinition
				if err := readJSON(opts.FlowsPath, &flows); err != nil {
					logger.Warn("Failed to read flows, skipping", zap.String("path", opts.FlowsPath), zap.Error(err))
				}
				for i := range flows {
					def := &flows[i]
					existing, err := flowService.ListFlows(ctx, def.Category)
					if err != nil {
						logger.Error("Failed to list flows", zap.String("category", def.Category), zap.Error(err))
						continue
					}
					if containsFlow(existing, def.Name) {
						logger.Info("Flow exists, skipping", zap.String("flow", def.Name))
						continue
					}
					if err := flowService.CreateFlow(ctx, def); err != nil {
						logger.Error("Failed to create flow", zap.String("flow", def.Name), zap.Error(err))
						continue
					}
					logger.Info("Flow created", zap.String("flow", def.Name), zap.String("category", def.Category))
				}

				logger.Info("Seed complete")
			}()
			return nil
		},
	})
}

func containsFlow(flows []flow.ApprovalFlowDefinition, name string) bool {
	for _, f := range flows {
		if f.Name == name {
			return true
		}
	}
	return false
}

func main() {
	opts := seedOptions{}
	flag.StringVar(&opts.MembersPath, "members", "cmd/seed/data/members.json", "members JSON file")
	flag.StringVar(&opts.FlowsPath, "flows", "cmd/seed/data/flows.json", "approval flows JSON file")
	flag.StringVar(&opts.Workbook, "xlsx", "", "optional HRIS export (.xlsx) to import after the JSON members")
	flag.Parse()

	app := fx.New(
		fx.Supply(opts),
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			organization.NewMemberRepository,
			organization.NewDirectory,
			organization.NewOrganizationService,
			flow.NewFlowRepository,
			flow.NewResolver,
			flow.NewFlowService,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}

	<-app.Done()
}
