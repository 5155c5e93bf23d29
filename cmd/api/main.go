package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-hr/internal/common/api"
	"go-hr/internal/config"
	"go-hr/internal/database"
	"go-hr/internal/features/audit"
	"go-hr/internal/features/auth"
	"go-hr/internal/features/delegation"
	"go-hr/internal/features/escalation"
	"go-hr/internal/features/flow"
	"go-hr/internal/features/notification"
	"go-hr/internal/features/organization"
	"go-hr/internal/features/replication"
	"go-hr/internal/features/request"
	"go-hr/internal/logger"
	"go-hr/internal/metrics"
	"go-hr/internal/middleware"
	"go-hr/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer(cfg *config.Config, db *database.MongodbDB) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	app.Use(metrics.PrometheusMiddleware())

	app.Get("/metrics", metrics.Handler())
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := db.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "mongo": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),    // Cast to Interface
		fx.ResultTags(`group:"routes"`), // Add to Group
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route, logger *zap.Logger) {
	logger.Info("Registering routes", zap.Int("count", len(routes)))
	for _, route := range routes {
		logger.Debug("Setting up route", zap.String("api", fmt.Sprintf("%T", route)))
		route.Setup(app)
	}
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`, ``),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				logger.Info("HTTP server listening", zap.String("addr", port))
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(lc fx.Lifecycle, members organization.MemberRepository, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := members.EnsureIndexes(ctx); err != nil {
					logger.Warn("Failed to ensure member indexes", zap.Error(err))
				}
			}()
			return nil
		},
	})
}

// RegisterEscalationScheduler runs the overdue sweep for the lifetime of the app.
func RegisterEscalationScheduler(lc fx.Lifecycle, scheduler escalation.SchedulerService) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.InitializeScheduler(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.StopScheduler()
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repository
			organization.NewMemberRepository,
			flow.NewFlowRepository,
			request.NewRequestRepository,
			delegation.NewDelegationRepository,
			notification.NewNotificationRepository,
			audit.NewAuditRepository,
			escalation.NewRunRepository,

			// Initialize Services
			organization.NewDirectory,
			organization.NewOrganizationService,
			flow.NewResolver,
			flow.NewFlowService,
			delegation.NewDelegationService,
			notification.NewNotificationService,
			notification.NewNotifier,
			audit.NewAuditService,
			replication.NewEventBus,
			replication.NewHub,
			request.NewRequestService,
			escalation.NewSchedulerService,
			auth.NewAuthService,

			// Initialize Controllers
			organization.NewOrganizationController,
			flow.NewFlowController,
			request.NewRequestController,
			delegation.NewDelegationController,
			notification.NewNotificationController,
			audit.NewAuditController,
			escalation.NewEscalationController,
			replication.NewWebSocketController,
			auth.NewAuthController,

			// Register APIs
			AsRoute(organization.NewOrganizationApi),
			AsRoute(flow.NewFlowApi),
			AsRoute(request.NewRequestApi),
			AsRoute(delegation.NewDelegationApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(escalation.NewEscalationApi),
			AsRoute(replication.NewWebSocketApi),
			AsRoute(auth.NewAuthApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) { utils.SetSecret(cfg.JWTSecret) },
			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,
			replication.RegisterHub,
			replication.RegisterOutcomeLog,
			RegisterEscalationScheduler,
			InitializeIndexes,
		),
	)

	app.Run()
}
