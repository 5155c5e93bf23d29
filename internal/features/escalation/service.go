package escalation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go-hr/internal/common/apperrors"
	"go-hr/internal/config"
	"go-hr/internal/features/request"
	"go-hr/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Sweeper escalates overdue requests.
type Sweeper interface {
	CheckAndEscalate(ctx context.Context, now time.Time) (int, error)
}

type SchedulerService interface {
	InitializeScheduler(ctx context.Context) error
	StopScheduler() error
	// RunNow performs one sweep immediately. It fails with a conflict while another sweep runs.
	RunNow(ctx context.Context, trigger Trigger) (*SweepRun, error)
	ListRuns(ctx context.Context, limit int64) ([]SweepRun, error)
	Status(ctx context.Context) (*Status, error)
}

type SchedulerServiceImpl struct {
	repo     RunRepository
	sweeper  Sweeper
	schedule string
	logger   *zap.Logger
	now      func() time.Time

	mu        sync.Mutex
	scheduler *cron.Cron
	entryID   cron.EntryID
	running   sync.Mutex
}

func NewSchedulerService(repo RunRepository, requests request.RequestService, cfg *config.Config, logger *zap.Logger) SchedulerService {
	return newScheduler(repo, requests, cfg.EscalationSchedule, logger)
}

func newScheduler(repo RunRepository, sweeper Sweeper, schedule string, logger *zap.Logger) *SchedulerServiceImpl {
	return &SchedulerServiceImpl{
		repo:     repo,
		sweeper:  sweeper,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// cronLogger routes robfig/cron diagnostics to zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

func (s *SchedulerServiceImpl) InitializeScheduler(ctx context.Context) error {
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid escalation schedule %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := cronLogger{sugar: s.logger.Sugar()}
	s.scheduler = cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	entryID, err := s.scheduler.AddFunc(s.schedule, func() {
		if _, err := s.RunNow(context.Background(), TriggerSchedule); err != nil && !apperrors.IsConflict(err) {
			s.logger.Error("Scheduled escalation sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register escalation sweep: %w", err)
	}
	s.entryID = entryID
	s.scheduler.Start()

	s.logger.Info("Escalation scheduler started", zap.String("schedule", s.schedule))
	return nil
}

func (s *SchedulerServiceImpl) StopScheduler() error {
	s.mu.Lock()
	scheduler := s.scheduler
	s.scheduler = nil
	s.mu.Unlock()

	if scheduler != nil {
		ctx := scheduler.Stop()
		<-ctx.Done()
		s.logger.Info("Escalation scheduler stopped")
	}
	return nil
}

func (s *SchedulerServiceImpl) RunNow(ctx context.Context, trigger Trigger) (*SweepRun, error) {
	if !s.running.TryLock() {
		return nil, apperrors.Conflict("an escalation sweep is already running")
	}
	defer s.running.Unlock()

	run := &SweepRun{
		ID:        primitive.NewObjectID(),
		Trigger:   trigger,
		StartedAt: s.now(),
	}
	escalated, err := s.sweeper.CheckAndEscalate(ctx, run.StartedAt)
	run.FinishedAt = s.now()
	run.Escalated = escalated
	if err != nil {
		run.Error = err.Error()
	}
	metrics.EscalationSweepDuration.Observe(run.FinishedAt.Sub(run.StartedAt).Seconds())

	if saveErr := s.repo.Create(ctx, run); saveErr != nil {
		s.logger.Warn("Failed to record escalation run", zap.Error(saveErr))
	}

	fields := []zap.Field{
		zap.String("trigger", string(trigger)),
		zap.Int("escalated", escalated),
		zap.Duration("took", run.FinishedAt.Sub(run.StartedAt)),
	}
	if err != nil {
		s.logger.Error("Escalation sweep finished with errors", append(fields, zap.Error(err))...)
		return run, err
	}
	s.logger.Info("Escalation sweep finished", fields...)
	return run, nil
}

func (s *SchedulerServiceImpl) ListRuns(ctx context.Context, limit int64) ([]SweepRun, error) {
	return s.repo.ListRecent(ctx, limit)
}

func (s *SchedulerServiceImpl) Status(ctx context.Context) (*Status, error) {
	status := &Status{Schedule: s.schedule}

	s.mu.Lock()
	if s.scheduler != nil {
		status.Running = true
		if next := s.scheduler.Entry(s.entryID).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	s.mu.Unlock()

	runs, err := s.repo.ListRecent(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) > 0 {
		status.LastRun = &runs[0]
	}
	return status, nil
}
