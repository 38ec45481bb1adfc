package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/config"
	"github.com/mamadbah2/livestock/internal/service/backfill"
	"github.com/mamadbah2/livestock/pkg/clients/webhook"
)

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron        *cron.Cron
	backfillSvc *backfill.Service
	notifier    webhook.Client
	cfg         config.Config
	logger      *zap.Logger
}

// NewScheduler creates a new scheduler instance. notifier may be nil when
// no ops webhook is configured.
func NewScheduler(cfg config.Config, backfillSvc *backfill.Service, notifier webhook.Client, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:        cron.New(),
		backfillSvc: backfillSvc,
		notifier:    notifier,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start registers and starts the periodic jobs.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", zap.String("backfill_schedule", s.cfg.Backfill.CronSchedule))

	_, err := s.cron.AddFunc(s.cfg.Backfill.CronSchedule, s.runBackfill)
	if err != nil {
		s.logger.Error("failed to schedule cascade backfill", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) runBackfill() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	summary, err := s.backfillSvc.Sweep(ctx)
	if err != nil {
		s.logger.Error("cascade backfill sweep failed", zap.Error(err))
		return
	}

	if summary.Total() == 0 || s.notifier == nil {
		return
	}

	if err := s.notifier.Notify(ctx, "cascade_backfill", summary); err != nil {
		s.logger.Warn("failed to notify ops webhook", zap.Error(err))
	}
}
