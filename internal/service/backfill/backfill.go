// Package backfill periodically completes cascades that were cut short:
// trigger records persisted without their side effects (the eventual
// consistency gap) are re-run through the idempotent cascade engine.
package backfill

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/livestock/internal/domain/models"
	"github.com/mamadbah2/livestock/internal/metrics"
)

const sweepBatchSize = 100

// RecordSource lists trigger records whose cascade marker is still unset.
type RecordSource interface {
	UnappliedHealth(ctx context.Context, olderThan time.Time, limit int64) ([]models.HealthRecord, error)
	UnappliedMortality(ctx context.Context, olderThan time.Time, limit int64) ([]models.MortalityRecord, error)
	UnappliedInventoryLoss(ctx context.Context, olderThan time.Time, limit int64) ([]models.InventoryLossRecord, error)
	UnappliedWeight(ctx context.Context, olderThan time.Time, limit int64) ([]models.WeightRecord, error)
}

// Applier re-runs cascades. Satisfied by the cascade engine.
type Applier interface {
	ApplyHealth(ctx context.Context, rec *models.HealthRecord) error
	ApplyMortality(ctx context.Context, rec *models.MortalityRecord) error
	ApplyInventoryLoss(ctx context.Context, rec *models.InventoryLossRecord) error
	ApplyWeight(ctx context.Context, rec *models.WeightRecord) error
}

// Summary reports one sweep's outcome.
type Summary struct {
	Repaired map[string]int `json:"repaired"`
	Failed   int            `json:"failed"`
}

// Total returns the number of records repaired across all trigger types.
func (s Summary) Total() int {
	total := 0
	for _, n := range s.Repaired {
		total += n
	}
	return total
}

// Service drives the sweep.
type Service struct {
	records RecordSource
	engine  Applier
	grace   time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a backfill service. Records younger than grace are left
// to their synchronous cascade.
func NewService(records RecordSource, engine Applier, grace time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{records: records, engine: engine, grace: grace, logger: logger, now: time.Now}
}

// Sweep re-applies cascades for every trigger type. Individual failures
// are counted and left for the next sweep; the sweep itself only errors
// when a listing query fails.
func (s *Service) Sweep(ctx context.Context) (Summary, error) {
	olderThan := s.now().UTC().Add(-s.grace)
	summary := Summary{Repaired: make(map[string]int)}

	health, err := s.records.UnappliedHealth(ctx, olderThan, sweepBatchSize)
	if err != nil {
		return summary, err
	}
	for i := range health {
		s.apply(ctx, models.TriggerHealth, &summary, func() error { return s.engine.ApplyHealth(ctx, &health[i]) })
	}

	mortality, err := s.records.UnappliedMortality(ctx, olderThan, sweepBatchSize)
	if err != nil {
		return summary, err
	}
	for i := range mortality {
		s.apply(ctx, models.TriggerMortality, &summary, func() error { return s.engine.ApplyMortality(ctx, &mortality[i]) })
	}

	losses, err := s.records.UnappliedInventoryLoss(ctx, olderThan, sweepBatchSize)
	if err != nil {
		return summary, err
	}
	for i := range losses {
		s.apply(ctx, models.TriggerInventoryLoss, &summary, func() error { return s.engine.ApplyInventoryLoss(ctx, &losses[i]) })
	}

	weights, err := s.records.UnappliedWeight(ctx, olderThan, sweepBatchSize)
	if err != nil {
		return summary, err
	}
	for i := range weights {
		s.apply(ctx, models.TriggerWeight, &summary, func() error { return s.engine.ApplyWeight(ctx, &weights[i]) })
	}

	if summary.Total() > 0 || summary.Failed > 0 {
		s.logger.Info("cascade backfill sweep finished",
			zap.Any("repaired", summary.Repaired),
			zap.Int("failed", summary.Failed))
	}

	return summary, nil
}

func (s *Service) apply(ctx context.Context, trigger models.TriggerType, summary *Summary, fn func() error) {
	if ctx.Err() != nil {
		return
	}
	if err := fn(); err != nil {
		summary.Failed++
		return
	}
	summary.Repaired[string(trigger)]++
	metrics.BackfillRepairs.WithLabelValues(string(trigger)).Inc()
}
