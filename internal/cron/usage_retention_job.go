package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/ykarpenko/solvebot-backend/pkg/clock"
	"github.com/ykarpenko/solvebot-backend/pkg/logger"
)

const defaultUsageRetentionDays = 90

// usageRetentionRepo is the slice of the quota repository the job needs.
type usageRetentionRepo interface {
	DeleteBefore(ctx context.Context, dayCutoff string) (int64, error)
}

// UsageRetentionJobParams configure the usage retention job.
type UsageRetentionJobParams struct {
	Logger    *logger.Logger
	Repo      usageRetentionRepo
	Clock     clock.Clock
	Retention int
}

// NewUsageRetentionJob prunes usage counter rows older than the retention
// window. Payments and referrals are never pruned; their rows are the
// idempotency and attribution boundaries.
func NewUsageRetentionJob(params UsageRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("quota repository required")
	}
	if params.Clock == nil {
		params.Clock = clock.System()
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultUsageRetentionDays
	}
	return &usageRetentionJob{
		logg:      params.Logger,
		repo:      params.Repo,
		clock:     params.Clock,
		retention: retention,
	}, nil
}

type usageRetentionJob struct {
	logg      *logger.Logger
	repo      usageRetentionRepo
	clock     clock.Clock
	retention int
}

func (j *usageRetentionJob) Name() string { return "usage-retention" }

func (j *usageRetentionJob) Run(ctx context.Context) error {
	cutoff := j.clock.Now().
		Add(-time.Duration(j.retention) * 24 * time.Hour).
		Format(clock.DayKeyFormat)
	deleted, err := j.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("usage retention: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff_day":     cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "usage retention cleanup complete")
	return nil
}
