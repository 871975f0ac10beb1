package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/metrics"
)

const (
	sessionPurgeJobName = "cart-session-purge"
	defaultPurgeBatch   = 500
)

type sessionPurger interface {
	PurgeIdle(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// SessionPurgeJobParams configure the idle cart purge.
type SessionPurgeJobParams struct {
	Logger  *logger.Logger
	Repo    sessionPurger
	Metrics *metrics.CronMetrics
	// IdleTTL matches the Redis key TTL so both backends expire carts alike.
	IdleTTL   time.Duration
	BatchSize int
}

func NewSessionPurgeJob(params SessionPurgeJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("session repository required")
	}
	if params.IdleTTL <= 0 {
		return nil, fmt.Errorf("idle ttl must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultPurgeBatch
	}
	return &sessionPurgeJob{
		logg:    params.Logger,
		repo:    params.Repo,
		metrics: params.Metrics,
		idleTTL: params.IdleTTL,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type sessionPurgeJob struct {
	logg    *logger.Logger
	repo    sessionPurger
	metrics *metrics.CronMetrics
	idleTTL time.Duration
	batch   int
	now     func() time.Time
}

func (j *sessionPurgeJob) Name() string { return sessionPurgeJobName }

// Run deletes batches until one comes back short.
func (j *sessionPurgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.idleTTL)
	var total int64
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		deleted, err := j.repo.PurgeIdle(ctx, cutoff, j.batch)
		if err != nil {
			return fmt.Errorf("purge idle sessions: %w", err)
		}
		total += deleted
		batches++
		j.metrics.AddPurged(deleted)
		if deleted < int64(j.batch) {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
		"batches":      batches,
	})
	j.logg.Info(logCtx, "cart_session.purged")
	return nil
}
