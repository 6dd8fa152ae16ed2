package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	domrepo "CycleScope/internal/domain/repository"
	xlogger "CycleScope/pkg/logger"
)

const refreshLockKey = "refresh:lock"

// ErrRefreshInProgress is returned when another refresh holds the lock.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Locker is a TTL mutex shared across processes; pkg/cache.Service satisfies it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RefreshReport summarizes one refresh run.
type RefreshReport struct {
	Tags        []string          `json:"tags"`
	StartedAt   time.Time         `json:"startedAt"`
	DurationMs  int64             `json:"durationMs"`
	LastUpdated string            `json:"lastUpdated"`
	Published   int               `json:"published"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// RefreshUseCase drops cached upstream data, recomputes every view and publishes snapshots.
type RefreshUseCase struct {
	lock      Locker
	cache     domrepo.Invalidator
	dashboard *DashboardUseCase
	screeners *ScreenersUseCase
	publisher domrepo.SnapshotPublisher
	lockTTL   time.Duration
	log       *xlogger.Logger
	now       func() time.Time
}

func NewRefreshUseCase(lock Locker, cache domrepo.Invalidator, dashboard *DashboardUseCase, screeners *ScreenersUseCase, publisher domrepo.SnapshotPublisher, lockTTL time.Duration, log *xlogger.Logger) *RefreshUseCase {
	if log == nil {
		log = xlogger.Nop()
	}
	return &RefreshUseCase{
		lock:      lock,
		cache:     cache,
		dashboard: dashboard,
		screeners: screeners,
		publisher: publisher,
		lockTTL:   lockTTL,
		log:       log,
		now:       time.Now,
	}
}

// ValidateTags rejects unknown cache tags. An empty list means every tag.
func ValidateTags(tags []string) error {
	known := make(map[string]bool, len(domrepo.AllSources))
	for _, t := range domrepo.AllSources {
		known[t] = true
	}
	for _, t := range tags {
		if !known[t] {
			return fmt.Errorf("unknown tag %q", t)
		}
	}
	return nil
}

// Run refreshes the given tags (all when empty). Failures after invalidation are collected
// in the report; only lock, tag and invalidation failures abort the run.
func (uc *RefreshUseCase) Run(ctx context.Context, tags []string) (*RefreshReport, error) {
	if err := ValidateTags(tags); err != nil {
		return nil, err
	}

	ok, err := uc.lock.TryLock(ctx, refreshLockKey, uc.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire refresh lock: %w", err)
	}
	if !ok {
		return nil, ErrRefreshInProgress
	}
	defer func() {
		if err := uc.lock.Unlock(context.WithoutCancel(ctx), refreshLockKey); err != nil {
			uc.log.Warn("release refresh lock failed", xlogger.Error(err))
		}
	}()

	start := uc.now()
	report := &RefreshReport{Tags: tags, StartedAt: start.UTC(), Errors: map[string]string{}}
	if len(report.Tags) == 0 {
		report.Tags = domrepo.AllSources
	}

	if err := uc.cache.Invalidate(ctx, tags...); err != nil {
		return nil, fmt.Errorf("invalidate: %w", err)
	}

	dash, err := uc.dashboard.Compute(ctx)
	if err != nil {
		report.Errors["dashboard"] = err.Error()
	} else {
		report.LastUpdated = dash.LastUpdated
		for id, msg := range dash.Errors {
			report.Errors[id] = msg
		}
		uc.publish(report, "dashboard", func() error {
			return uc.publisher.PublishDashboard(ctx, dash.Snapshot())
		})
	}

	if alt, err := uc.screeners.Altcoins(ctx, "", 0); err != nil {
		report.Errors[domrepo.SourceAltcoin] = err.Error()
	} else {
		uc.publish(report, "altcoins", func() error {
			return uc.publisher.PublishScreener(ctx, "altcoins", alt)
		})
	}

	if kr, err := uc.screeners.Korean(ctx, "", 0); err != nil {
		report.Errors[domrepo.SourceKorean] = err.Error()
	} else {
		uc.publish(report, "korean", func() error {
			return uc.publisher.PublishScreener(ctx, "korean", kr)
		})
	}

	report.DurationMs = uc.now().Sub(start).Milliseconds()
	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	uc.log.Info("refresh completed",
		xlogger.Strings("tags", report.Tags),
		xlogger.Int("published", report.Published),
		xlogger.Int("errors", len(report.Errors)),
		xlogger.Int64("duration_ms", report.DurationMs),
	)
	return report, nil
}

func (uc *RefreshUseCase) publish(report *RefreshReport, kind string, send func() error) {
	if err := send(); err != nil {
		uc.log.Warn("snapshot publish failed", xlogger.String("kind", kind), xlogger.Error(err))
		report.Errors["publish:"+kind] = err.Error()
		return
	}
	report.Published++
}
