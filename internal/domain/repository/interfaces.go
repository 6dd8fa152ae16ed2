package repository

import (
	"context"

	"CycleScope/internal/domain/models"
)

// SnapshotPublisher emits computed results to downstream consumers.
type SnapshotPublisher interface {
	PublishDashboard(ctx context.Context, s models.DashboardSnapshot) error
	PublishScreener(ctx context.Context, kind string, payload interface{}) error
	Close() error
}

type Metrics interface {
	RecordIndicator(id string, seconds float64, err error)
	RecordSignal(id string, signal models.Signal, value float64)
	RecordFetch(source string, seconds float64, err error)
	RecordCache(tag string, hit bool)
	RecordError(kind string)
}
