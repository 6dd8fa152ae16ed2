package service

import (
	"context"

	"CycleScope/internal/domain/models"
)

// Indicator derives a signal, chart payload and backtest table from BTC daily history,
// fetching any auxiliary series it needs. On upstream failure it returns a renderable
// empty result together with the error. Description labels that empty result when the
// caller has to build it.
type Indicator interface {
	ID() string
	Name() string
	Description() string
	Calculate(ctx context.Context, prices []models.DailyPrice) (models.IndicatorResult, error)
}
