package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"CycleScope/internal/domain/models"
	domrepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/domain/service"
	xhttp "CycleScope/pkg/http"
	xlogger "CycleScope/pkg/logger"
	"CycleScope/pkg/util"
)

// IndicatorSet is the ordered indicator list the dashboard runs.
type IndicatorSet interface {
	All() []service.Indicator
	Get(id string) (service.Indicator, bool)
}

// DashboardUseCase computes every indicator against one BTC history.
type DashboardUseCase struct {
	prices           domrepo.BTCHistorySource
	indicators       IndicatorSet
	metrics          domrepo.Metrics
	log              *xlogger.Logger
	fetchTimeout     time.Duration
	indicatorTimeout time.Duration
	now              func() time.Time
}

func NewDashboardUseCase(prices domrepo.BTCHistorySource, indicators IndicatorSet, metrics domrepo.Metrics, log *xlogger.Logger, fetchTimeout, indicatorTimeout time.Duration) *DashboardUseCase {
	if log == nil {
		log = xlogger.Nop()
	}
	return &DashboardUseCase{
		prices:           prices,
		indicators:       indicators,
		metrics:          metrics,
		log:              log,
		fetchTimeout:     fetchTimeout,
		indicatorTimeout: indicatorTimeout,
		now:              time.Now,
	}
}

// Compute runs every indicator concurrently. A failing, panicking or slow indicator yields
// its empty result and an entry in Errors; the others are unaffected.
func (uc *DashboardUseCase) Compute(ctx context.Context) (*models.Dashboard, error) {
	if uc.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.fetchTimeout)
		defer cancel()
	}

	list := uc.indicators.All()
	res := &models.Dashboard{
		Results:     make([]models.IndicatorResult, len(list)),
		Errors:      map[string]string{},
		GeneratedAt: uc.now().UTC(),
	}

	prices, err := uc.prices.BTCHistory(ctx)
	if err == nil && len(prices) == 0 {
		err = errors.New("empty history")
	}
	if err != nil {
		uc.log.Error("btc history unavailable", xlogger.Error(err))
		uc.recordError(domrepo.SourceBTC)
		res.Errors[domrepo.SourceBTC] = err.Error()
		for i, ind := range list {
			res.Results[i] = emptyResult(ind)
		}
		res.LastUpdated = util.DateOf(res.GeneratedAt.Unix())
		return res, nil
	}
	res.LastUpdated = prices[len(prices)-1].Date

	type item struct {
		idx int
		val models.IndicatorResult
		err error
	}
	ch := make(chan item, len(list))
	for i, ind := range list {
		go func(i int, ind service.Indicator) {
			v, err := uc.run(ctx, ind, prices)
			ch <- item{i, v, err}
		}(i, ind)
	}

	for range list {
		it := <-ch
		res.Results[it.idx] = it.val
		if it.err != nil {
			res.Errors[list[it.idx].ID()] = it.err.Error()
		}
	}

	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

// Indicator computes a single indicator by id.
func (uc *DashboardUseCase) Indicator(ctx context.Context, id string) (models.IndicatorResult, error) {
	ind, ok := uc.indicators.Get(id)
	if !ok {
		return models.IndicatorResult{}, xhttp.NotFoundErrorf("indicator %q not found", id)
	}
	if uc.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.fetchTimeout)
		defer cancel()
	}

	prices, err := uc.prices.BTCHistory(ctx)
	if err == nil && len(prices) == 0 {
		err = errors.New("empty history")
	}
	if err != nil {
		uc.recordError(domrepo.SourceBTC)
		return models.IndicatorResult{}, xhttp.UpstreamError(domrepo.SourceBTC, err)
	}

	res, err := uc.run(ctx, ind, prices)
	if err != nil {
		uc.log.Warn("indicator degraded", xlogger.String("indicator", id), xlogger.Error(err))
	}
	return res, nil
}

// run calculates one indicator under the per-indicator timeout and converts panics into errors.
func (uc *DashboardUseCase) run(ctx context.Context, ind service.Indicator, prices []models.DailyPrice) (models.IndicatorResult, error) {
	start := time.Now()
	if uc.indicatorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.indicatorTimeout)
		defer cancel()
	}

	type outcome struct {
		val models.IndicatorResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := ind.Calculate(ctx, prices)
		done <- outcome{v, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out.err = fmt.Errorf("timed out: %w", ctx.Err())
	}
	if out.err != nil && out.val.ID == "" {
		out.val = emptyResult(ind)
	}

	if uc.metrics != nil {
		uc.metrics.RecordIndicator(ind.ID(), time.Since(start).Seconds(), out.err)
		uc.metrics.RecordSignal(ind.ID(), out.val.Signal, out.val.CurrentValue)
	}
	if out.err != nil {
		uc.log.Warn("indicator failed", xlogger.String("indicator", ind.ID()), xlogger.Error(out.err))
	} else {
		uc.log.Debug("indicator computed",
			xlogger.String("indicator", ind.ID()),
			xlogger.String("signal", string(out.val.Signal)),
			xlogger.Float64("value", out.val.CurrentValue),
			xlogger.Duration("elapsed_ms", time.Since(start)),
		)
	}
	return out.val, out.err
}

func emptyResult(ind service.Indicator) models.IndicatorResult {
	return models.EmptyResult(ind.ID(), ind.Name(), ind.Description())
}

func (uc *DashboardUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}
