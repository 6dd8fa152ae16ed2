package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"CycleScope/internal/domain/models"
	drepo "CycleScope/internal/domain/repository"
	"CycleScope/pkg/cache"
	xlogger "CycleScope/pkg/logger"
)

// sharedFetchTimeout bounds an upstream call that outlives the caller who started it.
const sharedFetchTimeout = 2 * time.Minute

// CachedMarketData decorates upstream sources with a TTL cache keyed by source tag.
// Concurrent misses on the same key share one upstream call, which runs detached from
// any single caller's deadline.
type CachedMarketData struct {
	market       drepo.MarketData
	screener     drepo.ScreenerData
	cache        cache.Service
	ttl          time.Duration
	fetchTimeout time.Duration
	metrics      drepo.Metrics
	logger       *xlogger.Logger
	group        singleflight.Group
}

var (
	_ drepo.MarketData   = (*CachedMarketData)(nil)
	_ drepo.ScreenerData = (*CachedMarketData)(nil)
	_ drepo.Invalidator  = (*CachedMarketData)(nil)
)

// NewCachedMarketData wraps market and screener with c.
func NewCachedMarketData(market drepo.MarketData, screener drepo.ScreenerData, c cache.Service, ttl time.Duration, metrics drepo.Metrics, logger *xlogger.Logger) *CachedMarketData {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &CachedMarketData{
		market:       market,
		screener:     screener,
		cache:        c,
		ttl:          ttl,
		fetchTimeout: sharedFetchTimeout,
		metrics:      metrics,
		logger:       logger,
	}
}

func cachedFetch[T any](ctx context.Context, r *CachedMarketData, tag, name string, fetch func(context.Context) (T, error)) (T, error) {
	key := cache.TagKey(tag, name)

	v, err := cache.GetTyped[T](ctx, r.cache, key)
	if err == nil {
		r.recordCache(tag, true)
		return v, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		r.logger.Warn("cache read failed", xlogger.String("key", key), xlogger.Error(err))
	}
	r.recordCache(tag, false)

	ch := r.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.fetchTimeout)
		defer cancel()

		fresh, err := fetch(fctx)
		if err != nil {
			return fresh, err
		}
		if err := r.cache.Set(fctx, key, fresh, r.ttl); err != nil {
			r.logger.Warn("cache write failed", xlogger.String("key", key), xlogger.Error(err))
		}
		return fresh, nil
	})

	select {
	case res := <-ch:
		out, _ := res.Val.(T)
		return out, res.Err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (r *CachedMarketData) recordCache(tag string, hit bool) {
	if r.metrics != nil {
		r.metrics.RecordCache(tag, hit)
	}
}

func (r *CachedMarketData) BTCHistory(ctx context.Context) ([]models.DailyPrice, error) {
	return cachedFetch(ctx, r, drepo.SourceBTC, "history", r.market.BTCHistory)
}

func (r *CachedMarketData) StablecoinSupply(ctx context.Context) ([]models.SeriesPoint, error) {
	return cachedFetch(ctx, r, drepo.SourceStablecoin, "supply", r.market.StablecoinSupply)
}

func (r *CachedMarketData) BinanceCloses(ctx context.Context, days int) ([]models.SeriesPoint, error) {
	return cachedFetch(ctx, r, drepo.SourceExchange, "binance:"+strconv.Itoa(days), func(ctx context.Context) ([]models.SeriesPoint, error) {
		return r.market.BinanceCloses(ctx, days)
	})
}

func (r *CachedMarketData) CoinbaseCloses(ctx context.Context, days int) ([]models.SeriesPoint, error) {
	return cachedFetch(ctx, r, drepo.SourceExchange, "coinbase:"+strconv.Itoa(days), func(ctx context.Context) ([]models.SeriesPoint, error) {
		return r.market.CoinbaseCloses(ctx, days)
	})
}

func (r *CachedMarketData) BitfinexLongs(ctx context.Context, days int) ([]models.SeriesPoint, error) {
	return cachedFetch(ctx, r, drepo.SourceBitfinex, "longs:"+strconv.Itoa(days), func(ctx context.Context) ([]models.SeriesPoint, error) {
		return r.market.BitfinexLongs(ctx, days)
	})
}

func (r *CachedMarketData) DVOLHistory(ctx context.Context, days int) ([]models.SeriesPoint, error) {
	return cachedFetch(ctx, r, drepo.SourceDeribit, "dvol:"+strconv.Itoa(days), func(ctx context.Context) ([]models.SeriesPoint, error) {
		return r.market.DVOLHistory(ctx, days)
	})
}

func (r *CachedMarketData) OptionsSummary(ctx context.Context) (models.OptionsSummary, error) {
	return cachedFetch(ctx, r, drepo.SourceDeribit, "summary", r.market.OptionsSummary)
}

func (r *CachedMarketData) MiningCost(ctx context.Context) ([]models.MiningPoint, error) {
	return cachedFetch(ctx, r, drepo.SourceMining, "cost", r.market.MiningCost)
}

func (r *CachedMarketData) RealizedPrice(ctx context.Context) ([]models.SeriesPoint, error) {
	return cachedFetch(ctx, r, drepo.SourceRealized, "price", r.market.RealizedPrice)
}

func (r *CachedMarketData) AltcoinSnapshot(ctx context.Context) (models.AltcoinSnapshot, error) {
	return cachedFetch(ctx, r, drepo.SourceAltcoin, "snapshot", r.screener.AltcoinSnapshot)
}

func (r *CachedMarketData) KoreanSnapshot(ctx context.Context) (models.KoreanSnapshot, error) {
	return cachedFetch(ctx, r, drepo.SourceKorean, "snapshot", r.screener.KoreanSnapshot)
}

// Invalidate drops every cached entry under tags, or under all tags when none are given.
func (r *CachedMarketData) Invalidate(ctx context.Context, tags ...string) error {
	if len(tags) == 0 {
		tags = drepo.AllSources
	}
	var errs []error
	for _, tag := range tags {
		if err := r.cache.DeleteByPattern(ctx, cache.TagPattern(tag)); err != nil {
			errs = append(errs, fmt.Errorf("invalidate %s: %w", tag, err))
			continue
		}
		r.logger.Debug("cache invalidated", xlogger.String("tag", tag))
	}
	return errors.Join(errs...)
}
