package marketdata

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"CycleScope/internal/domain/models"
	drepo "CycleScope/internal/domain/repository"
	xlogger "CycleScope/pkg/logger"
	"CycleScope/pkg/util"
)

const (
	binanceMaxLimit   = 1000
	coinbaseChunkDays = 300
)

// BinanceCloses returns daily BTCUSDT closes, at most 1000 days.
func (p *Provider) BinanceCloses(ctx context.Context, days int) ([]models.SeriesPoint, error) {
	if days <= 0 || days > binanceMaxLimit {
		days = binanceMaxLimit
	}

	var klines [][]interface{}
	if err := p.getJSON(ctx, request{
		source: drepo.SourceExchange,
		url:    p.endpoint(p.src.Sources.Binance, "/api/v3/klines"),
		query: map[string][]string{
			"symbol":   {"BTCUSDT"},
			"interval": {"1d"},
			"limit":    {strconv.Itoa(days)},
		},
	}, &klines); err != nil {
		return nil, err
	}

	out := make([]models.SeriesPoint, 0, len(klines))
	for _, k := range klines {
		if len(k) < 5 {
			continue
		}
		ts := int64(toFloat(k[0])) / 1000
		out = append(out, models.SeriesPoint{Timestamp: ts, Date: util.DateOf(ts), Value: toFloat(k[4])})
	}
	return out, nil
}

// CoinbaseCloses returns daily BTC-USD closes. Coinbase caps candles per call at 300,
// so the window is split into chunks fetched concurrently; a failed chunk is skipped.
func (p *Provider) CoinbaseCloses(ctx context.Context, days int) ([]models.SeriesPoint, error) {
	if days <= 0 {
		days = binanceMaxLimit
	}
	now := p.now().UTC()

	var windows [][2]time.Time
	for offset := 0; offset < days; offset += coinbaseChunkDays {
		end := now.AddDate(0, 0, -offset)
		windows = append(windows, [2]time.Time{end.AddDate(0, 0, -coinbaseChunkDays), end})
	}

	chunks := make([][]models.SeriesPoint, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range windows {
		i, w := i, w
		g.Go(func() error {
			pts, err := p.coinbaseChunk(gctx, w[0], w[1])
			if err != nil {
				p.logger.Warn("coinbase chunk failed",
					xlogger.String("start", w[0].Format(time.RFC3339)),
					xlogger.Error(err),
				)
				return nil
			}
			chunks[i] = pts
			return nil
		})
	}
	_ = g.Wait()

	var all []models.SeriesPoint
	for _, c := range chunks {
		all = append(all, c...)
	}
	if len(all) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return dedupeByDate(all), nil
}

func (p *Provider) coinbaseChunk(ctx context.Context, start, end time.Time) ([]models.SeriesPoint, error) {
	var candles [][]interface{}
	if err := p.getJSON(ctx, request{
		source: drepo.SourceExchange,
		url:    p.endpoint(p.src.Sources.Coinbase, "/products/BTC-USD/candles"),
		query: map[string][]string{
			"granularity": {"86400"},
			"start":       {start.Format(time.RFC3339)},
			"end":         {end.Format(time.RFC3339)},
		},
		headers: map[string]string{"User-Agent": userAgent},
	}, &candles); err != nil {
		return nil, err
	}

	out := make([]models.SeriesPoint, 0, len(candles))
	for _, c := range candles {
		if len(c) < 5 {
			continue
		}
		ts := int64(toFloat(c[0]))
		out = append(out, models.SeriesPoint{Timestamp: ts, Date: util.DateOf(ts), Value: toFloat(c[4])})
	}
	return out, nil
}
