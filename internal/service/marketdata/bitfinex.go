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
	bitfinexPointsPerChunk = 10000
	bitfinexChunkSpan      = bitfinexPointsPerChunk * time.Hour
)

// BitfinexLongs returns BTC margin longs resampled to one point per day.
// Hourly data is paged in 10000-point chunks fetched concurrently; the latest hour of each day wins.
func (p *Provider) BitfinexLongs(ctx context.Context, days int) ([]models.SeriesPoint, error) {
	if days <= 0 {
		days = 1095
	}
	now := p.now()
	startMs := now.Add(-time.Duration(days) * 24 * time.Hour).UnixMilli()

	var windows [][2]int64
	for cursor := now.UnixMilli(); cursor > startMs; {
		chunkStart := cursor - bitfinexChunkSpan.Milliseconds()
		if chunkStart < startMs {
			chunkStart = startMs
		}
		windows = append(windows, [2]int64{chunkStart, cursor})
		cursor = chunkStart - 1
	}

	chunks := make([][][]interface{}, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range windows {
		i, w := i, w
		g.Go(func() error {
			var rows [][]interface{}
			err := p.getJSON(gctx, request{
				source: drepo.SourceBitfinex,
				url:    p.endpoint(p.src.Sources.Bitfinex, "/v2/stats1/pos.size:1h:tBTCUSD:long/hist"),
				query: map[string][]string{
					"start": {strconv.FormatInt(w[0], 10)},
					"end":   {strconv.FormatInt(w[1], 10)},
					"limit": {strconv.Itoa(bitfinexPointsPerChunk)},
					"sort":  {"-1"},
				},
			}, &rows)
			if err != nil {
				p.logger.Warn("bitfinex chunk failed", xlogger.Int64("start_ms", w[0]), xlogger.Error(err))
				return nil
			}
			chunks[i] = rows
			return nil
		})
	}
	_ = g.Wait()

	return DailyFirst(chunks...), nil
}

// DailyFirst keeps the first [ms, value] row seen per UTC date, sorted ascending.
func DailyFirst(chunks ...[][]interface{}) []models.SeriesPoint {
	seen := make(map[string]bool)
	var out []models.SeriesPoint
	for _, rows := range chunks {
		for _, r := range rows {
			if len(r) < 2 {
				continue
			}
			ts := int64(toFloat(r[0])) / 1000
			date := util.DateOf(ts)
			if seen[date] {
				continue
			}
			seen[date] = true
			out = append(out, models.SeriesPoint{Timestamp: ts, Date: date, Value: toFloat(r[1])})
		}
	}
	sortSeries(out)
	return out
}
