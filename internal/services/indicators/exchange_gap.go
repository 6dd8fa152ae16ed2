package indicators

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/domain/repository"
	"CycleScope/internal/services/backtest"
	"CycleScope/internal/services/features"
	"CycleScope/pkg/util"
)

const (
	gapBuy           = 0.1
	gapSell          = -0.05
	gapBacktestLevel = 0.2
	gapCooldown      = 14
	gapSMA           = 7
	gapHistoryDays   = 1000
	gapName          = "Binance–Coinbase Gap"
	gapDescription   = "Coinbase premium over Binance"
)

// GapPoint is one date where both venues printed a daily close.
type GapPoint struct {
	Date          string
	Gap           float64 // percent
	BinanceClose  float64
	CoinbaseClose float64
}

// AlignGap joins Binance and Coinbase closes on Binance dates; a date needs a Coinbase
// close and a positive Binance close.
func AlignGap(binance, coinbase []models.SeriesPoint) []GapPoint {
	cb := make(map[string]float64, len(coinbase))
	for _, c := range coinbase {
		cb[c.Date] = c.Value
	}
	out := make([]GapPoint, 0, len(binance))
	for _, b := range binance {
		c, ok := cb[b.Date]
		if !ok || c == 0 || b.Value <= 0 {
			continue
		}
		out = append(out, GapPoint{
			Date:          b.Date,
			Gap:           (c - b.Value) / b.Value * 100,
			BinanceClose:  b.Value,
			CoinbaseClose: c,
		})
	}
	return out
}

// ExchangeGap is the Coinbase premium over Binance.
type ExchangeGap struct {
	src repository.ExchangeSource
}

func NewExchangeGap(src repository.ExchangeSource) *ExchangeGap {
	return &ExchangeGap{src: src}
}

func (g *ExchangeGap) ID() string          { return ExchangeGapID }
func (g *ExchangeGap) Name() string        { return gapName }
func (g *ExchangeGap) Description() string { return gapDescription }

func (g *ExchangeGap) Calculate(ctx context.Context, prices []models.DailyPrice) (models.IndicatorResult, error) {
	var binance, coinbase []models.SeriesPoint
	var binanceErr, coinbaseErr error

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		binance, binanceErr = g.src.BinanceCloses(ectx, gapHistoryDays)
		return nil
	})
	eg.Go(func() error {
		coinbase, coinbaseErr = g.src.CoinbaseCloses(ectx, gapHistoryDays)
		return nil
	})
	_ = eg.Wait()

	if err := errors.Join(binanceErr, coinbaseErr); err != nil {
		return ComputeExchangeGap(nil, prices), fmt.Errorf("exchange closes: %w", err)
	}
	return ComputeExchangeGap(AlignGap(binance, coinbase), prices), nil
}

// findDateOffset returns the close days positions after date in prices.
func findDateOffset(prices []models.DailyPrice, index map[string]int, date string, days int) (float64, bool) {
	i, ok := index[date]
	if !ok {
		return 0, false
	}
	j := i + days
	if j >= len(prices) {
		return 0, false
	}
	return prices[j].Close, true
}

// ComputeExchangeGap builds the gap result from aligned points.
func ComputeExchangeGap(aligned []GapPoint, prices []models.DailyPrice) models.IndicatorResult {
	if len(aligned) == 0 {
		return models.EmptyResult(ExchangeGapID, gapName, gapDescription)
	}
	gaps := make([]float64, len(aligned))
	dates := make([]string, len(aligned))
	for i, a := range aligned {
		gaps[i] = a.Gap
		dates[i] = a.Date
	}
	sma := features.SMA(gaps, gapSMA)
	current := features.Last(gaps)

	btc := models.CloseByDate(prices)
	index := models.IndexByDate(prices)
	rows := make([]models.BacktestRow, 0)
	cd := backtest.NewCooldown(gapCooldown)
	for i, a := range aligned {
		if !cd.Ready(i) || a.Gap < gapBacktestLevel {
			continue
		}
		price, ok := btc[a.Date]
		if !ok || price == 0 {
			continue
		}
		ret30, ok30 := 0.0, false
		if p, ok := findDateOffset(prices, index, a.Date, 30); ok && p != 0 {
			ret30, ok30 = features.ForwardReturnBetween(price, p)
		}
		ret90, ok90 := 0.0, false
		if p, ok := findDateOffset(prices, index, a.Date, 90); ok && p != 0 {
			ret90, ok90 = features.ForwardReturnBetween(price, p)
		}
		rows = append(rows, models.BacktestRow{
			"date":     util.FormatDate(a.Date),
			"gap":      util.FormatFixed(a.Gap, 2) + "%",
			"btcPrice": dollars(price),
			"ret30":    percentOrUnknown(ret30, ok30),
			"ret90":    percentOrUnknown(ret90, ok90),
		})
		cd.Mark(i)
	}

	return finalize(models.IndicatorResult{
		ID:                ExchangeGapID,
		Name:              gapName,
		Description:       gapDescription + " (US institutional demand)",
		CurrentValue:      current,
		CurrentValueLabel: util.FormatSigned(current, 3) + "%",
		Signal: thresholdSignal(current,
			func(v float64) bool { return v > gapBuy },
			func(v float64) bool { return v < gapSell }),
		SignalRules: fmt.Sprintf("CB premium >%v%% = institutional buying · <%v%% = offshore led", gapBuy, gapSell),
		ChartData: models.ChartData{Lines: []models.ChartLine{
			lineFrom("Gap %", colorBlue, dates, gaps),
			lineFrom("7-day SMA", colorAmber, dates, sma),
		}},
		ChartConfig:     models.ChartConfig{Type: models.ChartTypeLineLine},
		BacktestTitle:   fmt.Sprintf("Every time CB premium ≥ %v%%", gapBacktestLevel),
		BacktestColumns: []string{"Date", "Gap", "BTC Price", "1mo Return", "3mo Return"},
		BacktestRows:    rows,
	})
}
