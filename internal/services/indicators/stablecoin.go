package indicators

import (
	"context"
	"fmt"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/domain/repository"
	"CycleScope/internal/services/backtest"
	"CycleScope/internal/services/features"
	"CycleScope/pkg/util"
)

const (
	stableMomentum    = 30
	stableSMA         = 90
	stableBuy         = 3.0
	stableSell        = -1.0
	stablePullback    = 0.95
	stableCooldown    = 90
	stableHorizon     = 180
	stableName        = "Stablecoin Supply"
	stableDescription = "Combined USDT + USDC circulating supply"
)

// StablecoinSupply tracks the 30-day momentum of combined USDT+USDC supply.
type StablecoinSupply struct {
	src repository.StablecoinSource
}

func NewStablecoinSupply(src repository.StablecoinSource) *StablecoinSupply {
	return &StablecoinSupply{src: src}
}

func (s *StablecoinSupply) ID() string          { return StablecoinID }
func (s *StablecoinSupply) Name() string        { return stableName }
func (s *StablecoinSupply) Description() string { return stableDescription }

func (s *StablecoinSupply) Calculate(ctx context.Context, prices []models.DailyPrice) (models.IndicatorResult, error) {
	supply, err := s.src.StablecoinSupply(ctx)
	if err != nil {
		return models.EmptyResult(StablecoinID, stableName, stableDescription), fmt.Errorf("stablecoin supply: %w", err)
	}
	return ComputeStablecoinSupply(supply, prices), nil
}

// formatSupply renders a dollar supply as $X.XT / $X.XB / $XM / $X.
func formatSupply(v float64) string {
	switch {
	case v >= 1e12:
		return "$" + util.FormatFixed(v/1e12, 1) + "T"
	case v >= 1e9:
		return "$" + util.FormatFixed(v/1e9, 1) + "B"
	case v >= 1e6:
		return "$" + util.FormatFixed(v/1e6, 0) + "M"
	default:
		return "$" + util.FormatFixed(v, 0)
	}
}

// ComputeStablecoinSupply builds the stablecoin result. BTC prices are only used by the backtest.
func ComputeStablecoinSupply(supply []models.SeriesPoint, prices []models.DailyPrice) models.IndicatorResult {
	if len(supply) == 0 {
		return models.EmptyResult(StablecoinID, stableName, stableDescription)
	}
	values := models.Values(supply)
	roc := features.RateOfChange(values, stableMomentum)
	sma := features.SMA(values, stableSMA)
	dates := seriesDates(supply)

	current := features.Last(values)
	currentROC := features.Last(roc)

	rows := newATHBacktest(supply, models.CloseByDate(prices))

	return finalize(models.IndicatorResult{
		ID:                StablecoinID,
		Name:              stableName,
		Description:       stableDescription,
		CurrentValue:      current,
		CurrentValueLabel: formatSupply(current),
		Signal: thresholdSignal(currentROC,
			func(v float64) bool { return v > stableBuy },
			func(v float64) bool { return v < stableSell }),
		SignalRules: fmt.Sprintf("30d change: Expanding >%v%% · Contracting <%v%%", stableBuy, stableSell),
		ChartData: models.ChartData{Lines: []models.ChartLine{
			lineFrom("USDT + USDC Supply", colorGreen, dates, values),
			lineFrom("90-day SMA", colorSMA, dates, sma),
		}},
		ChartConfig:     models.ChartConfig{Type: models.ChartTypeLineLine},
		BacktestTitle:   "Every time supply set new ATH (after pullback)",
		BacktestColumns: []string{"Date", "Supply", "BTC Price", "BTC 6mo Return"},
		BacktestRows:    rows,
	})
}

// newATHBacktest records every new supply all-time high that follows a pullback of at
// least 5% from the previous high, with BTC's 6-month return by calendar date.
func newATHBacktest(supply []models.SeriesPoint, btc map[string]float64) []models.BacktestRow {
	rows := make([]models.BacktestRow, 0)
	ath := 0.0
	pulledBack := false
	cd := backtest.NewCooldown(stableCooldown)

	for i, p := range supply {
		if p.Value > ath {
			if pulledBack && cd.Ready(i) {
				if price, ok := btc[p.Date]; ok && price != 0 {
					from := util.DateOf(p.Timestamp)
					ret, ok := returnByDate(btc, from, stableHorizon, price)
					rows = append(rows, models.BacktestRow{
						"date":      util.FormatDate(p.Date),
						"supply":    formatSupply(p.Value),
						"btcPrice":  dollars(price),
						"btcReturn": percentOrUnknown(ret, ok),
					})
					cd.Mark(i)
				}
			}
			ath = p.Value
			pulledBack = false
		} else if p.Value < ath*stablePullback {
			pulledBack = true
		}
	}
	return rows
}
