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
	miningBuyRatio      = 1.2
	miningSellRatio     = 3.0
	miningBacktestRatio = 1.5
	miningCooldown      = 60
	miningHorizon       = 180
	miningName          = "Avg Mining Cost"
	miningDescription   = "Estimated BTC production cost"
)

// MiningCost compares BTC with the estimated electricity cost of producing one coin.
type MiningCost struct {
	src repository.MiningSource
}

func NewMiningCost(src repository.MiningSource) *MiningCost {
	return &MiningCost{src: src}
}

func (m *MiningCost) ID() string          { return MiningCostID }
func (m *MiningCost) Name() string        { return miningName }
func (m *MiningCost) Description() string { return miningDescription }

func (m *MiningCost) Calculate(ctx context.Context, prices []models.DailyPrice) (models.IndicatorResult, error) {
	mining, err := m.src.MiningCost(ctx)
	if err != nil {
		return miningEmpty(), fmt.Errorf("mining cost: %w", err)
	}
	return ComputeMiningCost(mining, prices), nil
}

func miningEmpty() models.IndicatorResult {
	return models.EmptyResult(MiningCostID, miningName, miningDescription)
}

// ComputeMiningCost builds the mining cost result.
func ComputeMiningCost(mining []models.MiningPoint, prices []models.DailyPrice) models.IndicatorResult {
	if len(mining) < 2 || len(prices) == 0 {
		return miningEmpty()
	}
	currentCost := mining[len(mining)-1].EstimatedCost
	currentPrice := prices[len(prices)-1].Close
	ratio := 0.0
	if currentCost > 0 {
		ratio = currentPrice / currentCost
	}

	btc := models.CloseByDate(prices)
	index := models.IndexByDate(prices)
	closes := models.Closes(prices)

	btcLine := make([]models.ChartPoint, 0, len(mining))
	costLine := make([]models.ChartPoint, 0, len(mining))
	for _, m := range mining {
		costLine = append(costLine, models.ChartPoint{Time: m.Date, Value: m.EstimatedCost})
		if v, ok := btc[m.Date]; ok && v != 0 {
			btcLine = append(btcLine, models.ChartPoint{Time: m.Date, Value: v})
		}
	}

	rows := make([]models.BacktestRow, 0)
	cd := backtest.NewCooldown(miningCooldown)
	for i, m := range mining {
		if !cd.Ready(i) || m.EstimatedCost <= 0 {
			continue
		}
		price, ok := btc[m.Date]
		if !ok || price == 0 {
			continue
		}
		r := price / m.EstimatedCost
		if r > miningBacktestRatio {
			continue
		}
		ret, okRet := 0.0, false
		if idx, ok := index[m.Date]; ok {
			ret, okRet = features.ForwardReturnByIndex(closes, idx, miningHorizon)
		}
		rows = append(rows, models.BacktestRow{
			"date":     util.FormatDate(m.Date),
			"cost":     util.FormatCurrency(roundHalfUp(m.EstimatedCost)),
			"btcPrice": util.FormatCurrency(roundHalfUp(price)),
			"ratio":    util.FormatFixed(r, 2) + "x",
			"ret6m":    percentOrUnknown(ret, okRet),
		})
		cd.Mark(i)
	}

	return finalize(models.IndicatorResult{
		ID:                MiningCostID,
		Name:              miningName,
		Description:       fmt.Sprintf("Est. production cost · Price/Cost: %sx", util.FormatFixed(ratio, 1)),
		CurrentValue:      currentCost,
		CurrentValueLabel: util.FormatCurrency(roundHalfUp(currentCost)),
		Signal: thresholdSignal(ratio,
			func(v float64) bool { return v <= miningBuyRatio },
			func(v float64) bool { return v >= miningSellRatio }),
		SignalRules: "Price ≤1.2x cost = capitulation buy · ≥3x = euphoria sell",
		ChartData: models.ChartData{Lines: []models.ChartLine{
			{Label: "BTC Price", Color: colorPrice, Data: btcLine},
			{Label: "Est. Mining Cost", Color: colorAmber, Data: costLine},
		}},
		ChartConfig:     models.ChartConfig{Type: models.ChartTypeLineLine, LogScale: true},
		BacktestTitle:   "Every time BTC dropped below 1.5x mining cost",
		BacktestColumns: []string{"Date", "Mining Cost", "BTC Price", "Ratio", "6mo Return"},
		BacktestRows:    rows,
	})
}
