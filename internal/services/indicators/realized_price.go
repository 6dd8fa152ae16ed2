package indicators

import (
	"context"
	"fmt"
	"math"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/domain/repository"
	"CycleScope/internal/services/backtest"
	"CycleScope/internal/services/features"
	"CycleScope/pkg/util"
)

const (
	mvrvBuy          = 1.0
	mvrvSell         = 3.5
	mvrvBacktest     = 1.2
	mvrvCooldown     = 90
	mvrvChartStride  = 7
	mvrvMinTimestamp = 1325376000 // 2012-01-01
	realizedName     = "Realized Price"
	realizedDesc     = "Average on-chain cost basis of all BTC"
)

// RealizedPrice compares BTC with the on-chain realized price (MVRV).
type RealizedPrice struct {
	src repository.RealizedPriceSource
}

func NewRealizedPrice(src repository.RealizedPriceSource) *RealizedPrice {
	return &RealizedPrice{src: src}
}

func (r *RealizedPrice) ID() string          { return RealizedPriceID }
func (r *RealizedPrice) Name() string        { return realizedName }
func (r *RealizedPrice) Description() string { return realizedDesc }

func (r *RealizedPrice) Calculate(ctx context.Context, prices []models.DailyPrice) (models.IndicatorResult, error) {
	realized, err := r.src.RealizedPrice(ctx)
	if err != nil {
		return models.EmptyResult(RealizedPriceID, realizedName, realizedDesc), fmt.Errorf("realized price: %w", err)
	}
	return ComputeRealizedPrice(realized, prices), nil
}

// AlignRealized forward-fills the realized price onto BTC dates, 0 before the first sample.
func AlignRealized(realized []models.SeriesPoint, prices []models.DailyPrice) []float64 {
	byDate := make(map[string]float64, len(realized))
	for _, r := range realized {
		byDate[r.Date] = r.Value
	}
	out := make([]float64, len(prices))
	last := 0.0
	for i, p := range prices {
		if v, ok := byDate[p.Date]; ok {
			last = v
		}
		out[i] = last
	}
	return out
}

// ComputeRealizedPrice builds the realized price result.
func ComputeRealizedPrice(realized []models.SeriesPoint, prices []models.DailyPrice) models.IndicatorResult {
	if len(prices) == 0 {
		return models.EmptyResult(RealizedPriceID, realizedName, realizedDesc)
	}
	aligned := AlignRealized(realized, prices)
	mvrv := make([]float64, len(prices))
	for i, p := range prices {
		if aligned[i] > 0 {
			mvrv[i] = p.Close / aligned[i]
		} else {
			mvrv[i] = math.NaN()
		}
	}
	last := len(prices) - 1
	currentMVRV := mvrv[last]
	currentRealized := aligned[last]

	priceLine := make([]models.ChartPoint, 0, len(prices)/mvrvChartStride+2)
	realizedLine := make([]models.ChartPoint, 0, len(prices)/mvrvChartStride+2)
	sample := func(i int) {
		if prices[i].Close > 0 {
			priceLine = append(priceLine, models.ChartPoint{Time: prices[i].Date, Value: prices[i].Close})
		}
		if aligned[i] > 0 {
			realizedLine = append(realizedLine, models.ChartPoint{Time: prices[i].Date, Value: aligned[i]})
		}
	}
	for i := 0; i < len(prices); i += mvrvChartStride {
		sample(i)
	}
	if last%mvrvChartStride != 0 {
		sample(last)
	}

	closes := models.Closes(prices)
	table := backtest.Run(len(prices), backtest.Config{
		Title: fmt.Sprintf("Every time price approached realized price (MVRV < %v)", mvrvBacktest),
		Columns: []models.BacktestColumn{
			{Key: "date", Label: "Date"},
			{Key: "price", Label: "BTC Price"},
			{Key: "realized", Label: "Realized"},
			{Key: "mvrvVal", Label: "MVRV"},
			{Key: "return6m", Label: "6mo Return"},
			{Key: "return12m", Label: "12mo Return"},
		},
		Trigger: func(i int) models.BacktestRow {
			if math.IsNaN(mvrv[i]) || mvrv[i] >= mvrvBacktest || prices[i].Timestamp < mvrvMinTimestamp {
				return nil
			}
			return models.BacktestRow{
				"date":     util.FormatDate(prices[i].Date),
				"price":    util.FormatCurrency(roundHalfUp(prices[i].Close)),
				"realized": util.FormatCurrency(roundHalfUp(aligned[i])),
				"mvrvVal":  util.FormatNumber(mvrv[i], 2),
			}
		},
		Enrich: func(row models.BacktestRow, i int) models.BacktestRow {
			r6, ok6 := features.ForwardReturnByIndex(closes, i, 180)
			r12, ok12 := features.ForwardReturnByIndex(closes, i, 365)
			return row.With(
				"return6m", percentOrUnknown(r6, ok6),
				"return12m", percentOrUnknown(r12, ok12),
			)
		},
		Cooldown: mvrvCooldown,
	})

	distance := 0.0
	if currentRealized > 0 {
		distance = (prices[last].Close - currentRealized) / currentRealized * 100
	}

	label := "N/A"
	if currentRealized > 0 {
		label = fmt.Sprintf("%s (MVRV %s)", util.FormatCurrency(roundHalfUp(currentRealized)), util.FormatNumber(currentMVRV, 2))
	}

	return finalize(models.IndicatorResult{
		ID:                RealizedPriceID,
		Name:              realizedName,
		Description:       realizedDesc,
		CurrentValue:      currentRealized,
		CurrentValueLabel: label,
		Signal: thresholdSignal(currentMVRV,
			func(v float64) bool { return v <= mvrvBuy },
			func(v float64) bool { return v >= mvrvSell }),
		SignalRules: fmt.Sprintf("At/below realized = buy · MVRV >%v = sell · Now %.0f%% above", mvrvSell, roundHalfUp(distance)),
		ChartData: models.ChartData{Lines: []models.ChartLine{
			{Label: "BTC Price", Color: colorPrice, Data: priceLine},
			{Label: "Realized Price", Color: colorAmber, Data: realizedLine},
		}},
		ChartConfig:     models.ChartConfig{Type: models.ChartTypeLineLine, LogScale: true},
		BacktestTitle:   table.Title,
		BacktestColumns: table.Columns,
		BacktestRows:    table.Rows,
	})
}
