package indicators

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/backtest"
	"CycleScope/internal/services/features"
	"CycleScope/pkg/util"
)

const (
	mayerPeriod        = 200
	mayerBuy           = 0.8
	mayerSell          = 2.4
	mayerBacktestLevel = 0.6
	mayerCooldown      = 60
	mayerName          = "Mayer Multiple"
	mayerDescription   = "Distance from 200-day moving average"
)

// MayerMultiple is close / SMA200.
type MayerMultiple struct{}

func NewMayerMultiple() *MayerMultiple { return &MayerMultiple{} }

func (m *MayerMultiple) ID() string          { return MayerMultipleID }
func (m *MayerMultiple) Name() string        { return mayerName }
func (m *MayerMultiple) Description() string { return mayerDescription }

func (m *MayerMultiple) Calculate(_ context.Context, prices []models.DailyPrice) (models.IndicatorResult, error) {
	return ComputeMayerMultiple(prices), nil
}

// MayerSeries returns close/SMA200 per day, NaN during warmup.
func MayerSeries(prices []models.DailyPrice) []float64 {
	closes := models.Closes(prices)
	sma := features.SMA(closes, mayerPeriod)
	out := make([]float64, len(closes))
	for i := range closes {
		if math.IsNaN(sma[i]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = closes[i] / sma[i]
	}
	return out
}

func mayerBarColor(v float64) string {
	switch {
	case v < mayerBuy:
		return colorGreen
	case v > mayerSell:
		return colorRed
	default:
		return colorYellow
	}
}

// ComputeMayerMultiple builds the Mayer Multiple result from BTC daily history.
func ComputeMayerMultiple(prices []models.DailyPrice) models.IndicatorResult {
	if len(prices) == 0 {
		return models.EmptyResult(MayerMultipleID, mayerName, mayerDescription)
	}
	mayer := MayerSeries(prices)
	current := features.Last(mayer)

	// yearly peak
	peaks := map[int]float64{}
	for i, p := range prices {
		if math.IsNaN(mayer[i]) {
			continue
		}
		year := time.Unix(p.Timestamp, 0).UTC().Year()
		if v, ok := peaks[year]; !ok || mayer[i] > v {
			peaks[year] = mayer[i]
		}
	}
	years := make([]int, 0, len(peaks))
	for y := range peaks {
		years = append(years, y)
	}
	sort.Ints(years)
	bars := make([]models.ChartBar, 0, len(years))
	for _, y := range years {
		bars = append(bars, models.ChartBar{
			Time:  fmt.Sprintf("%d-06-01", y),
			Value: peaks[y],
			Color: mayerBarColor(peaks[y]),
		})
	}

	closes := models.Closes(prices)
	table := backtest.Run(len(prices), backtest.Config{
		Title: fmt.Sprintf("Every time Mayer ≤ %v", mayerBacktestLevel),
		Columns: []models.BacktestColumn{
			{Key: "date", Label: "Date"},
			{Key: "price", Label: "Price"},
			{Key: "mayer", Label: "Mayer"},
			{Key: "return6m", Label: "6mo Return"},
			{Key: "return12m", Label: "12mo Return"},
		},
		Trigger: func(i int) models.BacktestRow {
			if math.IsNaN(mayer[i]) || mayer[i] > mayerBacktestLevel {
				return nil
			}
			return models.BacktestRow{
				"date":  util.FormatDate(prices[i].Date),
				"price": util.FormatCurrency(prices[i].Close),
				"mayer": util.FormatNumber(mayer[i], 2),
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
		Cooldown: mayerCooldown,
	})

	return finalize(models.IndicatorResult{
		ID:                MayerMultipleID,
		Name:              "Mayer Multiple",
		Description:       mayerDescription,
		CurrentValue:      current,
		CurrentValueLabel: util.FormatNumber(current, 2),
		Signal: thresholdSignal(current,
			func(v float64) bool { return v < mayerBuy },
			func(v float64) bool { return v > mayerSell }),
		SignalRules:     fmt.Sprintf("Buy <%v · Normal %v–%v · Sell >%v", mayerBuy, mayerBuy, mayerSell, mayerSell),
		ChartData:       models.ChartData{Bars: bars},
		ChartConfig:     models.ChartConfig{Type: models.ChartTypeBar},
		BacktestTitle:   table.Title,
		BacktestColumns: table.Columns,
		BacktestRows:    table.Rows,
	})
}
