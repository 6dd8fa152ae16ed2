package indicators

import (
	"math"

	"CycleScope/internal/domain/models"
	"CycleScope/pkg/util"
)

// Indicator ids, in registry order.
const (
	CompositeID     = "cycle-composite"
	MayerMultipleID = "mayer-multiple"
	WMA200ID        = "200-week-ma"
	StablecoinID    = "stablecoin-supply"
	ExchangeGapID   = "binance-coinbase-gap"
	BitfinexLongsID = "bitfinex-longs"
	DeribitID       = "deribit-options"
	MiningCostID    = "mining-cost"
	RealizedPriceID = "realized-price"
)

// Shared chart palette.
const (
	colorPrice   = "#e4e4e7"
	colorSMA     = "#a1a1aa"
	colorGreen   = "#22c55e"
	colorRed     = "#ef4444"
	colorYellow  = "#eab308"
	colorAmber   = "#f59e0b"
	colorCyan    = "#22d3ee"
	colorBlue    = "#3b82f6"
	colorPurple  = "#a855f7"
	unknownValue = "?"
)

// lineFrom builds a chart line, skipping NaN points.
func lineFrom(label, color string, times []string, values []float64) models.ChartLine {
	data := make([]models.ChartPoint, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		data = append(data, models.ChartPoint{Time: times[i], Value: v})
	}
	return models.ChartLine{Label: label, Color: color, Data: data}
}

func seriesDates(points []models.SeriesPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Date
	}
	return out
}

func priceDates(prices []models.DailyPrice) []string {
	out := make([]string, len(prices))
	for i, p := range prices {
		out[i] = p.Date
	}
	return out
}

// finalize replaces non-finite scalars so the result always encodes as JSON.
func finalize(r models.IndicatorResult) models.IndicatorResult {
	if math.IsNaN(r.CurrentValue) || math.IsInf(r.CurrentValue, 0) {
		r.CurrentValue = 0
		r.CurrentValueLabel = "N/A"
	}
	if r.Signal == "" {
		r.Signal = models.SignalNeutral
	}
	if r.BacktestColumns == nil {
		r.BacktestColumns = []string{}
	}
	if r.BacktestRows == nil {
		r.BacktestRows = []models.BacktestRow{}
	}
	for i := range r.ChartData.Bars {
		if math.IsNaN(r.ChartData.Bars[i].Value) {
			r.ChartData.Bars[i].Value = 0
		}
	}
	return r
}

// thresholdSignal classifies v as buy when buy(v) holds, sell when sell(v) holds.
// NaN never satisfies a comparison and so lands on neutral.
func thresholdSignal(v float64, buy, sell func(float64) bool) models.Signal {
	if math.IsNaN(v) {
		return models.SignalNeutral
	}
	switch {
	case buy(v):
		return models.SignalBuy
	case sell(v):
		return models.SignalSell
	default:
		return models.SignalNeutral
	}
}

// percentOrUnknown renders a forward return, or "?" when it could not be computed.
func percentOrUnknown(v float64, ok bool) string {
	if !ok || math.IsNaN(v) {
		return unknownValue
	}
	return util.FormatPercent(v)
}

// dollars renders "$" plus a whole-dollar amount with separators.
func dollars(v float64) string {
	return "$" + util.FormatGrouped(v, 0)
}

// returnByDate looks up the close on date+days and returns the percent change from base.
func returnByDate(closes map[string]float64, date string, days int, base float64) (float64, bool) {
	future, ok := closes[util.AddDays(date, days)]
	if !ok || future == 0 {
		return 0, false
	}
	if base <= 0 {
		return 0, false
	}
	return (future - base) / base * 100, true
}

// roundHalfUp rounds to the nearest integer with ties toward +Inf.
func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}
