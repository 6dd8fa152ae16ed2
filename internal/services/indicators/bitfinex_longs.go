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
	longsSMA         = 30
	longsBuy         = 10.0
	longsSell        = -10.0
	longsSpike       = 10.0
	longsCooldown    = 14
	longsHorizon     = 30
	longsHistoryDays = 365
	longsName        = "Bitfinex Longs"
	longsDescription = "BTC margin long positions on Bitfinex"
)

// BitfinexLongs tracks BTC margin longs on Bitfinex.
type BitfinexLongs struct {
	src repository.MarginSource
}

func NewBitfinexLongs(src repository.MarginSource) *BitfinexLongs {
	return &BitfinexLongs{src: src}
}

func (b *BitfinexLongs) ID() string          { return BitfinexLongsID }
func (b *BitfinexLongs) Name() string        { return longsName }
func (b *BitfinexLongs) Description() string { return longsDescription }

func (b *BitfinexLongs) Calculate(ctx context.Context, prices []models.DailyPrice) (models.IndicatorResult, error) {
	longs, err := b.src.BitfinexLongs(ctx, longsHistoryDays)
	if err != nil {
		return models.EmptyResult(BitfinexLongsID, longsName, longsDescription), fmt.Errorf("bitfinex longs: %w", err)
	}
	return ComputeBitfinexLongs(longs, prices), nil
}

func formatLongs(v float64) string {
	if v >= 1000 {
		return util.FormatFixed(v/1000, 1) + "K BTC"
	}
	return util.FormatFixed(v, 0) + " BTC"
}

// ComputeBitfinexLongs builds the longs result; fewer than two points is "no data".
func ComputeBitfinexLongs(longs []models.SeriesPoint, prices []models.DailyPrice) models.IndicatorResult {
	if len(longs) < 2 {
		return models.EmptyResult(BitfinexLongsID, longsName, longsDescription)
	}
	values := models.Values(longs)
	sma := features.SMA(values, longsSMA)
	dates := seriesDates(longs)

	current := values[len(values)-1]
	prev := values[0]
	if len(values) > longsSMA {
		prev = values[len(values)-longsSMA-1]
	}
	roc := 0.0
	if prev > 0 {
		roc = (current - prev) / prev * 100
	}

	btc := models.CloseByDate(prices)
	rows := make([]models.BacktestRow, 0)
	cd := backtest.NewCooldown(longsCooldown)
	for i, p := range longs {
		if !cd.Ready(i) || math.IsNaN(sma[i]) || sma[i] == 0 {
			continue
		}
		deviation := (p.Value - sma[i]) / sma[i] * 100
		if deviation < longsSpike {
			continue
		}
		price, ok := btc[p.Date]
		if !ok || price == 0 {
			continue
		}
		ret, okRet := returnByDate(btc, p.Date, longsHorizon, price)
		rows = append(rows, models.BacktestRow{
			"date":      util.FormatDate(p.Date),
			"longs":     formatLongs(p.Value),
			"deviation": "+" + util.FormatFixed(deviation, 0) + "%",
			"btcPrice":  dollars(price),
			"btcReturn": percentOrUnknown(ret, okRet),
		})
		cd.Mark(i)
	}

	return finalize(models.IndicatorResult{
		ID:                BitfinexLongsID,
		Name:              longsName,
		Description:       longsDescription,
		CurrentValue:      current,
		CurrentValueLabel: formatLongs(current),
		Signal: thresholdSignal(roc,
			func(v float64) bool { return v > longsBuy },
			func(v float64) bool { return v < longsSell }),
		SignalRules: fmt.Sprintf("30d change: Accumulating >%v%% · Reducing <%v%%", longsBuy, longsSell),
		ChartData: models.ChartData{Lines: []models.ChartLine{
			lineFrom("BTC Longs", colorGreen, dates, values),
			lineFrom("30-day SMA", colorSMA, dates, sma),
		}},
		ChartConfig:     models.ChartConfig{Type: models.ChartTypeLineLine},
		BacktestTitle:   fmt.Sprintf("When longs spike >%v%% above 30d SMA", longsSpike),
		BacktestColumns: []string{"Date", "Longs", "Deviation", "BTC Price", "1mo Return"},
		BacktestRows:    rows,
	})
}
