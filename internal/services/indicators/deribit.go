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
	pcrFear         = 0.7
	pcrGreed        = 0.4
	dvolWeeklyJump  = 5.0
	dvolCooldown    = 21
	dvolSMA         = 30
	dvolHorizon     = 30
	dvolHistoryDays = 730
	deribitName     = "Deribit Options"
	deribitDesc     = "BTC options put/call ratio and implied volatility"
)

// DeribitOptions classifies the live put/call ratio and backtests DVOL jumps.
type DeribitOptions struct {
	src repository.OptionsSource
}

func NewDeribitOptions(src repository.OptionsSource) *DeribitOptions {
	return &DeribitOptions{src: src}
}

func (d *DeribitOptions) ID() string          { return DeribitID }
func (d *DeribitOptions) Name() string        { return deribitName }
func (d *DeribitOptions) Description() string { return deribitDesc }

// Calculate fetches the summary and DVOL independently; a failed summary degrades to
// zeros and a failed DVOL fetch to an empty history.
func (d *DeribitOptions) Calculate(ctx context.Context, prices []models.DailyPrice) (models.IndicatorResult, error) {
	var summary models.OptionsSummary
	var dvol []models.SeriesPoint
	var summaryErr, dvolErr error

	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		summary, summaryErr = d.src.OptionsSummary(ectx)
		return nil
	})
	eg.Go(func() error {
		dvol, dvolErr = d.src.DVOLHistory(ectx, dvolHistoryDays)
		return nil
	})
	_ = eg.Wait()

	if summaryErr != nil {
		summary = models.OptionsSummary{}
		summaryErr = fmt.Errorf("options summary: %w", summaryErr)
	}
	if dvolErr != nil {
		dvol = nil
		dvolErr = fmt.Errorf("dvol history: %w", dvolErr)
	}
	return ComputeDeribitOptions(summary, dvol, prices), errors.Join(summaryErr, dvolErr)
}

func openInterestLabel(oi float64) string {
	switch {
	case oi >= 1e6:
		return util.FormatFixed(oi/1e6, 1) + "M"
	case oi >= 1e3:
		return util.FormatFixed(oi/1e3, 0) + "K"
	default:
		return util.FormatFixed(oi, 0)
	}
}

// ComputeDeribitOptions builds the options result.
func ComputeDeribitOptions(summary models.OptionsSummary, dvol []models.SeriesPoint, prices []models.DailyPrice) models.IndicatorResult {
	pcr := summary.PutCallRatio
	iv := models.Values(dvol)
	sma := features.SMA(iv, dvolSMA)
	dates := seriesDates(dvol)

	btc := models.CloseByDate(prices)
	rows := make([]models.BacktestRow, 0)
	cd := backtest.NewCooldown(dvolCooldown)
	for i := 7; i < len(dvol); i++ {
		if !cd.Ready(i) {
			continue
		}
		change := iv[i] - iv[i-7]
		if change < dvolWeeklyJump {
			continue
		}
		price, ok := btc[dvol[i].Date]
		if !ok || price == 0 {
			continue
		}
		ret, okRet := returnByDate(btc, dvol[i].Date, dvolHorizon, price)
		rows = append(rows, models.BacktestRow{
			"date":      util.FormatDate(dvol[i].Date),
			"dvol":      util.FormatFixed(iv[i], 1) + "%",
			"change":    "+" + util.FormatFixed(change, 1) + " pts",
			"btcPrice":  dollars(price),
			"btcReturn": percentOrUnknown(ret, okRet),
		})
		cd.Mark(i)
	}

	return finalize(models.IndicatorResult{
		ID:                DeribitID,
		Name:              deribitName,
		Description:       fmt.Sprintf("BTC options P/C ratio · OI: %s contracts", openInterestLabel(summary.TotalOpenInterest)),
		CurrentValue:      pcr,
		CurrentValueLabel: util.FormatFixed(pcr, 2),
		Signal: thresholdSignal(pcr,
			func(v float64) bool { return v >= pcrFear },
			func(v float64) bool { return v <= pcrGreed }),
		SignalRules: fmt.Sprintf("P/C ≥%v = fear (contrarian buy) · ≤%v = greed (contrarian sell)", pcrFear, pcrGreed),
		ChartData: models.ChartData{Lines: []models.ChartLine{
			lineFrom("DVOL", colorPurple, dates, iv),
			lineFrom("30-day SMA", colorSMA, dates, sma),
		}},
		ChartConfig:     models.ChartConfig{Type: models.ChartTypeLineLine},
		BacktestTitle:   fmt.Sprintf("Every time DVOL jumped >%v pts in a week", dvolWeeklyJump),
		BacktestColumns: []string{"Date", "DVOL", "7d Change", "BTC Price", "1mo Return"},
		BacktestRows:    rows,
	})
}
