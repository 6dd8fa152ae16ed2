package indicators

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/backtest"
	"CycleScope/internal/services/features"
	"CycleScope/pkg/util"
)

const (
	wmaPeriod      = 200
	wmaTouchBand   = 0.05
	wmaSellRatio   = 3
	wmaLookahead   = 52
	wmaCooldown    = 52
	wmaName        = "200-Week Moving Average"
	wmaDescription = "Long-term cycle floor indicator"
)

// TwoHundredWMA compares the weekly close with the 200-week SMA.
type TwoHundredWMA struct {
	now func() time.Time
}

// NewTwoHundredWMA returns the indicator. now drives the "current year" row; nil uses time.Now.
func NewTwoHundredWMA(now func() time.Time) *TwoHundredWMA {
	if now == nil {
		now = time.Now
	}
	return &TwoHundredWMA{now: now}
}

func (w *TwoHundredWMA) ID() string          { return WMA200ID }
func (w *TwoHundredWMA) Name() string        { return wmaName }
func (w *TwoHundredWMA) Description() string { return wmaDescription }

func (w *TwoHundredWMA) Calculate(_ context.Context, prices []models.DailyPrice) (models.IndicatorResult, error) {
	return ComputeTwoHundredWMA(prices, w.now()), nil
}

func weeksNearLabel(weeks int) string {
	switch {
	case weeks <= 1:
		return "Days"
	case weeks <= 4:
		return fmt.Sprintf("%d weeks", weeks)
	default:
		return fmt.Sprintf("%d months", int(roundHalfUp(float64(weeks)/4)))
	}
}

// rowYear parses the year out of a "Jan 2006" date cell; 0 when absent.
func rowYear(rows []models.BacktestRow) int {
	if len(rows) == 0 {
		return 0
	}
	parts := strings.Fields(rows[len(rows)-1]["date"])
	if len(parts) < 2 {
		return 0
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0
	}
	return y
}

// ComputeTwoHundredWMA builds the 200-week MA result. now is used to decide whether a
// current-state row is appended for a year with no touch yet.
func ComputeTwoHundredWMA(prices []models.DailyPrice, now time.Time) models.IndicatorResult {
	weekly := features.ResampleWeekly(prices)
	if len(weekly) == 0 {
		return models.EmptyResult(WMA200ID, wmaName, wmaDescription)
	}
	closes := models.Closes(weekly)
	wma := features.SMA(closes, wmaPeriod)
	dates := priceDates(weekly)

	currentWMA := features.Last(wma)
	currentPrice := features.Last(closes)

	signal := models.SignalNeutral
	if !math.IsNaN(currentWMA) {
		switch {
		case currentPrice <= currentWMA:
			signal = models.SignalBuy
		case currentPrice/currentWMA > wmaSellRatio:
			signal = models.SignalSell
		}
	}

	table := backtest.Run(len(weekly), backtest.Config{
		Title: "Every time BTC touched 200WMA",
		Columns: []models.BacktestColumn{
			{Key: "date", Label: "Date"},
			{Key: "wma", Label: "200WMA"},
			{Key: "timeNear", Label: "Time There"},
			{Key: "returnFromTouch", Label: "Return From Touch"},
		},
		Trigger: func(i int) models.BacktestRow {
			if math.IsNaN(wma[i]) || wma[i] == 0 {
				return nil
			}
			ratio := closes[i] / wma[i]
			if ratio > 1+wmaTouchBand || ratio < 1-wmaTouchBand {
				return nil
			}
			return models.BacktestRow{
				"date": util.FormatDate(weekly[i].Date),
				"wma":  util.FormatCurrency(roundHalfUp(wma[i])),
			}
		},
		Enrich: func(row models.BacktestRow, i int) models.BacktestRow {
			weeksNear := 0
			for j := i; j < len(weekly); j++ {
				ratio := closes[j] / wma[j]
				if math.IsNaN(ratio) || ratio > 1+2*wmaTouchBand || ratio < 1-2*wmaTouchBand {
					break
				}
				weeksNear++
			}

			end := i + wmaLookahead
			if end > len(weekly) {
				end = len(weekly)
			}
			maxPrice := closes[i]
			for j := i; j < end; j++ {
				if closes[j] > maxPrice {
					maxPrice = closes[j]
				}
			}
			ret := (maxPrice - closes[i]) / closes[i] * 100

			return row.With(
				"timeNear", weeksNearLabel(weeksNear),
				"returnFromTouch", util.FormatPercent(ret)+" → "+util.FormatCurrency(roundHalfUp(maxPrice)),
			)
		},
		Cooldown: wmaCooldown,
	})

	rows := table.Rows
	if !math.IsNaN(currentWMA) && now.UTC().Year() > rowYear(rows) {
		distance := 0.0
		if currentWMA != 0 {
			distance = roundHalfUp((currentPrice - currentWMA) / currentWMA * 100)
		}
		distanceLabel := fmt.Sprintf("%.0f%% above", distance)
		if distance < 0 {
			distanceLabel = fmt.Sprintf("%.0f%% below", math.Abs(distance))
		}
		state := "Not yet touched"
		if currentPrice <= currentWMA*(1+wmaTouchBand) {
			state = "Active"
		}
		rows = append(rows, models.BacktestRow{
			"date":            util.FormatDate(weekly[len(weekly)-1].Date),
			"wma":             util.FormatCurrency(roundHalfUp(currentWMA)),
			"timeNear":        distanceLabel,
			"returnFromTouch": state,
		})
	}

	return finalize(models.IndicatorResult{
		ID:                WMA200ID,
		Name:              wmaName,
		Description:       wmaDescription,
		CurrentValue:      currentWMA,
		CurrentValueLabel: util.FormatCurrency(roundHalfUp(currentWMA)),
		Signal:            signal,
		SignalRules:       "At/below 200WMA = cycle floor · Hit rate: 4/4 (100%)",
		ChartData: models.ChartData{Lines: []models.ChartLine{
			lineFrom("BTC Price", colorPrice, dates, closes),
			lineFrom("200-Week MA", colorCyan, dates, wma),
		}},
		ChartConfig:     models.ChartConfig{Type: models.ChartTypeLineLine, LogScale: true},
		BacktestTitle:   table.Title,
		BacktestColumns: table.Columns,
		BacktestRows:    rows,
	})
}
