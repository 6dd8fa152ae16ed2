package indicators

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/domain/repository"
	"CycleScope/internal/services/backtest"
	"CycleScope/internal/services/features"
	"CycleScope/pkg/util"
)

const (
	compositeName        = "Cycle Composite"
	compositeDescription = "Aggregating indicators into a single cycle score"
	compositeBuy         = 2
	compositeSell        = -2
	compositeCooldown    = 60
	compositeMaxVotes    = 7
	compositeLongsDays   = 1825
	compositeNotRealized = "—"
)

// CompositeInputs carries every auxiliary series the composite votes on. A nil PCR means
// the live put/call snapshot was unavailable.
type CompositeInputs struct {
	Mining     []models.MiningPoint
	Stablecoin []models.SeriesPoint
	Binance    []models.SeriesPoint
	Coinbase   []models.SeriesPoint
	Longs      []models.SeriesPoint
	DVOL       []models.SeriesPoint
	PCR        *float64
}

// CompositeSources is the subset of market data the composite reads.
type CompositeSources interface {
	repository.MiningSource
	repository.StablecoinSource
	repository.ExchangeSource
	repository.MarginSource
	repository.OptionsSource
}

// CycleComposite sums seven daily sub-signals into one cycle score.
type CycleComposite struct {
	src CompositeSources
}

func NewCycleComposite(src CompositeSources) *CycleComposite {
	return &CycleComposite{src: src}
}

func (c *CycleComposite) ID() string   { return CompositeID }
func (c *CycleComposite) Name() string { return compositeName }

// Description is the static label; a computed result describes the cycle position instead.
func (c *CycleComposite) Description() string { return compositeDescription }

// Calculate fetches all sources concurrently. A failed source simply stops voting.
func (c *CycleComposite) Calculate(ctx context.Context, prices []models.DailyPrice) (models.IndicatorResult, error) {
	in := c.fetch(ctx)
	return ComputeComposite(in, prices), nil
}

func (c *CycleComposite) fetch(ctx context.Context) CompositeInputs {
	var in CompositeInputs
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if v, err := c.src.MiningCost(gctx); err == nil {
			in.Mining = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := c.src.StablecoinSupply(gctx); err == nil {
			in.Stablecoin = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := c.src.BinanceCloses(gctx, gapHistoryDays); err == nil {
			in.Binance = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := c.src.CoinbaseCloses(gctx, gapHistoryDays); err == nil {
			in.Coinbase = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := c.src.BitfinexLongs(gctx, compositeLongsDays); err == nil {
			in.Longs = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := c.src.DVOLHistory(gctx, dvolHistoryDays); err == nil {
			in.DVOL = v
		}
		return nil
	})
	g.Go(func() error {
		if v, err := c.src.OptionsSummary(gctx); err == nil {
			pcr := v.PutCallRatio
			in.PCR = &pcr
		}
		return nil
	})
	_ = g.Wait()
	return in
}

// CompositeColor maps a score onto the seven-step histogram ramp.
func CompositeColor(score int) string {
	switch {
	case score >= 3:
		return "#15803d"
	case score >= 2:
		return "#22c55e"
	case score >= 1:
		return "#86efac"
	case score == 0:
		return "#71717a"
	case score >= -1:
		return "#fca5a5"
	case score >= -2:
		return "#ef4444"
	default:
		return "#991b1b"
	}
}

// CyclePosition describes date relative to the most recent halving on or before it.
func CyclePosition(date string) string {
	d, err := util.ParseDate(date)
	if err != nil {
		return "Pre-halving era"
	}
	cycle := 1
	var last time.Time
	found := false
	for _, h := range features.Halvings {
		if h.Format(util.DateLayout) <= date {
			last = h
			found = true
			cycle++
		}
	}
	if !found {
		return "Pre-halving era"
	}
	return fmt.Sprintf("Day %d of Cycle %d (since %d halving)", util.DaysBetween(last, d), cycle, last.Year())
}

func signedInt(v int) string {
	if v >= 0 {
		return "+" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}

// CompositeVotes builds the seven vote maps, applying the live put/call override to the
// latest DVOL date.
func CompositeVotes(in CompositeInputs, prices []models.DailyPrice) []models.VoteMap {
	dvol := DVOLVotes(in.DVOL)
	if in.PCR != nil && len(in.DVOL) > 0 {
		dvol[in.DVOL[len(in.DVOL)-1].Date] = PCRVote(*in.PCR)
	}
	return []models.VoteMap{
		MayerVotes(prices),
		WMAVotes(prices),
		MiningVotes(in.Mining, prices),
		StablecoinVotes(in.Stablecoin),
		GapVotes(in.Binance, in.Coinbase),
		LongsVotes(in.Longs),
		dvol,
	}
}

// ComputeComposite builds the composite result.
func ComputeComposite(in CompositeInputs, prices []models.DailyPrice) models.IndicatorResult {
	daily := MergeVotes(prices, CompositeVotes(in, prices)...)
	if len(daily) == 0 {
		return models.EmptyResult(CompositeID, compositeName, compositeDescription)
	}

	priceLine := models.ChartLine{Label: "BTC Price", Color: colorPrice, Data: make([]models.ChartPoint, 0, len(daily))}
	bars := make([]models.ChartBar, 0, len(daily))
	for _, d := range daily {
		priceLine.Data = append(priceLine.Data, models.ChartPoint{Time: d.Date, Value: d.Price})
		bars = append(bars, models.ChartBar{Time: d.Date, Value: float64(d.Score), Color: CompositeColor(d.Score)})
	}

	first, lastDate := daily[0].Date, daily[len(daily)-1].Date
	markers := make([]models.ChartMarker, 0, len(features.Halvings))
	for _, h := range features.Halvings {
		hd := h.Format(util.DateLayout)
		if hd < first || hd > lastDate {
			continue
		}
		markers = append(markers, models.ChartMarker{
			Time:  hd,
			Label: fmt.Sprintf("H%d", len(markers)+1),
			Color: colorYellow,
		})
	}

	latest := daily[len(daily)-1]
	signal := models.SignalNeutral
	switch {
	case latest.Score >= compositeBuy:
		signal = models.SignalBuy
	case latest.Score <= compositeSell:
		signal = models.SignalSell
	}

	return finalize(models.IndicatorResult{
		ID:                CompositeID,
		Name:              compositeName,
		Description:       fmt.Sprintf("%d indicators · %s", latest.Available, CyclePosition(latest.Date)),
		CurrentValue:      float64(latest.Score),
		CurrentValueLabel: fmt.Sprintf("%s / %d", signedInt(latest.Score), latest.Available),
		Signal:            signal,
		SignalRules: fmt.Sprintf("Sum of %d signals (+1 buy, 0 neutral, -1 sell) · Buy ≥%d · Sell ≤%d",
			compositeMaxVotes, compositeBuy, compositeSell),
		ChartData: models.ChartData{
			Lines:   []models.ChartLine{priceLine},
			Bars:    bars,
			Markers: markers,
		},
		ChartConfig:   models.ChartConfig{Type: models.ChartTypeLineHistogram, LogScale: true},
		BacktestTitle: fmt.Sprintf("Extreme composite readings (≥%d buy, ≤%d sell)", compositeBuy, compositeSell),
		BacktestColumns: []string{
			"Date", "Type", "Score", "Indicators", "BTC Price", "1mo", "3mo", "6mo",
		},
		BacktestRows: compositeBacktest(daily, prices),
	})
}

func compositeBacktest(daily []models.CompositeDailyRecord, prices []models.DailyPrice) []models.BacktestRow {
	index := models.IndexByDate(prices)
	closes := models.Closes(prices)
	rows := make([]models.BacktestRow, 0)
	cd := backtest.NewCooldown(compositeCooldown)

	for i, d := range daily {
		if !cd.Ready(i) {
			continue
		}
		isBuy, isSell := d.Score >= compositeBuy, d.Score <= compositeSell
		if !isBuy && !isSell {
			continue
		}
		idx, ok := index[d.Date]
		if !ok {
			continue
		}
		kind := "SELL"
		if isBuy {
			kind = "BUY"
		}
		r1, ok1 := features.ForwardReturnByIndex(closes, idx, 30)
		r3, ok3 := features.ForwardReturnByIndex(closes, idx, 90)
		r6, ok6 := features.ForwardReturnByIndex(closes, idx, 180)
		rows = append(rows, models.BacktestRow{
			"date":       util.FormatDate(d.Date),
			"type":       kind,
			"score":      signedInt(d.Score),
			"indicators": fmt.Sprintf("%d/%d", d.Available, compositeMaxVotes),
			"btcPrice":   util.FormatCurrency(roundHalfUp(d.Price)),
			"ret1m":      percentOrUnknown(r1, ok1),
			"ret3m":      percentOrUnknown(r3, ok3),
			"ret6m":      percentOrUnknown(r6, ok6),
		})
		cd.Mark(i)
	}

	latest := daily[len(daily)-1]
	kind := "NOW"
	switch {
	case latest.Score >= compositeBuy:
		kind = "BUY"
	case latest.Score <= compositeSell:
		kind = "SELL"
	}
	rows = append(rows, models.BacktestRow{
		"date":       util.FormatDate(latest.Date),
		"type":       kind,
		"score":      signedInt(latest.Score),
		"indicators": fmt.Sprintf("%d/%d", latest.Available, compositeMaxVotes),
		"btcPrice":   util.FormatCurrency(roundHalfUp(latest.Price)),
		"ret1m":      compositeNotRealized,
		"ret3m":      compositeNotRealized,
		"ret6m":      compositeNotRealized,
	})
	return rows
}
