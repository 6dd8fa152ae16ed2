package screener

import (
	"math"
	"sort"
	"time"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/features"
	"CycleScope/pkg/util"
)

// Altcoin sort keys accepted by SortAltcoins.
const (
	SortBreakout = "breakout"
	SortVolume   = "volume"
	SortOIZ      = "oi_z"
	SortFunding  = "funding"
)

// Breakout score weights. Volume has no z-score input yet and contributes a neutral 5.
const (
	weightOIZ      = 0.30
	weightStrength = 0.25
	weightFunding  = 0.20
	weightMomentum = 0.15
	weightVolume   = 0.10

	neutralVolumeScore = 5.0
	fundingPeriodsYear = 3 * 365
)

// OIZScore is the population z-score of the latest open interest against its history.
func OIZScore(history []float64) float64 {
	return features.ZScore(history)
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// BreakoutScore combines OI z-score, relative strength, funding and 7d momentum into 0..10.
func BreakoutScore(oiZ, relativeStrength, fundingAPR, priceChange7d float64) float64 {
	oi := clamp01((oiZ+1)/3) * 10
	rs := clamp01(relativeStrength/2) * 10
	funding := clamp01(1-math.Abs(fundingAPR)/100) * 10
	momentum := clamp01((priceChange7d+10)/30) * 10

	return oi*weightOIZ +
		rs*weightStrength +
		funding*weightFunding +
		momentum*weightMomentum +
		neutralVolumeScore*weightVolume
}

// FundingAPR annualises an 8-hourly funding rate into a percentage.
func FundingAPR(rate float64) float64 {
	return rate * fundingPeriodsYear * 100
}

// BuildAltcoinRow derives every screener metric for one token.
func BuildAltcoinRow(in models.AltcoinInput, btcChange7d float64) models.AltcoinScreenerRow {
	row := models.AltcoinScreenerRow{
		Symbol:         in.Symbol,
		Name:           in.Name,
		Price:          in.Price,
		MarketCap:      in.MarketCap,
		PriceChange24h: in.PriceChange24h,
		PriceChange7d:  in.PriceChange7d,
		OpenInterest:   in.OpenInterest * in.Price,
		FundingRate:    in.FundingRate,
		FundingAPR:     FundingAPR(in.FundingRate),
		OIZScore:       OIZScore(in.OIHistory),
		VolumeZScore:   features.ZScore(in.FuturesVolume7d),
	}
	if row.Name == "" {
		row.Name = in.Symbol
	}

	if n := len(in.OIHistory); n > 1 {
		prev, curr := in.OIHistory[n-2], in.OIHistory[n-1]
		if prev > 0 {
			row.OIChange24h = (curr - prev) / prev * 100
		}
	}

	if in.FuturesVolume > 0 {
		row.Volume24h = in.FuturesVolume * in.Price
	} else {
		row.Volume24h = in.SpotVolume
	}

	if in.MarketCap > 0 {
		row.OIToMcap = row.OpenInterest / in.MarketCap
	}
	if btcChange7d != 0 {
		row.RelativeStrength = in.PriceChange7d / btcChange7d
	}

	row.BreakoutScore = BreakoutScore(row.OIZScore, row.RelativeStrength, row.FundingAPR, row.PriceChange7d)
	return row
}

// BuildAltcoinScreener ranks every token of the snapshot by breakout score, highest first.
func BuildAltcoinScreener(snapshot models.AltcoinSnapshot, now time.Time) models.AltcoinScreenerResult {
	rows := make([]models.AltcoinScreenerRow, 0, len(snapshot.Inputs))
	for _, in := range snapshot.Inputs {
		rows = append(rows, BuildAltcoinRow(in, snapshot.BTCChange7d))
	}
	SortAltcoins(rows, SortBreakout)

	return models.AltcoinScreenerResult{
		Rows:        rows,
		BTCChange7d: snapshot.BTCChange7d,
		LastUpdated: util.DateOf(now.Unix()),
	}
}

// SortAltcoins orders rows in place. Funding sorts most negative APR first; unknown keys fall back to breakout.
func SortAltcoins(rows []models.AltcoinScreenerRow, key string) {
	var less func(a, b models.AltcoinScreenerRow) bool
	switch key {
	case SortVolume:
		less = func(a, b models.AltcoinScreenerRow) bool { return a.Volume24h > b.Volume24h }
	case SortOIZ:
		less = func(a, b models.AltcoinScreenerRow) bool { return a.OIZScore > b.OIZScore }
	case SortFunding:
		less = func(a, b models.AltcoinScreenerRow) bool { return a.FundingAPR < b.FundingAPR }
	default:
		less = func(a, b models.AltcoinScreenerRow) bool { return a.BreakoutScore > b.BreakoutScore }
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
}

// LimitAltcoins returns at most limit rows. A non-positive limit keeps everything.
func LimitAltcoins(rows []models.AltcoinScreenerRow, limit int) []models.AltcoinScreenerRow {
	if limit <= 0 || limit >= len(rows) {
		return rows
	}
	return rows[:limit]
}
