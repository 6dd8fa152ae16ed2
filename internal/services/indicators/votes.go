package indicators

import (
	"math"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/services/features"
)

// Composite vote thresholds. They mirror the standalone indicators but are owned by the
// composite and may be tuned independently.
const (
	voteMayerBuy       = 0.8
	voteMayerSell      = 2.4
	voteWMASellRatio   = 3.0
	voteMiningBuy      = 1.2
	voteMiningSell     = 3.0
	voteStableBuy      = 3.0
	voteStableSell     = -1.0
	voteGapBuy         = 0.1
	voteGapSell        = -0.05
	voteLongsBuy       = 10.0
	voteLongsSell      = -10.0
	voteDVOLBuy        = 60.0
	voteDVOLSell       = 40.0
	votePCRBuy         = 0.7
	votePCRSell        = 0.4
	voteMomentumPeriod = 30
)

func vote(v float64, buy, sell func(float64) bool) int {
	switch {
	case buy(v):
		return 1
	case sell(v):
		return -1
	default:
		return 0
	}
}

// MayerVotes votes on close/SMA200 for every day past the warmup.
func MayerVotes(prices []models.DailyPrice) models.VoteMap {
	closes := models.Closes(prices)
	sma := features.SMA(closes, mayerPeriod)
	out := make(models.VoteMap, len(prices))
	for i, p := range prices {
		if math.IsNaN(sma[i]) || sma[i] == 0 {
			continue
		}
		out[p.Date] = mayerVote(closes[i] / sma[i])
	}
	return out
}

func mayerVote(ratio float64) int {
	return vote(ratio,
		func(v float64) bool { return v < voteMayerBuy },
		func(v float64) bool { return v > voteMayerSell })
}

// WMAVotes maps the weekly 200-week SMA back onto daily dates, holding the latest
// available weekly value forward.
func WMAVotes(prices []models.DailyPrice) models.VoteMap {
	weekly := features.ResampleWeekly(prices)
	wma := features.SMA(models.Closes(weekly), wmaPeriod)

	out := make(models.VoteMap, len(prices))
	last := math.NaN()
	w := 0
	for _, p := range prices {
		for w < len(weekly) && weekly[w].Date <= p.Date {
			if !math.IsNaN(wma[w]) {
				last = wma[w]
			}
			w++
		}
		if math.IsNaN(last) {
			continue
		}
		out[p.Date] = wmaVote(p.Close / last)
	}
	return out
}

func wmaVote(ratio float64) int {
	return vote(ratio,
		func(v float64) bool { return v <= 1 },
		func(v float64) bool { return v > voteWMASellRatio })
}

// MiningVotes votes on price/cost with the cost held forward across BTC dates.
func MiningVotes(mining []models.MiningPoint, prices []models.DailyPrice) models.VoteMap {
	out := models.VoteMap{}
	if len(mining) == 0 {
		return out
	}
	cost := make(map[string]float64, len(mining))
	for _, m := range mining {
		cost[m.Date] = m.EstimatedCost
	}
	last := 0.0
	for _, p := range prices {
		if c, ok := cost[p.Date]; ok && c > 0 {
			last = c
		}
		if last <= 0 {
			continue
		}
		out[p.Date] = vote(p.Close/last,
			func(v float64) bool { return v <= voteMiningBuy },
			func(v float64) bool { return v >= voteMiningSell })
	}
	return out
}

// momentumVotes votes on the 30-point rate of change of a series.
func momentumVotes(points []models.SeriesPoint, buy, sell float64) models.VoteMap {
	out := models.VoteMap{}
	if len(points) < voteMomentumPeriod+1 {
		return out
	}
	for i := voteMomentumPeriod; i < len(points); i++ {
		prev := points[i-voteMomentumPeriod].Value
		if prev <= 0 {
			continue
		}
		roc := (points[i].Value - prev) / prev * 100
		out[points[i].Date] = vote(roc,
			func(v float64) bool { return v > buy },
			func(v float64) bool { return v < sell })
	}
	return out
}

// StablecoinVotes votes on the 30-day supply rate of change.
func StablecoinVotes(supply []models.SeriesPoint) models.VoteMap {
	return momentumVotes(supply, voteStableBuy, voteStableSell)
}

// LongsVotes votes on the 30-day margin longs rate of change.
func LongsVotes(longs []models.SeriesPoint) models.VoteMap {
	return momentumVotes(longs, voteLongsBuy, voteLongsSell)
}

// GapVotes votes on the Coinbase premium for every aligned date.
func GapVotes(binance, coinbase []models.SeriesPoint) models.VoteMap {
	out := models.VoteMap{}
	for _, g := range AlignGap(binance, coinbase) {
		out[g.Date] = vote(g.Gap,
			func(v float64) bool { return v > voteGapBuy },
			func(v float64) bool { return v < voteGapSell })
	}
	return out
}

// DVOLVotes votes on the implied volatility level.
func DVOLVotes(dvol []models.SeriesPoint) models.VoteMap {
	out := make(models.VoteMap, len(dvol))
	for _, d := range dvol {
		out[d.Date] = vote(d.Value,
			func(v float64) bool { return v > voteDVOLBuy },
			func(v float64) bool { return v < voteDVOLSell })
	}
	return out
}

// PCRVote classifies the live put/call ratio.
func PCRVote(pcr float64) int {
	return vote(pcr,
		func(v float64) bool { return v >= votePCRBuy },
		func(v float64) bool { return v <= votePCRSell })
}

// MergeVotes sums the votes available on each BTC date. Dates with no vote are dropped.
func MergeVotes(prices []models.DailyPrice, maps ...models.VoteMap) []models.CompositeDailyRecord {
	out := make([]models.CompositeDailyRecord, 0, len(prices))
	for _, p := range prices {
		score, available := 0, 0
		for _, m := range maps {
			if v, ok := m[p.Date]; ok {
				score += v
				available++
			}
		}
		if available == 0 {
			continue
		}
		out = append(out, models.CompositeDailyRecord{
			Date:      p.Date,
			Price:     p.Close,
			Score:     score,
			Available: available,
		})
	}
	return out
}
