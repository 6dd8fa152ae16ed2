package screener

import (
	"sort"
	"strings"
	"time"

	"CycleScope/internal/domain/models"
	"CycleScope/pkg/util"
)

// Korean sort keys accepted by SortKorean.
const (
	SortKoreanVolume  = "volume"
	SortKoreanPremium = "premium"
)

// BaselineKRWUSD is the assumed FX rate used for BTC's own premium and as the fallback implied rate.
const BaselineKRWUSD = 1450.0

// ImpliedKRWUSD is the FX rate implied by BTC's KRW and USD prices.
func ImpliedKRWUSD(btcKRW, btcUSD float64) float64 {
	if btcUSD > 0 {
		return btcKRW / btcUSD
	}
	return BaselineKRWUSD
}

// BTCKimchiPremium is BTC's KRW premium against the baseline FX rate, in percent.
func BTCKimchiPremium(btcKRW, btcUSD float64) float64 {
	if btcUSD <= 0 {
		return 0
	}
	return (btcKRW/BaselineKRWUSD/btcUSD - 1) * 100
}

// KimchiPremium is a token's KRW premium relative to BTC, which strips the FX baseline.
func KimchiPremium(priceKRW, priceUSD, implied float64) float64 {
	if priceUSD <= 0 || implied <= 0 {
		return 0
	}
	return (priceKRW/priceUSD/implied - 1) * 100
}

// BuildKoreanScreener assembles ranked rows for every non-BTC token, highest KRW volume first.
func BuildKoreanScreener(snapshot models.KoreanSnapshot, now time.Time) models.KoreanScreenerResult {
	implied := ImpliedKRWUSD(snapshot.BTCKRW, snapshot.BTCUSD)
	pricedBTC := snapshot.BTCKRW > 0 && snapshot.BTCUSD > 0

	rows := make([]models.KoreanScreenerRow, 0, len(snapshot.Tokens))
	for _, t := range snapshot.Tokens {
		if strings.EqualFold(t.Symbol, "BTC") {
			continue
		}

		row := models.KoreanScreenerRow{
			Symbol:         t.Symbol,
			Name:           t.Name,
			PriceKRW:       t.UpbitPriceKRW,
			PriceUSD:       t.PriceUSD,
			UpbitVolumeKRW: t.UpbitVolumeKRW,
			BithumbVolKRW:  t.BithumbVolKRW,
			TotalVolumeKRW: t.UpbitVolumeKRW + t.BithumbVolKRW,
			PriceChange24h: t.ChangeRate * 100,
			MarketCapUSD:   t.MarketCapUSD,
		}
		if row.Name == "" {
			row.Name = t.Symbol
		}
		if pricedBTC {
			row.KimchiPremium = KimchiPremium(t.UpbitPriceKRW, t.PriceUSD, implied)
		}
		if t.MarketCapUSD > 0 {
			row.VolumeToMcap = row.TotalVolumeKRW / implied / t.MarketCapUSD
		}
		rows = append(rows, row)
	}
	SortKorean(rows, SortKoreanVolume)

	return models.KoreanScreenerResult{
		Rows:             rows,
		BTCKimchiPremium: BTCKimchiPremium(snapshot.BTCKRW, snapshot.BTCUSD),
		ImpliedKRWUSD:    implied,
		LastUpdated:      util.DateOf(now.Unix()),
	}
}

// SortKorean orders rows in place. Premium sorts highest premium first.
func SortKorean(rows []models.KoreanScreenerRow, key string) {
	if key == SortKoreanPremium {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].KimchiPremium > rows[j].KimchiPremium })
		return
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].TotalVolumeKRW > rows[j].TotalVolumeKRW })
}

// LimitKorean returns at most limit rows. A non-positive limit keeps everything.
func LimitKorean(rows []models.KoreanScreenerRow, limit int) []models.KoreanScreenerRow {
	if limit <= 0 || limit >= len(rows) {
		return rows
	}
	return rows[:limit]
}
