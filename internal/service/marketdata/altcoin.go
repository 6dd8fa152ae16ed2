package marketdata

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"CycleScope/internal/domain/models"
	drepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/service/ratelimit"
	xlogger "CycleScope/pkg/logger"
)

const (
	altcoinTopN        = 40
	oiHistoryDays      = 30
	futuresVolumeDays  = 7
	coinalyzeLimitKey  = "coinalyze"
	coinalyzeAggregate = "A"
)

type coinalyzeMarket struct {
	Symbol       string `json:"symbol"`
	BaseAsset    string `json:"base_asset"`
	IsPerpetual  bool   `json:"is_perpetual"`
	Exchange     string `json:"exchange"`
	HasOHLCVData bool   `json:"has_ohlcv_data"`
}

type coinalyzeValue struct {
	Symbol string  `json:"symbol"`
	Value  float64 `json:"value"`
}

type coinalyzeHistory struct {
	Symbol  string `json:"symbol"`
	History []struct {
		T int64   `json:"t"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"history"`
}

// coinalyzeData is everything fetched per futures symbol.
type coinalyzeData struct {
	oi      map[string]float64
	funding map[string]float64
	oiHist  map[string][]float64
	volumes map[string][]float64
}

func newCoinalyzeData() *coinalyzeData {
	return &coinalyzeData{
		oi:      make(map[string]float64),
		funding: make(map[string]float64),
		oiHist:  make(map[string][]float64),
		volumes: make(map[string][]float64),
	}
}

func (p *Provider) coinalyze(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	c := p.src.Sources.Coinalyze
	return p.getJSON(ctx, request{
		source:  drepo.SourceAltcoin,
		url:     p.endpoint(c.Endpoint, path),
		query:   query,
		headers: map[string]string{"api_key": c.APIKey},
		limit: &rateLimit{
			key:      coinalyzeLimitKey,
			capacity: 1,
			perSec:   ratelimit.PerMinute(c.RequestsPerMinute),
		},
	}, dest)
}

// aggregatedPerps maps base asset to the aggregated USDT perpetual symbol.
func aggregatedPerps(markets []coinalyzeMarket) map[string]string {
	out := make(map[string]string)
	for _, m := range markets {
		if m.Exchange != coinalyzeAggregate || !m.IsPerpetual {
			continue
		}
		if !strings.HasSuffix(m.Symbol, "_PERP.A") || !strings.Contains(m.Symbol, "USDT") {
			continue
		}
		out[strings.ToUpper(m.BaseAsset)] = m.Symbol
	}
	return out
}

// AltcoinSnapshot gathers spot market data plus aggregated futures metrics for the top altcoins.
// Without a Coinalyze key the snapshot carries spot data only.
func (p *Provider) AltcoinSnapshot(ctx context.Context) (models.AltcoinSnapshot, error) {
	markets, err := p.geckoMarkets(ctx, drepo.SourceAltcoin, geckoIDs(altcoinGeckoIDs, "bitcoin"), true)
	if err != nil {
		return models.AltcoinSnapshot{}, err
	}

	snap := models.AltcoinSnapshot{}
	for _, g := range markets {
		if g.ID == "bitcoin" {
			snap.BTCChange7d = deref(g.PriceChangePercentage7d)
		}
	}

	perps := map[string]string{}
	if p.src.Sources.Coinalyze.APIKey == "" {
		p.logger.Info("coinalyze api key not set, futures metrics disabled")
	} else {
		var list []coinalyzeMarket
		if err := p.coinalyze(ctx, "/future-markets", nil, &list); err != nil {
			p.logger.Warn("coinalyze markets failed", xlogger.Error(err))
		}
		perps = aggregatedPerps(list)
	}

	selected := make([]geckoMarket, 0, len(markets))
	for _, g := range markets {
		if g.ID == "bitcoin" {
			continue
		}
		if len(perps) > 0 {
			if _, ok := perps[strings.ToUpper(g.Symbol)]; !ok {
				continue
			}
		}
		selected = append(selected, g)
	}
	sort.SliceStable(selected, func(i, j int) bool { return selected[i].TotalVolume > selected[j].TotalVolume })
	if len(selected) > altcoinTopN {
		selected = selected[:altcoinTopN]
	}

	symbols := make([]string, 0, len(selected))
	for _, g := range selected {
		if s, ok := perps[strings.ToUpper(g.Symbol)]; ok {
			symbols = append(symbols, s)
		}
	}
	futures := p.futuresMetrics(ctx, symbols)

	for _, g := range selected {
		base := strings.ToUpper(g.Symbol)
		sym := perps[base]
		in := models.AltcoinInput{
			Symbol:         base,
			Name:           g.Name,
			Price:          g.CurrentPrice,
			MarketCap:      g.MarketCap,
			SpotVolume:     g.TotalVolume,
			PriceChange24h: deref(g.PriceChangePercentage24),
			PriceChange7d:  deref(g.PriceChangePercentage7d),
		}
		if sym != "" {
			in.OpenInterest = futures.oi[sym]
			in.FundingRate = futures.funding[sym]
			in.OIHistory = futures.oiHist[sym]
			if vols := futures.volumes[sym]; len(vols) > 0 {
				in.FuturesVolume = vols[len(vols)-1]
				if len(vols) > futuresVolumeDays {
					vols = vols[len(vols)-futuresVolumeDays:]
				}
				in.FuturesVolume7d = vols
			}
		}
		snap.Inputs = append(snap.Inputs, in)
	}
	return snap, nil
}

// futuresMetrics pulls OI, funding, OI history and OHLCV in batches. Calls run sequentially
// under the Coinalyze rate limit; a failed call leaves its metrics empty.
func (p *Provider) futuresMetrics(ctx context.Context, symbols []string) *coinalyzeData {
	data := newCoinalyzeData()
	if len(symbols) == 0 {
		return data
	}

	batch := p.src.Sources.Coinalyze.BatchSize
	if batch <= 0 {
		batch = 20
	}
	now := p.now().Unix()
	from := now - int64(oiHistoryDays*24*time.Hour/time.Second)
	window := map[string][]string{
		"interval": {"daily"},
		"from":     {strconv.FormatInt(from, 10)},
		"to":       {strconv.FormatInt(now, 10)},
	}

	for start := 0; start < len(symbols); start += batch {
		end := start + batch
		if end > len(symbols) {
			end = len(symbols)
		}
		syms := strings.Join(symbols[start:end], ",")
		withSyms := func(q map[string][]string) map[string][]string {
			out := map[string][]string{"symbols": {syms}}
			for k, v := range q {
				out[k] = v
			}
			return out
		}

		var oi, funding []coinalyzeValue
		if err := p.coinalyze(ctx, "/open-interest", withSyms(nil), &oi); err != nil {
			p.logger.Warn("coinalyze open interest failed", xlogger.Error(err))
		}
		for _, v := range oi {
			data.oi[v.Symbol] = v.Value
		}
		if err := p.coinalyze(ctx, "/funding-rate", withSyms(nil), &funding); err != nil {
			p.logger.Warn("coinalyze funding failed", xlogger.Error(err))
		}
		for _, v := range funding {
			data.funding[v.Symbol] = v.Value
		}

		var oiHist, ohlcv []coinalyzeHistory
		if err := p.coinalyze(ctx, "/open-interest-history", withSyms(window), &oiHist); err != nil {
			p.logger.Warn("coinalyze oi history failed", xlogger.Error(err))
		}
		for _, h := range oiHist {
			closes := make([]float64, 0, len(h.History))
			for _, pt := range h.History {
				closes = append(closes, pt.C)
			}
			data.oiHist[h.Symbol] = closes
		}
		if err := p.coinalyze(ctx, "/ohlcv-history", withSyms(window), &ohlcv); err != nil {
			p.logger.Warn("coinalyze ohlcv failed", xlogger.Error(err))
		}
		for _, h := range ohlcv {
			vols := make([]float64, 0, len(h.History))
			for _, pt := range h.History {
				vols = append(vols, pt.V)
			}
			data.volumes[h.Symbol] = vols
		}

		if ctx.Err() != nil {
			break
		}
	}
	return data
}
