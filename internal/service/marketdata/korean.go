package marketdata

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"CycleScope/internal/domain/models"
	drepo "CycleScope/internal/domain/repository"
	xlogger "CycleScope/pkg/logger"
	"CycleScope/pkg/util"
)

const (
	krwPrefix        = "KRW-"
	bithumbStatusOK  = "0000"
	bithumbDateField = "date"
)

type upbitMarket struct {
	Market      string `json:"market"`
	EnglishName string `json:"english_name"`
}

type upbitTicker struct {
	Market           string  `json:"market"`
	TradePrice       float64 `json:"trade_price"`
	AccTradePrice24h float64 `json:"acc_trade_price_24h"`
	SignedChangeRate float64 `json:"signed_change_rate"`
}

type bithumbTicker struct {
	ClosingPrice     string `json:"closing_price"`
	AccTradeValue24H string `json:"acc_trade_value_24H"`
}

type bithumbAll struct {
	Status string                     `json:"status"`
	Data   map[string]json.RawMessage `json:"data"`
}

// bithumbVolumes returns 24h KRW traded value by base symbol.
func (p *Provider) bithumbVolumes(ctx context.Context) (map[string]float64, error) {
	var resp bithumbAll
	if err := p.getJSON(ctx, request{
		source: drepo.SourceKorean,
		url:    p.endpoint(p.src.Sources.Bithumb, "/public/ticker/ALL_KRW"),
	}, &resp); err != nil {
		return nil, err
	}
	return parseBithumb(resp), nil
}

func parseBithumb(resp bithumbAll) map[string]float64 {
	out := make(map[string]float64)
	if resp.Status != bithumbStatusOK {
		return out
	}
	for sym, raw := range resp.Data {
		if sym == bithumbDateField {
			continue
		}
		var t bithumbTicker
		if err := json.Unmarshal(raw, &t); err != nil {
			continue
		}
		out[strings.ToUpper(sym)] = util.ParseFloatDefault(t.AccTradeValue24H, 0)
	}
	return out
}

// KoreanSnapshot gathers Upbit KRW prices and volumes, Bithumb volumes and CoinGecko USD prices.
// Upbit is required; Bithumb and CoinGecko failures degrade to zero volumes or premiums.
func (p *Provider) KoreanSnapshot(ctx context.Context) (models.KoreanSnapshot, error) {
	var (
		markets []upbitMarket
		bithumb map[string]float64
		gecko   []geckoMarket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.getJSON(gctx, request{
			source: drepo.SourceKorean,
			url:    p.endpoint(p.src.Sources.Upbit, "/market/all"),
			query:  map[string][]string{"is_details": {"false"}},
		}, &markets)
	})
	g.Go(func() error {
		v, err := p.bithumbVolumes(gctx)
		if err != nil {
			p.logger.Warn("bithumb tickers failed", xlogger.Error(err))
			return nil
		}
		bithumb = v
		return nil
	})
	g.Go(func() error {
		v, err := p.geckoMarkets(gctx, drepo.SourceKorean, geckoIDs(upbitGeckoIDs), false)
		if err != nil {
			p.logger.Warn("coingecko markets failed", xlogger.Error(err))
			return nil
		}
		gecko = v
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.KoreanSnapshot{}, err
	}

	names := make(map[string]string)
	codes := make([]string, 0, len(markets))
	for _, m := range markets {
		if !strings.HasPrefix(m.Market, krwPrefix) {
			continue
		}
		base := strings.TrimPrefix(m.Market, krwPrefix)
		if _, ok := upbitGeckoIDs[base]; !ok {
			continue
		}
		names[base] = m.EnglishName
		codes = append(codes, m.Market)
	}
	sort.Strings(codes)

	var tickers []upbitTicker
	if len(codes) > 0 {
		if err := p.getJSON(ctx, request{
			source: drepo.SourceKorean,
			url:    p.endpoint(p.src.Sources.Upbit, "/ticker"),
			query:  map[string][]string{"markets": {strings.Join(codes, ",")}},
		}, &tickers); err != nil {
			return models.KoreanSnapshot{}, err
		}
	}

	return assembleKorean(tickers, names, bithumb, bySymbol(gecko)), nil
}

func assembleKorean(tickers []upbitTicker, names map[string]string, bithumb map[string]float64, gecko map[string]geckoMarket) models.KoreanSnapshot {
	snap := models.KoreanSnapshot{}
	for _, t := range tickers {
		base := strings.TrimPrefix(t.Market, krwPrefix)
		gm, ok := gecko[base]
		if base == "BTC" {
			snap.BTCKRW = t.TradePrice
			if ok {
				snap.BTCUSD = gm.CurrentPrice
			}
		}
		if !ok {
			continue
		}
		snap.Tokens = append(snap.Tokens, models.KoreanInput{
			Symbol:         base,
			Name:           names[base],
			UpbitPriceKRW:  t.TradePrice,
			UpbitVolumeKRW: t.AccTradePrice24h,
			BithumbVolKRW:  bithumb[base],
			ChangeRate:     t.SignedChangeRate,
			PriceUSD:       gm.CurrentPrice,
			MarketCapUSD:   gm.MarketCap,
		})
	}
	sort.Slice(snap.Tokens, func(i, j int) bool { return snap.Tokens[i].Symbol < snap.Tokens[j].Symbol })
	return snap
}
