package marketdata

import (
	"context"
	"strings"
)

type geckoMarket struct {
	ID                      string   `json:"id"`
	Symbol                  string   `json:"symbol"`
	Name                    string   `json:"name"`
	CurrentPrice            float64  `json:"current_price"`
	MarketCap               float64  `json:"market_cap"`
	TotalVolume             float64  `json:"total_volume"`
	PriceChangePercentage24 *float64 `json:"price_change_percentage_24h"`
	PriceChangePercentage7d *float64 `json:"price_change_percentage_7d_in_currency"`
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// geckoMarkets fetches USD market data for ids in a single page.
func (p *Provider) geckoMarkets(ctx context.Context, source string, ids []string, with7d bool) ([]geckoMarket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := map[string][]string{
		"vs_currency": {"usd"},
		"ids":         {strings.Join(ids, ",")},
		"per_page":    {"250"},
		"order":       {"market_cap_desc"},
		"sparkline":   {"false"},
	}
	if with7d {
		query["price_change_percentage"] = []string{"7d"}
	}

	var out []geckoMarket
	err := p.getJSON(ctx, request{
		source: source,
		url:    p.endpoint(p.src.Sources.CoinGecko, "/coins/markets"),
		query:  query,
	}, &out)
	return out, err
}

func bySymbol(markets []geckoMarket) map[string]geckoMarket {
	out := make(map[string]geckoMarket, len(markets))
	for _, g := range markets {
		out[strings.ToUpper(g.Symbol)] = g
	}
	return out
}

