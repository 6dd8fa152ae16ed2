package marketdata

import (
	"context"
	"fmt"
	"math"

	"CycleScope/internal/domain/models"
	drepo "CycleScope/internal/domain/repository"
	"CycleScope/pkg/util"
)

type histodayResponse struct {
	Response string `json:"Response"`
	Message  string `json:"Message"`
	Data     struct {
		Data []struct {
			Time       int64   `json:"time"`
			Open       float64 `json:"open"`
			High       float64 `json:"high"`
			Low        float64 `json:"low"`
			Close      float64 `json:"close"`
			VolumeFrom float64 `json:"volumefrom"`
		} `json:"Data"`
	} `json:"Data"`
}

// BTCHistory returns the full daily BTC/USD history from CryptoCompare, skipping empty days.
func (p *Provider) BTCHistory(ctx context.Context) ([]models.DailyPrice, error) {
	query := map[string][]string{
		"fsym":    {"BTC"},
		"tsym":    {"USD"},
		"allData": {"true"},
	}
	if key := p.src.Sources.CryptoCompare.APIKey; key != "" {
		query["api_key"] = []string{key}
	}

	var resp histodayResponse
	if err := p.getJSON(ctx, request{
		source: drepo.SourceBTC,
		url:    p.endpoint(p.src.Sources.CryptoCompare, "/data/v2/histoday"),
		query:  query,
	}, &resp); err != nil {
		return nil, err
	}
	if resp.Response == "Error" {
		return nil, fmt.Errorf("%s: cryptocompare: %s", drepo.SourceBTC, resp.Message)
	}

	out := make([]models.DailyPrice, 0, len(resp.Data.Data))
	for _, d := range resp.Data.Data {
		if d.Close <= 0 {
			continue
		}
		out = append(out, models.DailyPrice{
			Timestamp: d.Time,
			Date:      util.DateOf(d.Time),
			Open:      d.Open,
			High:      d.High,
			Low:       d.Low,
			Close:     d.Close,
			Volume:    d.VolumeFrom,
		})
	}
	return out, nil
}

type realizedEntry struct {
	TheDay        string      `json:"theDay"`
	UnixTs        interface{} `json:"unixTs"`
	RealizedPrice interface{} `json:"realizedPrice"`
}

// RealizedPrice returns the on-chain realized price series, dropping non-positive values.
func (p *Provider) RealizedPrice(ctx context.Context) ([]models.SeriesPoint, error) {
	var raw []realizedEntry
	if err := p.getJSON(ctx, request{
		source: drepo.SourceRealized,
		url:    p.endpoint(p.src.Sources.BitcoinData, "/v1/realized-price"),
	}, &raw); err != nil {
		return nil, err
	}

	out := make([]models.SeriesPoint, 0, len(raw))
	for _, e := range raw {
		v := toFloat(e.RealizedPrice)
		if math.IsNaN(v) || v <= 0 {
			continue
		}
		ts := int64(toFloat(e.UnixTs))
		date := e.TheDay
		if ts == 0 {
			t, err := util.ParseDate(date)
			if err != nil {
				continue
			}
			ts = t.Unix()
		}
		if date == "" {
			date = util.DateOf(ts)
		}
		out = append(out, models.SeriesPoint{Timestamp: ts, Date: date, Value: v})
	}
	sortSeries(out)
	return out, nil
}
