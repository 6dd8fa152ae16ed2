package marketdata

import (
	"context"
	"strconv"
	"strings"
	"time"

	"CycleScope/internal/domain/models"
	drepo "CycleScope/internal/domain/repository"
	"CycleScope/pkg/util"
)

type bookSummaryEntry struct {
	InstrumentName  string  `json:"instrument_name"`
	OpenInterest    float64 `json:"open_interest"`
	MarkIV          float64 `json:"mark_iv"`
	UnderlyingPrice float64 `json:"underlying_price"`
}

// OptionsSummary aggregates the current BTC option book from Deribit.
func (p *Provider) OptionsSummary(ctx context.Context) (models.OptionsSummary, error) {
	var resp struct {
		Result []bookSummaryEntry `json:"result"`
	}
	if err := p.getJSON(ctx, request{
		source: drepo.SourceDeribit,
		url:    p.endpoint(p.src.Sources.Deribit, "/api/v2/public/get_book_summary_by_currency"),
		query:  map[string][]string{"currency": {"BTC"}, "kind": {"option"}},
	}, &resp); err != nil {
		return models.OptionsSummary{}, err
	}
	return summarizeBook(resp.Result), nil
}

// summarizeBook computes put/call OI ratio, total OI and OI-weighted mark IV.
func summarizeBook(entries []bookSummaryEntry) models.OptionsSummary {
	var putOI, callOI, totalOI, ivSum, ivWeight, underlying float64
	for _, e := range entries {
		oi := e.OpenInterest
		totalOI += oi
		switch {
		case strings.HasSuffix(e.InstrumentName, "-P"):
			putOI += oi
		case strings.HasSuffix(e.InstrumentName, "-C"):
			callOI += oi
		}
		if e.MarkIV > 0 && oi > 0 {
			ivSum += e.MarkIV * oi
			ivWeight += oi
		}
		if e.UnderlyingPrice > 0 {
			underlying = e.UnderlyingPrice
		}
	}

	s := models.OptionsSummary{TotalOpenInterest: totalOI, UnderlyingPrice: underlying}
	if callOI > 0 {
		s.PutCallRatio = putOI / callOI
	}
	if ivWeight > 0 {
		s.AggregateIV = ivSum / ivWeight
	}
	return s
}

// DVOLHistory returns the daily close of Deribit's BTC volatility index.
func (p *Provider) DVOLHistory(ctx context.Context, days int) ([]models.SeriesPoint, error) {
	if days <= 0 {
		days = 365
	}
	end := p.now()
	start := end.Add(-time.Duration(days) * 24 * time.Hour)

	var resp struct {
		Result struct {
			Data [][]float64 `json:"data"`
		} `json:"result"`
	}
	if err := p.getJSON(ctx, request{
		source: drepo.SourceDeribit,
		url:    p.endpoint(p.src.Sources.Deribit, "/api/v2/public/get_volatility_index_data"),
		query: map[string][]string{
			"currency":        {"BTC"},
			"start_timestamp": {strconv.FormatInt(start.UnixMilli(), 10)},
			"end_timestamp":   {strconv.FormatInt(end.UnixMilli(), 10)},
			"resolution":      {"1D"},
		},
	}, &resp); err != nil {
		return nil, err
	}

	out := make([]models.SeriesPoint, 0, len(resp.Result.Data))
	for _, c := range resp.Result.Data {
		if len(c) < 5 {
			continue
		}
		ts := int64(c[0]) / 1000
		out = append(out, models.SeriesPoint{Timestamp: ts, Date: util.DateOf(ts), Value: c[4]})
	}
	return out, nil
}
