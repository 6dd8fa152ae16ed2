package marketdata

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"CycleScope/internal/domain/models"
	drepo "CycleScope/internal/domain/repository"
	"CycleScope/pkg/util"
)

// DefiLlama stablecoin ids.
const (
	stablecoinUSDT = 1
	stablecoinUSDC = 2
)

type llamaEntry struct {
	Date                interface{} `json:"date"`
	TotalCirculatingUSD struct {
		PeggedUSD float64 `json:"peggedUSD"`
	} `json:"totalCirculatingUSD"`
}

func (p *Provider) stablecoinChart(ctx context.Context, id int) ([]models.SeriesPoint, error) {
	var raw []llamaEntry
	if err := p.getJSON(ctx, request{
		source: drepo.SourceStablecoin,
		url:    p.endpoint(p.src.Sources.DefiLlama, "/stablecoincharts/all"),
		query:  map[string][]string{"stablecoin": {strconv.Itoa(id)}},
	}, &raw); err != nil {
		return nil, err
	}

	out := make([]models.SeriesPoint, 0, len(raw))
	for _, e := range raw {
		ts := int64(toFloat(e.Date))
		if ts <= 0 {
			continue
		}
		out = append(out, models.SeriesPoint{
			Timestamp: ts,
			Date:      util.DateOf(ts),
			Value:     e.TotalCirculatingUSD.PeggedUSD,
		})
	}
	return out, nil
}

// StablecoinSupply returns USDT + USDC circulating supply summed per date.
func (p *Provider) StablecoinSupply(ctx context.Context) ([]models.SeriesPoint, error) {
	var usdt, usdc []models.SeriesPoint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		usdt, err = p.stablecoinChart(gctx, stablecoinUSDT)
		return err
	})
	g.Go(func() (err error) {
		usdc, err = p.stablecoinChart(gctx, stablecoinUSDC)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return MergeSupply(usdt, usdc), nil
}

// MergeSupply sums series by date. The first series seen for a date fixes its timestamp.
func MergeSupply(series ...[]models.SeriesPoint) []models.SeriesPoint {
	byDate := make(map[string]*models.SeriesPoint)
	for _, s := range series {
		for _, pt := range s {
			if existing, ok := byDate[pt.Date]; ok {
				existing.Value += pt.Value
				continue
			}
			cp := pt
			byDate[pt.Date] = &cp
		}
	}
	out := make([]models.SeriesPoint, 0, len(byDate))
	for _, pt := range byDate {
		out = append(out, *pt)
	}
	sortSeries(out)
	return out
}
