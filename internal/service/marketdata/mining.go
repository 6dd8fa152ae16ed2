package marketdata

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"CycleScope/internal/domain/models"
	drepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/services/features"
	"CycleScope/pkg/util"
)

const miningTimespan = "3years"

type chartResponse struct {
	Values []struct {
		X int64   `json:"x"`
		Y float64 `json:"y"`
	} `json:"values"`
}

func (p *Provider) blockchainChart(ctx context.Context, chart string) (chartResponse, error) {
	var resp chartResponse
	err := p.getJSON(ctx, request{
		source: drepo.SourceMining,
		url:    p.endpoint(p.src.Sources.BlockchainInfo, "/charts/"+chart),
		query: map[string][]string{
			"timespan": {miningTimespan},
			"format":   {"json"},
			"sampled":  {"true"},
		},
	}, &resp)
	return resp, err
}

// MiningCost returns hashrate, difficulty and the estimated electricity cost per BTC.
func (p *Provider) MiningCost(ctx context.Context) ([]models.MiningPoint, error) {
	var hash, diff chartResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		hash, err = p.blockchainChart(gctx, "hash-rate")
		return err
	})
	g.Go(func() (err error) {
		diff, err = p.blockchainChart(gctx, "difficulty")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	diffByDate := make(map[string]float64, len(diff.Values))
	for _, v := range diff.Values {
		diffByDate[util.DateOf(v.X)] = v.Y
	}

	out := make([]models.MiningPoint, 0, len(hash.Values))
	for _, h := range hash.Values {
		date := util.DateOf(h.X)
		out = append(out, models.MiningPoint{
			Timestamp:     h.X,
			Date:          date,
			Hashrate:      h.Y,
			Difficulty:    diffByDate[date],
			EstimatedCost: features.ProductionCost(h.Y, time.Unix(h.X, 0).UTC()),
		})
	}
	return out, nil
}
