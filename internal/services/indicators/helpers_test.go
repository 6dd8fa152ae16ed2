package indicators

import (
	"context"
	"errors"
	"math"
	"time"

	"CycleScope/internal/domain/models"
)

var errUpstream = errors.New("upstream down")

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func makePrices(start string, closes []float64) []models.DailyPrice {
	t0 := day(start)
	out := make([]models.DailyPrice, len(closes))
	for i, c := range closes {
		t := t0.AddDate(0, 0, i)
		out[i] = models.DailyPrice{Timestamp: t.Unix(), Date: t.Format("2006-01-02"), Close: c, Open: c, High: c, Low: c}
	}
	return out
}

func makeSeries(start string, values []float64) []models.SeriesPoint {
	t0 := day(start)
	out := make([]models.SeriesPoint, len(values))
	for i, v := range values {
		t := t0.AddDate(0, 0, i)
		out[i] = models.SeriesPoint{Timestamp: t.Unix(), Date: t.Format("2006-01-02"), Value: v}
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// fakeMarket implements repository.MarketData with canned series; err fails every call.
type fakeMarket struct {
	btc        []models.DailyPrice
	stablecoin []models.SeriesPoint
	binance    []models.SeriesPoint
	coinbase   []models.SeriesPoint
	longs      []models.SeriesPoint
	dvol       []models.SeriesPoint
	summary    models.OptionsSummary
	mining     []models.MiningPoint
	realized   []models.SeriesPoint
	err        error
}

func (f *fakeMarket) BTCHistory(context.Context) ([]models.DailyPrice, error) { return f.btc, f.err }
func (f *fakeMarket) StablecoinSupply(context.Context) ([]models.SeriesPoint, error) {
	return f.stablecoin, f.err
}
func (f *fakeMarket) BinanceCloses(context.Context, int) ([]models.SeriesPoint, error) {
	return f.binance, f.err
}
func (f *fakeMarket) CoinbaseCloses(context.Context, int) ([]models.SeriesPoint, error) {
	return f.coinbase, f.err
}
func (f *fakeMarket) BitfinexLongs(context.Context, int) ([]models.SeriesPoint, error) {
	return f.longs, f.err
}
func (f *fakeMarket) DVOLHistory(context.Context, int) ([]models.SeriesPoint, error) {
	return f.dvol, f.err
}
func (f *fakeMarket) OptionsSummary(context.Context) (models.OptionsSummary, error) {
	return f.summary, f.err
}
func (f *fakeMarket) MiningCost(context.Context) ([]models.MiningPoint, error) { return f.mining, f.err }
func (f *fakeMarket) RealizedPrice(context.Context) ([]models.SeriesPoint, error) {
	return f.realized, f.err
}
