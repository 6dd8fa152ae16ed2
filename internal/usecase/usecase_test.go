package usecase

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"CycleScope/internal/domain/models"
	"CycleScope/internal/domain/service"
	"CycleScope/internal/services/indicators"
	"CycleScope/pkg/cache"
	xhttp "CycleScope/pkg/http"
)

type fakePrices struct {
	prices []models.DailyPrice
	err    error
}

func (f *fakePrices) BTCHistory(context.Context) ([]models.DailyPrice, error) {
	return f.prices, f.err
}

type stubIndicator struct {
	id    string
	fn    func(ctx context.Context) (models.IndicatorResult, error)
	calls int
	mu    sync.Mutex
}

func (s *stubIndicator) ID() string          { return s.id }
func (s *stubIndicator) Name() string        { return s.id }
func (s *stubIndicator) Description() string { return s.id + " card" }

func (s *stubIndicator) Calculate(ctx context.Context, _ []models.DailyPrice) (models.IndicatorResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(ctx)
}

func okIndicator(id string, sig models.Signal) *stubIndicator {
	return &stubIndicator{id: id, fn: func(context.Context) (models.IndicatorResult, error) {
		r := models.EmptyResult(id, id, "")
		r.Signal = sig
		r.CurrentValue = 1
		r.CurrentValueLabel = "1"
		return r, nil
	}}
}

func samplePrices() []models.DailyPrice {
	return []models.DailyPrice{
		{Timestamp: 1717113600, Date: "2024-05-31", Close: 67000},
		{Timestamp: 1717200000, Date: "2024-06-01", Close: 67500},
	}
}

func newDashboard(prices *fakePrices, list ...service.Indicator) *DashboardUseCase {
	uc := NewDashboardUseCase(prices, indicators.NewRegistryFrom(list...), nil, nil, time.Second, 50*time.Millisecond)
	uc.now = func() time.Time { return time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC) }
	return uc
}

func TestDashboardComputeOrderAndNilErrors(t *testing.T) {
	uc := newDashboard(&fakePrices{prices: samplePrices()},
		okIndicator("a", models.SignalBuy),
		okIndicator("b", models.SignalSell),
		okIndicator("c", models.SignalNeutral),
	)

	d, err := uc.Compute(context.Background())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if d.Errors != nil {
		t.Fatalf("expected nil errors, got %v", d.Errors)
	}
	if d.LastUpdated != "2024-06-01" {
		t.Fatalf("LastUpdated = %q", d.LastUpdated)
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if d.Results[i].ID != id {
			t.Fatalf("result %d = %q, want %q", i, d.Results[i].ID, id)
		}
	}
	if d.Results[1].Signal != models.SignalSell {
		t.Fatalf("signal = %q", d.Results[1].Signal)
	}
}

func TestDashboardIsolatesFailures(t *testing.T) {
	panicky := &stubIndicator{id: "panicky", fn: func(context.Context) (models.IndicatorResult, error) {
		panic("boom")
	}}
	slow := &stubIndicator{id: "slow", fn: func(ctx context.Context) (models.IndicatorResult, error) {
		<-ctx.Done()
		return models.IndicatorResult{}, ctx.Err()
	}}
	failing := &stubIndicator{id: "failing", fn: func(context.Context) (models.IndicatorResult, error) {
		return models.EmptyResult("failing", "failing", "desc"), errors.New("upstream down")
	}}
	uc := newDashboard(&fakePrices{prices: samplePrices()}, panicky, okIndicator("fine", models.SignalBuy), slow, failing)

	d, err := uc.Compute(context.Background())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(d.Results) != 4 {
		t.Fatalf("results = %d", len(d.Results))
	}
	for _, id := range []string{"panicky", "slow", "failing"} {
		if _, ok := d.Errors[id]; !ok {
			t.Errorf("missing error for %s: %v", id, d.Errors)
		}
	}
	if _, ok := d.Errors["fine"]; ok {
		t.Fatalf("healthy indicator reported an error")
	}
	if d.Results[1].Signal != models.SignalBuy {
		t.Fatalf("healthy result lost: %+v", d.Results[1])
	}
	for _, i := range []int{0, 2} {
		r := d.Results[i]
		if r.CurrentValueLabel != "N/A" || r.Signal != models.SignalNeutral {
			t.Errorf("result %d not empty: %+v", i, r)
		}
		if r.Description != r.ID+" card" {
			t.Errorf("result %d lost its description: %q", i, r.Description)
		}
	}
	if d.Results[3].Description != "desc" {
		t.Fatalf("indicator's own empty result should be kept")
	}
}

func TestDashboardBTCFailure(t *testing.T) {
	a := okIndicator("a", models.SignalBuy)
	uc := newDashboard(&fakePrices{err: errors.New("cryptocompare down")}, a, okIndicator("b", models.SignalSell))

	d, err := uc.Compute(context.Background())
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if d.Errors["btc-data"] == "" {
		t.Fatalf("expected btc-data error, got %v", d.Errors)
	}
	if d.LastUpdated != "2024-06-02" {
		t.Fatalf("LastUpdated = %q", d.LastUpdated)
	}
	for _, r := range d.Results {
		if r.CurrentValueLabel != "N/A" || r.Description == "" {
			t.Fatalf("expected labelled empty result, got %+v", r)
		}
	}
	if a.calls != 0 {
		t.Fatalf("indicators should not run without history")
	}
}

func TestDashboardIndicator(t *testing.T) {
	uc := newDashboard(&fakePrices{prices: samplePrices()}, okIndicator("a", models.SignalBuy))

	r, err := uc.Indicator(context.Background(), "a")
	if err != nil || r.ID != "a" {
		t.Fatalf("Indicator = %+v, %v", r, err)
	}

	_, err = uc.Indicator(context.Background(), "missing")
	var appErr *xhttp.AppError
	if !errors.As(err, &appErr) || appErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}

	uc.prices = &fakePrices{}
	_, err = uc.Indicator(context.Background(), "a")
	if !errors.As(err, &appErr) || appErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %v", err)
	}
}

type fakeScreenerData struct {
	alt    models.AltcoinSnapshot
	kr     models.KoreanSnapshot
	altErr error
	krErr  error
}

func (f *fakeScreenerData) AltcoinSnapshot(context.Context) (models.AltcoinSnapshot, error) {
	return f.alt, f.altErr
}

func (f *fakeScreenerData) KoreanSnapshot(context.Context) (models.KoreanSnapshot, error) {
	return f.kr, f.krErr
}

func sampleScreenerData() *fakeScreenerData {
	return &fakeScreenerData{
		alt: models.AltcoinSnapshot{
			BTCChange7d: 2,
			Inputs: []models.AltcoinInput{
				{Symbol: "AAA", Price: 1, SpotVolume: 100, PriceChange7d: 1},
				{Symbol: "BBB", Price: 1, SpotVolume: 300, PriceChange7d: 1},
				{Symbol: "CCC", Price: 1, SpotVolume: 200, PriceChange7d: 1},
			},
		},
		kr: models.KoreanSnapshot{
			BTCKRW: 90_000_000,
			BTCUSD: 65_000,
			Tokens: []models.KoreanInput{
				{Symbol: "BTC", UpbitPriceKRW: 90_000_000, UpbitVolumeKRW: 1e12},
				{Symbol: "XRP", UpbitPriceKRW: 700, UpbitVolumeKRW: 5e9, PriceUSD: 0.5},
				{Symbol: "DOGE", UpbitPriceKRW: 200, UpbitVolumeKRW: 9e9, PriceUSD: 0.14},
			},
		},
	}
}

func TestScreenersSortAndLimit(t *testing.T) {
	uc := NewScreenersUseCase(sampleScreenerData(), nil, nil)

	alt, err := uc.Altcoins(context.Background(), "volume", 2)
	if err != nil {
		t.Fatalf("Altcoins: %v", err)
	}
	if len(alt.Rows) != 2 || alt.Rows[0].Symbol != "BBB" || alt.Rows[1].Symbol != "CCC" {
		t.Fatalf("unexpected rows: %+v", alt.Rows)
	}

	kr, err := uc.Korean(context.Background(), "volume", 0)
	if err != nil {
		t.Fatalf("Korean: %v", err)
	}
	if len(kr.Rows) != 2 || kr.Rows[0].Symbol != "DOGE" {
		t.Fatalf("unexpected korean rows: %+v", kr.Rows)
	}
}

func TestScreenersUpstreamFailure(t *testing.T) {
	data := sampleScreenerData()
	data.krErr = errors.New("upbit down")
	uc := NewScreenersUseCase(data, nil, nil)

	_, err := uc.Korean(context.Background(), "", 10)
	var appErr *xhttp.AppError
	if !errors.As(err, &appErr) || appErr.Status != http.StatusServiceUnavailable || appErr.Code != "ERR_UPSTREAM" {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

type fakeInvalidator struct {
	tags [][]string
	err  error
}

func (f *fakeInvalidator) Invalidate(_ context.Context, tags ...string) error {
	f.tags = append(f.tags, tags)
	return f.err
}

type fakePublisher struct {
	mu        sync.Mutex
	dashboard []models.DashboardSnapshot
	screeners []string
	err       error
}

func (f *fakePublisher) PublishDashboard(_ context.Context, s models.DashboardSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dashboard = append(f.dashboard, s)
	return f.err
}

func (f *fakePublisher) PublishScreener(_ context.Context, kind string, _ interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.screeners = append(f.screeners, kind)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

func newRefresh(t *testing.T, inv *fakeInvalidator, pub *fakePublisher, data *fakeScreenerData) (*RefreshUseCase, *cache.MemoryCache) {
	t.Helper()
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	dash := newDashboard(&fakePrices{prices: samplePrices()}, okIndicator("a", models.SignalBuy))
	scr := NewScreenersUseCase(data, nil, nil)
	return NewRefreshUseCase(mc, inv, dash, scr, pub, time.Minute, nil), mc
}

func TestRefreshRun(t *testing.T) {
	inv := &fakeInvalidator{}
	pub := &fakePublisher{}
	uc, mc := newRefresh(t, inv, pub, sampleScreenerData())

	report, err := uc.Run(context.Background(), []string{"btc-data"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(inv.tags) != 1 || len(inv.tags[0]) != 1 || inv.tags[0][0] != "btc-data" {
		t.Fatalf("invalidated %v", inv.tags)
	}
	if report.Published != 3 || report.Errors != nil {
		t.Fatalf("report = %+v", report)
	}
	if len(pub.dashboard) != 1 || pub.dashboard[0].Date != "2024-06-01" {
		t.Fatalf("dashboard snapshots = %+v", pub.dashboard)
	}
	if len(pub.screeners) != 2 || pub.screeners[0] != "altcoins" || pub.screeners[1] != "korean" {
		t.Fatalf("screener kinds = %v", pub.screeners)
	}

	ok, _ := mc.TryLock(context.Background(), refreshLockKey, time.Minute)
	if !ok {
		t.Fatalf("lock should be released after Run")
	}
}

func TestRefreshRejectsOverlapAndUnknownTags(t *testing.T) {
	inv := &fakeInvalidator{}
	uc, mc := newRefresh(t, inv, &fakePublisher{}, sampleScreenerData())

	if _, err := uc.Run(context.Background(), []string{"nope"}); err == nil {
		t.Fatalf("expected unknown tag error")
	}

	if ok, _ := mc.TryLock(context.Background(), refreshLockKey, time.Minute); !ok {
		t.Fatalf("TryLock failed")
	}
	if _, err := uc.Run(context.Background(), nil); !errors.Is(err, ErrRefreshInProgress) {
		t.Fatalf("expected ErrRefreshInProgress, got %v", err)
	}
	if len(inv.tags) != 0 {
		t.Fatalf("nothing should be invalidated")
	}
}

func TestRefreshCollectsErrors(t *testing.T) {
	data := sampleScreenerData()
	data.altErr = errors.New("coingecko down")
	pub := &fakePublisher{err: errors.New("broker down")}
	uc, _ := newRefresh(t, &fakeInvalidator{}, pub, data)

	report, err := uc.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Published != 0 {
		t.Fatalf("published = %d", report.Published)
	}
	for _, k := range []string{"altcoin-data", "publish:dashboard", "publish:korean"} {
		if report.Errors[k] == "" {
			t.Errorf("missing error %q in %v", k, report.Errors)
		}
	}
	if len(report.Tags) != 9 {
		t.Fatalf("empty tag list should mean every tag, got %v", report.Tags)
	}
}

func TestRefreshInvalidateFailureAborts(t *testing.T) {
	pub := &fakePublisher{}
	uc, _ := newRefresh(t, &fakeInvalidator{err: errors.New("redis down")}, pub, sampleScreenerData())

	if _, err := uc.Run(context.Background(), nil); err == nil {
		t.Fatalf("expected error")
	}
	if len(pub.dashboard) != 0 {
		t.Fatalf("nothing should be published")
	}
}

func TestRefreshHandler(t *testing.T) {
	inv := &fakeInvalidator{}
	pub := &fakePublisher{}
	uc, mc := newRefresh(t, inv, pub, sampleScreenerData())
	h := NewRefreshHandler("cyclescope.refresh", uc, nil)

	if h.Topic() != "cyclescope.refresh" {
		t.Fatalf("topic = %q", h.Topic())
	}
	if err := h.Handle(context.Background(), []byte(`{"tags":["korean-data"]}`)); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(inv.tags) != 1 || inv.tags[0][0] != "korean-data" {
		t.Fatalf("invalidated %v", inv.tags)
	}

	if err := h.Handle(context.Background(), []byte(`not json`)); err != nil {
		t.Fatalf("malformed request should be dropped, got %v", err)
	}

	_, _ = mc.TryLock(context.Background(), refreshLockKey, time.Minute)
	if err := h.Handle(context.Background(), nil); err != nil {
		t.Fatalf("overlapping refresh should be dropped, got %v", err)
	}
	if len(inv.tags) != 1 {
		t.Fatalf("no further invalidation expected, got %v", inv.tags)
	}
}
