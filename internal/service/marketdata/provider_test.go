package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"CycleScope/pkg/config"
)

var testNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func newTestProvider(t *testing.T, mux *http.ServeMux) *Provider {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Sources.Timeout = 5 * time.Second
	cfg.Sources.RetryAttempts = 3
	cfg.Sources.RetryBackoff = time.Millisecond
	for _, e := range []*config.Endpoint{
		&cfg.Sources.CryptoCompare, &cfg.Sources.DefiLlama, &cfg.Sources.Binance,
		&cfg.Sources.Coinbase, &cfg.Sources.Bitfinex, &cfg.Sources.Deribit,
		&cfg.Sources.BlockchainInfo, &cfg.Sources.BitcoinData, &cfg.Sources.CoinGecko,
		&cfg.Sources.Upbit, &cfg.Sources.Bithumb, &cfg.Sources.Coinalyze.Endpoint,
	} {
		e.BaseURL = srv.URL
	}
	cfg.Sources.Coinalyze.BatchSize = 20
	cfg.Sources.Coinalyze.RequestsPerMinute = 6000

	p := NewProvider(cfg, nil, nil)
	p.now = func() time.Time { return testNow }
	return p
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestBTCHistoryFiltersEmptyDays(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/v2/histoday", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("allData") != "true" || r.URL.Query().Get("fsym") != "BTC" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, `{"Response":"Success","Data":{"Data":[
			{"time":1279238400,"open":0,"high":0,"low":0,"close":0,"volumefrom":0},
			{"time":1279324800,"open":0.05,"high":0.06,"low":0.04,"close":0.0495,"volumefrom":20}
		]}}`)
	})
	p := newTestProvider(t, mux)

	got, err := p.BTCHistory(context.Background())
	if err != nil {
		t.Fatalf("BTCHistory: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d rows, want 1", len(got))
	}
	if got[0].Date != "2010-07-17" || got[0].Close != 0.0495 || got[0].Volume != 20 {
		t.Fatalf("row: %+v", got[0])
	}
}

func TestBTCHistoryReportsAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/data/v2/histoday", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Response":"Error","Message":"rate limit"}`)
	})
	p := newTestProvider(t, mux)

	if _, err := p.BTCHistory(context.Background()); err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestRetriesTooManyRequests(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/realized-price", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `[
			{"theDay":"2024-01-02","unixTs":"1704153600","realizedPrice":"30100.5"},
			{"theDay":"2024-01-01","unixTs":"1704067200","realizedPrice":"30000"},
			{"theDay":"2024-01-03","unixTs":"1704240000","realizedPrice":"0"}
		]`)
	})
	p := newTestProvider(t, mux)

	got, err := p.RealizedPrice(context.Background())
	if err != nil {
		t.Fatalf("RealizedPrice: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(got) != 2 || got[0].Date != "2024-01-01" || got[1].Value != 30100.5 {
		t.Fatalf("series: %+v", got)
	}
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/realized-price", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	})
	p := newTestProvider(t, mux)

	if _, err := p.RealizedPrice(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestStablecoinSupplySumsByDate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/stablecoincharts/all", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("stablecoin") {
		case "1":
			fmt.Fprint(w, `[{"date":"1704067200","totalCirculatingUSD":{"peggedUSD":100}},{"date":"1704153600","totalCirculatingUSD":{"peggedUSD":110}}]`)
		case "2":
			fmt.Fprint(w, `[{"date":"1704153600","totalCirculatingUSD":{"peggedUSD":50}},{"date":"1704240000","totalCirculatingUSD":{"peggedUSD":60}}]`)
		}
	})
	p := newTestProvider(t, mux)

	got, err := p.StablecoinSupply(context.Background())
	if err != nil {
		t.Fatalf("StablecoinSupply: %v", err)
	}
	want := []float64{100, 160, 60}
	if len(got) != len(want) {
		t.Fatalf("got %d points", len(got))
	}
	for i, w := range want {
		if got[i].Value != w {
			t.Errorf("point %d (%s) = %v, want %v", i, got[i].Date, got[i].Value, w)
		}
	}
}

func TestBinanceClosesParsesStringPrices(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v3/klines", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "1000" {
			t.Errorf("limit = %s", r.URL.Query().Get("limit"))
		}
		fmt.Fprint(w, `[[1704067200000,"42000.1","43000","41000","42500.5","100"],[1704153600000,"42500.5","45000","42000","44000","90"]]`)
	})
	p := newTestProvider(t, mux)

	got, err := p.BinanceCloses(context.Background(), 5000)
	if err != nil {
		t.Fatalf("BinanceCloses: %v", err)
	}
	if len(got) != 2 || got[0].Date != "2024-01-01" || got[0].Value != 42500.5 || got[1].Value != 44000 {
		t.Fatalf("series: %+v", got)
	}
}

func TestCoinbaseClosesChunksAndDedupes(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/products/BTC-USD/candles", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Query().Get("granularity") != "86400" {
			t.Errorf("granularity = %s", r.URL.Query().Get("granularity"))
		}
		fmt.Fprint(w, `[[1704153600,1,2,1.5,42000,10],[1704067200,1,2,1.5,41000,10]]`)
	})
	p := newTestProvider(t, mux)

	got, err := p.CoinbaseCloses(context.Background(), 600)
	if err != nil {
		t.Fatalf("CoinbaseCloses: %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("calls = %d, want 2 chunks", calls)
	}
	if len(got) != 2 || got[0].Value != 41000 || got[1].Value != 42000 {
		t.Fatalf("series: %+v", got)
	}
}

func TestBitfinexLongsKeepsLatestHourPerDay(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/stats1/pos.size:1h:tBTCUSD:long/hist", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sort") != "-1" {
			t.Errorf("sort = %s", r.URL.Query().Get("sort"))
		}
		// 2024-01-02 23:00, 2024-01-02 00:00, 2024-01-01 12:00
		fmt.Fprint(w, `[[1704236400000,200],[1704153600000,150],[1704110400000,100]]`)
	})
	p := newTestProvider(t, mux)

	got, err := p.BitfinexLongs(context.Background(), 30)
	if err != nil {
		t.Fatalf("BitfinexLongs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d points: %+v", len(got), got)
	}
	if got[0].Date != "2024-01-01" || got[0].Value != 100 || got[1].Date != "2024-01-02" || got[1].Value != 200 {
		t.Fatalf("series: %+v", got)
	}
}

func TestOptionsSummaryAggregatesBook(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/public/get_book_summary_by_currency", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"result":[
			{"instrument_name":"BTC-28JUN24-60000-P","open_interest":30,"mark_iv":60,"underlying_price":65000},
			{"instrument_name":"BTC-28JUN24-70000-C","open_interest":60,"mark_iv":45,"underlying_price":65100},
			{"instrument_name":"BTC-28JUN24-80000-C","open_interest":0,"mark_iv":90,"underlying_price":0}
		]}`)
	})
	p := newTestProvider(t, mux)

	got, err := p.OptionsSummary(context.Background())
	if err != nil {
		t.Fatalf("OptionsSummary: %v", err)
	}
	if !approx(got.PutCallRatio, 0.5) || got.TotalOpenInterest != 90 || !approx(got.AggregateIV, 50) || got.UnderlyingPrice != 65100 {
		t.Fatalf("summary: %+v", got)
	}
}

func TestMiningCostJoinsDifficulty(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/charts/hash-rate", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"values":[{"x":1704067200,"y":500000000}]}`)
	})
	mux.HandleFunc("/charts/difficulty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"values":[{"x":1704067200,"y":72000000000000}]}`)
	})
	p := newTestProvider(t, mux)

	got, err := p.MiningCost(context.Background())
	if err != nil {
		t.Fatalf("MiningCost: %v", err)
	}
	if len(got) != 1 || got[0].Difficulty != 72e12 {
		t.Fatalf("points: %+v", got)
	}
	// 5e8 TH/s * 25 J/TH * 24h / 1000 * $0.05 / (6.25 * 144)
	if want := 5e8 * 25 * 24 / 1000 * 0.05 / 900; !approx(got[0].EstimatedCost, want) {
		t.Fatalf("cost = %v, want %v", got[0].EstimatedCost, want)
	}
}

func TestKoreanSnapshotToleratesBithumbFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/market/all", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"market":"KRW-BTC","english_name":"Bitcoin"},{"market":"KRW-ETH","english_name":"Ethereum"},{"market":"BTC-ETH","english_name":"Ethereum"},{"market":"KRW-NOPE","english_name":"Unknown"}]`)
	})
	mux.HandleFunc("/ticker", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("markets"); got != "KRW-BTC,KRW-ETH" {
			t.Errorf("markets = %q", got)
		}
		fmt.Fprint(w, `[{"market":"KRW-BTC","trade_price":145000000,"acc_trade_price_24h":1e11,"signed_change_rate":0.01},{"market":"KRW-ETH","trade_price":4350000,"acc_trade_price_24h":5e10,"signed_change_rate":-0.02}]`)
	})
	mux.HandleFunc("/public/ticker/ALL_KRW", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	mux.HandleFunc("/coins/markets", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":"bitcoin","symbol":"btc","current_price":100000,"market_cap":2e12},{"id":"ethereum","symbol":"eth","current_price":3000,"market_cap":3.6e11}]`)
	})
	p := newTestProvider(t, mux)

	snap, err := p.KoreanSnapshot(context.Background())
	if err != nil {
		t.Fatalf("KoreanSnapshot: %v", err)
	}
	if snap.BTCKRW != 145000000 || snap.BTCUSD != 100000 {
		t.Fatalf("btc prices: %+v", snap)
	}
	if len(snap.Tokens) != 2 {
		t.Fatalf("tokens: %+v", snap.Tokens)
	}
	eth := snap.Tokens[1]
	if eth.Symbol != "ETH" || eth.Name != "Ethereum" || eth.PriceUSD != 3000 || eth.BithumbVolKRW != 0 || eth.ChangeRate != -0.02 {
		t.Fatalf("eth: %+v", eth)
	}
}

func TestParseBithumbSkipsDateAndBadStatus(t *testing.T) {
	resp := bithumbAll{
		Status: "0000",
		Data: map[string]json.RawMessage{
			"XRP":  json.RawMessage(`{"closing_price":"800","acc_trade_value_24H":"1234.5"}`),
			"sol":  json.RawMessage(`{"closing_price":"200000","acc_trade_value_24H":"oops"}`),
			"date": json.RawMessage(`"1717200000000"`),
		},
	}
	got := parseBithumb(resp)
	if len(got) != 2 || got["XRP"] != 1234.5 || got["SOL"] != 0 {
		t.Fatalf("volumes: %v", got)
	}

	resp.Status = "5600"
	if got := parseBithumb(resp); len(got) != 0 {
		t.Fatalf("expected empty map on error status, got %v", got)
	}
}

func TestAggregatedPerpsKeepsUSDTAggregates(t *testing.T) {
	got := aggregatedPerps([]coinalyzeMarket{
		{Symbol: "SOLUSDT_PERP.A", BaseAsset: "SOL", IsPerpetual: true, Exchange: "A"},
		{Symbol: "SOLUSD_PERP.A", BaseAsset: "SOL", IsPerpetual: true, Exchange: "A"},
		{Symbol: "ETHUSDT_PERP.6", BaseAsset: "ETH", IsPerpetual: true, Exchange: "6"},
		{Symbol: "XRPUSDT.A", BaseAsset: "XRP", IsPerpetual: false, Exchange: "A"},
	})
	if len(got) != 1 || got["SOL"] != "SOLUSDT_PERP.A" {
		t.Fatalf("perps: %v", got)
	}
}

func geckoAltcoins(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, `[
		{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":60000,"market_cap":1.2e12,"total_volume":3e10,"price_change_percentage_7d_in_currency":5},
		{"id":"solana","symbol":"sol","name":"Solana","current_price":150,"market_cap":7e10,"total_volume":3e9,"price_change_percentage_24h":2,"price_change_percentage_7d_in_currency":10},
		{"id":"pepe","symbol":"pepe","name":"Pepe","current_price":0.00001,"market_cap":4e9,"total_volume":1e9,"price_change_percentage_24h":null}
	]`)
}

func TestAltcoinSnapshotWithoutKeyIsSpotOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/coins/markets", geckoAltcoins)
	mux.HandleFunc("/future-markets", func(w http.ResponseWriter, r *http.Request) {
		t.Error("coinalyze must not be called without an api key")
	})
	p := newTestProvider(t, mux)

	snap, err := p.AltcoinSnapshot(context.Background())
	if err != nil {
		t.Fatalf("AltcoinSnapshot: %v", err)
	}
	if snap.BTCChange7d != 5 {
		t.Fatalf("btc change = %v", snap.BTCChange7d)
	}
	if len(snap.Inputs) != 2 || snap.Inputs[0].Symbol != "SOL" || snap.Inputs[1].Symbol != "PEPE" {
		t.Fatalf("inputs: %+v", snap.Inputs)
	}
	if snap.Inputs[0].OpenInterest != 0 || snap.Inputs[0].PriceChange7d != 10 || snap.Inputs[1].PriceChange24h != 0 {
		t.Fatalf("spot fields: %+v", snap.Inputs)
	}
}

func TestAltcoinSnapshotMergesFutures(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/coins/markets", geckoAltcoins)
	mux.HandleFunc("/future-markets", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api_key") != "secret" {
			t.Errorf("api_key header = %q", r.Header.Get("api_key"))
		}
		fmt.Fprint(w, `[{"symbol":"SOLUSDT_PERP.A","base_asset":"SOL","is_perpetual":true,"exchange":"A"}]`)
	})
	mux.HandleFunc("/open-interest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"SOLUSDT_PERP.A","value":1000000}]`)
	})
	mux.HandleFunc("/funding-rate", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"SOLUSDT_PERP.A","value":0.0001}]`)
	})
	mux.HandleFunc("/open-interest-history", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"symbol":"SOLUSDT_PERP.A","history":[{"t":1,"c":900000},{"t":2,"c":1000000}]}]`)
	})
	mux.HandleFunc("/ohlcv-history", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "daily" {
			t.Errorf("interval = %q", r.URL.Query().Get("interval"))
		}
		fmt.Fprint(w, `[{"symbol":"SOLUSDT_PERP.A","history":[
			{"t":1,"v":1},{"t":2,"v":2},{"t":3,"v":3},{"t":4,"v":4},
			{"t":5,"v":5},{"t":6,"v":6},{"t":7,"v":7},{"t":8,"v":8},{"t":9,"v":9}
		]}]`)
	})
	p := newTestProvider(t, mux)
	p.src.Sources.Coinalyze.APIKey = "secret"

	snap, err := p.AltcoinSnapshot(context.Background())
	if err != nil {
		t.Fatalf("AltcoinSnapshot: %v", err)
	}
	if len(snap.Inputs) != 1 {
		t.Fatalf("inputs: %+v", snap.Inputs)
	}
	sol := snap.Inputs[0]
	if sol.OpenInterest != 1e6 || sol.FundingRate != 0.0001 || len(sol.OIHistory) != 2 {
		t.Fatalf("futures: %+v", sol)
	}
	if sol.FuturesVolume != 9 || len(sol.FuturesVolume7d) != 7 || sol.FuturesVolume7d[0] != 3 {
		t.Fatalf("volumes: %+v", sol)
	}
}
