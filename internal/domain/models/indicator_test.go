package models

import (
	"encoding/json"
	"testing"
)

func TestEmptyResult(t *testing.T) {
	r := EmptyResult("mayer-multiple", "Mayer Multiple", "Distance from 200-day moving average")
	if r.ChartConfig.Type != ChartTypeLine || r.Signal != SignalNeutral {
		t.Fatalf("unexpected %+v", r)
	}
	if !r.IsEmpty() || r.Description == "" {
		t.Fatalf("empty result not recognised: %+v", r)
	}

	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatal(err)
	}
	if string(raw["backtestRows"]) != "[]" || string(raw["backtestColumns"]) != "[]" {
		t.Fatalf("empty tables must encode as arrays: %s", b)
	}
}

func TestChartPayloadTypes(t *testing.T) {
	data := ChartData{
		Lines: []ChartLine{{Label: "BTC", Color: "#fff", Data: []ChartPoint{{Time: "2024-01-01", Value: 1}}}},
		Bars:  []ChartBar{{Time: "2024-01-01", Value: 2, Color: "#000"}},
	}
	cfg := ChartConfig{Type: ChartTypeLineHistogram, LogScale: true}
	if len(data.Lines[0].Data) != 1 || data.Bars[0].Value != 2 || cfg.Type != "line+histogram" {
		t.Fatalf("unexpected %+v %+v", data, cfg)
	}
	for _, typ := range []string{ChartTypeLine, ChartTypeBar, ChartTypeLineLine, ChartTypeLineHistogram} {
		if typ == "" {
			t.Fatal("chart type constant is empty")
		}
	}
}

func TestSignalVote(t *testing.T) {
	if SignalBuy.Vote() != 1 || SignalSell.Vote() != -1 || SignalNeutral.Vote() != 0 {
		t.Fatal("vote mapping")
	}
}
