package models

// Signal is the ternary classification produced by every indicator.
type Signal string

const (
	SignalBuy     Signal = "buy"
	SignalNeutral Signal = "neutral"
	SignalSell    Signal = "sell"
)

// Vote maps a signal to its composite contribution.
func (s Signal) Vote() int {
	switch s {
	case SignalBuy:
		return 1
	case SignalSell:
		return -1
	default:
		return 0
	}
}

// Chart types understood by the presentation layer.
const (
	ChartTypeLine          = "line"
	ChartTypeBar           = "bar"
	ChartTypeLineLine      = "line+line"
	ChartTypeLineHistogram = "line+histogram"
)

type ChartPoint struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

type ChartLine struct {
	Label string       `json:"label"`
	Color string       `json:"color"`
	Data  []ChartPoint `json:"data"`
}

type ChartBar struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

type ChartMarker struct {
	Time  string `json:"time"`
	Label string `json:"label"`
	Color string `json:"color"`
}

type ChartData struct {
	Lines   []ChartLine   `json:"lines,omitempty"`
	Bars    []ChartBar    `json:"bars,omitempty"`
	Markers []ChartMarker `json:"markers,omitempty"`
}

type ChartConfig struct {
	Type     string `json:"type"`
	LogScale bool   `json:"logScale,omitempty"`
}

// IndicatorResult is the output contract of every indicator.
type IndicatorResult struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	CurrentValue      float64       `json:"currentValue"`
	CurrentValueLabel string        `json:"currentValueLabel"`
	Signal            Signal        `json:"signal"`
	SignalRules       string        `json:"signalRules"`
	ChartData         ChartData     `json:"chartData"`
	ChartConfig       ChartConfig   `json:"chartConfig"`
	BacktestTitle     string        `json:"backtestTitle"`
	BacktestColumns   []string      `json:"backtestColumns"`
	BacktestRows      []BacktestRow `json:"backtestRows"`
}

// EmptyResult is the well-formed "no data" result for an indicator.
func EmptyResult(id, name, description string) IndicatorResult {
	return IndicatorResult{
		ID:                id,
		Name:              name,
		Description:       description,
		CurrentValue:      0,
		CurrentValueLabel: "N/A",
		Signal:            SignalNeutral,
		SignalRules:       "No data available",
		ChartConfig:       ChartConfig{Type: ChartTypeLine},
		BacktestTitle:     "No data",
		BacktestColumns:   []string{},
		BacktestRows:      []BacktestRow{},
	}
}

// IsEmpty reports whether r is a "no data" result.
func (r IndicatorResult) IsEmpty() bool {
	return r.CurrentValueLabel == "N/A" && len(r.BacktestRows) == 0 &&
		len(r.ChartData.Lines) == 0 && len(r.ChartData.Bars) == 0
}
