package models

// DailyPrice is one calendar day of BTC/USD OHLCV. Date ("YYYY-MM-DD", UTC) is the join key
// between series; Timestamp is unix seconds.
type DailyPrice struct {
	Timestamp int64   `json:"timestamp"`
	Date      string  `json:"date"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// SeriesPoint is a single dated value of an auxiliary series
// (stablecoin supply, exchange close, margin longs, DVOL, realized price).
type SeriesPoint struct {
	Timestamp int64   `json:"timestamp"`
	Date      string  `json:"date"`
	Value     float64 `json:"value"`
}

// MiningPoint is a network hashrate sample with the derived production cost per BTC.
type MiningPoint struct {
	Timestamp     int64   `json:"timestamp"`
	Date          string  `json:"date"`
	Hashrate      float64 `json:"hashrate"` // TH/s
	Difficulty    float64 `json:"difficulty"`
	EstimatedCost float64 `json:"estimatedCost"` // USD per BTC
}

// OptionsSummary is the live snapshot of the BTC options book.
type OptionsSummary struct {
	PutCallRatio      float64 `json:"putCallRatio"`
	TotalOpenInterest float64 `json:"totalOpenInterest"`
	AggregateIV       float64 `json:"aggregateIV"`
	UnderlyingPrice   float64 `json:"underlyingPrice"`
}

// Closes extracts the close column.
func Closes(prices []DailyPrice) []float64 {
	out := make([]float64, len(prices))
	for i, p := range prices {
		out[i] = p.Close
	}
	return out
}

// Values extracts the value column.
func Values(points []SeriesPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// CloseByDate indexes closes by date.
func CloseByDate(prices []DailyPrice) map[string]float64 {
	m := make(map[string]float64, len(prices))
	for _, p := range prices {
		m[p.Date] = p.Close
	}
	return m
}

// IndexByDate indexes positions by date. Later duplicates win.
func IndexByDate(prices []DailyPrice) map[string]int {
	m := make(map[string]int, len(prices))
	for i, p := range prices {
		m[p.Date] = i
	}
	return m
}
