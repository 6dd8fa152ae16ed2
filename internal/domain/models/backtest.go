package models

// BacktestColumn declares one column of a backtest table.
type BacktestColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// BacktestRow maps a column key to its formatted display value.
type BacktestRow map[string]string

// With returns a copy of r extended by the given key/value pairs.
func (r BacktestRow) With(kv ...string) BacktestRow {
	out := make(BacktestRow, len(r)+len(kv)/2)
	for k, v := range r {
		out[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		out[kv[i]] = kv[i+1]
	}
	return out
}

// BacktestTable is the engine output.
type BacktestTable struct {
	Title   string        `json:"title"`
	Columns []string      `json:"columns"`
	Rows    []BacktestRow `json:"rows"`
}

// Labels returns the display labels of cols in order.
func Labels(cols []BacktestColumn) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Label
	}
	return out
}
