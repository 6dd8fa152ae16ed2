package backtest

import "CycleScope/internal/domain/models"

// DefaultCooldown is the minimum index distance between two triggers when none is configured.
const DefaultCooldown = 30

// TriggerFunc inspects position i and returns the partial row to record, or nil.
type TriggerFunc func(i int) models.BacktestRow

// EnrichFunc completes a triggered row, typically with forward returns.
type EnrichFunc func(row models.BacktestRow, i int) models.BacktestRow

// Config describes one historical trigger scan.
type Config struct {
	Title    string
	Columns  []models.BacktestColumn
	Trigger  TriggerFunc
	Enrich   EnrichFunc
	Cooldown int
}

// Run scans positions [0, n) in order. A position is skipped while it lies within
// Cooldown of the last accepted trigger; accepted rows are enriched and appended.
func Run(n int, cfg Config) models.BacktestTable {
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	rows := make([]models.BacktestRow, 0)
	last, fired := 0, false
	for i := 0; i < n; i++ {
		if fired && i-last < cooldown {
			continue
		}
		row := cfg.Trigger(i)
		if row == nil {
			continue
		}
		if cfg.Enrich != nil {
			row = cfg.Enrich(row, i)
		}
		rows = append(rows, row)
		last, fired = i, true
	}

	return models.BacktestTable{
		Title:   cfg.Title,
		Columns: models.Labels(cfg.Columns),
		Rows:    rows,
	}
}

// Cooldown tracks a hand-rolled scan's last accepted index.
type Cooldown struct {
	period int
	last   int
	fired  bool
}

// NewCooldown returns a tracker that blocks indices closer than period to the last mark.
func NewCooldown(period int) *Cooldown {
	return &Cooldown{period: period}
}

// Ready reports whether index i is outside the cooldown window.
func (c *Cooldown) Ready(i int) bool {
	return !c.fired || i-c.last >= c.period
}

// Mark records i as the last accepted index.
func (c *Cooldown) Mark(i int) {
	c.last, c.fired = i, true
}
