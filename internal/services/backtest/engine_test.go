package backtest

import (
	"strconv"
	"testing"

	"CycleScope/internal/domain/models"
)

func TestRunCooldown(t *testing.T) {
	values := []float64{1, 1, 0, 0, 0, 1, 0, 0, 0, 0}
	cfg := Config{
		Title:   "zeros",
		Columns: []models.BacktestColumn{{Key: "i", Label: "Index"}, {Key: "e", Label: "Enriched"}},
		Trigger: func(i int) models.BacktestRow {
			if values[i] != 0 {
				return nil
			}
			return models.BacktestRow{"i": strconv.Itoa(i)}
		},
		Enrich: func(row models.BacktestRow, i int) models.BacktestRow {
			return row.With("e", "yes")
		},
		Cooldown: 4,
	}
	table := Run(len(values), cfg)

	if table.Title != "zeros" {
		t.Fatalf("title %q", table.Title)
	}
	if len(table.Columns) != 2 || table.Columns[0] != "Index" || table.Columns[1] != "Enriched" {
		t.Fatalf("columns %v", table.Columns)
	}
	// triggers at 2, then 6 (3,4,5 blocked; 5 is not a zero anyway)
	want := []string{"2", "6"}
	if len(table.Rows) != len(want) {
		t.Fatalf("rows %v", table.Rows)
	}
	for k, w := range want {
		if table.Rows[k]["i"] != w || table.Rows[k]["e"] != "yes" {
			t.Fatalf("row %d = %v", k, table.Rows[k])
		}
	}
}

func TestRunDefaultCooldown(t *testing.T) {
	table := Run(100, Config{
		Trigger: func(i int) models.BacktestRow { return models.BacktestRow{"i": strconv.Itoa(i)} },
	})
	if len(table.Rows) != 4 {
		t.Fatalf("expected 4 rows with default cooldown, got %d", len(table.Rows))
	}
	if table.Rows[1]["i"] != "30" {
		t.Fatalf("second trigger at %s", table.Rows[1]["i"])
	}
}

func TestRunEmpty(t *testing.T) {
	table := Run(0, Config{Title: "t", Trigger: func(int) models.BacktestRow { return nil }})
	if table.Rows == nil || len(table.Rows) != 0 {
		t.Fatalf("expected empty non-nil rows")
	}
}

func TestCooldownTracker(t *testing.T) {
	c := NewCooldown(14)
	if !c.Ready(0) {
		t.Fatalf("fresh tracker should be ready")
	}
	c.Mark(5)
	if c.Ready(18) {
		t.Fatalf("18 is within 14 of 5")
	}
	if !c.Ready(19) {
		t.Fatalf("19 should be ready")
	}
}
