package models

import "time"

// CompositeDailyRecord is one BTC trading day with at least one contributing vote.
type CompositeDailyRecord struct {
	Date      string  `json:"date"`
	Price     float64 `json:"price"`
	Score     int     `json:"score"`
	Available int     `json:"available"`
}

// VoteMap is a per-date vote in {-1, 0, +1} for one sub-indicator.
type VoteMap map[string]int

// Dashboard is the orchestrated set of indicator results.
// Errors is keyed by indicator id (or source name) and is nil when everything succeeded.
type Dashboard struct {
	Results     []IndicatorResult `json:"results"`
	Errors      map[string]string `json:"errors,omitempty"`
	LastUpdated string            `json:"lastUpdated"`
	GeneratedAt time.Time         `json:"generatedAt"`
}

// SignalSnapshot is the compact per-indicator record published after each refresh.
type SignalSnapshot struct {
	ID           string  `json:"id"`
	Signal       Signal  `json:"signal"`
	CurrentValue float64 `json:"currentValue"`
	Label        string  `json:"label"`
}

// DashboardSnapshot is the message published to the snapshot topic.
type DashboardSnapshot struct {
	Date        string            `json:"date"`
	GeneratedAt time.Time         `json:"generatedAt"`
	Signals     []SignalSnapshot  `json:"signals"`
	Errors      map[string]string `json:"errors,omitempty"`
}

// Snapshot condenses d for publishing.
func (d *Dashboard) Snapshot() DashboardSnapshot {
	s := DashboardSnapshot{
		Date:        d.LastUpdated,
		GeneratedAt: d.GeneratedAt,
		Signals:     make([]SignalSnapshot, 0, len(d.Results)),
		Errors:      d.Errors,
	}
	for _, r := range d.Results {
		s.Signals = append(s.Signals, SignalSnapshot{
			ID:           r.ID,
			Signal:       r.Signal,
			CurrentValue: r.CurrentValue,
			Label:        r.CurrentValueLabel,
		})
	}
	return s
}
