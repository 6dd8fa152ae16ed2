package features

import "time"

// Halvings are the block subsidy halving dates (UTC).
var Halvings = []time.Time{
    time.Date(2012, 11, 28, 0, 0, 0, 0, time.UTC),
    time.Date(2016, 7, 9, 0, 0, 0, 0, time.UTC),
    time.Date(2020, 5, 11, 0, 0, 0, 0, time.UTC),
    time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC),
}

const (
    initialSubsidy = 50.0
    blocksPerDay   = 144.0

    // Production cost model: fleet efficiency (J/TH) and electricity price ($/kWh).
    joulesPerTH     = 25.0
    electricityRate = 0.05
)

// BlockSubsidy returns the BTC reward per block in effect at t.
func BlockSubsidy(t time.Time) float64 {
    subsidy := initialSubsidy
    for _, h := range Halvings {
        if !t.Before(h) {
            subsidy /= 2
        }
    }
    return subsidy
}

// DailyIssuance returns the BTC mined per day at t.
func DailyIssuance(t time.Time) float64 {
    return BlockSubsidy(t) * blocksPerDay
}

// ProductionCost estimates the electricity cost of mining one BTC given the
// network hashrate in TH/s at time t.
func ProductionCost(hashrateTH float64, t time.Time) float64 {
    watts := hashrateTH * joulesPerTH
    dailyKWh := watts * 24 / 1000
    issuance := DailyIssuance(t)
    if issuance <= 0 {
        return 0
    }
    return dailyKWh * electricityRate / issuance
}

// HalvingsBetween returns the halving dates within [from, to] inclusive.
func HalvingsBetween(from, to time.Time) []time.Time {
    var out []time.Time
    for _, h := range Halvings {
        if h.Before(from) || h.After(to) {
            continue
        }
        out = append(out, h)
    }
    return out
}
