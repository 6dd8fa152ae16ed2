package features

import (
    "math"

    "gonum.org/v1/gonum/stat"

    "CycleScope/internal/domain/models"
)

const secondsPerWeek = 7 * 24 * 60 * 60

// minZScorePoints is the smallest sample a z-score is computed over.
const minZScorePoints = 5

// SMA computes the simple moving average over a trailing window.
// The result has the same length as values; indices before the window fills are NaN.
func SMA(values []float64, period int) []float64 {
    out := make([]float64, len(values))
    sum := 0.0
    for i, v := range values {
        out[i] = math.NaN()
        if period <= 0 {
            continue
        }
        sum += v
        if i >= period {
            sum -= values[i-period]
        }
        if i >= period-1 {
            out[i] = sum / float64(period)
        }
    }
    return out
}

// RateOfChange computes (v[i]-v[i-p])/v[i-p]*100.
// Indices with i < p or a non-positive base are NaN.
func RateOfChange(values []float64, period int) []float64 {
    out := make([]float64, len(values))
    for i := range values {
        out[i] = math.NaN()
        if period <= 0 || i < period {
            continue
        }
        prev := values[i-period]
        if prev <= 0 {
            continue
        }
        out[i] = (values[i] - prev) / prev * 100
    }
    return out
}

// ZScore returns the population z-score of the last element relative to the whole series.
// Fewer than five points or zero dispersion yields 0.
func ZScore(values []float64) float64 {
    if len(values) < minZScorePoints {
        return 0
    }
    mean, std := stat.PopMeanStdDev(values, nil)
    if std == 0 || math.IsNaN(std) {
        return 0
    }
    return (values[len(values)-1] - mean) / std
}

// ResampleWeekly buckets daily prices by floor(timestamp / 1 week) since the epoch
// and keeps the last observation of each bucket.
func ResampleWeekly(prices []models.DailyPrice) []models.DailyPrice {
    weekly := make([]models.DailyPrice, 0, len(prices)/7+1)
    current := int64(math.MinInt64)
    for _, p := range prices {
        week := floorDiv(p.Timestamp, secondsPerWeek)
        if week != current {
            weekly = append(weekly, p)
            current = week
            continue
        }
        weekly[len(weekly)-1] = p
    }
    return weekly
}

func floorDiv(a, b int64) int64 {
    q := a / b
    if (a%b != 0) && ((a < 0) != (b < 0)) {
        q--
    }
    return q
}

// ForwardReturnByIndex returns the percent change from closes[i] to closes[i+offset].
// ok is false when the target is out of range or the base is not positive.
func ForwardReturnByIndex(closes []float64, i, offset int) (float64, bool) {
    j := i + offset
    if i < 0 || j < 0 || j >= len(closes) || i >= len(closes) {
        return 0, false
    }
    base := closes[i]
    if base <= 0 {
        return 0, false
    }
    return (closes[j] - base) / base * 100, true
}

// ForwardReturnBetween returns (to-from)/from*100. ok is false when from is not positive.
func ForwardReturnBetween(from, to float64) (float64, bool) {
    if from <= 0 {
        return 0, false
    }
    return (to - from) / from * 100, true
}

// LastValid returns the last non-NaN value in values, or NaN when none exists.
func LastValid(values []float64) float64 {
    for i := len(values) - 1; i >= 0; i-- {
        if !math.IsNaN(values[i]) {
            return values[i]
        }
    }
    return math.NaN()
}

// Last returns the final element of values, or NaN for an empty slice.
func Last(values []float64) float64 {
    if len(values) == 0 {
        return math.NaN()
    }
    return values[len(values)-1]
}
