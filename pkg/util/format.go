package util

import (
    "fmt"
    "math"
    "strconv"
    "strings"

    "github.com/dustin/go-humanize"
    "github.com/shopspring/decimal"
)

// FormatCurrency renders "$" with thousands separators: whole dollars at or above 1000, cents below.
func FormatCurrency(v float64) string {
    if v >= 1000 {
        return "$" + FormatGrouped(v, 0)
    }
    return "$" + FormatGrouped(v, 2)
}

// FormatPercent renders a signed whole-number percentage ("+12%", "-8%").
// The sign follows v, so small losses render as "-0%".
func FormatPercent(v float64) string {
    switch {
    case v < 0:
        return "-" + FormatGrouped(-v, 0) + "%"
    case v >= 0:
        return "+" + FormatGrouped(v, 0) + "%"
    default:
        return FormatGrouped(v, 0) + "%"
    }
}

// FormatNumber renders v with the given decimals and thousands separators.
func FormatNumber(v float64, decimals int) string {
    return FormatGrouped(v, decimals)
}

// FormatDate renders a YYYY-MM-DD key as "Jan 2006". Unparseable input is returned unchanged.
func FormatDate(date string) string {
    t, err := ParseDate(date)
    if err != nil {
        return date
    }
    return t.Format("Jan 2006")
}

// FormatSigned renders v with a leading "+" when non-negative and fixed decimals, no grouping.
func FormatSigned(v float64, decimals int) string {
    s := FormatFixed(v, decimals)
    if v >= 0 {
        return "+" + s
    }
    return s
}

// FormatFixed rounds half away from zero to the given decimals, no grouping.
func FormatFixed(v float64, decimals int) string {
    if math.IsNaN(v) || math.IsInf(v, 0) {
        return fmt.Sprint(v)
    }
    return decimal.NewFromFloat(v).StringFixed(int32(decimals))
}

// FormatCompact abbreviates magnitudes with K/M/B/T suffixes and one decimal.
func FormatCompact(v float64) string {
    abs := math.Abs(v)
    switch {
    case abs >= 1e12:
        return FormatFixed(v/1e12, 1) + "T"
    case abs >= 1e9:
        return FormatFixed(v/1e9, 1) + "B"
    case abs >= 1e6:
        return FormatFixed(v/1e6, 1) + "M"
    case abs >= 1e3:
        return FormatFixed(v/1e3, 1) + "K"
    default:
        return FormatFixed(v, 0)
    }
}

// FormatGrouped rounds half away from zero and inserts thousands separators.
func FormatGrouped(v float64, decimals int) string {
    if math.IsNaN(v) || math.IsInf(v, 0) {
        return fmt.Sprint(v)
    }
    d := decimal.NewFromFloat(v).Round(int32(decimals))
    fixed := d.Abs().StringFixed(int32(decimals))
    intPart, frac, _ := strings.Cut(fixed, ".")

    var grouped string
    if n, err := strconv.ParseInt(intPart, 10, 64); err == nil {
        grouped = humanize.Comma(n)
    } else {
        grouped = intPart
    }
    if frac != "" {
        grouped += "." + frac
    }
    if d.IsNegative() {
        grouped = "-" + grouped
    }
    return grouped
}
