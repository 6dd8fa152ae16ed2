package util

import (
    "strconv"
    "strings"
)

// ParseFloatDefault parses a decimal string (exchanges quote prices as strings) or returns def.
func ParseFloatDefault(s string, def float64) float64 {
    s = strings.TrimSpace(s)
    if s == "" {
        return def
    }
    v, err := strconv.ParseFloat(s, 64)
    if err != nil {
        return def
    }
    return v
}
