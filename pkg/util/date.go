package util

import "time"

// DateLayout is the calendar-day key shared by every series.
const DateLayout = "2006-01-02"

// DateOf returns the UTC calendar date of a unix-seconds timestamp.
func DateOf(ts int64) string {
    return time.Unix(ts, 0).UTC().Format(DateLayout)
}

// ParseDate parses a YYYY-MM-DD key as UTC midnight.
func ParseDate(date string) (time.Time, error) {
    return time.Parse(DateLayout, date)
}

// AddDays shifts a YYYY-MM-DD key by n calendar days. Invalid input yields "".
func AddDays(date string, n int) string {
    t, err := ParseDate(date)
    if err != nil {
        return ""
    }
    return t.AddDate(0, 0, n).Format(DateLayout)
}

// DaysBetween returns the whole days from a to b, truncated toward zero.
func DaysBetween(a, b time.Time) int {
    return int(b.Sub(a).Hours() / 24)
}
