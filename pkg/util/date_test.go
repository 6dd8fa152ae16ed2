package util

import (
    "testing"
    "time"
)

func TestDateOf(t *testing.T) {
    ts := time.Date(2024, 4, 20, 23, 59, 59, 0, time.UTC).Unix()
    if got := DateOf(ts); got != "2024-04-20" {
        t.Fatalf("got %s", got)
    }
}

func TestAddDays(t *testing.T) {
    if got := AddDays("2024-02-28", 2); got != "2024-03-01" {
        t.Fatalf("got %s", got)
    }
    if got := AddDays("2024-03-01", -1); got != "2024-02-29" {
        t.Fatalf("got %s", got)
    }
    if got := AddDays("bad", 1); got != "" {
        t.Fatalf("expected empty, got %s", got)
    }
}

func TestDaysBetween(t *testing.T) {
    halving := time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
    if got := DaysBetween(halving, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)); got != 42 {
        t.Fatalf("got %d", got)
    }
    if got := DaysBetween(halving, halving.Add(23*time.Hour)); got != 0 {
        t.Fatalf("partial day counted: %d", got)
    }
}

func TestParseFloatDefault(t *testing.T) {
    cases := map[string]float64{
        " 67012.5 ": 67012.5,
        "1e-4":      0.0001,
        "":          -1,
        "n/a":       -1,
    }
    for in, want := range cases {
        if got := ParseFloatDefault(in, -1); got != want {
            t.Errorf("ParseFloatDefault(%q) = %v, want %v", in, got, want)
        }
    }
}
