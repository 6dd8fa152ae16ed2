package util

import "testing"

func TestFormatCurrency(t *testing.T) {
    cases := map[float64]string{
        95123.4: "$95,123",
        1000:    "$1,000",
        999.5:   "$999.50",
        0.1234:  "$0.12",
        1234567: "$1,234,567",
    }
    for in, want := range cases {
        if got := FormatCurrency(in); got != want {
            t.Fatalf("FormatCurrency(%v)=%q want %q", in, got, want)
        }
    }
}

func TestFormatPercent(t *testing.T) {
    cases := map[float64]string{
        12.4: "+12%",
        12.5: "+13%",
        0:    "+0%",
        -8.6: "-9%",
        -0.3: "-0%",
        -0.5: "-1%",
        0.4:  "+0%",
        1500: "+1,500%",
    }
    for in, want := range cases {
        if got := FormatPercent(in); got != want {
            t.Fatalf("FormatPercent(%v)=%q want %q", in, got, want)
        }
    }
}

func TestFormatNumber(t *testing.T) {
    if got := FormatNumber(0.567, 2); got != "0.57" {
        t.Fatalf("got %q", got)
    }
    if got := FormatNumber(12345.678, 2); got != "12,345.68" {
        t.Fatalf("got %q", got)
    }
    if got := FormatNumber(-1.005, 1); got != "-1.0" {
        t.Fatalf("got %q", got)
    }
}

func TestFormatDate(t *testing.T) {
    if got := FormatDate("2020-03-12"); got != "Mar 2020" {
        t.Fatalf("got %q", got)
    }
    if got := FormatDate("garbage"); got != "garbage" {
        t.Fatalf("got %q", got)
    }
}

func TestFormatSigned(t *testing.T) {
    if got := FormatSigned(0.1234, 3); got != "+0.123" {
        t.Fatalf("got %q", got)
    }
    if got := FormatSigned(-0.05, 3); got != "-0.050" {
        t.Fatalf("got %q", got)
    }
}

func TestFormatCompact(t *testing.T) {
    cases := map[float64]string{
        1.5e12: "1.5T",
        2.25e9: "2.3B",
        3e6:    "3.0M",
        4500:   "4.5K",
        12:     "12",
    }
    for in, want := range cases {
        if got := FormatCompact(in); got != want {
            t.Fatalf("FormatCompact(%v)=%q want %q", in, got, want)
        }
    }
}
