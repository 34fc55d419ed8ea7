package money

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMinor(t *testing.T) {
	cases := map[string]int64{
		"10":     1000,
		"10.5":   1050,
		"10.05":  1005,
		".99":    99,
		"+1.00":  100,
		"-2.50":  -250,
		" 3.10 ": 310,
	}
	for input, want := range cases {
		got, err := ParseMinor(input)
		if err != nil {
			t.Fatalf("ParseMinor(%q) error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseMinor(%q) = %d, want %d", input, got, want)
		}
	}
}

func TestParseMinorErrors(t *testing.T) {
	if _, err := ParseMinor(""); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := ParseMinor("1.234"); err != ErrTooManyDecimals {
		t.Fatalf("expected ErrTooManyDecimals, got %v", err)
	}
	if _, err := ParseMinor("1a"); err != ErrInvalidAmount {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestParseMinorRejectsOverflow(t *testing.T) {
	for _, input := range []string{"184467440737095517", "92233720368547758", "-92233720368547758.00"} {
		if got, err := ParseMinor(input); err != ErrInvalidAmount {
			t.Fatalf("%s: expected ErrInvalidAmount, got %d %v", input, got, err)
		}
	}
	got, err := ParseMinor("92233720368547757.99")
	if err != nil || got != 9223372036854775799 {
		t.Fatalf("expected largest amount to parse, got %d %v", got, err)
	}
}

func TestAdd(t *testing.T) {
	if got, err := Add(100, -250); err != nil || got != -150 {
		t.Fatalf("unexpected sum: %d %v", got, err)
	}
	if _, err := Add(math.MaxInt64, 1); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if _, err := Add(math.MinInt64, -1); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestConversionsSaturate(t *testing.T) {
	if got := FromMajor(decimal.RequireFromString("1e30")); got != math.MaxInt64 {
		t.Fatalf("expected saturation, got %d", got)
	}
	if got := PercentOf(math.MaxInt64, decimal.NewFromInt(100000)); got != math.MaxInt64 {
		t.Fatalf("expected saturation, got %d", got)
	}
	if got := FromMajor(decimal.RequireFromString("-1e30")); got != math.MinInt64 {
		t.Fatalf("expected saturation, got %d", got)
	}
}

func TestFormatMinor(t *testing.T) {
	if got := FormatMinor(1005); got != "10.05" {
		t.Fatalf("unexpected format: %s", got)
	}
	if got := FormatMinor(-250); got != "-2.50" {
		t.Fatalf("unexpected format: %s", got)
	}
}

func TestFromMajorRoundsBanker(t *testing.T) {
	if got := FromMajor(decimal.RequireFromString("1.005")); got != 100 {
		t.Fatalf("expected 100, got %d", got)
	}
	if got := FromMajor(decimal.RequireFromString("1.015")); got != 102 {
		t.Fatalf("expected 102, got %d", got)
	}
	if got := FromMajor(decimal.RequireFromString("2.5")); got != 250 {
		t.Fatalf("expected 250, got %d", got)
	}
}

func TestPercentOf(t *testing.T) {
	if got := PercentOf(5000, decimal.NewFromInt(10)); got != 500 {
		t.Fatalf("expected 500, got %d", got)
	}
	// 2.5% of 0.25 is 0.625 cents
	if got := PercentOf(25, decimal.RequireFromString("2.5")); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	if got := PercentOf(10000, decimal.Zero); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestToMajor(t *testing.T) {
	if got := ToMajor(1234).StringFixed(2); got != "12.34" {
		t.Fatalf("unexpected major: %s", got)
	}
}
