package units

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
)

func TestParseUnits(t *testing.T) {
	cases := []struct {
		in       string
		decimals uint8
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"0.1", 18, "100000000000000000"},
		{" 2.5 ", 6, "2500000"},
		{"0", 18, "0"},
		{"123", 0, "123"},
		{"0.000000000000000001", 18, "1"},
		{"1e3", 2, "100000"},
	}
	for _, tc := range cases {
		got, err := ParseUnits(tc.in, tc.decimals)
		if err != nil {
			t.Fatalf("ParseUnits(%q, %d) error: %v", tc.in, tc.decimals, err)
		}
		if got.Dec() != tc.want {
			t.Fatalf("ParseUnits(%q, %d) = %s, want %s", tc.in, tc.decimals, got.Dec(), tc.want)
		}
	}
}

func TestParseUnitsErrors(t *testing.T) {
	if _, err := ParseUnits("-1", 18); !errors.Is(err, ErrNegative) {
		t.Fatalf("expected ErrNegative, got %v", err)
	}
	if _, err := ParseUnits("0.0000001", 6); !errors.Is(err, ErrPrecision) {
		t.Fatalf("expected ErrPrecision, got %v", err)
	}
	if _, err := ParseUnits("1e80", 0); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if _, err := ParseUnits("abc", 18); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := ParseUnits("", 18); err == nil {
		t.Fatalf("expected error for empty input")
	}
}

func TestFormatUnits(t *testing.T) {
	cases := []struct {
		v        uint64
		decimals uint8
		want     string
	}{
		{1_000_000_000_000_000_000, 18, "1"},
		{100_000_000_000_000_000, 18, "0.1"},
		{2_500_000, 6, "2.5"},
		{0, 18, "0"},
		{42, 0, "42"},
	}
	for _, tc := range cases {
		if got := FormatUnits(uint256.NewInt(tc.v), tc.decimals); got != tc.want {
			t.Fatalf("FormatUnits(%d, %d) = %s, want %s", tc.v, tc.decimals, got, tc.want)
		}
	}
	if got := FormatUnits(nil, 18); got != "0" {
		t.Fatalf("FormatUnits(nil) = %s", got)
	}
}

func TestFormatFixed(t *testing.T) {
	if got := FormatFixed(uint256.NewInt(1_234_567), 6, 2); got != "1.23" {
		t.Fatalf("FormatFixed = %s, want 1.23", got)
	}
	if got := FormatFixed(nil, 6, 2); got != "0.00" {
		t.Fatalf("FormatFixed(nil) = %s, want 0.00", got)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"1", "0.1", "12.345", "0.000001"} {
		v, err := ParseUnits(s, 18)
		if err != nil {
			t.Fatalf("ParseUnits(%q) error: %v", s, err)
		}
		if got := FormatUnits(v, 18); got != s {
			t.Fatalf("round trip %q -> %s", s, got)
		}
	}
}

func TestPrice(t *testing.T) {
	base := uint256.NewInt(2_000_000_000_000_000_000)
	token := uint256.NewInt(5_000_000)
	if got := Price(base, token, 18, 6, 4); got != "2.5000" {
		t.Fatalf("Price = %s, want 2.5000", got)
	}
	if got := Price(uint256.NewInt(0), token, 18, 6, 2); got != "0.00" {
		t.Fatalf("Price on empty pool = %s, want 0.00", got)
	}
}
