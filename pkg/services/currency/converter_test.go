package currency

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToUSD(t *testing.T) {
	rates := RateTable{
		"EUR": {2013: decimal.RequireFromString("0.8")},
		"XDR": {2013: decimal.Zero},
	}
	c := NewConverter(rates, 2014)

	tests := []struct {
		name     string
		currency string
		amount   int64
		year     int
		want     string
	}{
		{"known rate divides", "EUR", 100, 2013, "125"},
		{"unknown currency is zero", "GBP", 100, 2013, "0"},
		{"unknown year is zero", "EUR", 100, 2001, "0"},
		{"zero rate is zero", "XDR", 100, 2013, "0"},
		{"negative amounts convert", "EUR", -80, 2013, "-100"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := c.ToUSD(tc.currency, decimal.NewFromInt(tc.amount), tc.year)
			if got.String() != tc.want {
				t.Errorf("ToUSD(%s, %d, %d) = %s, want %s", tc.currency, tc.amount, tc.year, got, tc.want)
			}
		})
	}
}

// Years past the clamp boundary use the boundary year's rate, so recent data
// with known reporting lag is not silently dropped.
func TestToUSD_ClampYear(t *testing.T) {
	rates := RateTable{"EUR": {2014: decimal.NewFromInt(2)}}
	c := NewConverter(rates, 2014)

	got := c.ToUSD("EUR", decimal.NewFromInt(10), 2017)
	if got.String() != "5" {
		t.Errorf("clamped conversion = %s, want 5", got)
	}

	unclamped := NewConverter(rates, 0)
	if !unclamped.ToUSD("EUR", decimal.NewFromInt(10), 2017).IsZero() {
		t.Error("with clamping disabled, a missing year must contribute zero")
	}
}

func TestToUSD_NilTable(t *testing.T) {
	c := NewConverter(nil, 0)
	if !c.ToUSD("EUR", decimal.NewFromInt(5), 2013).IsZero() {
		t.Error("empty table must always yield zero")
	}
}
