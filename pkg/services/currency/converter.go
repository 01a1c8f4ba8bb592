package currency

import "github.com/shopspring/decimal"

// RateTable maps currency code -> year -> rate, expressed as units of local
// currency per USD. Immutable after construction.
type RateTable map[string]map[int]decimal.Decimal

// Converter turns historical local-currency amounts into USD. Aid data
// frequently omits or predates available rate data, so every lookup miss
// resolves to a zero contribution instead of an error: undercounting a single
// value is preferred over failing a whole aggregation run.
type Converter struct {
	rates     RateTable
	clampYear int
}

// NewConverter wraps a rate table. Years after clampYear are clamped to it
// before lookup, which covers recent data reported beyond the table's
// coverage. A clampYear of zero disables clamping.
func NewConverter(rates RateTable, clampYear int) *Converter {
	if rates == nil {
		rates = RateTable{}
	}
	return &Converter{rates: rates, clampYear: clampYear}
}

// ClampYear returns the configured clamp boundary.
func (c *Converter) ClampYear() int { return c.clampYear }

// ToUSD converts an amount of the given currency in the given year. A missing
// currency, a missing year or a recorded rate of exactly zero all yield zero.
func (c *Converter) ToUSD(code string, amount decimal.Decimal, year int) decimal.Decimal {
	if c.clampYear > 0 && year > c.clampYear {
		year = c.clampYear
	}
	years, ok := c.rates[code]
	if !ok {
		return decimal.Zero
	}
	rate, ok := years[year]
	if !ok || rate.IsZero() {
		return decimal.Zero
	}
	return amount.Div(rate)
}
