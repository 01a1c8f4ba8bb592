// Package ratefile loads the historical exchange-rate sheet into a rate
// table. The sheet is a CSV with Currency, Rate and Date columns, one row per
// currency per year.
package ratefile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/services/currency"
)

// Load reads an exchange-rate CSV file.
func Load(path string) (currency.RateTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rate file: %w", err)
	}
	defer f.Close()
	table, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading rate file %s: %w", path, err)
	}
	return table, nil
}

// Read parses exchange-rate CSV data. Rows with an unparsable rate or a date
// too short to carry a year are skipped; a later row for the same currency
// and year wins.
func Read(r io.Reader) (currency.RateTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	columns := map[string]int{}
	for i, name := range header {
		columns[name] = i
	}
	for _, required := range []string{"Currency", "Rate", "Date"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("rate sheet is missing the %s column", required)
		}
	}

	table := currency.RateTable{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading row: %w", err)
		}
		if len(row) <= columns["Currency"] || len(row) <= columns["Rate"] || len(row) <= columns["Date"] {
			continue
		}
		code := row[columns["Currency"]]
		rate, err := decimal.NewFromString(row[columns["Rate"]])
		if err != nil {
			continue
		}
		date := row[columns["Date"]]
		if len(date) < 4 {
			continue
		}
		year, err := strconv.Atoi(date[:4])
		if err != nil {
			continue
		}
		if table[code] == nil {
			table[code] = map[int]decimal.Decimal{}
		}
		table[code][year] = rate
	}
	return table, nil
}
