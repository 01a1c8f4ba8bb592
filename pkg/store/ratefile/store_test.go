package ratefile

import (
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	sheet := strings.Join([]string{
		"Currency,Rate,Date",
		"EUR,0.8,2013-12-31",
		"EUR,0.9,2014-12-31",
		"KES,88.5,2013-12-31",
		"BAD,not-a-number,2013-12-31",
		"SHORT,1.0,13",
	}, "\n")

	table, err := Read(strings.NewReader(sheet))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := table["EUR"][2013].String(); got != "0.8" {
		t.Errorf("EUR 2013 = %s, want 0.8", got)
	}
	if got := table["EUR"][2014].String(); got != "0.9" {
		t.Errorf("EUR 2014 = %s, want 0.9", got)
	}
	if got := table["KES"][2013].String(); got != "88.5" {
		t.Errorf("KES 2013 = %s, want 88.5", got)
	}
	if _, ok := table["BAD"]; ok {
		t.Error("unparsable rate rows must be skipped")
	}
	if _, ok := table["SHORT"]; ok {
		t.Error("rows without a usable year must be skipped")
	}
}

func TestRead_MissingColumn(t *testing.T) {
	_, err := Read(strings.NewReader("Currency,Rate\nEUR,0.8\n"))
	if err == nil {
		t.Fatal("expected an error for a sheet without a Date column")
	}
}

func TestRead_LaterRowWins(t *testing.T) {
	sheet := "Currency,Rate,Date\nEUR,0.8,2013-01-31\nEUR,0.85,2013-12-31\n"
	table, err := Read(strings.NewReader(sheet))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table["EUR"][2013].String(); got != "0.85" {
		t.Errorf("EUR 2013 = %s, want 0.85", got)
	}
}
