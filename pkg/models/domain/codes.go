package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Codes carries the version-dependent coded values of the reporting
// standard: 1.x uses mnemonic codes, 2.x numeric ones.
type Codes struct {
	Major string

	PlannedStart string
	ActualStart  string
	PlannedEnd   string
	ActualEnd    string

	IncomingFunds string
	Commitment    string
	Disbursement  string
	Expenditure   string

	DAC5 string
	DAC3 string

	FundingRole      string
	AccountableRole  string
	ExtendingRole    string
	ImplementingRole string
}

// CodesFor resolves the coded values for a major version ("1" or "2").
func CodesFor(major string) Codes {
	if major == "2" {
		return Codes{
			Major:        "2",
			PlannedStart: "1", ActualStart: "2", PlannedEnd: "3", ActualEnd: "4",
			IncomingFunds: "1", Commitment: "2", Disbursement: "3", Expenditure: "4",
			DAC5: "1", DAC3: "2",
			FundingRole: "1", AccountableRole: "2", ExtendingRole: "3", ImplementingRole: "4",
		}
	}
	return Codes{
		Major:        "1",
		PlannedStart: "start-planned", ActualStart: "start-actual",
		PlannedEnd: "end-planned", ActualEnd: "end-actual",
		IncomingFunds: "IF", Commitment: "C", Disbursement: "D", Expenditure: "E",
		DAC5: "DAC", DAC3: "DAC-3",
		FundingRole: "Funding", AccountableRole: "Accountable",
		ExtendingRole: "Extending", ImplementingRole: "Implementing",
	}
}

// ParseISODate parses an ISO calendar date, tolerating a trailing Z and
// surrounding whitespace.
func ParseISODate(s string) (time.Time, bool) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "Z")
	if s == "" {
		return time.Time{}, false
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// AddYears shifts a date by whole years. time.Date normalizes February 29 to
// March 1 in non-leap years, which is what the end-date proximity rules
// expect.
func AddYears(d time.Time, years int) time.Time {
	return time.Date(d.Year()+years, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// CurrencyFor resolves the currency of a budget, planned disbursement or
// transaction: an explicit value/@currency overrides the record's declared
// default currency.
func CurrencyFor(root, n *Node) string {
	if cur := n.Find("value").Attr("currency"); cur != "" {
		return cur
	}
	return root.Attr("default-currency")
}

// TransactionType returns a transaction's type code, or "".
func TransactionType(t *Node) string {
	return t.Find("transaction-type").Attr("code")
}

// TransactionDate parses a transaction's date, preferring transaction-date
// over the value date.
func TransactionDate(t *Node) (time.Time, bool) {
	if d, ok := ParseISODate(t.Find("transaction-date").Attr("iso-date")); ok {
		return d, true
	}
	return ParseISODate(t.Find("value").Attr("value-date"))
}

// ActivityDates returns the parsed activity-date values of a given type.
func ActivityDates(root *Node, typeCode string) []time.Time {
	var out []time.Time
	for _, ad := range root.FindAll("activity-date") {
		if ad.Attr("type") != typeCode {
			continue
		}
		if d, ok := ParseISODate(ad.Attr("iso-date")); ok {
			out = append(out, d)
		}
	}
	return out
}

// ValueAmount parses a container's value element with exact decimal
// arithmetic. Absent or unparsable values contribute zero.
func ValueAmount(container *Node) decimal.Decimal {
	text := strings.TrimSpace(container.ChildText("value"))
	if text == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NarrativeText reports whether an element carries human-readable text: 2.x
// requires child narrative elements, 1.x allows free text.
func NarrativeText(major string, n *Node) bool {
	if n == nil {
		return false
	}
	if major == "2" {
		for _, nar := range n.FindAll("narrative") {
			if strings.TrimSpace(nar.Text) != "" {
				return true
			}
		}
		return false
	}
	return strings.TrimSpace(n.Text) != ""
}

// Languages returns the languages declared on a title or description
// element, falling back to the activity's default language.
func Languages(major string, root, n *Node) []string {
	defaultLang := root.Attr("xml:lang")
	seen := map[string]struct{}{}
	var out []string
	add := func(lang string) {
		if lang == "" {
			return
		}
		if _, ok := seen[lang]; ok {
			return
		}
		seen[lang] = struct{}{}
		out = append(out, lang)
	}
	if major == "2" {
		for _, nar := range n.FindAll("narrative") {
			if lang := nar.Attr("xml:lang"); lang != "" {
				add(lang)
			} else {
				add(defaultLang)
			}
		}
		return out
	}
	if lang := n.Attr("xml:lang"); lang != "" {
		add(lang)
	} else {
		add(defaultLang)
	}
	return out
}
