package comprehensiveness

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
)

// validISODate reports whether an attribute holds a parseable calendar date.
func validISODate(s string) bool {
	_, ok := domain.ParseISODate(s)
	return ok
}

// validDateElement checks the element's iso-date attribute.
func validDateElement(n *domain.Node) bool {
	if n == nil {
		return false
	}
	return validISODate(n.Attr("iso-date"))
}

// validValueDate checks a value element's value-date attribute.
func validValueDate(n *domain.Node) bool {
	if n == nil {
		return false
	}
	return validISODate(n.Attr("value-date"))
}

// validValue reports whether a value element's text parses as a decimal.
func validValue(n *domain.Node) bool {
	if n == nil {
		return false
	}
	_, err := decimal.NewFromString(strings.TrimSpace(n.Text))
	return err == nil
}

// validURL accepts only absolute URLs on document-link (url attribute) and
// activity-website (element text).
func validURL(n *domain.Node) bool {
	if n == nil {
		return false
	}
	var raw string
	switch n.Tag {
	case "document-link":
		raw = n.Attr("url")
	case "activity-website":
		raw = strings.TrimSpace(n.Text)
	default:
		return false
	}
	if raw == "" || !strings.Contains(raw, "://") {
		return false
	}
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// validCoords accepts a "lat lng" pair within the valid coordinate space.
// (0, 0) is rejected: it is open ocean and near-certainly not actual data.
func validCoords(s string) bool {
	parts := strings.Split(s, " ")
	if len(parts) != 2 {
		return false
	}
	lat, err := decimal.NewFromString(parts[0])
	if err != nil {
		return false
	}
	lng, err := decimal.NewFromString(parts[1])
	if err != nil {
		return false
	}
	if lat.IsZero() && lng.IsZero() {
		return false
	}
	ninety := decimal.NewFromInt(90)
	oneEighty := decimal.NewFromInt(180)
	if lat.Abs().GreaterThan(ninety) || lng.Abs().GreaterThan(oneEighty) {
		return false
	}
	return true
}

func decimalOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// percentageSumIs100 checks that percentage splits across the elements sum
// to exactly 100, unless only one entry exists. An empty slice passes: the
// constraint binds only where a split is declared.
func percentageSumIs100(elements []*domain.Node) bool {
	if len(elements) <= 1 {
		return true
	}
	sum := decimal.Zero
	for _, el := range elements {
		sum = sum.Add(decimalOrZero(el.Attr("percentage")))
	}
	return sum.Equal(decimal.NewFromInt(100))
}

// percentageSumIs100ByVocab applies the 100% rule separately per vocabulary.
func percentageSumIs100ByVocab(elements []*domain.Node) bool {
	byVocab := map[string][]*domain.Node{}
	for _, el := range elements {
		v := el.Attr("vocabulary")
		byVocab[v] = append(byVocab[v], el)
	}
	for _, group := range byVocab {
		if !percentageSumIs100(group) {
			return false
		}
	}
	return true
}

// allTrueAndNotEmpty reports whether every element is true and there is at
// least one element.
func allTrueAndNotEmpty(bools []bool) bool {
	if len(bools) == 0 {
		return false
	}
	for _, b := range bools {
		if !b {
			return false
		}
	}
	return true
}
