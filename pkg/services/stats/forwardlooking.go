package stats

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
)

// Activities whose commitments are at least this fraction disbursed are
// treated as winding down and excluded from forward-looking expectations.
var forwardlookingSpentRatio = decimal.NewFromFloat(0.9)

// endYears collects the years of all declared end dates, planned and actual.
func (c *Context) endYears() []int {
	codes := c.Codes()
	var years []int
	for _, typeCode := range []string{codes.PlannedEnd, codes.ActualEnd} {
		for _, d := range domain.ActivityDates(c.Rec.Root, typeCode) {
			years = append(years, d.Year())
		}
	}
	return years
}

// forwardlookingIsCurrent reports whether the activity is expected to still
// be running in the given year: no end date at all, or any end date in or
// after that year.
func (c *Context) forwardlookingIsCurrent(year int) bool {
	years := c.endYears()
	if len(years) == 0 {
		return true
	}
	for _, y := range years {
		if y >= year {
			return true
		}
	}
	return false
}

// spentRatio is the USD ratio of disbursements plus expenditures to
// commitments. The second return is false when there are no commitments.
func (c *Context) spentRatio() (decimal.Decimal, bool) {
	codes := c.Codes()
	commitments := sumTransactionsUSD(c, codes.Commitment)
	if commitments.IsZero() {
		return decimal.Zero, false
	}
	spent := sumTransactionsUSD(c, codes.Disbursement).Add(sumTransactionsUSD(c, codes.Expenditure))
	return spent.Div(commitments), true
}

// forwardlookingExcluded reports whether the activity should not count
// against forward-looking budget expectations: it ends within six months of
// the evaluation date, or it has already spent 90% of its commitments.
func (c *Context) forwardlookingExcluded() bool {
	if end, ok := c.EndDate(); ok && end.Before(c.Now.AddDate(0, 6, 0)) {
		return true
	}
	if ratio, ok := c.spentRatio(); ok && ratio.GreaterThanOrEqual(forwardlookingSpentRatio) {
		return true
	}
	return false
}

// budgetYears is the set of calendar years covered by any budget element.
func (c *Context) budgetYears() map[int]struct{} {
	out := map[int]struct{}{}
	for _, b := range c.Rec.Root.FindAll("budget") {
		if y, ok := budgetYear(b); ok {
			out[y] = struct{}{}
		}
	}
	return out
}

func forwardlookingYears(c *Context, value func(year int) bool) Value {
	out := Counter1{}
	thisYear := c.Now.Year()
	for year := thisYear; year < thisYear+3; year++ {
		n := decimal.Zero
		if value(year) {
			n = one
		}
		out[strconv.Itoa(year)] = n
	}
	return C1(out)
}

func statForwardlookingCurrent(c *Context) Value {
	return forwardlookingYears(c, c.forwardlookingIsCurrent)
}

func statForwardlookingWithBudgets(c *Context) Value {
	budgetYears := c.budgetYears()
	excluded := c.forwardlookingExcluded()
	return forwardlookingYears(c, func(year int) bool {
		if !c.forwardlookingIsCurrent(year) || excluded {
			return false
		}
		_, ok := budgetYears[year]
		return ok
	})
}

func statForwardlookingBudgetNotProvided(c *Context) Value {
	hasBNP := c.Rec.Root.HasAttr("budget-not-provided")
	excluded := c.forwardlookingExcluded()
	return forwardlookingYears(c, func(year int) bool {
		return c.forwardlookingIsCurrent(year) && hasBNP && !excluded
	})
}
