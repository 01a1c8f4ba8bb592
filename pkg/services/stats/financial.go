package stats

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
)

// budgetYear returns the calendar year a budget is attributed to: the year
// of its period start, falling back to the period end, then the value date.
func budgetYear(b *domain.Node) (int, bool) {
	if d, ok := domain.ParseISODate(b.Find("period-start").Attr("iso-date")); ok {
		return d.Year(), true
	}
	if d, ok := domain.ParseISODate(b.Find("period-end").Attr("iso-date")); ok {
		return d.Year(), true
	}
	if d, ok := domain.ParseISODate(b.Find("value").Attr("value-date")); ok {
		return d.Year(), true
	}
	return 0, false
}

func addC3(out Counter3, k1, k2, k3 string, amount decimal.Decimal) {
	if out[k1] == nil {
		out[k1] = Counter2{}
	}
	if out[k1][k2] == nil {
		out[k1][k2] = Counter1{}
	}
	out[k1][k2][k3] = out[k1][k2][k3].Add(amount)
}

func addC2(out Counter2, k1, k2 string, amount decimal.Decimal) {
	if out[k1] == nil {
		out[k1] = Counter1{}
	}
	out[k1][k2] = out[k1][k2].Add(amount)
}

func statCountTransactionsByTypeByYear(c *Context) Value {
	out := Counter2{}
	for _, t := range c.Transactions() {
		year := ""
		if d, ok := domain.TransactionDate(t); ok {
			year = strconv.Itoa(d.Year())
		}
		addC2(out, domain.TransactionType(t), year, one)
	}
	return C2(out)
}

// statSumTransactionsByTypeByYear buckets transaction values by (type,
// currency, year) with exact decimal arithmetic. Only the four financial
// transaction types are summed; undated transactions are skipped.
func statSumTransactionsByTypeByYear(c *Context) Value {
	codes := c.Codes()
	financial := map[string]struct{}{
		codes.IncomingFunds: {}, codes.Commitment: {},
		codes.Disbursement: {}, codes.Expenditure: {},
	}
	out := Counter3{}
	for _, t := range c.Transactions() {
		typeCode := domain.TransactionType(t)
		if _, ok := financial[typeCode]; !ok {
			continue
		}
		d, ok := domain.TransactionDate(t)
		if !ok {
			continue
		}
		addC3(out, typeCode, c.CurrencyFor(t), strconv.Itoa(d.Year()), c.ValueAmount(t))
	}
	return C3(out)
}

// statSumTransactionsUSD converts the by-currency sums to USD per (type,
// year). Years past the converter's clamp boundary are attributed to the
// clamp year so recent data is not silently dropped.
func statSumTransactionsUSD(c *Context) Value {
	out := Counter3{}
	for typeCode, byCurrency := range c.Stat("sum_transactions_by_type_by_year").Counter3() {
		for cur, byYear := range byCurrency {
			for yearKey, amount := range byYear {
				year, err := strconv.Atoi(yearKey)
				if err != nil {
					continue
				}
				if clamp := c.Rates.ClampYear(); clamp > 0 && year > clamp {
					year = clamp
				}
				addC3(out, typeCode, "USD", strconv.Itoa(year), c.Rates.ToUSD(cur, amount, year))
			}
		}
	}
	return C3(out)
}

func statCountBudgetsByTypeByYear(c *Context) Value {
	out := Counter2{}
	for _, b := range c.Rec.Root.FindAll("budget") {
		year, ok := budgetYear(b)
		if !ok {
			continue
		}
		addC2(out, b.Attr("type"), strconv.Itoa(year), one)
	}
	return C2(out)
}

func statSumBudgetsByTypeByYear(c *Context) Value {
	out := Counter3{}
	for _, b := range c.Rec.Root.FindAll("budget") {
		year, ok := budgetYear(b)
		if !ok {
			continue
		}
		addC3(out, b.Attr("type"), c.CurrencyFor(b), strconv.Itoa(year), c.ValueAmount(b))
	}
	return C3(out)
}

func statSumBudgetsUSD(c *Context) Value {
	out := Counter3{}
	for budgetType, byCurrency := range c.Stat("sum_budgets_by_type_by_year").Counter3() {
		for cur, byYear := range byCurrency {
			for yearKey, amount := range byYear {
				year, err := strconv.Atoi(yearKey)
				if err != nil {
					continue
				}
				addC3(out, budgetType, "USD", yearKey, c.Rates.ToUSD(cur, amount, year))
			}
		}
	}
	return C3(out)
}

// plannedDisbursementYear mirrors budgetYear for planned disbursements.
func plannedDisbursementYear(pd *domain.Node) (int, bool) {
	return budgetYear(pd)
}

func statCountPlannedDisbursements(c *Context) Value {
	out := Counter1{}
	for _, pd := range c.Rec.Root.FindAll("planned-disbursement") {
		year, ok := plannedDisbursementYear(pd)
		if !ok {
			continue
		}
		key := strconv.Itoa(year)
		out[key] = out[key].Add(one)
	}
	return C1(out)
}

func statSumPlannedDisbursements(c *Context) Value {
	out := Counter2{}
	for _, pd := range c.Rec.Root.FindAll("planned-disbursement") {
		year, ok := plannedDisbursementYear(pd)
		if !ok {
			continue
		}
		addC2(out, c.CurrencyFor(pd), strconv.Itoa(year), c.ValueAmount(pd))
	}
	return C2(out)
}

// statSpendCurrencyYear sums disbursements and expenditures by (year,
// currency), the actual-spend view used by the transparency indicator.
func statSpendCurrencyYear(c *Context) Value {
	codes := c.Codes()
	out := Counter2{}
	for _, t := range c.Transactions() {
		typeCode := domain.TransactionType(t)
		if typeCode != codes.Disbursement && typeCode != codes.Expenditure {
			continue
		}
		year := ""
		if d, ok := domain.TransactionDate(t); ok {
			year = strconv.Itoa(d.Year())
		}
		addC2(out, year, c.CurrencyFor(t), c.ValueAmount(t))
	}
	return C2(out)
}

// sumTransactionsUSD totals the USD sums for one transaction type across
// all years.
func sumTransactionsUSD(c *Context, typeCode string) decimal.Decimal {
	total := decimal.Zero
	for _, byYear := range c.Stat("sum_transactions_by_type_by_year_usd").Counter3()[typeCode] {
		for _, amount := range byYear {
			total = total.Add(amount)
		}
	}
	return total
}

// statCommitmentsAndDisbursementsByActivity keys the activity's total USD
// commitments plus disbursements by its identifier, feeding the corpus
// traceability statistics.
func statCommitmentsAndDisbursementsByActivity(c *Context) Value {
	codes := c.Codes()
	total := sumTransactionsUSD(c, codes.Commitment).Add(sumTransactionsUSD(c, codes.Disbursement))
	if total.IsZero() {
		return C1(Counter1{})
	}
	id := c.Rec.Root.ChildText("iati-identifier")
	if id == "" {
		return C1(Counter1{})
	}
	return C1(Counter1{id: total})
}
