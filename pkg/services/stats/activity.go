package stats

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
)

var one = decimal.NewFromInt(1)

// Activity returns the registry of statistics computed for activity
// records. Derived declarations are filled in by the aggregate layer.
func Activity() *Registry {
	r := NewRegistry()

	sum := func(name string, shape Shape, fn Func) {
		r.mustRegister(Declaration{Name: name, Shape: shape, Mode: ModeSum, Fn: fn})
	}
	derived := func(name string, shape Shape) {
		r.mustRegister(Declaration{Name: name, Shape: shape, Mode: ModeDerived})
	}

	sum("activities", ShapeNumber, func(*Context) Value { return NumInt(1) })
	sum("hierarchies", ShapeCounter1, statHierarchies)
	sum("iati_identifiers", ShapeCounter1, statIdentifiers)
	sum("reporting_orgs", ShapeCounter1, statReportingOrgs)
	sum("participating_orgs", ShapeCounter1, statParticipatingOrgs)
	sum("versions", ShapeCounter1, statVersions)
	sum("version_mismatch", ShapeCounter1, statVersionMismatch)
	sum("validation", ShapeCounter1, statValidation)
	sum("elements", ShapeCounter1, statElements)
	sum("elements_total", ShapeCounter1, statElementsTotal)
	sum("boolean_values", ShapeCounter2, statBooleanValues)
	sum("currencies", ShapeCounter1, statCurrencies)
	sum("activities_per_year", ShapeCounter1, statActivitiesPerYear)
	sum("activities_secondary_reported", ShapeCounter1, statSecondaryReported)
	sum("activity_dates", ShapeCounter2, statActivityDates)
	sum("transaction_dates", ShapeCounter2, statTransactionDates)
	sum("transaction_months", ShapeCounter1, statTransactionMonths)
	sum("transaction_months_with_year", ShapeCounter1, statTransactionMonthsWithYear)
	sum("transaction_timing", ShapeCounter1, statTransactionTiming)
	sum("transaction_total", ShapeNumber, statTransactionTotal)
	sum("activities_with_future_transactions", ShapeNumber, statFutureTransactions)
	sum("provider_activity_id", ShapeCounter1, statProviderActivityID)
	sum("budget_lengths", ShapeCounter1, statBudgetLengths)

	funding := func(k domain.Codes) string { return k.FundingRole }
	accountable := func(k domain.Codes) string { return k.AccountableRole }
	extending := func(k domain.Codes) string { return k.ExtendingRole }
	implementing := func(k domain.Codes) string { return k.ImplementingRole }
	sum("funding_org_transaction_stats", ShapeCounter1, statParticipatingOrgReferences(funding))
	sum("funding_org_valid_prefixes", ShapeCounter1, statParticipatingOrgPrefixes(funding))
	sum("accountable_org_transaction_stats", ShapeCounter1, statParticipatingOrgReferences(accountable))
	sum("accountable_org_valid_prefixes", ShapeCounter1, statParticipatingOrgPrefixes(accountable))
	sum("extending_org_transaction_stats", ShapeCounter1, statParticipatingOrgReferences(extending))
	sum("extending_org_valid_prefixes", ShapeCounter1, statParticipatingOrgPrefixes(extending))
	sum("implementing_org_transaction_stats", ShapeCounter1, statParticipatingOrgReferences(implementing))
	sum("implementing_org_valid_prefixes", ShapeCounter1, statParticipatingOrgPrefixes(implementing))
	sum("provider_org_transaction_stats", ShapeCounter1, statTransactionOrgReferences("provider-org"))
	sum("provider_org_valid_prefixes", ShapeCounter1, statTransactionOrgPrefixes("provider-org"))
	sum("receiver_org_transaction_stats", ShapeCounter1, statTransactionOrgReferences("receiver-org"))
	sum("receiver_org_valid_prefixes", ShapeCounter1, statTransactionOrgPrefixes("receiver-org"))

	sum("count_transactions_by_type_by_year", ShapeCounter2, statCountTransactionsByTypeByYear)
	sum("sum_transactions_by_type_by_year", ShapeCounter3, statSumTransactionsByTypeByYear)
	sum("sum_transactions_by_type_by_year_usd", ShapeCounter3, statSumTransactionsUSD)
	sum("count_budgets_by_type_by_year", ShapeCounter2, statCountBudgetsByTypeByYear)
	sum("sum_budgets_by_type_by_year", ShapeCounter3, statSumBudgetsByTypeByYear)
	sum("sum_budgets_by_type_by_year_usd", ShapeCounter3, statSumBudgetsUSD)
	sum("count_planned_disbursements_by_year", ShapeCounter1, statCountPlannedDisbursements)
	sum("sum_planned_disbursements_by_year", ShapeCounter2, statSumPlannedDisbursements)
	sum("spend_currency_year", ShapeCounter2, statSpendCurrencyYear)
	sum("sum_commitments_and_disbursements_by_activity_id_usd", ShapeCounter1, statCommitmentsAndDisbursementsByActivity)

	sum("humanitarian", ShapeCounter1, statHumanitarian)

	sum("comprehensiveness", ShapeCounter1, statComprehensiveness)
	sum("comprehensiveness_with_validation", ShapeCounter1, statComprehensivenessValidated)
	sum("comprehensiveness_denominators", ShapeCounter1, statComprehensivenessDenominators)
	sum("comprehensiveness_denominator_default", ShapeNumber, statComprehensivenessDenominatorDefault)
	sum("comprehensiveness_current_activities", ShapeCounter1, statComprehensivenessCurrent)

	sum("forwardlooking_activities_current", ShapeCounter1, statForwardlookingCurrent)
	sum("forwardlooking_activities_with_budgets", ShapeCounter1, statForwardlookingWithBudgets)
	sum("forwardlooking_activities_with_budget_not_provided", ShapeCounter1, statForwardlookingBudgetNotProvided)

	// Publisher-level derived statistics.
	derived("timelag", ShapeCounter1)
	derived("transaction_frequency", ShapeCounter1)
	derived("transaction_alignment", ShapeCounter1)
	derived("budget_length_median", ShapeNumber)
	derived("budget_alignment", ShapeCounter1)
	derived("date_extremes", ShapeCounter3)
	derived("most_recent_transaction_date", ShapeCounter1)
	derived("publisher_unique_identifiers", ShapeNumber)
	derived("publisher_duplicate_identifiers", ShapeCounter1)
	derived("provider_activity_id_without_own", ShapeCounter1)
	derived("reference_spend_data_usd", ShapeCounter2)

	// Corpus-level derived statistics.
	derived("publishers", ShapeNumber)
	derived("files", ShapeNumber)
	derived("skipped_records", ShapeNumber)
	derived("unique_identifiers", ShapeNumber)
	derived("duplicate_identifiers", ShapeCounter1)
	derived("traceable_activities_by_publisher_id", ShapeCounter1)
	derived("traceable_activities_by_publisher_id_denominator", ShapeCounter1)
	derived("traceable_sum_commitments_and_disbursements_by_publisher_id", ShapeCounter1)
	derived("traceable_sum_commitments_and_disbursements_by_publisher_id_denominator", ShapeCounter1)

	return r
}

// Organisation returns the reduced registry for organisation records.
func Organisation() *Registry {
	r := NewRegistry()
	sum := func(name string, shape Shape, fn Func) {
		r.mustRegister(Declaration{Name: name, Shape: shape, Mode: ModeSum, Fn: fn})
	}
	sum("organisations", ShapeNumber, func(*Context) Value { return NumInt(1) })
	sum("reporting_orgs", ShapeCounter1, statReportingOrgs)
	sum("versions", ShapeCounter1, statVersions)
	sum("version_mismatch", ShapeCounter1, statVersionMismatch)
	sum("validation", ShapeCounter1, statValidation)
	sum("elements", ShapeCounter1, statElements)
	sum("elements_total", ShapeCounter1, statElementsTotal)
	return r
}

func statHierarchies(c *Context) Value {
	h := c.Rec.Root.Attr("hierarchy")
	if h == "" {
		h = "1"
	}
	return C1(Counter1{h: one})
}

func statIdentifiers(c *Context) Value {
	id := c.Rec.Root.ChildText("iati-identifier")
	if id == "" {
		return C1(Counter1{})
	}
	return C1(Counter1{id: one})
}

func statReportingOrgs(c *Context) Value {
	ref := c.Rec.Root.Find("reporting-org").Attr("ref")
	if ref == "" {
		ref = "null"
	}
	return C1(Counter1{ref: one})
}

func statParticipatingOrgs(c *Context) Value {
	out := Counter1{}
	for _, org := range c.Rec.Root.FindAll("participating-org") {
		out[org.Attr("ref")] = one
	}
	return C1(out)
}

func statVersions(c *Context) Value {
	return C1(Counter1{c.Version(): one})
}

// statVersionMismatch flags documents whose declared version differs from a
// version declared on the record itself, and documents whose version had to
// fall back to the legacy default.
func statVersionMismatch(c *Context) Value {
	key := "false"
	elementVersion := c.Rec.Root.Attr("version")
	if elementVersion != "" && c.Rec.FileVersion != "" && elementVersion != c.Rec.FileVersion {
		key = "true"
	}
	if c.Rec.FileVersion != "" && c.Version() == LegacyVersion && c.Rec.FileVersion != LegacyVersion {
		key = "unsupported"
	}
	return C1(Counter1{key: one})
}

// statValidation consults the external structural oracle. Without an oracle
// the statistic stays empty rather than guessing.
func statValidation(c *Context) Value {
	if c.Oracle == nil {
		return C1(Counter1{})
	}
	if c.Oracle.Validate(c.Rec, c.Version()) {
		return C1(Counter1{"pass": one})
	}
	return C1(Counter1{"fail": one})
}

func rootPath(kind domain.RecordKind) string {
	if kind == domain.KindOrganisation {
		return "iati-organisation"
	}
	return "iati-activity"
}

// statElements counts presence-at-most-once per element or attribute path.
func statElements(c *Context) Value {
	counts := elementCounts(c.Rec.Root, rootPath(c.Rec.Kind))
	for k := range counts {
		counts[k] = one
	}
	return C1(counts)
}

// statElementsTotal counts every occurrence per path.
func statElementsTotal(c *Context) Value {
	return C1(elementCounts(c.Rec.Root, rootPath(c.Rec.Kind)))
}

// elementCounts recursively builds a fresh path -> occurrence-count mapping,
// merging each child's mapping with the standard counter rule.
func elementCounts(n *domain.Node, path string) Counter1 {
	out := Counter1{path: one}
	for attr, val := range n.Attrs {
		if val == "" {
			continue
		}
		out[path+"/@"+attr] = out[path+"/@"+attr].Add(one)
	}
	for _, child := range n.Children {
		for k, v := range elementCounts(child, path+"/"+child.Tag) {
			out[k] = out[k].Add(v)
		}
	}
	return out
}

// statBooleanValues tallies the values used at the standard's boolean-ish
// attribute paths, for data quality diagnostics.
func statBooleanValues(c *Context) Value {
	out := Counter2{}
	add := func(path, value string) {
		if value == "" {
			return
		}
		if out[path] == nil {
			out[path] = Counter1{}
		}
		out[path][value] = out[path][value].Add(one)
	}
	root := c.Rec.Root
	add("@humanitarian", root.Attr("humanitarian"))
	add("reporting-org/@secondary-reporter", root.Find("reporting-org").Attr("secondary-reporter"))
	add("fss/@priority", root.Find("fss").Attr("priority"))
	for _, cond := range root.FindAll("conditions") {
		add("conditions/@attached", cond.Attr("attached"))
	}
	for _, res := range root.FindAll("result") {
		add("result/@aggregation-status", res.Attr("aggregation-status"))
		for _, ind := range res.FindAll("indicator") {
			add("result/indicator/@ascending", ind.Attr("ascending"))
		}
	}
	if crs := root.Find("crs-add"); crs != nil {
		for _, f := range crs.FindAll("aidtype-flag") {
			add("crs-add/aidtype-flag/@significance", f.Attr("significance"))
		}
		for _, f := range crs.FindAll("other-flags") {
			add("crs-add/other-flags/@significance", f.Attr("significance"))
		}
	}
	for _, t := range c.Transactions() {
		add("transaction/@humanitarian", t.Attr("humanitarian"))
	}
	return C2(out)
}

func statCurrencies(c *Context) Value {
	out := Counter1{}
	for _, t := range c.Transactions() {
		if t.Find("value") == nil {
			continue
		}
		out[c.CurrencyFor(t)] = one
	}
	return C1(out)
}

func statActivitiesPerYear(c *Context) Value {
	start, ok := c.StartDate()
	if !ok {
		return C1(Counter1{})
	}
	return C1(Counter1{strconv.Itoa(start.Year()): one})
}

func statSecondaryReported(c *Context) Value {
	secondary := c.Rec.Root.Find("reporting-org").Attr("secondary-reporter")
	if secondary != "1" && secondary != "true" {
		return C1(Counter1{})
	}
	id := c.Rec.Root.ChildText("iati-identifier")
	if id == "" {
		return C1(Counter1{})
	}
	return C1(Counter1{id: one})
}

func statActivityDates(c *Context) Value {
	out := Counter2{}
	for _, ad := range c.Rec.Root.FindAll("activity-date") {
		d, ok := domain.ParseISODate(ad.Attr("iso-date"))
		if !ok {
			continue
		}
		typeCode := ad.Attr("type")
		if out[typeCode] == nil {
			out[typeCode] = Counter1{}
		}
		key := d.Format("2006-01-02")
		out[typeCode][key] = out[typeCode][key].Add(one)
	}
	return C2(out)
}

func statTransactionDates(c *Context) Value {
	out := Counter2{}
	for _, t := range c.Transactions() {
		d, ok := domain.TransactionDate(t)
		if !ok {
			continue
		}
		typeCode := domain.TransactionType(t)
		if out[typeCode] == nil {
			out[typeCode] = Counter1{}
		}
		key := d.Format("2006-01-02")
		out[typeCode][key] = out[typeCode][key].Add(one)
	}
	return C2(out)
}

func statTransactionMonths(c *Context) Value {
	out := Counter1{}
	for _, t := range c.Transactions() {
		if d, ok := domain.TransactionDate(t); ok {
			key := strconv.Itoa(int(d.Month()))
			out[key] = out[key].Add(one)
		}
	}
	return C1(out)
}

func statTransactionMonthsWithYear(c *Context) Value {
	out := Counter1{}
	for _, t := range c.Transactions() {
		if d, ok := domain.TransactionDate(t); ok {
			key := fmt.Sprintf("%d-%02d", d.Year(), int(d.Month()))
			out[key] = out[key].Add(one)
		}
	}
	return C1(out)
}

// timingBuckets are the trailing-day windows used by the reporting
// frequency classification.
var timingBuckets = []int{30, 60, 90, 180, 360}

func statTransactionTiming(c *Context) Value {
	out := Counter1{}
	for _, b := range timingBuckets {
		out[strconv.Itoa(b)] = decimal.Zero
	}
	today := c.Now
	for _, t := range c.Transactions() {
		d, ok := domain.TransactionDate(t)
		if !ok {
			continue
		}
		days := int(today.Sub(d).Hours() / 24)
		if days < -1 {
			continue
		}
		for _, b := range timingBuckets {
			if days < b {
				key := strconv.Itoa(b)
				out[key] = out[key].Add(one)
			}
		}
	}
	return C1(out)
}

func statTransactionTotal(c *Context) Value {
	return NumInt(int64(len(c.Transactions())))
}

func statFutureTransactions(c *Context) Value {
	for _, t := range c.Transactions() {
		if d, ok := domain.TransactionDate(t); ok && d.After(c.Now) {
			return NumInt(1)
		}
	}
	return NumInt(0)
}

// statProviderActivityID counts the provider activity identifiers referenced
// by incoming transactions, excluding self-references.
func statProviderActivityID(c *Context) Value {
	own := c.Rec.Root.ChildText("iati-identifier")
	out := Counter1{}
	for _, t := range c.Transactions() {
		id := t.Find("provider-org").Attr("provider-activity-id")
		if id == "" || id == own {
			continue
		}
		out[id] = out[id].Add(one)
	}
	return C1(out)
}

func statBudgetLengths(c *Context) Value {
	out := Counter1{}
	for _, b := range c.Rec.Root.FindAll("budget") {
		start, okStart := domain.ParseISODate(b.Find("period-start").Attr("iso-date"))
		end, okEnd := domain.ParseISODate(b.Find("period-end").Attr("iso-date"))
		if !okStart || !okEnd {
			continue
		}
		days := int(end.Sub(start).Hours() / 24)
		key := strconv.Itoa(days)
		out[key] = out[key].Add(one)
	}
	return C1(out)
}
