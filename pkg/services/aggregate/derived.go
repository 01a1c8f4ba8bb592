package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
	"github.com/dq-tools/aid-atlas/pkg/services/stats"
)

var one = decimal.NewFromInt(1)

// classification wraps a label as a single-key counter so the derived
// statistics stay within the four declared shapes.
func classification(label string) stats.Value {
	if label == "" {
		return stats.C1(stats.Counter1{})
	}
	return stats.C1(stats.Counter1{label: one})
}

// derivePublisher fills in the statistics that only make sense once a
// publisher's records have been folded together.
func (b *Builder) derivePublisher(p *PublisherStats) {
	agg := p.Stats

	agg["timelag"] = classification(timelag(b.now, agg["transaction_months_with_year"].Counter1()))
	agg["transaction_frequency"] = classification(transactionFrequency(agg["transaction_timing"].Counter1()))
	agg["transaction_alignment"] = classification(transactionAlignment(agg["transaction_months"].Counter1()))

	median, known := budgetLengthMedian(agg["budget_lengths"].Counter1())
	agg["budget_length_median"] = stats.Num(median)
	agg["budget_alignment"] = classification(budgetAlignment(median, known))

	agg["date_extremes"] = dateExtremes(agg["activity_dates"].Counter2())
	agg["most_recent_transaction_date"] = mostRecentTransactionDate(b.now, agg["transaction_dates"].Counter2())

	identifiers := agg["iati_identifiers"].Counter1()
	agg["publisher_unique_identifiers"] = stats.NumInt(int64(len(identifiers)))
	agg["publisher_duplicate_identifiers"] = stats.C1(duplicates(identifiers))

	withoutOwn := stats.Counter1{}
	for id, n := range agg["provider_activity_id"].Counter1() {
		if _, own := identifiers[id]; !own {
			withoutOwn[id] = n
		}
	}
	agg["provider_activity_id_without_own"] = stats.C1(withoutOwn)

	agg["reference_spend_data_usd"] = b.referenceSpendUSD(p.Name)
}

// deriveCorpus fills in the corpus-level statistics, including the
// traceability ratios that need per-publisher breakdowns.
func (b *Builder) deriveCorpus(c *CorpusStats, publishers []*PublisherStats) {
	agg := c.Stats

	agg["publishers"] = stats.NumInt(int64(len(publishers)))
	files, skipped := 0, 0
	for _, p := range publishers {
		files += len(p.Files)
		skipped += p.Skipped
	}
	agg["files"] = stats.NumInt(int64(files))
	agg["skipped_records"] = stats.NumInt(int64(skipped))

	identifiers := agg["iati_identifiers"].Counter1()
	agg["unique_identifiers"] = stats.NumInt(int64(len(identifiers)))
	agg["duplicate_identifiers"] = stats.C1(duplicates(identifiers))

	// An activity is traceable when some other activity's transaction
	// references it as a provider activity.
	referenced := stats.Counter1{}
	for _, p := range publishers {
		for id, n := range p.Stats["provider_activity_id_without_own"].Counter1() {
			referenced[id] = referenced[id].Add(n)
		}
	}

	sums := stats.Counter1{}
	sumsDenominator := stats.Counter1{}
	activities := stats.Counter1{}
	activitiesDenominator := stats.Counter1{}
	for _, p := range publishers {
		for id, usd := range p.Stats["sum_commitments_and_disbursements_by_activity_id_usd"].Counter1() {
			sumsDenominator[p.Name] = sumsDenominator[p.Name].Add(usd)
			if _, ok := referenced[id]; ok {
				sums[p.Name] = sums[p.Name].Add(usd)
			}
		}
		for id, count := range p.Stats["iati_identifiers"].Counter1() {
			activitiesDenominator[p.Name] = activitiesDenominator[p.Name].Add(count)
			if _, ok := referenced[id]; ok {
				activities[p.Name] = activities[p.Name].Add(count)
			}
		}
	}
	agg["traceable_sum_commitments_and_disbursements_by_publisher_id"] = stats.C1(sums)
	agg["traceable_sum_commitments_and_disbursements_by_publisher_id_denominator"] = stats.C1(sumsDenominator)
	agg["traceable_activities_by_publisher_id"] = stats.C1(activities)
	agg["traceable_activities_by_publisher_id_denominator"] = stats.C1(activitiesDenominator)
}

func duplicates(identifiers stats.Counter1) stats.Counter1 {
	out := stats.Counter1{}
	for id, n := range identifiers {
		if n.GreaterThan(one) {
			out[id] = n
		}
	}
	return out
}

// previousMonths yields the n calendar months before d, most recent first,
// formatted as "2006-01".
func previousMonths(d time.Time, n int) []string {
	year, month := d.Year(), int(d.Month())
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		month--
		if month <= 0 {
			year--
			month = 12
		}
		out = append(out, fmt.Sprintf("%d-%02d", year, month))
	}
	return out
}

// timelag classifies how far behind real time a publisher's reporting runs,
// from which of the trailing twelve months contain reported transactions.
func timelag(now time.Time, monthsWithYear stats.Counter1) string {
	months := previousMonths(now, 12)
	hits := func(months []string) int {
		n := 0
		for _, m := range months {
			if _, ok := monthsWithYear[m]; ok {
				n++
			}
		}
		return n
	}
	switch {
	case hits(months[:3]) >= 2:
		return "One month"
	case hits(months[:3]) >= 1:
		return "A quarter"
	case hits(months[:6]) >= 1:
		return "Six months"
	case hits(months) >= 1:
		return "One year"
	default:
		return "More than one year"
	}
}

// transactionFrequency classifies reporting cadence from the trailing-window
// transaction counts.
func transactionFrequency(timing stats.Counter1) string {
	zeros := 0
	for _, window := range []string{"30", "60", "90"} {
		if timing[window].IsZero() {
			zeros++
		}
	}
	switch {
	case zeros <= 1:
		return "Monthly"
	case zeros <= 2:
		return "Quarterly"
	case !timing["180"].IsZero():
		return "Six-monthly"
	case !timing["360"].IsZero():
		return "Annual"
	default:
		return "Beyond one year"
	}
}

// transactionAlignment classifies how transactions spread over the calendar:
// every month, every quarter, or merely somewhere in the year.
func transactionAlignment(months stats.Counter1) string {
	if len(months) == 12 {
		return "Monthly"
	}
	quarters := map[int]struct{}{}
	for m := range months {
		if n, err := strconv.Atoi(m); err == nil {
			quarters[(n-1)/3] = struct{}{}
		}
	}
	if len(quarters) == 4 {
		return "Quarterly"
	}
	if len(months) >= 1 {
		return "Annually"
	}
	return ""
}

// budgetLengthMedian finds the median budget period length in days from the
// length histogram. The second return is false when there are no budgets.
func budgetLengthMedian(lengths stats.Counter1) (decimal.Decimal, bool) {
	type bin struct {
		days  int
		count decimal.Decimal
	}
	bins := make([]bin, 0, len(lengths))
	total := decimal.Zero
	for k, v := range lengths {
		days, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		bins = append(bins, bin{days: days, count: v})
		total = total.Add(v)
	}
	sort.Slice(bins, func(i, j int) bool { return bins[i].days < bins[j].days })

	half := total.Div(decimal.NewFromInt(2))
	running := decimal.Zero
	var median decimal.Decimal
	found := false
	for _, b := range bins {
		running = running.Add(b.count)
		if running.GreaterThanOrEqual(half) {
			days := decimal.NewFromInt(int64(b.days))
			if found {
				// The median falls between two histogram bins.
				median = median.Add(days).Div(decimal.NewFromInt(2))
			} else {
				median = days
				found = true
			}
			if !running.Equal(half) {
				break
			}
		}
	}
	return median, found
}

func budgetAlignment(median decimal.Decimal, known bool) string {
	switch {
	case !known:
		return "Not known"
	case median.LessThan(decimal.NewFromInt(100)):
		return "Quarterly"
	case median.LessThan(decimal.NewFromInt(370)):
		return "Annually"
	default:
		return "Beyond one year"
	}
}

// dateExtremes finds the earliest and latest activity date per date type and
// overall, keyed min/max -> type -> date.
func dateExtremes(activityDates stats.Counter2) stats.Value {
	out := stats.Counter3{"min": stats.Counter2{}, "max": stats.Counter2{}}
	put := func(extreme, typeCode, date string) {
		out[extreme][typeCode] = stats.Counter1{date: one}
	}
	var overallMin, overallMax string
	for typeCode, dates := range activityDates {
		var min, max string
		for key := range dates {
			if _, ok := domain.ParseISODate(key); !ok {
				continue
			}
			if min == "" || key < min {
				min = key
			}
			if key > max {
				max = key
			}
		}
		if min == "" {
			continue
		}
		put("min", typeCode, min)
		put("max", typeCode, max)
		if overallMin == "" || min < overallMin {
			overallMin = min
		}
		if max > overallMax {
			overallMax = max
		}
	}
	if overallMin != "" {
		put("min", "overall", overallMin)
		put("max", "overall", overallMax)
	}
	return stats.C3(out)
}

// mostRecentTransactionDate finds the latest non-future transaction date in
// the folded per-type date counter.
func mostRecentTransactionDate(now time.Time, transactionDates stats.Counter2) stats.Value {
	today := now.Format("2006-01-02")
	latest := ""
	for _, dates := range transactionDates {
		for key := range dates {
			if _, ok := domain.ParseISODate(key); !ok {
				continue
			}
			if key > today || key <= latest {
				continue
			}
			latest = key
		}
	}
	if latest == "" {
		return stats.C1(stats.Counter1{})
	}
	return stats.C1(stats.Counter1{latest: one})
}

// referenceSpendUSD converts the publisher's static reference spend figures
// to USD for the years the source sheet covers. The official forecast is
// already denominated in USD.
func (b *Builder) referenceSpendUSD(publisher string) stats.Value {
	out := stats.Counter2{}
	if b.ref == nil {
		return stats.C2(out)
	}
	figures, ok := b.ref.Spend(publisher)
	if !ok {
		return stats.C2(out)
	}

	spendNumber := func(raw string) (decimal.Decimal, bool) {
		raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
		if raw == "" {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}

	if spend, ok := spendNumber(figures.RefSpend2014); ok {
		out["2014"] = stats.Counter1{"ref_spend": b.rates.ToUSD(figures.Currency, spend, 2014)}
	}
	if spend, ok := spendNumber(figures.RefSpend2015); ok {
		out["2015"] = stats.Counter1{"ref_spend": b.rates.ToUSD(figures.Currency, spend, 2015)}
	}
	if forecast, ok := spendNumber(figures.Forecast2015); ok {
		if out["2015"] == nil {
			out["2015"] = stats.Counter1{}
		}
		out["2015"]["official_forecast"] = forecast
	}
	flags := stats.Counter1{"spend_data_error_reported": decimal.Zero, "DAC": decimal.Zero}
	if figures.ErrorReported {
		flags["spend_data_error_reported"] = one
	}
	if figures.DAC {
		flags["DAC"] = one
	}
	out["flags"] = flags
	return stats.C2(out)
}
