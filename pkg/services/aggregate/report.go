package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
	"github.com/dq-tools/aid-atlas/pkg/services/stats"
)

// Summarize turns a corpus aggregate into the console report.
func Summarize(c *CorpusStats) *domain.Report {
	agg := c.Stats

	report := &domain.Report{
		Title:    "IATI corpus statistics",
		Currency: "USD",
	}

	// Sum exactly; the float conversion happens once, for display.
	total := decimal.Zero
	for _, usd := range agg["sum_commitments_and_disbursements_by_activity_id_usd"].Counter1() {
		total = total.Add(usd)
	}
	report.TotalAmount = total.InexactFloat64()

	extremes := dateExtremes(agg["activity_dates"].Counter2()).Counter3()
	if start, ok := singleKey(extremes["min"]["overall"]); ok {
		if end, ok := singleKey(extremes["max"]["overall"]); ok {
			startDate, okStart := domain.ParseISODate(start)
			endDate, okEnd := domain.ParseISODate(end)
			if okStart && okEnd {
				report.Period = domain.TimePeriod{
					Start:    startDate,
					End:      endDate,
					Duration: int(endDate.Sub(startDate).Hours() / 24),
				}
			}
		}
	}

	report.Sections = append(report.Sections, domain.ReportSection{
		Title: "Corpus",
		Summary: map[string]interface{}{
			"activities":         agg["activities"].Number().String(),
			"organisations":      agg["organisations"].Number().String(),
			"publishers":         agg["publishers"].Number().String(),
			"files":              agg["files"].Number().String(),
			"unique identifiers": agg["unique_identifiers"].Number().String(),
			"skipped records":    agg["skipped_records"].Number().String(),
		},
	})

	publisherSection := domain.ReportSection{Title: "Publishers"}
	for _, p := range sortedPublishers(c) {
		timelag, _ := singleKey(p.Stats["timelag"].Counter1())
		publisherSection.Details = append(publisherSection.Details, domain.ReportDetail{
			Name:        p.Name,
			Value:       p.Records,
			Unit:        "records",
			Description: timelag,
		})
	}
	report.Sections = append(report.Sections, publisherSection)

	return report
}

// singleKey extracts the label from a single-entry classification counter.
func singleKey(c stats.Counter1) (string, bool) {
	for k := range c {
		return k, len(c) == 1
	}
	return "", false
}

func sortedPublishers(c *CorpusStats) []*PublisherStats {
	names := make([]string, 0, len(c.Publishers))
	for name := range c.Publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]*PublisherStats, 0, len(names))
	for _, name := range names {
		out = append(out, c.Publishers[name])
	}
	return out
}
