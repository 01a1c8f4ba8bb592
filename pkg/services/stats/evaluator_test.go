package stats

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
	"github.com/dq-tools/aid-atlas/pkg/services/currency"
	"github.com/dq-tools/aid-atlas/pkg/services/reference"
)

func node(tag string, attrs map[string]string, children ...*domain.Node) *domain.Node {
	if attrs == nil {
		attrs = map[string]string{}
	}
	return &domain.Node{Tag: tag, Attrs: attrs, Children: children}
}

func textNode(tag, text string) *domain.Node {
	return &domain.Node{Tag: tag, Attrs: map[string]string{}, Text: text}
}

func testTables() *reference.Tables {
	versions := reference.Codelist{}
	for _, v := range []string{"1.01", "1.02", "1.03", "1.04", "1.05", "2.01", "2.02", "2.03"} {
		versions[v] = struct{}{}
	}
	agencies := reference.Codelist{"XM-DAC": {}, "XI-IATI": {}, "NP-COA": {}}
	channels := reference.Codelist{"47122": {}}
	lists := func() map[string]reference.Codelist {
		return map[string]reference.Codelist{
			"Version":                        versions,
			"OrganisationRegistrationAgency": agencies,
			"CRSChannelCode":                 channels,
		}
	}
	return reference.NewTables(map[string]map[string]reference.Codelist{
		"1": lists(),
		"2": lists(),
	}, nil, nil)
}

func testEvaluator(rates currency.RateTable, clampYear int) *Evaluator {
	now, _ := time.Parse("2006-01-02", "2015-07-01")
	return NewEvaluator(Options{
		Ref:   testTables(),
		Rates: currency.NewConverter(rates, clampYear),
		Now:   now,
	})
}

func TestEvaluate_NilRecord(t *testing.T) {
	e := testEvaluator(nil, 0)
	_, err := e.Evaluate(context.Background(), nil)
	require.Error(t, err)
	_, err = e.Evaluate(context.Background(), &domain.Record{})
	require.Error(t, err)
}

// Every declared statistic must come back with its declared shape even for a
// record carrying no data at all.
func TestEvaluate_ShapeInvarianceOnEmptyRecord(t *testing.T) {
	e := testEvaluator(nil, 0)
	rec := &domain.Record{Kind: domain.KindActivity, Root: node("iati-activity", nil)}

	out, err := e.Evaluate(context.Background(), rec)
	require.NoError(t, err)

	for _, d := range e.Registry().Declarations() {
		if d.Mode == ModeDerived {
			assert.NotContains(t, out, d.Name)
			continue
		}
		require.Contains(t, out, d.Name)
		assert.Equal(t, d.Shape, out[d.Name].Shape(), "statistic %s", d.Name)
	}
}

func TestEvaluate_TransactionSumsUSD(t *testing.T) {
	rates := currency.RateTable{
		"EUR": {2013: decimal.RequireFromString("0.8")},
	}
	e := testEvaluator(rates, 2014)

	rec := &domain.Record{
		Kind: domain.KindActivity,
		Root: node("iati-activity", map[string]string{"default-currency": "EUR"},
			textNode("iati-identifier", "XM-1"),
			node("transaction", nil,
				node("transaction-type", map[string]string{"code": "D"}),
				node("transaction-date", map[string]string{"iso-date": "2013-06-01"}),
				textNode("value", "100"),
			),
		),
	}

	out, err := e.Evaluate(context.Background(), rec)
	require.NoError(t, err)

	byCurrency := out["sum_transactions_by_type_by_year"].Counter3()
	require.Contains(t, byCurrency, "D")
	assert.True(t, byCurrency["D"]["EUR"]["2013"].Equal(decimal.NewFromInt(100)))

	usd := out["sum_transactions_by_type_by_year_usd"].Counter3()
	require.Contains(t, usd, "D")
	assert.True(t, usd["D"]["USD"]["2013"].Equal(decimal.NewFromInt(125)),
		"got %s", usd["D"]["USD"]["2013"])
}

// Years past the converter's clamp boundary are attributed to the boundary
// year in the USD view.
func TestEvaluate_TransactionSumsUSD_ClampsRecentYears(t *testing.T) {
	rates := currency.RateTable{
		"EUR": {2014: decimal.NewFromInt(2)},
	}
	e := testEvaluator(rates, 2014)

	rec := &domain.Record{
		Kind: domain.KindActivity,
		Root: node("iati-activity", map[string]string{"default-currency": "EUR"},
			node("transaction", nil,
				node("transaction-type", map[string]string{"code": "C"}),
				node("transaction-date", map[string]string{"iso-date": "2016-02-01"}),
				textNode("value", "10"),
			),
		),
	}

	out, err := e.Evaluate(context.Background(), rec)
	require.NoError(t, err)

	usd := out["sum_transactions_by_type_by_year_usd"].Counter3()
	assert.True(t, usd["C"]["USD"]["2014"].Equal(decimal.NewFromInt(5)), "got %v", usd["C"]["USD"])
}

func TestEvaluate_VersionFallback(t *testing.T) {
	e := testEvaluator(nil, 0)
	rec := &domain.Record{
		Kind:        domain.KindActivity,
		Root:        node("iati-activity", nil),
		FileVersion: "9.9",
	}

	out, err := e.Evaluate(context.Background(), rec)
	require.NoError(t, err)

	assert.True(t, out["versions"].Counter1()["1.01"].Equal(decimal.NewFromInt(1)))
	assert.True(t, out["version_mismatch"].Counter1()["unsupported"].Equal(decimal.NewFromInt(1)))
}

func TestEvaluate_HumanitarianVeto(t *testing.T) {
	e := testEvaluator(nil, 0)

	// Sector-coded transaction, but the record explicitly says "not
	// humanitarian": the veto wins.
	rec := &domain.Record{
		Kind:        domain.KindActivity,
		FileVersion: "2.02",
		Root: node("iati-activity", map[string]string{"humanitarian": "0"},
			node("transaction", nil,
				node("transaction-type", map[string]string{"code": "3"}),
				node("sector", map[string]string{"vocabulary": "1", "code": "72010"}),
			),
		),
	}

	out, err := e.Evaluate(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, out["humanitarian"].Counter1()["is_humanitarian"].IsZero())
}

func TestEvaluate_HumanitarianSectorInference(t *testing.T) {
	e := testEvaluator(nil, 0)

	rec := &domain.Record{
		Kind:        domain.KindActivity,
		FileVersion: "1.03",
		Root: node("iati-activity", nil,
			node("sector", map[string]string{"vocabulary": "DAC", "code": "72010"}),
		),
	}

	out, err := e.Evaluate(context.Background(), rec)
	require.NoError(t, err)
	humanitarian := out["humanitarian"].Counter1()
	assert.True(t, humanitarian["is_humanitarian"].Equal(decimal.NewFromInt(1)))
	// The explicit flag does not exist before 2.02.
	assert.True(t, humanitarian["is_humanitarian_by_attrib"].IsZero())
}

func TestEvaluate_ElementCounts(t *testing.T) {
	e := testEvaluator(nil, 0)
	rec := &domain.Record{
		Kind: domain.KindActivity,
		Root: node("iati-activity", nil,
			textNode("iati-identifier", "XM-1"),
			node("sector", map[string]string{"code": "111"}),
			node("sector", map[string]string{"code": "112"}),
		),
	}

	out, err := e.Evaluate(context.Background(), rec)
	require.NoError(t, err)

	total := out["elements_total"].Counter1()
	assert.True(t, total["iati-activity/sector"].Equal(decimal.NewFromInt(2)))
	assert.True(t, total["iati-activity/sector/@code"].Equal(decimal.NewFromInt(2)))

	presence := out["elements"].Counter1()
	assert.True(t, presence["iati-activity/sector"].Equal(decimal.NewFromInt(1)))
}

func TestEvaluate_OrganisationRecords(t *testing.T) {
	e := testEvaluator(nil, 0)
	rec := &domain.Record{
		Kind:        domain.KindOrganisation,
		FileVersion: "2.02",
		Root: node("iati-organisation", nil,
			node("reporting-org", map[string]string{"ref": "XM-DAC-1"}),
		),
	}

	out, err := e.Evaluate(context.Background(), rec)
	require.NoError(t, err)

	assert.True(t, out["organisations"].Number().Equal(decimal.NewFromInt(1)))
	assert.True(t, out["reporting_orgs"].Counter1()["XM-DAC-1"].Equal(decimal.NewFromInt(1)))
	assert.NotContains(t, out, "activities")
}
