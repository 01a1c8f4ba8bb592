package comprehensiveness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
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
	statuses := reference.Codelist{"1": {}, "2": {}, "3": {}, "4": {}, "5": {}}
	versions := reference.Codelist{"1.05": {}, "2.02": {}, "2.03": {}}
	lists := map[string]map[string]reference.Codelist{
		"1": {"ActivityStatus": statuses, "Version": versions},
		"2": {"ActivityStatus": statuses, "Version": versions},
	}
	langs := map[string][]string{"KE": {"sw", "en"}}
	return reference.NewTables(lists, langs, nil)
}

func testNow(t *testing.T) time.Time {
	now, err := time.Parse("2006-01-02", "2016-07-01")
	require.NoError(t, err)
	return now
}

func activity(attrs map[string]string, children ...*domain.Node) *domain.Record {
	return &domain.Record{
		Kind:        domain.KindActivity,
		FileVersion: "2.02",
		Root:        node("iati-activity", attrs, children...),
	}
}

func TestClassify(t *testing.T) {
	engine := NewEngine(testTables(), testNow(t))

	tests := []struct {
		name   string
		rec    *domain.Record
		status Status
	}{
		{
			name:   "implementing status without planned end",
			rec:    activity(nil, node("activity-status", map[string]string{"code": "2"})),
			status: StatusCurrentByStatus,
		},
		{
			name: "actual end within twelve months",
			rec: activity(nil,
				node("activity-status", map[string]string{"code": "3"}),
				node("activity-date", map[string]string{"type": "4", "iso-date": "2016-01-15"}),
			),
			status: StatusCurrentByRecentActualEnd,
		},
		{
			name: "planned end in the future",
			rec: activity(nil,
				node("activity-status", map[string]string{"code": "3"}),
				node("activity-date", map[string]string{"type": "3", "iso-date": "2017-01-01"}),
			),
			status: StatusCurrentByFuturePlannedEnd,
		},
		{
			// Planned end one day in the past, actual end thirteen months
			// ago, status outside {2,4}: every rule fails.
			name: "stale activity is not current",
			rec: activity(nil,
				node("activity-status", map[string]string{"code": "3"}),
				node("activity-date", map[string]string{"type": "3", "iso-date": "2016-06-30"}),
				node("activity-date", map[string]string{"type": "4", "iso-date": "2015-06-01"}),
			),
			status: StatusNotCurrent,
		},
		{
			// A planned end date disables the status rule even for status 2.
			name: "planned end blocks the status rule",
			rec: activity(nil,
				node("activity-status", map[string]string{"code": "2"}),
				node("activity-date", map[string]string{"type": "3", "iso-date": "2016-01-01"}),
			),
			status: StatusNotCurrent,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Evaluate(tc.rec, "2.02")
			assert.Equal(t, tc.status, got.Status)
		})
	}
}

// Non-current records contribute nothing at all: no criterion outcomes, no
// denominators.
func TestEvaluate_NotCurrentIsExcludedEntirely(t *testing.T) {
	engine := NewEngine(testTables(), testNow(t))
	rec := activity(nil,
		node("activity-status", map[string]string{"code": "3"}),
		node("activity-date", map[string]string{"type": "3", "iso-date": "2016-06-30"}),
	)

	got := engine.Evaluate(rec, "2.02")
	assert.False(t, got.Current())
	assert.Empty(t, got.Bools)
	assert.Empty(t, got.Validated)
	assert.Empty(t, got.Denominators)
}

func TestEvaluate_SectorPercentageSplit(t *testing.T) {
	engine := NewEngine(testTables(), testNow(t))

	sectorRecord := func(percentages ...string) *domain.Record {
		children := []*domain.Node{
			node("activity-status", map[string]string{"code": "2"}),
		}
		for _, p := range percentages {
			children = append(children, node("sector", map[string]string{"code": "11110", "percentage": p}))
		}
		return activity(nil, children...)
	}

	tests := []struct {
		name        string
		percentages []string
		valid       bool
	}{
		{"single entry needs no percentage", []string{""}, true},
		{"split summing to 100", []string{"50", "25", "25"}, true},
		{"split summing to 99", []string{"50", "25", "24"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := engine.Evaluate(sectorRecord(tc.percentages...), "2.02")
			require.True(t, got.Current())
			assert.True(t, got.Bools["sector"])
			assert.Equal(t, tc.valid, got.Validated["sector"])
		})
	}
}

func TestEvaluate_DenominatorOverrides(t *testing.T) {
	engine := NewEngine(testTables(), testNow(t))

	t.Run("defaults to not applicable", func(t *testing.T) {
		got := engine.Evaluate(activity(nil, node("activity-status", map[string]string{"code": "2"})), "2.02")
		require.True(t, got.Current())
		assert.Equal(t, 0, got.Denominators["recipient_language"])
		assert.Equal(t, 0, got.Denominators["transaction_spend"])
		assert.Equal(t, 0, got.Denominators["transaction_traceability"])
	})

	t.Run("applicable record", func(t *testing.T) {
		rec := activity(nil,
			node("activity-status", map[string]string{"code": "2"}),
			node("recipient-country", map[string]string{"code": "KE"}),
			node("activity-date", map[string]string{"type": "2", "iso-date": "2014-01-01"}),
			node("transaction", nil,
				node("transaction-type", map[string]string{"code": "1"}),
				textNode("value", "10"),
			),
		)
		got := engine.Evaluate(rec, "2.02")
		require.True(t, got.Current())
		assert.Equal(t, 1, got.Denominators["recipient_language"])
		assert.Equal(t, 1, got.Denominators["transaction_spend"])
		assert.Equal(t, 1, got.Denominators["transaction_traceability"])
	})

	t.Run("two recipient countries leave language inapplicable", func(t *testing.T) {
		rec := activity(nil,
			node("activity-status", map[string]string{"code": "2"}),
			node("recipient-country", map[string]string{"code": "KE"}),
			node("recipient-country", map[string]string{"code": "TZ"}),
		)
		got := engine.Evaluate(rec, "2.02")
		assert.Equal(t, 0, got.Denominators["recipient_language"])
		assert.False(t, got.Bools["recipient_language"])
	})
}

func TestEvaluate_RecipientLanguage(t *testing.T) {
	engine := NewEngine(testTables(), testNow(t))

	rec := activity(map[string]string{"xml:lang": "fr"},
		node("activity-status", map[string]string{"code": "2"}),
		node("recipient-country", map[string]string{"code": "KE"}),
		node("title", nil, &domain.Node{Tag: "narrative", Attrs: map[string]string{"xml:lang": "sw"}, Text: "Mradi"}),
		node("description", nil, &domain.Node{Tag: "narrative", Attrs: map[string]string{"xml:lang": "en"}, Text: "A project"}),
	)
	got := engine.Evaluate(rec, "2.02")
	require.True(t, got.Current())
	assert.True(t, got.Bools["recipient_language"])

	// Same record, but the narratives fall back to a non-matching default.
	rec2 := activity(map[string]string{"xml:lang": "fr"},
		node("activity-status", map[string]string{"code": "2"}),
		node("recipient-country", map[string]string{"code": "KE"}),
		node("title", nil, textNode("narrative", "Projet")),
		node("description", nil, textNode("narrative", "Un projet")),
	)
	got2 := engine.Evaluate(rec2, "2.02")
	assert.False(t, got2.Bools["recipient_language"])
}

func TestEvaluate_IdentifierPrefix(t *testing.T) {
	engine := NewEngine(testTables(), testNow(t))

	rec := activity(nil,
		node("activity-status", map[string]string{"code": "2"}),
		textNode("iati-identifier", "XM-DAC-1-100"),
		node("reporting-org", map[string]string{"ref": "XM-DAC-1"}, textNode("narrative", "Org")),
	)
	got := engine.Evaluate(rec, "2.02")
	assert.True(t, got.Validated["iati-identifier"])

	rec2 := activity(nil,
		node("activity-status", map[string]string{"code": "2"}),
		textNode("iati-identifier", "OTHER-100"),
		node("reporting-org", map[string]string{"ref": "XM-DAC-1"}, textNode("narrative", "Org")),
	)
	got2 := engine.Evaluate(rec2, "2.02")
	assert.True(t, got2.Bools["iati-identifier"])
	assert.False(t, got2.Validated["iati-identifier"])
}
