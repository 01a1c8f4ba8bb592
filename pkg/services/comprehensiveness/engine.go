package comprehensiveness

import (
	"strings"
	"time"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
	"github.com/dq-tools/aid-atlas/pkg/services/reference"
)

// Status classifies why a record counts as current, or that it does not.
// Non-current records are excluded from scoring entirely: neither numerator
// nor denominator, not a zero.
type Status int

const (
	StatusNotCurrent Status = iota
	// StatusCurrentByStatus: no planned end date and the activity status is
	// implementing (2) or post-completion (4).
	StatusCurrentByStatus
	// StatusCurrentByRecentActualEnd: an actual end date falls within the
	// trailing twelve months.
	StatusCurrentByRecentActualEnd
	// StatusCurrentByFuturePlannedEnd: a planned end date is still ahead.
	StatusCurrentByFuturePlannedEnd
)

// Result is one record's comprehensiveness outcome. Bools hold the presence
// tests, Validated the stricter presence-and-validity tests, and
// Denominators the override flags for the three criteria whose satisfaction
// rate is computed only over an applicable subset. All maps are empty for
// non-current records.
type Result struct {
	Status       Status
	Bools        map[string]bool
	Validated    map[string]bool
	Denominators map[string]int
}

// Current reports whether the record takes part in scoring at all.
func (r Result) Current() bool { return r.Status != StatusNotCurrent }

// Engine evaluates the comprehensiveness rule battery. It is a stateless
// per-record classification, safe for concurrent use.
type Engine struct {
	ref *reference.Tables
	now time.Time
}

func NewEngine(ref *reference.Tables, now time.Time) *Engine {
	return &Engine{ref: ref, now: now}
}

// Evaluate classifies the record and, when current, runs every criterion.
// version is the record's resolved standard version (e.g. "2.03").
func (e *Engine) Evaluate(rec *domain.Record, version string) Result {
	major := "1"
	if strings.HasPrefix(version, "2.") {
		major = "2"
	}
	v := &view{
		rec:   rec,
		root:  rec.Root,
		ref:   e.ref,
		now:   e.now,
		major: major,
		codes: domain.CodesFor(major),
	}

	status := v.classify()
	if status == StatusNotCurrent {
		return Result{Status: status, Bools: map[string]bool{}, Validated: map[string]bool{}, Denominators: map[string]int{}}
	}
	return Result{
		Status:       status,
		Bools:        v.presenceBools(),
		Validated:    v.validatedBools(),
		Denominators: v.denominators(),
	}
}

// classify applies the three currentness rules in order.
func (v *view) classify() Status {
	statusCode := v.root.Find("activity-status").Attr("code")
	plannedEnds := domain.ActivityDates(v.root, v.codes.PlannedEnd)
	actualEnds := domain.ActivityDates(v.root, v.codes.ActualEnd)

	if len(plannedEnds) == 0 && (statusCode == "2" || statusCode == "4") {
		return StatusCurrentByStatus
	}
	yearAgo := domain.AddYears(v.now, -1)
	for _, d := range actualEnds {
		if !d.Before(yearAgo) && !d.After(v.now) {
			return StatusCurrentByRecentActualEnd
		}
	}
	for _, d := range plannedEnds {
		if !d.Before(v.now) {
			return StatusCurrentByFuturePlannedEnd
		}
	}
	return StatusNotCurrent
}

// denominators returns the override flags for the three special-cased
// criteria. Criteria not listed here always count in the denominator.
func (v *view) denominators() map[string]int {
	out := map[string]int{
		"recipient_language":       0,
		"transaction_spend":        0,
		"transaction_traceability": 0,
	}
	if len(v.root.FindAll("recipient-country")) == 1 {
		out["recipient_language"] = 1
	}
	if start, ok := v.startDate(); ok {
		if start.Before(v.now) && v.now.Sub(start) > 365*24*time.Hour {
			out["transaction_spend"] = 1
		}
	}
	if len(v.fundedTransactions()) > 0 || v.isDonorPublisher() {
		out["transaction_traceability"] = 1
	}
	return out
}
