package stats

import (
	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/services/comprehensiveness"
)

// comprehensivenessResult runs the rule battery once per record and caches
// it, since four statistics read from it.
func (c *Context) comprehensivenessResult() comprehensiveness.Result {
	if c.comp == nil {
		r := comprehensiveness.NewEngine(c.Ref, c.Now).Evaluate(c.Rec, c.Version())
		c.comp = &r
	}
	return *c.comp
}

// scoreBools maps criterion outcomes to 0/1 scores, zeroing criteria whose
// denominator override excludes this record.
func scoreBools(bools map[string]bool, denominators map[string]int) Counter1 {
	out := make(Counter1, len(bools))
	for name, passed := range bools {
		score := decimal.Zero
		if passed {
			if d, overridden := denominators[name]; !overridden || d == 1 {
				score = one
			}
		}
		out[name] = score
	}
	return out
}

func statComprehensiveness(c *Context) Value {
	r := c.comprehensivenessResult()
	if !r.Current() {
		return C1(Counter1{})
	}
	return C1(scoreBools(r.Bools, r.Denominators))
}

func statComprehensivenessValidated(c *Context) Value {
	r := c.comprehensivenessResult()
	if !r.Current() {
		return C1(Counter1{})
	}
	return C1(scoreBools(r.Validated, r.Denominators))
}

// statComprehensivenessDenominators exposes the override denominators; the
// three special-cased criteria divide by these instead of the default.
func statComprehensivenessDenominators(c *Context) Value {
	r := c.comprehensivenessResult()
	out := Counter1{
		"recipient_language":       decimal.Zero,
		"transaction_spend":        decimal.Zero,
		"transaction_traceability": decimal.Zero,
	}
	for name, d := range r.Denominators {
		out[name] = decimal.NewFromInt(int64(d))
	}
	return C1(out)
}

func statComprehensivenessDenominatorDefault(c *Context) Value {
	if c.comprehensivenessResult().Current() {
		return NumInt(1)
	}
	return NumInt(0)
}

// statComprehensivenessCurrent records why each activity was (or was not)
// classified current, keyed by identifier.
func statComprehensivenessCurrent(c *Context) Value {
	id := c.Rec.Root.ChildText("iati-identifier")
	if id == "" {
		return C1(Counter1{})
	}
	status := c.comprehensivenessResult().Status
	return C1(Counter1{id: decimal.NewFromInt(int64(status))})
}
