package stats

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
	"github.com/dq-tools/aid-atlas/pkg/services/comprehensiveness"
	"github.com/dq-tools/aid-atlas/pkg/services/currency"
	"github.com/dq-tools/aid-atlas/pkg/services/reference"
)

// LegacyVersion is the fallback when a document declares no version, or one
// outside the Version codelist.
const LegacyVersion = "1.01"

// SchemaOracle is the external structural validator: given a record and its
// resolved version it returns pass/fail. Exactly one statistic consumes it.
type SchemaOracle interface {
	Validate(rec *domain.Record, version string) bool
}

// Context is the per-record evaluation scope. It memoizes statistic results
// by name for the duration of one Evaluate call, so statistics that feed
// several others are computed once. It is discarded when the call returns
// and must never be shared across records.
type Context struct {
	Rec    *domain.Record
	Ref    *reference.Tables
	Rates  *currency.Converter
	Oracle SchemaOracle
	Now    time.Time

	log  zerolog.Logger
	reg  *Registry
	memo map[string]Value
	comp *comprehensiveness.Result

	version      string
	versionKnown bool
}

// Stat returns another statistic's value for the same record, computing and
// memoizing it on first use.
func (c *Context) Stat(name string) Value {
	if v, ok := c.memo[name]; ok {
		return v
	}
	d, ok := c.reg.Lookup(name)
	if !ok || d.Fn == nil {
		return Value{}
	}
	v := c.eval(d)
	c.memo[name] = v
	return v
}

// eval runs one statistic function, recovering from panics so a malformed
// record degrades to the shape's identity instead of poisoning the run.
func (c *Context) eval(d Declaration) (out Value) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Warn().Str("statistic", d.Name).Interface("panic", r).
				Msg("statistic evaluation recovered, using identity value")
			out = Identity(d.Shape)
		}
	}()
	v := d.Fn(c)
	if v.Shape() != d.Shape {
		c.log.Warn().Str("statistic", d.Name).
			Str("declared", d.Shape.String()).Str("got", v.Shape().String()).
			Msg("statistic returned wrong shape, using identity value")
		return Identity(d.Shape)
	}
	return v
}

// Version resolves the declared standard version for this record's document,
// falling back to the legacy version when absent or unrecognized. The
// fallback is a logged irregularity, not an error.
func (c *Context) Version() string {
	if c.versionKnown {
		return c.version
	}
	c.versionKnown = true
	declared := c.Rec.FileVersion
	if declared != "" && c.Ref.CodelistHas("2", "Version", declared) {
		c.version = declared
		return c.version
	}
	if declared != "" {
		c.log.Debug().Str("version", declared).
			Msg("unrecognized standard version, assuming " + LegacyVersion)
	}
	c.version = LegacyVersion
	return c.version
}

// MajorVersion is "1" or "2".
func (c *Context) MajorVersion() string {
	if strings.HasPrefix(c.Version(), "2.") {
		return "2"
	}
	return "1"
}

// Codes returns the coded values for the record's major version.
func (c *Context) Codes() domain.Codes {
	return domain.CodesFor(c.MajorVersion())
}

// Transactions returns the record's transaction elements.
func (c *Context) Transactions() []*domain.Node {
	return c.Rec.Root.FindAll("transaction")
}

// CurrencyFor resolves the currency of a budget, planned disbursement or
// transaction.
func (c *Context) CurrencyFor(n *domain.Node) string {
	return domain.CurrencyFor(c.Rec.Root, n)
}

// StartDate returns the activity's start, preferring the actual start over
// the planned one.
func (c *Context) StartDate() (time.Time, bool) {
	codes := c.Codes()
	if ds := domain.ActivityDates(c.Rec.Root, codes.ActualStart); len(ds) > 0 {
		return ds[0], true
	}
	if ds := domain.ActivityDates(c.Rec.Root, codes.PlannedStart); len(ds) > 0 {
		return ds[0], true
	}
	return time.Time{}, false
}

// EndDate returns the activity's end, preferring the actual end over the
// planned one.
func (c *Context) EndDate() (time.Time, bool) {
	codes := c.Codes()
	if ds := domain.ActivityDates(c.Rec.Root, codes.ActualEnd); len(ds) > 0 {
		return ds[0], true
	}
	if ds := domain.ActivityDates(c.Rec.Root, codes.PlannedEnd); len(ds) > 0 {
		return ds[0], true
	}
	return time.Time{}, false
}

// ValueAmount parses a financial value element, logging unparsable text at
// low severity.
func (c *Context) ValueAmount(container *domain.Node) decimal.Decimal {
	text := strings.TrimSpace(container.ChildText("value"))
	if text == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(text)
	if err != nil {
		c.log.Debug().Str("value", text).Msg("unparsable financial value, using zero")
		return decimal.Zero
	}
	return d
}
