package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
	"github.com/dq-tools/aid-atlas/pkg/services/currency"
	"github.com/dq-tools/aid-atlas/pkg/services/reference"
)

// Result maps statistic name to its shaped value for one record or group.
type Result map[string]Value

// Options wires an Evaluator. Registry defaults to the activity registry and
// Now to the wall clock; Oracle may be nil, in which case the structural
// validation statistic yields its identity value.
type Options struct {
	Registry     *Registry
	Organisation *Registry
	Ref          *reference.Tables
	Rates        *currency.Converter
	Oracle       SchemaOracle
	Now          time.Time
}

// Evaluator computes every declared statistic for single records. It holds
// only read-only state and is safe for concurrent use; each Evaluate call
// gets its own memoization scope.
type Evaluator struct {
	reg    *Registry
	orgReg *Registry
	ref    *reference.Tables
	rates  *currency.Converter
	oracle SchemaOracle
	now    time.Time
}

func NewEvaluator(opts Options) *Evaluator {
	e := &Evaluator{
		reg:    opts.Registry,
		orgReg: opts.Organisation,
		ref:    opts.Ref,
		rates:  opts.Rates,
		oracle: opts.Oracle,
		now:    opts.Now,
	}
	if e.reg == nil {
		e.reg = Activity()
	}
	if e.orgReg == nil {
		e.orgReg = Organisation()
	}
	if e.rates == nil {
		e.rates = currency.NewConverter(nil, 0)
	}
	if e.ref == nil {
		e.ref = reference.NewTables(nil, nil, nil)
	}
	if e.now.IsZero() {
		e.now = time.Now().UTC()
	}
	return e
}

// Registry returns the declarations used for activity records.
func (e *Evaluator) Registry() *Registry { return e.reg }

// Evaluate computes every summed statistic for one record. The only error it
// returns is a record that is not a well-formed tree at all; every other
// anomaly is absorbed into the statistics themselves.
func (e *Evaluator) Evaluate(ctx context.Context, rec *domain.Record) (Result, error) {
	if rec == nil || rec.Root == nil {
		return nil, fmt.Errorf("record is not a well-formed tree")
	}

	reg := e.reg
	if rec.Kind == domain.KindOrganisation {
		reg = e.orgReg
	}

	c := &Context{
		Rec:    rec,
		Ref:    e.ref,
		Rates:  e.rates,
		Oracle: e.oracle,
		Now:    e.now,
		log:    *zerolog.Ctx(ctx),
		reg:    reg,
		memo:   make(map[string]Value),
	}

	out := make(Result, len(reg.Declarations()))
	for _, d := range reg.Declarations() {
		if d.Mode == ModeDerived || d.Fn == nil {
			continue
		}
		out[d.Name] = c.Stat(d.Name)
	}
	return out, nil
}
