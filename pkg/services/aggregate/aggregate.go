// Package aggregate folds per-record statistic results up the grouping
// hierarchy (record, file, publisher, corpus) and computes the derived
// statistics that only exist at the group level.
package aggregate

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dq-tools/aid-atlas/pkg/models/domain"
	"github.com/dq-tools/aid-atlas/pkg/services/currency"
	"github.com/dq-tools/aid-atlas/pkg/services/reference"
	"github.com/dq-tools/aid-atlas/pkg/services/stats"
)

// FileStats is the aggregate over every record in one source file.
type FileStats struct {
	Publisher string       `json:"publisher"`
	File      string       `json:"file"`
	Records   int          `json:"records"`
	Skipped   int          `json:"skipped"`
	Stats     stats.Result `json:"stats"`
}

// PublisherStats is the aggregate over every file a publisher reports,
// including the publisher-level derived statistics.
type PublisherStats struct {
	Name    string       `json:"name"`
	Records int          `json:"records"`
	Skipped int          `json:"skipped"`
	Files   []*FileStats `json:"files"`
	Stats   stats.Result `json:"stats"`
}

// CorpusStats is the top of the hierarchy: the fold over every publisher
// plus the corpus-level derived statistics.
type CorpusStats struct {
	Publishers map[string]*PublisherStats `json:"publishers"`
	Stats      stats.Result               `json:"stats"`
}

// Options wires a Builder. Workers bounds leaf evaluation parallelism and
// defaults to the CPU count.
type Options struct {
	Evaluator *stats.Evaluator
	Ref       *reference.Tables
	Rates     *currency.Converter
	Now       time.Time
	Workers   int
}

// Builder evaluates records and folds the results upward. It holds only
// read-only state and is safe for concurrent use.
type Builder struct {
	eval    *stats.Evaluator
	ref     *reference.Tables
	rates   *currency.Converter
	now     time.Time
	workers int
}

func NewBuilder(opts Options) *Builder {
	b := &Builder{
		eval:    opts.Evaluator,
		ref:     opts.Ref,
		rates:   opts.Rates,
		now:     opts.Now,
		workers: opts.Workers,
	}
	if b.eval == nil {
		b.eval = stats.NewEvaluator(stats.Options{Ref: opts.Ref, Rates: opts.Rates, Now: opts.Now})
	}
	if b.now.IsZero() {
		b.now = time.Now().UTC()
	}
	if b.workers <= 0 {
		b.workers = runtime.NumCPU()
	}
	return b
}

// BuildFile evaluates every record of one file in parallel and folds the
// results. A record that fails evaluation outright is counted as skipped and
// never blocks the rest of the file.
func (b *Builder) BuildFile(ctx context.Context, key domain.GroupKey, recs []*domain.Record) (*FileStats, error) {
	results := make([]stats.Result, len(recs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	var mu sync.Mutex
	skipped := 0
	for i, rec := range recs {
		i, rec := i, rec
		g.Go(func() error {
			res, err := b.eval.Evaluate(gctx, rec)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).
					Str("publisher", key.Publisher).Str("file", key.File).
					Msg("skipping record")
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluating %s/%s: %w", key.Publisher, key.File, err)
	}

	kept := results[:0]
	for _, r := range results {
		if r != nil {
			kept = append(kept, r)
		}
	}
	folded, err := b.Fold(kept)
	if err != nil {
		return nil, fmt.Errorf("folding %s/%s: %w", key.Publisher, key.File, err)
	}
	return &FileStats{
		Publisher: key.Publisher,
		File:      key.File,
		Records:   len(kept),
		Skipped:   skipped,
		Stats:     folded,
	}, nil
}

// BuildPublisher folds a publisher's file aggregates and fills in the
// publisher-level derived statistics.
func (b *Builder) BuildPublisher(name string, files []*FileStats) (*PublisherStats, error) {
	results := make([]stats.Result, 0, len(files))
	p := &PublisherStats{Name: name, Files: files}
	for _, f := range files {
		results = append(results, f.Stats)
		p.Records += f.Records
		p.Skipped += f.Skipped
	}
	folded, err := b.Fold(results)
	if err != nil {
		return nil, fmt.Errorf("folding publisher %s: %w", name, err)
	}
	p.Stats = folded
	b.derivePublisher(p)
	return p, nil
}

// BuildCorpus folds every publisher aggregate and fills in the corpus-level
// derived statistics.
func (b *Builder) BuildCorpus(publishers []*PublisherStats) (*CorpusStats, error) {
	c := &CorpusStats{Publishers: make(map[string]*PublisherStats, len(publishers))}
	results := make([]stats.Result, 0, len(publishers))
	for _, p := range publishers {
		c.Publishers[p.Name] = p
		results = append(results, p.Stats)
	}
	folded, err := b.Fold(results)
	if err != nil {
		return nil, fmt.Errorf("folding corpus: %w", err)
	}
	c.Stats = folded
	b.deriveCorpus(c, publishers)
	return c, nil
}

// Fold merges a sequence of results name by name with the shape merge rule.
// Derived statistics are excluded entirely; their group values are computed
// from the fold's output instead. Because the merge is associative and
// commutative, sequential folding and pairwise tree reduction give identical
// results.
func (b *Builder) Fold(results []stats.Result) (stats.Result, error) {
	reg := b.eval.Registry()
	out := stats.Result{}
	for _, r := range results {
		for name, v := range r {
			if d, ok := reg.Lookup(name); ok && d.Mode == stats.ModeDerived {
				continue
			}
			acc, ok := out[name]
			if !ok {
				out[name] = v
				continue
			}
			merged, err := stats.Merge(acc, v)
			if err != nil {
				return nil, fmt.Errorf("statistic %q: %w", name, err)
			}
			out[name] = merged
		}
	}
	return out, nil
}
