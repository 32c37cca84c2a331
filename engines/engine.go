// Package engines defines the filtering backends. Every engine consumes
// the same Run bundle and must produce identical Results for identical
// inputs; the conformance tests hold them to that.
package engines

import (
	"context"

	"github.com/seqsift/seqsift/filter"
	"github.com/seqsift/seqsift/pkg/priorities"
	"github.com/seqsift/seqsift/pkg/seqio"
	"github.com/seqsift/seqsift/types"
)

// Run bundles everything an engine needs for one filtering pass. The
// orchestrator assembles it after probing the metadata header.
type Run struct {
	Config   *types.FilterConfig
	Columns  []string
	IDColumn string
	Rules    *types.RuleSet
	// Group is the validated grouping; nil when the run never subsamples.
	Group *filter.GroupSpec
	// Index maps strain to sequence composition when sequence data is in
	// play, nil otherwise. A metadata strain absent from it has no
	// sequence.
	Index map[string]seqio.Composition
	// Priorities holds --priority scores; nil means pseudo priorities
	// drawn from Generator.
	Priorities priorities.Table
	// Generator supplies deterministic pseudo priorities and the Poisson
	// draws behind probabilistic quotas.
	Generator *priorities.Generator
}

// Results is the outcome of a completed run.
type Results struct {
	// MetadataStrains is the number of metadata rows ingested.
	MetadataStrains int64
	// Strains is every identifier present in the metadata.
	Strains map[string]struct{}
	// Passed is the identifiers surviving filtering and subsampling.
	Passed map[string]struct{}
	// Reasons maps identifiers to the last rule that matched them, for
	// the run log.
	Reasons map[string]types.Reason
	// Counts is the per-rule match totals in rule application order.
	Counts []types.ReasonCount
	// SubsampledOut is the number of candidates dropped by group quotas.
	SubsampledOut int64
}

// Engine is one filtering backend. Stage order is fixed: Setup, Load per
// metadata chunk, FinishLoad, then GroupSizes and ApplyQuotas when the
// run subsamples, then Results, then Close.
type Engine interface {
	Setup(ctx context.Context, run *Run) error
	// Load ingests one metadata chunk.
	Load(ctx context.Context, batch *types.Batch) error
	// FinishLoad completes ingestion and rule evaluation. It returns
	// every duplicated identifier in sorted order; a non-empty slice
	// aborts the run before any output is written.
	FinishLoad(ctx context.Context) ([]string, error)
	// GroupSizes counts subsampling candidates per group key. Candidates
	// are records that passed every rule without being force-included.
	GroupSizes(ctx context.Context) (map[string]int64, error)
	// ApplyQuotas drops candidates ranked beyond their group's quota.
	ApplyQuotas(ctx context.Context, quotas map[string]int64) error
	Results(ctx context.Context) (*Results, error)
	Close(ctx context.Context) error
}

type NewFunc func() Engine

var RegisteredEngines = map[string]NewFunc{}

// NewEngine builds the engine registered under name.
func NewEngine(name string) (Engine, error) {
	newfunc, found := RegisteredEngines[name]
	if !found {
		return nil, types.Configf("invalid engine type has been passed [%s]", name)
	}
	return newfunc(), nil
}
