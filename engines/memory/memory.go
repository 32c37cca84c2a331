// Package memory implements the in-memory engine. It holds no metadata
// rows: rules are evaluated as chunks stream through, and only
// identifiers, reasons, and subsampling candidates are retained.
package memory

import (
	"context"
	"sort"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/engines"
	"github.com/seqsift/seqsift/filter"
	"github.com/seqsift/seqsift/pkg/dates"
	"github.com/seqsift/seqsift/pkg/seqio"
	"github.com/seqsift/seqsift/types"
)

type candidate struct {
	id       string
	priority float64
	// ranked is false when the candidate has no priority score; those
	// sort after every scored candidate, like a SQL NULL.
	ranked bool
}

type Memory struct {
	run  *engines.Run
	seen map[string]int64

	rows       int64
	strains    map[string]struct{}
	passed     map[string]struct{}
	reasons    map[string]types.Reason
	counts     map[filter.CountKey]int64
	candidates map[string][]candidate

	subsampledOut int64
}

func (m *Memory) Setup(_ context.Context, run *engines.Run) error {
	m.run = run
	m.seen = make(map[string]int64)
	m.strains = make(map[string]struct{})
	m.passed = make(map[string]struct{})
	m.reasons = make(map[string]types.Reason)
	m.counts = make(map[filter.CountKey]int64)
	m.candidates = make(map[string][]candidate)
	return nil
}

func (m *Memory) Load(_ context.Context, batch *types.Batch) error {
	for i := range batch.Records {
		record := batch.Records[i]
		id := batch.Identifier(i)

		m.rows++
		m.seen[id]++
		if m.seen[id] > 1 {
			// Duplicates abort the run after loading; the first
			// occurrence's outcome stands until then.
			continue
		}
		m.strains[id] = struct{}{}

		d := dates.Parse(record[constants.DateColumn])
		var comp *seqio.Composition
		if m.run.Index != nil {
			if c, found := m.run.Index[id]; found {
				comp = &c
			}
		}

		out := filter.Apply(m.run.Rules, record, id, d, comp)
		if out.RuleIndex >= 0 {
			m.reasons[id] = types.Reason{Rule: out.Rule, Kwargs: filter.KwargsJSON(out.Args)}
			m.counts[filter.InstanceKey(m.run.Rules, out.RuleIndex)]++
		}
		if !out.Passed() {
			continue
		}
		if out.Include || m.run.Group == nil {
			// Force-includes and unsampled runs go straight through.
			m.passed[id] = struct{}{}
			continue
		}

		key, ok := m.run.Group.KeyOf(record, d)
		if !ok {
			continue
		}
		c := candidate{id: id}
		if m.run.Priorities != nil {
			c.priority, c.ranked = m.run.Priorities.Get(id)
		} else {
			c.priority, c.ranked = m.run.Generator.Priority(id), true
		}
		m.candidates[key] = append(m.candidates[key], c)
	}
	return nil
}

func (m *Memory) FinishLoad(_ context.Context) ([]string, error) {
	var duplicates []string
	for id, n := range m.seen {
		if n > 1 {
			duplicates = append(duplicates, id)
		}
	}
	sort.Strings(duplicates)
	return duplicates, nil
}

func (m *Memory) GroupSizes(_ context.Context) (map[string]int64, error) {
	sizes := make(map[string]int64, len(m.candidates))
	for key, group := range m.candidates {
		sizes[key] = int64(len(group))
	}
	return sizes, nil
}

func (m *Memory) ApplyQuotas(_ context.Context, quotas map[string]int64) error {
	for key, group := range m.candidates {
		sort.Slice(group, func(i, j int) bool {
			a, b := group[i], group[j]
			if a.ranked != b.ranked {
				return a.ranked
			}
			if a.priority != b.priority {
				return a.priority > b.priority
			}
			return a.id < b.id
		})

		quota := quotas[key]
		for i, c := range group {
			if int64(i) < quota {
				m.passed[c.id] = struct{}{}
				continue
			}
			m.subsampledOut++
			m.reasons[c.id] = types.Reason{Rule: types.ReasonSubsample, Kwargs: ""}
		}
	}
	return nil
}

func (m *Memory) Results(_ context.Context) (*engines.Results, error) {
	return &engines.Results{
		MetadataStrains: m.rows,
		Strains:         m.strains,
		Passed:          m.passed,
		Reasons:         m.reasons,
		Counts:          filter.OrderCounts(m.run.Rules, m.counts),
		SubsampledOut:   m.subsampledOut,
	}, nil
}

func (m *Memory) Close(_ context.Context) error {
	return nil
}

func init() {
	engines.RegisteredEngines[constants.EnginePandas] = func() engines.Engine {
		return &Memory{}
	}
}
