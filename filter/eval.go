package filter

import (
	"fmt"

	"github.com/seqsift/seqsift/pkg/dates"
	"github.com/seqsift/seqsift/pkg/seqio"
	"github.com/seqsift/seqsift/types"
)

// Outcome is the per-record result of the rule pipeline. Rule and Args
// name the last rule that matched, which is what the run log reports;
// RuleIndex is that rule's pipeline position (excludes first, then
// includes), or -1 when nothing matched.
type Outcome struct {
	Exclude   bool
	Include   bool
	Rule      string
	Args      map[string]any
	RuleIndex int
}

// Passed reports whether the record survives filtering; a force-include
// overrides any exclusion.
func (o Outcome) Passed() bool {
	return !o.Exclude || o.Include
}

// Apply evaluates every rule against one record. Excludes run first in
// order, then includes, and each match overwrites the recorded reason.
func Apply(set *types.RuleSet, record types.Record, id string, d dates.Date, comp *seqio.Composition) Outcome {
	out := Outcome{RuleIndex: -1}
	for i, rule := range set.Excludes {
		if MatchesExclude(rule, record, id, d, comp) {
			out.Exclude = true
			out.Rule = rule.Name()
			out.Args = rule.Args()
			out.RuleIndex = i
		}
	}
	for i, rule := range set.Includes {
		if MatchesInclude(rule, record, id) {
			out.Include = true
			out.Rule = rule.Name()
			out.Args = rule.Args()
			out.RuleIndex = len(set.Excludes) + i
		}
	}
	return out
}

// MatchesExclude reports whether one exclude rule drops the record. comp
// is nil when the record has no entry in the sequence index; rules that
// read the sequence composition never match such records, leaving the
// sequence index rule as their reason.
func MatchesExclude(rule types.ExcludeRule, record types.Record, id string, d dates.Date, comp *seqio.Composition) bool {
	switch r := rule.(type) {
	case types.ExcludeAll:
		return true
	case types.SequenceIndexRule:
		return comp == nil
	case types.ExcludeStrains:
		_, found := r.Strains[id]
		return found
	case types.ExcludeWhere:
		return WhereMatches(r.Clause, record)
	case types.ExcludeByQuery:
		// The query names the records to keep.
		return !EvalQuery(r.Expr, record)
	case types.ExcludeAmbiguousDates:
		return d.Ambiguous(r.Level)
	case types.MinDateRule:
		return !d.HasMax || d.Max < r.Bound
	case types.MaxDateRule:
		return !d.HasMin || d.Min > r.Bound
	case types.MinLengthRule:
		return comp != nil && comp.ACGT() < int64(r.Length)
	case types.MaxLengthRule:
		return comp != nil && comp.ACGT() > int64(r.Length)
	case types.NonNucleotideRule:
		return comp != nil && comp.Invalid != 0
	case types.SkipAmbiguousGroup:
		return d.Ambiguous(r.Level)
	default:
		panic(fmt.Sprintf("unhandled exclude rule %T", rule))
	}
}

// MatchesInclude reports whether one include rule force-retains the record.
func MatchesInclude(rule types.IncludeRule, record types.Record, id string) bool {
	switch r := rule.(type) {
	case types.IncludeStrains:
		_, found := r.Strains[id]
		return found
	case types.IncludeWhere:
		return WhereMatches(r.Clause, record)
	default:
		panic(fmt.Sprintf("unhandled include rule %T", rule))
	}
}
