package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsift/seqsift/pkg/dates"
	"github.com/seqsift/seqsift/pkg/seqio"
	"github.com/seqsift/seqsift/types"
)

func TestMatchesExcludeDates(t *testing.T) {
	minRule := types.MinDateRule{Date: "2016-06-01", Bound: mustBoundMin(t, "2016-06-01")}
	maxRule := types.MaxDateRule{Date: "2016-06-01", Bound: mustBoundMax(t, "2016-06-01")}

	testCases := []struct {
		name    string
		raw     string
		minDrop bool
		maxDrop bool
	}{
		{name: "before the bound", raw: "2015-03-01", minDrop: true, maxDrop: false},
		{name: "after the bound", raw: "2017-03-01", minDrop: false, maxDrop: true},
		{name: "on the bound", raw: "2016-06-01", minDrop: false, maxDrop: false},
		// An ambiguous range survives a bound it straddles: the record
		// could still fall on the kept side.
		{name: "ambiguous year straddles both bounds", raw: "2016", minDrop: false, maxDrop: false},
		{name: "ambiguous day straddles the bound", raw: "2016-06-XX", minDrop: false, maxDrop: false},
		{name: "missing date", raw: "", minDrop: true, maxDrop: true},
		{name: "unparseable date", raw: "sometime", minDrop: true, maxDrop: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := dates.Parse(tc.raw)
			assert.Equal(t, tc.minDrop, MatchesExclude(minRule, types.Record{}, "s", d, nil))
			assert.Equal(t, tc.maxDrop, MatchesExclude(maxRule, types.Record{}, "s", d, nil))
		})
	}
}

func mustBoundMin(t *testing.T, raw string) float64 {
	t.Helper()
	bound, ok := dates.BoundMin(raw)
	require.True(t, ok)
	return bound
}

func mustBoundMax(t *testing.T, raw string) float64 {
	t.Helper()
	bound, ok := dates.BoundMax(raw)
	require.True(t, ok)
	return bound
}

func TestMatchesExcludeSequenceRules(t *testing.T) {
	short := &seqio.Composition{Length: 100, A: 30, C: 20, G: 25, T: 20, N: 5}
	long := &seqio.Composition{Length: 30000, A: 10000, C: 6000, G: 7000, T: 6900, Invalid: 3}

	testCases := []struct {
		name    string
		rule    types.ExcludeRule
		comp    *seqio.Composition
		matches bool
	}{
		{name: "no index entry", rule: types.SequenceIndexRule{}, comp: nil, matches: true},
		{name: "indexed", rule: types.SequenceIndexRule{}, comp: short, matches: false},
		{name: "short sequence", rule: types.MinLengthRule{Length: 96}, comp: short, matches: true},
		{name: "exact length kept", rule: types.MinLengthRule{Length: 95}, comp: short, matches: false},
		{name: "min length ignores missing", rule: types.MinLengthRule{Length: 96}, comp: nil, matches: false},
		{name: "long sequence", rule: types.MaxLengthRule{Length: 29000}, comp: long, matches: true},
		{name: "max length boundary kept", rule: types.MaxLengthRule{Length: 29900}, comp: long, matches: false},
		{name: "invalid characters", rule: types.NonNucleotideRule{}, comp: long, matches: true},
		{name: "clean sequence", rule: types.NonNucleotideRule{}, comp: short, matches: false},
		{name: "non nucleotide ignores missing", rule: types.NonNucleotideRule{}, comp: nil, matches: false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.matches, MatchesExclude(tc.rule, types.Record{}, "s", dates.Date{}, tc.comp))
		})
	}
}

func TestApplyLastMatchWins(t *testing.T) {
	strains := map[string]struct{}{"EcEs062_16": {}}
	set := &types.RuleSet{
		Excludes: []types.ExcludeRule{
			types.ExcludeStrains{File: "exclude.txt", Strains: strains},
			mustQueryRule(t, "region == 'Oceania'"),
		},
	}
	record := types.Record{"region": "South America"}

	out := Apply(set, record, "EcEs062_16", dates.Date{}, nil)
	assert.True(t, out.Exclude)
	assert.False(t, out.Passed())
	assert.Equal(t, types.RuleQuery, out.Rule)
	assert.Equal(t, map[string]any{"query": "region == 'Oceania'"}, out.Args)
}

func mustQueryRule(t *testing.T, query string) types.ExcludeRule {
	t.Helper()
	expr, err := ParseQuery(query)
	require.NoError(t, err)
	return types.ExcludeByQuery{Query: query, Expr: expr}
}

func TestApplyIncludeOverridesExclude(t *testing.T) {
	set := &types.RuleSet{
		Excludes: []types.ExcludeRule{types.ExcludeAll{}},
		Includes: []types.IncludeRule{
			types.IncludeStrains{File: "include.txt", Strains: map[string]struct{}{"ZKC2/2016": {}}},
		},
	}

	out := Apply(set, types.Record{}, "ZKC2/2016", dates.Date{}, nil)
	assert.True(t, out.Exclude)
	assert.True(t, out.Include)
	assert.True(t, out.Passed())
	assert.Equal(t, types.RuleIncludeStrains, out.Rule)

	out = Apply(set, types.Record{}, "other", dates.Date{}, nil)
	assert.False(t, out.Passed())
	assert.Equal(t, types.RuleExcludeAll, out.Rule)
}

func TestApplyIncludeReasonWithoutExclusion(t *testing.T) {
	set := &types.RuleSet{
		Includes: []types.IncludeRule{
			types.IncludeWhere{Clause: types.WhereClause{Raw: "host=Human", Column: "host", Value: "Human"}},
		},
	}

	out := Apply(set, types.Record{"host": "human"}, "s", dates.Date{}, nil)
	assert.False(t, out.Exclude)
	assert.True(t, out.Include)
	assert.True(t, out.Passed())
	assert.Equal(t, types.RuleIncludeWhere, out.Rule)
}

func TestApplyGroupSkipReason(t *testing.T) {
	set := &types.RuleSet{
		Excludes: []types.ExcludeRule{
			types.SkipAmbiguousGroup{Level: "month"},
			types.SkipAmbiguousGroup{Level: "year"},
		},
	}

	// A missing year matches both skips; the year rule runs last and owns
	// the reason.
	out := Apply(set, types.Record{}, "s", dates.Parse("XXXX-03-05"), nil)
	assert.False(t, out.Passed())
	assert.Equal(t, types.RuleSkipYear, out.Rule)

	out = Apply(set, types.Record{}, "s", dates.Parse("2016-XX-XX"), nil)
	assert.False(t, out.Passed())
	assert.Equal(t, types.RuleSkipMonth, out.Rule)

	out = Apply(set, types.Record{}, "s", dates.Parse("2016-03-05"), nil)
	assert.True(t, out.Passed())
	assert.Empty(t, out.Rule)
}
