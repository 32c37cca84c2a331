package relational

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/engines"
	"github.com/seqsift/seqsift/filter"
	"github.com/seqsift/seqsift/pkg/dates"
	"github.com/seqsift/seqsift/pkg/priorities"
	"github.com/seqsift/seqsift/pkg/seqio"
	"github.com/seqsift/seqsift/types"
)

func makeBatch(columns []string, start int64, rows ...[]string) *types.Batch {
	batch := &types.Batch{
		Columns:  columns,
		IDColumn: columns[0],
		Start:    start,
	}
	for _, row := range rows {
		record := make(types.Record, len(columns))
		for i, col := range columns {
			record[col] = row[i]
		}
		batch.Records = append(batch.Records, record)
	}
	return batch
}

func newTestEngine(t *testing.T, run *engines.Run) *Engine {
	t.Helper()
	eng := &Engine{dia: &sqliteDialect{}}
	require.NoError(t, eng.Setup(context.Background(), run))
	t.Cleanup(func() {
		assert.NoError(t, eng.Close(context.Background()))
	})
	return eng
}

func loadAll(t *testing.T, eng *Engine, batches ...*types.Batch) {
	t.Helper()
	ctx := context.Background()
	for _, batch := range batches {
		require.NoError(t, eng.Load(ctx, batch))
	}
	dups, err := eng.FinishLoad(ctx)
	require.NoError(t, err)
	require.Empty(t, dups)
}

func TestSQLiteRuleEvaluation(t *testing.T) {
	columns := []string{"strain", "region", "date"}
	rules := &types.RuleSet{
		Excludes: []types.ExcludeRule{
			types.ExcludeWhere{Clause: types.WhereClause{Raw: "region=Asia", Column: "region", Value: "Asia"}},
		},
		Includes: []types.IncludeRule{
			types.IncludeStrains{File: "include.txt", Strains: map[string]struct{}{"ZKC2/2016": {}}},
		},
	}
	run := &engines.Run{Columns: columns, IDColumn: "strain", Rules: rules}

	eng := newTestEngine(t, run)
	loadAll(t, eng,
		makeBatch(columns, 0,
			[]string{"PRVABC59", "North America", "2015-12-01"},
			[]string{"COL/FLR/2016", "South America", "2015-12-XX"},
		),
		makeBatch(columns, 2,
			[]string{"ZKC2/2016", "Asia", "2016-02-16"},
			[]string{"SG_018", "asia", "2016-08-28"},
		),
	)

	results, err := eng.Results(context.Background())
	require.NoError(t, err)

	assert.EqualValues(t, 4, results.MetadataStrains)
	assert.Len(t, results.Strains, 4)
	// The where value matches case-insensitively, so "asia" drops too.
	assert.Equal(t, map[string]struct{}{
		"PRVABC59":     {},
		"COL/FLR/2016": {},
		"ZKC2/2016":    {},
	}, results.Passed)
	assert.Equal(t, types.Reason{Rule: types.RuleExcludeWhere, Kwargs: `[["exclude_where","region=Asia"]]`}, results.Reasons["SG_018"])
	assert.Equal(t, types.Reason{Rule: types.RuleIncludeStrains, Kwargs: `[["include_file","include.txt"]]`}, results.Reasons["ZKC2/2016"])
	assert.Equal(t, []types.ReasonCount{
		{Rule: types.RuleExcludeWhere, Args: map[string]any{"exclude_where": "region=Asia"}, Count: 2},
		{Rule: types.RuleIncludeStrains, Args: map[string]any{"include_file": "include.txt"}, Count: 1},
	}, results.Counts)
}

func TestSQLiteDuplicates(t *testing.T) {
	columns := []string{"strain", "region"}
	run := &engines.Run{Columns: columns, IDColumn: "strain", Rules: &types.RuleSet{}}
	eng := newTestEngine(t, run)
	ctx := context.Background()

	require.NoError(t, eng.Load(ctx, makeBatch(columns, 0,
		[]string{"beta", "Asia"},
		[]string{"alpha", "Africa"},
	)))
	require.NoError(t, eng.Load(ctx, makeBatch(columns, 2,
		[]string{"beta", "Europe"},
		[]string{"alpha", "Oceania"},
		[]string{"gamma", "Europe"},
	)))

	dups, err := eng.FinishLoad(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, dups)
}

func TestSQLiteDateRules(t *testing.T) {
	columns := []string{"strain", "date"}
	minBound, ok := dates.BoundMin("2016-01-01")
	require.True(t, ok)
	maxBound, ok := dates.BoundMax("2016-12-31")
	require.True(t, ok)
	rules := &types.RuleSet{
		Excludes: []types.ExcludeRule{
			types.MinDateRule{Date: "2016-01-01", Bound: minBound},
			types.MaxDateRule{Date: "2016-12-31", Bound: maxBound},
		},
	}
	run := &engines.Run{Columns: columns, IDColumn: "strain", Rules: rules}

	eng := newTestEngine(t, run)
	loadAll(t, eng, makeBatch(columns, 0,
		[]string{"in-range", "2016-06-01"},
		[]string{"too-early", "2015-03-01"},
		[]string{"too-late", "2017-02-01"},
		[]string{"year-wide", "2016-XX-XX"},
		[]string{"undated", ""},
	))

	results, err := eng.Results(context.Background())
	require.NoError(t, err)
	// The fully ambiguous 2016 date sits exactly inside the 2016 bounds.
	assert.Equal(t, map[string]struct{}{"in-range": {}, "year-wide": {}}, results.Passed)
	assert.Equal(t, types.RuleMinDate, results.Reasons["too-early"].Rule)
	assert.Equal(t, types.RuleMaxDate, results.Reasons["too-late"].Rule)
	// A missing date fails the min rule first, then the max rule matches
	// last and owns the reason.
	assert.Equal(t, types.RuleMaxDate, results.Reasons["undated"].Rule)
}

func TestSQLiteSequenceRules(t *testing.T) {
	columns := []string{"strain"}
	rules := &types.RuleSet{
		Excludes: []types.ExcludeRule{
			types.SequenceIndexRule{},
			types.MinLengthRule{Length: 100},
			types.NonNucleotideRule{},
		},
	}
	index := map[string]seqio.Composition{
		"clean":   {Length: 200, A: 50, C: 50, G: 50, T: 50},
		"short":   {Length: 90, A: 30, C: 30, G: 30},
		"invalid": {Length: 200, A: 50, C: 50, G: 50, T: 47, Invalid: 3},
	}
	run := &engines.Run{Columns: columns, IDColumn: "strain", Rules: rules, Index: index}

	eng := newTestEngine(t, run)
	loadAll(t, eng, makeBatch(columns, 0,
		[]string{"clean"},
		[]string{"short"},
		[]string{"invalid"},
		[]string{"unindexed"},
	))

	results, err := eng.Results(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"clean": {}}, results.Passed)
	assert.Equal(t, types.RuleSequenceIndex, results.Reasons["unindexed"].Rule)
	assert.Equal(t, types.RuleMinLength, results.Reasons["short"].Rule)
	assert.Equal(t, types.RuleNonNucleotide, results.Reasons["invalid"].Rule)
}

func TestSQLiteQueryRule(t *testing.T) {
	columns := []string{"strain", "region"}
	expr, err := filter.ParseQuery("region == 'Asia'")
	require.NoError(t, err)
	rules := &types.RuleSet{
		Excludes: []types.ExcludeRule{
			types.ExcludeByQuery{Query: "region == 'Asia'", Expr: expr},
		},
	}
	run := &engines.Run{Columns: columns, IDColumn: "strain", Rules: rules}

	eng := newTestEngine(t, run)
	loadAll(t, eng, makeBatch(columns, 0,
		[]string{"kept", "Asia"},
		[]string{"dropped-1", "Europe"},
		// The query matches case-sensitively, unlike where clauses.
		[]string{"dropped-2", "asia"},
	))

	results, err := eng.Results(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"kept": {}}, results.Passed)
	assert.Equal(t, types.Reason{Rule: types.RuleQuery, Kwargs: `[["query","region == 'Asia'"]]`}, results.Reasons["dropped-1"])
	assert.Equal(t, types.RuleQuery, results.Reasons["dropped-2"].Rule)
}

func TestSQLiteSubsampling(t *testing.T) {
	columns := []string{"strain", "region", "date"}
	run := &engines.Run{
		Columns:  columns,
		IDColumn: "strain",
		Rules:    &types.RuleSet{},
		Group:    &filter.GroupSpec{Columns: []string{"region"}},
		Priorities: priorities.Table{
			"a1": 3.0,
			"a2": 1.0,
			"a3": 2.0,
			"b1": 5.0,
		},
		Generator: priorities.NewGenerator(42),
	}

	eng := newTestEngine(t, run)
	loadAll(t, eng, makeBatch(columns, 0,
		[]string{"a1", "Asia", "2016"},
		[]string{"a2", "Asia", "2016"},
		[]string{"a3", "Asia", "2016"},
		[]string{"b1", "Europe", "2016"},
		[]string{"b2", "Europe", "2016"},
	))
	ctx := context.Background()

	sizes, err := eng.GroupSizes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Asia": 3, "Europe": 2}, sizes)

	require.NoError(t, eng.ApplyQuotas(ctx, map[string]int64{"Asia": 2, "Europe": 1}))

	results, err := eng.Results(ctx)
	require.NoError(t, err)
	// Highest priorities win; b2 has none and ranks last in Europe.
	assert.Equal(t, map[string]struct{}{"a1": {}, "a3": {}, "b1": {}}, results.Passed)
	assert.EqualValues(t, 2, results.SubsampledOut)
	assert.Equal(t, types.Reason{Rule: types.ReasonSubsample, Kwargs: ""}, results.Reasons["a2"])
	assert.Equal(t, types.Reason{Rule: types.ReasonSubsample, Kwargs: ""}, results.Reasons["b2"])
	assert.Empty(t, results.Counts)
}

func TestSQLiteCleanupRemovesFile(t *testing.T) {
	columns := []string{"strain"}
	run := &engines.Run{Columns: columns, IDColumn: "strain", Rules: &types.RuleSet{}}

	eng := &Engine{dia: &sqliteDialect{}}
	require.NoError(t, eng.Setup(context.Background(), run))
	path := eng.dia.(*sqliteDialect).path
	_, err := os.Stat(path)
	require.NoError(t, err)

	require.NoError(t, eng.Close(context.Background()))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSQLiteRegistered(t *testing.T) {
	eng, err := engines.NewEngine(constants.EngineSQLite)
	require.NoError(t, err)
	require.IsType(t, &Engine{}, eng)
	assert.IsType(t, &sqliteDialect{}, eng.(*Engine).dia)

	eng, err = engines.NewEngine(constants.EnginePostgres)
	require.NoError(t, err)
	assert.IsType(t, &postgresDialect{}, eng.(*Engine).dia)

	_, err = engines.NewEngine("mysql")
	assert.EqualError(t, err, "invalid engine type has been passed [mysql]")
}

// TestPostgresEngine exercises the postgres dialect end to end against a
// real server. Set SEQSIFT_POSTGRES_TEST_URI to run it.
func TestPostgresEngine(t *testing.T) {
	uri := os.Getenv("SEQSIFT_POSTGRES_TEST_URI")
	if uri == "" {
		t.Skip("SEQSIFT_POSTGRES_TEST_URI not set")
	}

	columns := []string{"strain", "region"}
	rules := &types.RuleSet{
		Excludes: []types.ExcludeRule{
			types.ExcludeWhere{Clause: types.WhereClause{Raw: "region=Asia", Column: "region", Value: "Asia"}},
		},
	}
	run := &engines.Run{
		Config:   &types.FilterConfig{DatabaseURI: uri},
		Columns:  columns,
		IDColumn: "strain",
		Rules:    rules,
	}

	eng := &Engine{dia: &postgresDialect{}}
	ctx := context.Background()
	require.NoError(t, eng.Setup(ctx, run))
	t.Cleanup(func() {
		assert.NoError(t, eng.Close(ctx))
	})

	require.NoError(t, eng.Load(ctx, makeBatch(columns, 0,
		[]string{"kept", "Europe"},
		[]string{"dropped", "Asia"},
	)))
	dups, err := eng.FinishLoad(ctx)
	require.NoError(t, err)
	require.Empty(t, dups)

	results, err := eng.Results(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]struct{}{"kept": {}}, results.Passed)
	assert.Equal(t, types.RuleExcludeWhere, results.Reasons["dropped"].Rule)
}
