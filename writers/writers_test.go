package writers

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	pqgo "github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsift/seqsift/pkg/seqio"
	"github.com/seqsift/seqsift/types"
)

const testMetadata = "strain\tregion\tdate\n" +
	"a1\tAsia\t2016-01-01\n" +
	"b1\tEurope\t2016-02-01\n" +
	"c1\tAfrica\t2016-03-01\n" +
	"d1\tAsia\t2016-04-01\n" +
	"e1\tOceania\t2016-05-01\n"

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testPlan(t *testing.T, dir string) *Plan {
	t.Helper()
	return &Plan{
		Config: &types.FilterConfig{
			Metadata: writeFile(t, dir, "metadata.tsv", testMetadata),
		},
		Columns: []string{"strain", "region", "date"},
		Passed:  map[string]struct{}{"a1": {}, "c1": {}, "e1": {}},
		Reasons: map[string]types.Reason{
			"b1": {Rule: types.RuleExcludeStrains, Kwargs: `[["exclude_file","exclude.txt"]]`},
			"c1": {Rule: types.RuleIncludeStrains, Kwargs: `[["include_file","keep.txt"]]`},
			"d1": {Rule: types.ReasonSubsample, Kwargs: ""},
		},
	}
}

func TestWriteOutputsTextFiles(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir)
	plan.Config.OutputStrains = filepath.Join(dir, "strains.txt")
	plan.Config.OutputMetadata = filepath.Join(dir, "filtered.tsv")
	plan.Config.OutputLog = filepath.Join(dir, "run.log.tsv")

	require.NoError(t, WriteOutputs(context.Background(), plan))

	strains, err := os.ReadFile(plan.Config.OutputStrains)
	require.NoError(t, err)
	assert.Equal(t, "a1\nc1\ne1\n", string(strains))

	filtered, err := os.ReadFile(plan.Config.OutputMetadata)
	require.NoError(t, err)
	assert.Equal(t, "strain\tregion\tdate\n"+
		"a1\tAsia\t2016-01-01\n"+
		"c1\tAfrica\t2016-03-01\n"+
		"e1\tOceania\t2016-05-01\n", string(filtered))

	// Kwargs carry literal double quotes, which the TSV encoding escapes.
	log, err := os.ReadFile(plan.Config.OutputLog)
	require.NoError(t, err)
	assert.Equal(t, "strain\tfilter\tkwargs\n"+
		"b1\tfilter_by_exclude_strains\t\"[[\"\"exclude_file\"\",\"\"exclude.txt\"\"]]\"\n"+
		"c1\tforce_include_strains\t\"[[\"\"include_file\"\",\"\"keep.txt\"\"]]\"\n"+
		"d1\tsubsampling\t\n", string(log))
}

func TestWriteOutputsCSVMetadata(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir)
	plan.Config.OutputMetadata = filepath.Join(dir, "filtered.csv")

	require.NoError(t, WriteOutputs(context.Background(), plan))

	filtered, err := os.ReadFile(plan.Config.OutputMetadata)
	require.NoError(t, err)
	assert.Equal(t, "strain,region,date\n"+
		"a1,Asia,2016-01-01\n"+
		"c1,Africa,2016-03-01\n"+
		"e1,Oceania,2016-05-01\n", string(filtered))
}

func TestWriteOutputsParquetMetadata(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir)
	plan.Config.OutputMetadata = filepath.Join(dir, "filtered.parquet")

	require.NoError(t, WriteOutputs(context.Background(), plan))

	file, err := os.Open(plan.Config.OutputMetadata)
	require.NoError(t, err)
	defer file.Close()

	info, err := file.Stat()
	require.NoError(t, err)
	pf, err := pqgo.OpenFile(file, info.Size())
	require.NoError(t, err)

	reader := pqgo.NewGenericReader[map[string]any](file, pf.Schema())
	defer reader.Close()
	rows := make([]map[string]any, 4)
	for i := range rows {
		rows[i] = map[string]any{}
	}
	n, err := reader.Read(rows)
	if err != nil {
		require.ErrorIs(t, err, io.EOF)
	}
	require.Equal(t, 3, n)
	assert.Equal(t, "a1", rows[0]["strain"])
	assert.Equal(t, "Africa", rows[1]["region"])
	assert.Equal(t, "2016-05-01", rows[2]["date"])
}

func TestWriteSequences(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFile(t, dir, "sequences.fasta", ">a1 first\nACGT\n>b1\nGGGG\n>c1\nTTTT\n")
	out := filepath.Join(dir, "filtered.fasta")

	passed := map[string]struct{}{"a1": {}, "c1": {}}
	require.NoError(t, writeSequences(fasta, out, passed, nil))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, ">a1 first\nACGT\n>c1\nTTTT\n", string(content))
}

func TestWriteSequencesIndexMismatch(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFile(t, dir, "sequences.fasta", ">a1\nACGT\n")
	out := filepath.Join(dir, "filtered.fasta")

	// The index names a strain the FASTA does not carry; the write still
	// succeeds, with a warning.
	index := map[string]seqio.Composition{"zz": {Length: 4}}
	require.NoError(t, writeSequences(fasta, out, map[string]struct{}{"a1": {}}, index))

	content, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, ">a1\nACGT\n", string(content))
}

func TestWriteOutputsNoOutputsSelected(t *testing.T) {
	dir := t.TempDir()
	plan := testPlan(t, dir)
	require.NoError(t, WriteOutputs(context.Background(), plan))
}
