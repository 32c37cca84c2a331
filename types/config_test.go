package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seqsift/seqsift/constants"
)

func TestFilterConfigValidateDefaults(t *testing.T) {
	cfg := FilterConfig{
		Metadata:      "metadata.tsv",
		OutputStrains: "strains.txt",
	}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, constants.EngineSQLite, cfg.Engine)
	assert.Equal(t, constants.DefaultIDColumns, cfg.MetadataIDColumns)
}

func TestFilterConfigValidateErrors(t *testing.T) {
	testCases := []struct {
		name     string
		cfg      FilterConfig
		expected string
	}{
		{
			name:     "missing metadata",
			cfg:      FilterConfig{OutputStrains: "strains.txt"},
			expected: "metadata is a required field",
		},
		{
			name:     "no outputs selected",
			cfg:      FilterConfig{Metadata: "metadata.tsv"},
			expected: "you need to select at least one output",
		},
		{
			name: "output sequences without sequences",
			cfg: FilterConfig{
				Metadata:        "metadata.tsv",
				OutputSequences: "filtered.fasta",
			},
			expected: "you need to provide sequences to output sequences",
		},
		{
			name: "length rule without sequence data",
			cfg: FilterConfig{
				Metadata:      "metadata.tsv",
				MinLength:     100,
				OutputStrains: "strains.txt",
			},
			expected: "you need to provide a sequence index or sequences to filter on sequence-specific information",
		},
		{
			name: "min length above max length",
			cfg: FilterConfig{
				Metadata:      "metadata.tsv",
				Sequences:     "sequences.fasta",
				MinLength:     500,
				MaxLength:     100,
				OutputStrains: "strains.txt",
			},
			expected: "minimum length 500 exceeds maximum length 100",
		},
		{
			name: "group-by without quota",
			cfg: FilterConfig{
				Metadata:      "metadata.tsv",
				GroupBy:       []string{"region"},
				OutputStrains: "strains.txt",
			},
			expected: "you must specify a number of sequences per group or maximum sequences to subsample",
		},
		{
			name: "both quota flags",
			cfg: FilterConfig{
				Metadata:              "metadata.tsv",
				GroupBy:               []string{"region"},
				SequencesPerGroup:     10,
				SubsampleMaxSequences: 100,
				OutputStrains:         "strains.txt",
			},
			expected: "cannot set both --sequences-per-group and --subsample-max-sequences",
		},
		{
			name: "postgres without database URI",
			cfg: FilterConfig{
				Metadata:      "metadata.tsv",
				Engine:        constants.EnginePostgres,
				OutputStrains: "strains.txt",
			},
			expected: "a database URI is required for the postgres engine",
		},
		{
			name: "unknown engine",
			cfg: FilterConfig{
				Metadata:      "metadata.tsv",
				Engine:        "duckdb",
				OutputStrains: "strains.txt",
			},
			expected: "engine must be one of [pandas sqlite postgres]",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.expected)
			assert.Equal(t, constants.ExitConfig, ExitCode(err))
		})
	}
}

func TestFilterConfigHelpers(t *testing.T) {
	assert.False(t, (&FilterConfig{}).Subsampling())
	assert.True(t, (&FilterConfig{SequencesPerGroup: 5}).Subsampling())
	assert.True(t, (&FilterConfig{SubsampleMaxSequences: 100}).Subsampling())

	assert.False(t, (&FilterConfig{}).UseSequences())
	assert.True(t, (&FilterConfig{Sequences: "sequences.fasta"}).UseSequences())
	assert.True(t, (&FilterConfig{SequenceIndex: "index.tsv"}).UseSequences())
}

func TestIndexConfigValidate(t *testing.T) {
	valid := IndexConfig{Sequences: "sequences.fasta", Output: "index.tsv"}
	require.NoError(t, valid.Validate())

	err := (&IndexConfig{Sequences: "sequences.fasta"}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output is a required field")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, constants.ExitOK, ExitCode(nil))
	assert.Equal(t, constants.ExitConfig, ExitCode(Configf("bad flag")))
	assert.Equal(t, constants.ExitData, ExitCode(Dataf("bad input")))
	assert.Equal(t, constants.ExitConfig, ExitCode(errors.New("unclassified")))

	wrapped := fmt.Errorf("context: %w", Dataf("bad input"))
	assert.Equal(t, constants.ExitData, ExitCode(wrapped))
}
