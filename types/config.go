package types

import (
	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/utils"
)

// FilterConfig carries every knob of one filter run. JSON tags mirror the
// CLI flag names so a YAML profile given via --config reads the same as
// the command line.
type FilterConfig struct {
	Metadata          string   `json:"metadata" validate:"required"`
	MetadataChunkSize int      `json:"metadata-chunk-size" validate:"gte=0"`
	MetadataIDColumns []string `json:"metadata-id-columns"`
	Sequences         string   `json:"sequences"`
	SequenceIndex     string   `json:"sequence-index"`

	Exclude                 []string `json:"exclude"`
	ExcludeWhere            []string `json:"exclude-where"`
	ExcludeAll              bool     `json:"exclude-all"`
	Query                   string   `json:"query"`
	MinDate                 string   `json:"min-date"`
	MaxDate                 string   `json:"max-date"`
	ExcludeAmbiguousDatesBy string   `json:"exclude-ambiguous-dates-by" validate:"omitempty,oneof=day month year any"`
	MinLength               int      `json:"min-length" validate:"gte=0"`
	MaxLength               int      `json:"max-length" validate:"gte=0"`
	NonNucleotide           bool     `json:"non-nucleotide"`

	Include      []string `json:"include"`
	IncludeWhere []string `json:"include-where"`

	GroupBy               []string `json:"group-by"`
	SequencesPerGroup     int      `json:"sequences-per-group" validate:"gte=0"`
	SubsampleMaxSequences int      `json:"subsample-max-sequences" validate:"gte=0"`
	ProbabilisticSampling bool     `json:"probabilistic-sampling"`
	Priority              string   `json:"priority"`
	SubsampleSeed         *int64   `json:"subsample-seed"`

	Engine      string `json:"engine" validate:"omitempty,oneof=pandas sqlite postgres"`
	DatabaseURI string `json:"database-uri"`

	OutputStrains   string `json:"output-strains"`
	OutputMetadata  string `json:"output-metadata"`
	OutputSequences string `json:"output-sequences"`
	OutputLog       string `json:"output-log"`
}

// Validate applies struct-tag validation plus the cross-field rules, and
// normalizes defaulted fields. All faults are configuration errors.
func (c *FilterConfig) Validate() error {
	if err := utils.Validate(c); err != nil {
		return &ConfigError{Message: err.Error()}
	}

	if c.Engine == "" {
		c.Engine = constants.EngineSQLite
	}
	if len(c.MetadataIDColumns) == 0 {
		c.MetadataIDColumns = constants.DefaultIDColumns
	}

	if c.OutputSequences != "" && c.Sequences == "" {
		return Configf("you need to provide sequences to output sequences")
	}
	if c.OutputStrains == "" && c.OutputMetadata == "" && c.OutputSequences == "" {
		return Configf("you need to select at least one output")
	}
	if (c.MinLength > 0 || c.MaxLength > 0 || c.NonNucleotide) && c.Sequences == "" && c.SequenceIndex == "" {
		return Configf("you need to provide a sequence index or sequences to filter on sequence-specific information")
	}
	if c.MaxLength > 0 && c.MinLength > c.MaxLength {
		return Configf("minimum length %d exceeds maximum length %d", c.MinLength, c.MaxLength)
	}
	if len(c.GroupBy) > 0 && c.SequencesPerGroup == 0 && c.SubsampleMaxSequences == 0 {
		return Configf("you must specify a number of sequences per group or maximum sequences to subsample")
	}
	if c.SequencesPerGroup > 0 && c.SubsampleMaxSequences > 0 {
		return Configf("cannot set both --sequences-per-group and --subsample-max-sequences")
	}
	if c.Engine == constants.EnginePostgres && c.DatabaseURI == "" {
		return Configf("a database URI is required for the postgres engine")
	}

	return nil
}

// Subsampling reports whether group quotas apply to this run.
func (c *FilterConfig) Subsampling() bool {
	return c.SequencesPerGroup > 0 || c.SubsampleMaxSequences > 0
}

// UseSequences reports whether sequence data participates in the run.
func (c *FilterConfig) UseSequences() bool {
	return c.Sequences != "" || c.SequenceIndex != ""
}

// IndexConfig carries the knobs of the standalone index subcommand.
type IndexConfig struct {
	Sequences string `json:"sequences" validate:"required"`
	Output    string `json:"output" validate:"required"`
}

// Validate applies struct-tag validation; faults are configuration errors.
func (c *IndexConfig) Validate() error {
	if err := utils.Validate(c); err != nil {
		return &ConfigError{Message: err.Error()}
	}
	return nil
}
