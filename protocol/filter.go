package protocol

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/types"
	"github.com/seqsift/seqsift/utils"
)

var (
	filterConfig types.FilterConfig

	metadataPath            string
	metadataChunkSize       int
	metadataIDColumns       []string
	sequencesPath           string
	sequenceIndexPath       string
	excludeFiles            []string
	excludeWhereClauses     []string
	excludeAll              bool
	queryExpr               string
	minDate                 string
	maxDate                 string
	ambiguousDatesBy        string
	minLength               int
	maxLength               int
	nonNucleotide           bool
	includeFiles            []string
	includeWhereClauses     []string
	groupByColumns          []string
	sequencesPerGroup       int
	subsampleMaxSequences   int
	probabilisticSampling   bool
	noProbabilisticSampling bool
	priorityPath            string
	subsampleSeed           int64
	engineName              string
	databaseURI             string
	outputStrains           string
	outputMetadata          string
	outputSequences         string
	outputLog               string
)

// filterCmd represents the filter command
var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "filter command",
	Long:  `Filter drops metadata records (and their sequences) failing any exclude rule, force-includes records matching include rules, and optionally subsamples the survivors down to per-group quotas`,
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		filterConfig = types.FilterConfig{ProbabilisticSampling: true}
		if profilePath != "" {
			if err := utils.UnmarshalFile(profilePath, &filterConfig, false); err != nil {
				return err
			}
		}
		applyFilterFlags(cmd)

		if filterConfig.DatabaseURI == "" {
			filterConfig.DatabaseURI = viper.GetString("database-uri")
		}

		return filterConfig.Validate()
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runFilter(cmd.Context(), &filterConfig)
	},
}

// applyFilterFlags overlays explicitly set flags onto the config, so the
// command line wins over the YAML profile.
func applyFilterFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("metadata") {
		filterConfig.Metadata = metadataPath
	}
	if flags.Changed("metadata-chunk-size") {
		filterConfig.MetadataChunkSize = metadataChunkSize
	}
	if flags.Changed("metadata-id-columns") {
		filterConfig.MetadataIDColumns = metadataIDColumns
	}
	if flags.Changed("sequences") {
		filterConfig.Sequences = sequencesPath
	}
	if flags.Changed("sequence-index") {
		filterConfig.SequenceIndex = sequenceIndexPath
	}
	if flags.Changed("exclude") {
		filterConfig.Exclude = excludeFiles
	}
	if flags.Changed("exclude-where") {
		filterConfig.ExcludeWhere = excludeWhereClauses
	}
	if flags.Changed("exclude-all") {
		filterConfig.ExcludeAll = excludeAll
	}
	if flags.Changed("query") {
		filterConfig.Query = queryExpr
	}
	if flags.Changed("min-date") {
		filterConfig.MinDate = minDate
	}
	if flags.Changed("max-date") {
		filterConfig.MaxDate = maxDate
	}
	if flags.Changed("exclude-ambiguous-dates-by") {
		filterConfig.ExcludeAmbiguousDatesBy = ambiguousDatesBy
	}
	if flags.Changed("min-length") {
		filterConfig.MinLength = minLength
	}
	if flags.Changed("max-length") {
		filterConfig.MaxLength = maxLength
	}
	if flags.Changed("non-nucleotide") {
		filterConfig.NonNucleotide = nonNucleotide
	}
	if flags.Changed("include") {
		filterConfig.Include = includeFiles
	}
	if flags.Changed("include-where") {
		filterConfig.IncludeWhere = includeWhereClauses
	}
	if flags.Changed("group-by") {
		filterConfig.GroupBy = groupByColumns
	}
	if flags.Changed("sequences-per-group") {
		filterConfig.SequencesPerGroup = sequencesPerGroup
	}
	if flags.Changed("subsample-max-sequences") {
		filterConfig.SubsampleMaxSequences = subsampleMaxSequences
	}
	if flags.Changed("probabilistic-sampling") {
		filterConfig.ProbabilisticSampling = probabilisticSampling
	}
	if flags.Changed("no-probabilistic-sampling") {
		filterConfig.ProbabilisticSampling = !noProbabilisticSampling
	}
	if flags.Changed("priority") {
		filterConfig.Priority = priorityPath
	}
	if flags.Changed("subsample-seed") {
		filterConfig.SubsampleSeed = &subsampleSeed
	}
	if flags.Changed("engine") {
		filterConfig.Engine = engineName
	}
	if flags.Changed("database-uri") {
		filterConfig.DatabaseURI = databaseURI
	}
	if flags.Changed("output-strains") {
		filterConfig.OutputStrains = outputStrains
	}
	if flags.Changed("output-metadata") {
		filterConfig.OutputMetadata = outputMetadata
	}
	if flags.Changed("output-sequences") {
		filterConfig.OutputSequences = outputSequences
	}
	if flags.Changed("output-log") {
		filterConfig.OutputLog = outputLog
	}
}

func init() {
	flags := filterCmd.Flags()
	flags.StringVarP(&profilePath, "config", "", "", "(Optional) YAML profile whose keys mirror the flags; explicit flags win")
	flags.StringVarP(&metadataPath, "metadata", "", "", "(Required) Metadata file, TSV or CSV, with one record per strain")
	flags.IntVarP(&metadataChunkSize, "metadata-chunk-size", "", constants.DefaultChunkSize, "(Optional) Records per metadata chunk; 0 reads the whole file at once")
	flags.StringSliceVarP(&metadataIDColumns, "metadata-id-columns", "", constants.DefaultIDColumns, "(Optional) Candidate identifier columns, probed in order")
	flags.StringVarP(&sequencesPath, "sequences", "", "", "(Optional) FASTA file of sequences matching the metadata")
	flags.StringVarP(&sequenceIndexPath, "sequence-index", "", "", "(Optional) Precomputed sequence index; built from --sequences when absent")
	flags.StringArrayVarP(&excludeFiles, "exclude", "", nil, "(Optional) File(s) of strain names to drop")
	flags.StringArrayVarP(&excludeWhereClauses, "exclude-where", "", nil, "(Optional) Drop records matching 'column=value' or 'column!=value'")
	flags.BoolVarP(&excludeAll, "exclude-all", "", false, "(Optional) Drop every record; combine with include rules to pick a subset")
	flags.StringVarP(&queryExpr, "query", "", "", "(Optional) Drop records not matching the boolean column expression")
	flags.StringVarP(&minDate, "min-date", "", "", "(Optional) Drop records dated strictly before this date")
	flags.StringVarP(&maxDate, "max-date", "", "", "(Optional) Drop records dated strictly after this date")
	flags.StringVarP(&ambiguousDatesBy, "exclude-ambiguous-dates-by", "", "", "(Optional) Drop records with ambiguous date at this level: day, month, year, any")
	flags.IntVarP(&minLength, "min-length", "", 0, "(Optional) Drop sequences with fewer ACGT bases")
	flags.IntVarP(&maxLength, "max-length", "", 0, "(Optional) Drop sequences with more ACGT bases")
	flags.BoolVarP(&nonNucleotide, "non-nucleotide", "", false, "(Optional) Drop sequences containing invalid nucleotide characters")
	flags.StringArrayVarP(&includeFiles, "include", "", nil, "(Optional) File(s) of strain names to keep regardless of other rules")
	flags.StringArrayVarP(&includeWhereClauses, "include-where", "", nil, "(Optional) Keep records matching 'column=value' regardless of other rules")
	flags.StringSliceVarP(&groupByColumns, "group-by", "", nil, "(Optional) Subsampling group columns; 'year' and 'month' derive from the date column")
	flags.IntVarP(&sequencesPerGroup, "sequences-per-group", "", 0, "(Optional) Fixed number of records to keep per group")
	flags.IntVarP(&subsampleMaxSequences, "subsample-max-sequences", "", 0, "(Optional) Total record target; per-group quotas are derived from it")
	flags.BoolVarP(&probabilisticSampling, "probabilistic-sampling", "", true, "(Optional) Allow Poisson quotas when groups outnumber --subsample-max-sequences")
	flags.BoolVarP(&noProbabilisticSampling, "no-probabilistic-sampling", "", false, "(Optional) Fail instead of sampling probabilistically")
	flags.StringVarP(&priorityPath, "priority", "", "", "(Optional) TSV of 'strain<TAB>priority' ranking subsampling candidates")
	flags.Int64VarP(&subsampleSeed, "subsample-seed", "", 0, "(Optional) Seed for reproducible pseudo-random priorities")
	flags.StringVarP(&engineName, "engine", "", constants.EngineSQLite, "(Optional) Engine: pandas, sqlite, postgres")
	flags.StringVarP(&databaseURI, "database-uri", "", "", "(Optional) Postgres DSN for --engine postgres; also read from SEQSIFT_DATABASE_URI")
	flags.StringVarP(&outputStrains, "output-strains", "", "", "(Optional) Write passing strain names, one per line")
	flags.StringVarP(&outputMetadata, "output-metadata", "", "", "(Optional) Write passing metadata records; .parquet selects Parquet")
	flags.StringVarP(&outputSequences, "output-sequences", "", "", "(Optional) Write passing sequences as FASTA; requires --sequences")
	flags.StringVarP(&outputLog, "output-log", "", "", "(Optional) Write a per-strain log of the rule that dropped or kept it")
	filterCmd.MarkFlagsMutuallyExclusive("probabilistic-sampling", "no-probabilistic-sampling")
}
