package constants

import "time"

const (
	// EnginePandas is the in-memory engine. The name is kept for pipeline
	// compatibility with the Python tooling this replaces.
	EnginePandas   = "pandas"
	EngineSQLite   = "sqlite"
	EnginePostgres = "postgres"

	// DateColumn is the metadata column date rules and time buckets read.
	DateColumn = "date"

	// GroupByYear and GroupByMonth are generated grouping columns derived
	// from DateColumn rather than read from the metadata.
	GroupByYear  = "year"
	GroupByMonth = "month"

	// UnknownGroupValue stands in for a grouping column a record is missing.
	UnknownGroupValue = "unknown"

	DefaultChunkSize = 0 // read the whole input as one chunk

	TSVDelimiter = '\t'
	CSVDelimiter = ','

	ParquetFileExt = ".parquet"

	EnvPrefix = "SEQSIFT"

	DefaultDatabaseTimeout = 2 * time.Minute
)

// DefaultIDColumns are the metadata columns probed, in order, for the
// record identifier when --metadata-id-columns is not given.
var DefaultIDColumns = []string{"strain", "name"}

// Exit codes. Configuration faults and data faults are distinguished so
// pipeline wrappers can tell a bad invocation from bad input.
const (
	ExitOK     = 0
	ExitConfig = 1
	ExitData   = 2
)
