package relational

import (
	"fmt"
	"strings"
)

// Scratch table base names. Dialects may prefix them to share a database
// with concurrent runs.
const (
	tableMetadata     = "metadata"
	tableSeqIndex     = "seq_index"
	tableDates        = "dates"
	tableFilterReason = "filter_reason"
	tableStrainList   = "strain_list"
	tableCandidates   = "candidates"
	tableGroupSizes   = "group_sizes"
)

var scratchTables = []string{
	tableMetadata,
	tableSeqIndex,
	tableDates,
	tableFilterReason,
	tableStrainList,
	tableCandidates,
	tableGroupSizes,
}

// quoteIdentifier returns the double-quoted form of a metadata column
// name. Internal tables use fixed lowercase names and stay unquoted.
func quoteIdentifier(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func quoteIdentifiers(identifiers []string) []string {
	quoted := make([]string, len(identifiers))
	for i, identifier := range identifiers {
		quoted[i] = quoteIdentifier(identifier)
	}
	return quoted
}

// metadataDDL returns the CREATE TABLE statement for the metadata scratch
// table: the global row order plus one TEXT column per header column. No
// uniqueness constraint, so duplicated identifiers load and are caught by
// the duplicate scan afterwards.
func metadataDDL(table string, columns []string) string {
	defs := make([]string, 0, len(columns)+1)
	defs = append(defs, "row_order BIGINT")
	for _, col := range quoteIdentifiers(columns) {
		defs = append(defs, col+" TEXT")
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}

func seqIndexDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
		strain TEXT,
		length BIGINT,
		a BIGINT, c BIGINT, g BIGINT, t BIGINT, n BIGINT,
		other_iupac BIGINT, gap BIGINT, missing BIGINT, invalid BIGINT)`, table)
}

// datesDDL returns the table holding every record's parsed date: the
// exact components where unambiguous, NULL where not, and the numeric
// bounds of the range the raw value could mean.
func datesDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
		strain TEXT,
		year INTEGER, month INTEGER, day INTEGER,
		date_min DOUBLE PRECISION, date_max DOUBLE PRECISION)`, table)
}

// filterReasonDDL returns the per-strain outcome table. The last rule to
// match a strain owns its filter and kwargs columns.
func filterReasonDDL(table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
		strain TEXT,
		exclude INTEGER NOT NULL DEFAULT 0,
		include INTEGER NOT NULL DEFAULT 0,
		filter TEXT,
		kwargs TEXT)`, table)
}

func strainListDDL(table string) string {
	return fmt.Sprintf("CREATE TABLE %s (strain TEXT)", table)
}

func candidatesDDL(table string) string {
	return fmt.Sprintf("CREATE TABLE %s (strain TEXT, gkey TEXT, priority DOUBLE PRECISION)", table)
}

func groupSizesDDL(table string) string {
	return fmt.Sprintf("CREATE TABLE %s (gkey TEXT, size BIGINT)", table)
}

// duplicatesQuery returns the query listing every identifier that appears
// on more than one metadata row, sorted.
func duplicatesQuery(metadata, idColumn string) string {
	id := quoteIdentifier(idColumn)
	return fmt.Sprintf(
		"SELECT %[1]s FROM %[2]s GROUP BY %[1]s HAVING COUNT(*) > 1 ORDER BY %[1]s",
		id, metadata,
	)
}

// seedReasonsQuery returns the INSERT seeding filter_reason with one
// neutral row per metadata strain.
func seedReasonsQuery(filterReason, metadata, idColumn string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (strain, exclude, include) SELECT %s, 0, 0 FROM %s",
		filterReason, quoteIdentifier(idColumn), metadata,
	)
}

// ambiguityPredicate returns the dates-table condition for a date that is
// ambiguous at the given resolution. Ambiguity is hierarchical, so coarser
// missing components implicate finer levels.
func ambiguityPredicate(level string) string {
	switch level {
	case "year":
		return "year IS NULL"
	case "month":
		return "(month IS NULL OR year IS NULL)"
	default: // day, any
		return "(day IS NULL OR month IS NULL OR year IS NULL)"
	}
}

// rankCandidatesQuery returns the UPDATE that marks every candidate
// ranked beyond its group's quota: highest priority first, NULL
// priorities last, identifier as the final tiebreak.
func rankCandidatesQuery(filterReason, candidates, groupSizes string) string {
	return fmt.Sprintf(`UPDATE %s SET exclude = 1, filter = ?, kwargs = ?
		WHERE exclude = 0 AND include = 0 AND strain NOT IN (
			SELECT strain FROM (
				SELECT c.strain AS strain, g.size AS quota,
					ROW_NUMBER() OVER (
						PARTITION BY c.gkey
						ORDER BY (CASE WHEN c.priority IS NULL THEN 1 ELSE 0 END), c.priority DESC, c.strain
					) AS group_rank
				FROM %s c JOIN %s g ON c.gkey = g.gkey
			) ranked WHERE group_rank <= quota
		)`, filterReason, candidates, groupSizes)
}
