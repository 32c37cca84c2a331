// Package relational implements the disk-backed engines. Metadata
// streams into a scratch database chunk by chunk and the rules run as
// sequential UPDATEs against it, so memory stays flat no matter how many
// rows the input holds. The sqlite dialect owns a throwaway database
// file; the postgres dialect namespaces its tables inside an existing
// database.
package relational

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/seqsift/seqsift/constants"
	"github.com/seqsift/seqsift/engines"
	"github.com/seqsift/seqsift/filter"
	"github.com/seqsift/seqsift/pkg/dates"
	"github.com/seqsift/seqsift/types"
	"github.com/seqsift/seqsift/utils"
)

// dialect is the backend-specific part of the engine: connecting,
// naming the scratch tables, and tearing them down.
type dialect interface {
	open(cfg *types.FilterConfig) (*sqlx.DB, error)
	table(base string) string
	cleanup(ctx context.Context, db *sqlx.DB) error
}

type Engine struct {
	dia dialect
	db  *sqlx.DB
	run *engines.Run
}

func (e *Engine) t(base string) string {
	return e.dia.table(base)
}

func (e *Engine) Setup(ctx context.Context, run *engines.Run) error {
	e.run = run
	db, err := e.dia.open(run.Config)
	if err != nil {
		return err
	}
	e.db = db
	pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultDatabaseTimeout)
	defer cancel()
	if err := utils.RetryExec(func() error {
		return db.PingContext(pingCtx)
	}, 2, time.Second); err != nil {
		return fmt.Errorf("failed to ping database: %s", err)
	}

	ddls := []string{
		metadataDDL(e.t(tableMetadata), run.Columns),
		seqIndexDDL(e.t(tableSeqIndex)),
		datesDDL(e.t(tableDates)),
		filterReasonDDL(e.t(tableFilterReason)),
		strainListDDL(e.t(tableStrainList)),
		candidatesDDL(e.t(tableCandidates)),
		groupSizesDDL(e.t(tableGroupSizes)),
	}
	if err := utils.ForEach(ddls, func(ddl string) error {
		if _, err := e.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create scratch tables: %s", err)
		}
		return nil
	}); err != nil {
		return err
	}

	if run.Index != nil {
		if err := e.loadIndex(ctx); err != nil {
			return err
		}
	}
	return nil
}

var (
	seqIndexColumns = []string{"strain", "length", "a", "c", "g", "t", "n", "other_iupac", "gap", "missing", "invalid"}
	datesColumns    = []string{"strain", "year", "month", "day", "date_min", "date_max"}
)

func (e *Engine) loadIndex(ctx context.Context) error {
	rows := make([][]any, 0, len(e.run.Index))
	for id, comp := range e.run.Index {
		rows = append(rows, []any{
			id, comp.Length,
			comp.A, comp.C, comp.G, comp.T, comp.N,
			comp.OtherIUPAC, comp.Gap, comp.Missing, comp.Invalid,
		})
	}
	return e.insertBatch(ctx, e.t(tableSeqIndex), seqIndexColumns, rows)
}

func (e *Engine) Load(ctx context.Context, batch *types.Batch) error {
	metaColumns := append([]string{"row_order"}, quoteIdentifiers(e.run.Columns)...)
	metaRows := make([][]any, 0, len(batch.Records))
	dateRows := make([][]any, 0, len(batch.Records))
	for i := range batch.Records {
		record := batch.Records[i]
		row := make([]any, 0, len(e.run.Columns)+1)
		row = append(row, batch.Ordinal(i))
		for _, col := range e.run.Columns {
			row = append(row, record[col])
		}
		metaRows = append(metaRows, row)

		d := dates.Parse(record[constants.DateColumn])
		dateRows = append(dateRows, []any{
			batch.Identifier(i),
			nullableInt(d.HasYear, d.Year),
			nullableInt(d.HasMonth, d.Month),
			nullableInt(d.HasDay, d.Day),
			nullableFloat(d.HasMin, d.Min),
			nullableFloat(d.HasMax, d.Max),
		})
	}

	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %s", err)
	}
	defer tx.Rollback()
	if err := insertRows(ctx, tx, e.t(tableMetadata), metaColumns, metaRows); err != nil {
		return err
	}
	if err := insertRows(ctx, tx, e.t(tableDates), datesColumns, dateRows); err != nil {
		return err
	}
	return tx.Commit()
}

func (e *Engine) FinishLoad(ctx context.Context) ([]string, error) {
	var duplicates []string
	if err := e.db.SelectContext(ctx, &duplicates, duplicatesQuery(e.t(tableMetadata), e.run.IDColumn)); err != nil {
		return nil, fmt.Errorf("failed to scan for duplicates: %s", err)
	}
	if len(duplicates) > 0 {
		return duplicates, nil
	}

	if _, err := e.db.ExecContext(ctx, seedReasonsQuery(e.t(tableFilterReason), e.t(tableMetadata), e.run.IDColumn)); err != nil {
		return nil, fmt.Errorf("failed to seed filter reasons: %s", err)
	}
	for _, rule := range e.run.Rules.Excludes {
		if err := e.applyExclude(ctx, rule); err != nil {
			return nil, err
		}
	}
	for _, rule := range e.run.Rules.Includes {
		if err := e.applyInclude(ctx, rule); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (e *Engine) applyExclude(ctx context.Context, rule types.ExcludeRule) error {
	var (
		pred string
		args []any
	)
	switch r := rule.(type) {
	case types.ExcludeAll:
		// no predicate: every strain matches
	case types.SequenceIndexRule:
		pred = fmt.Sprintf("strain NOT IN (SELECT strain FROM %s)", e.t(tableSeqIndex))
	case types.ExcludeStrains:
		if err := e.fillStrainList(ctx, setToSlice(r.Strains)); err != nil {
			return err
		}
		pred = fmt.Sprintf("strain IN (SELECT strain FROM %s)", e.t(tableStrainList))
	case types.ExcludeWhere:
		p, a, matchable := e.wherePredicate(r.Clause)
		if !matchable {
			return nil
		}
		pred, args = p, a
	case types.ExcludeByQuery:
		misses, err := e.queryMisses(ctx, r.Expr)
		if err != nil {
			return err
		}
		if err := e.fillStrainList(ctx, misses); err != nil {
			return err
		}
		pred = fmt.Sprintf("strain IN (SELECT strain FROM %s)", e.t(tableStrainList))
	case types.ExcludeAmbiguousDates:
		pred = fmt.Sprintf("strain IN (SELECT strain FROM %s WHERE %s)", e.t(tableDates), ambiguityPredicate(r.Level))
	case types.SkipAmbiguousGroup:
		pred = fmt.Sprintf("strain IN (SELECT strain FROM %s WHERE %s)", e.t(tableDates), ambiguityPredicate(r.Level))
	case types.MinDateRule:
		pred = fmt.Sprintf("strain IN (SELECT strain FROM %s WHERE date_max IS NULL OR date_max < ?)", e.t(tableDates))
		args = append(args, r.Bound)
	case types.MaxDateRule:
		pred = fmt.Sprintf("strain IN (SELECT strain FROM %s WHERE date_min IS NULL OR date_min > ?)", e.t(tableDates))
		args = append(args, r.Bound)
	case types.MinLengthRule:
		pred = fmt.Sprintf("strain IN (SELECT strain FROM %s WHERE a + c + g + t < ?)", e.t(tableSeqIndex))
		args = append(args, r.Length)
	case types.MaxLengthRule:
		pred = fmt.Sprintf("strain IN (SELECT strain FROM %s WHERE a + c + g + t > ?)", e.t(tableSeqIndex))
		args = append(args, r.Length)
	case types.NonNucleotideRule:
		pred = fmt.Sprintf("strain IN (SELECT strain FROM %s WHERE invalid != 0)", e.t(tableSeqIndex))
	default:
		return fmt.Errorf("unhandled exclude rule %T", rule)
	}
	return e.markMatches(ctx, "exclude", rule.Name(), filter.KwargsJSON(rule.Args()), pred, args)
}

func (e *Engine) applyInclude(ctx context.Context, rule types.IncludeRule) error {
	var (
		pred string
		args []any
	)
	switch r := rule.(type) {
	case types.IncludeStrains:
		if err := e.fillStrainList(ctx, setToSlice(r.Strains)); err != nil {
			return err
		}
		pred = fmt.Sprintf("strain IN (SELECT strain FROM %s)", e.t(tableStrainList))
	case types.IncludeWhere:
		p, a, matchable := e.wherePredicate(r.Clause)
		if !matchable {
			return nil
		}
		pred, args = p, a
	default:
		return fmt.Errorf("unhandled include rule %T", rule)
	}
	return e.markMatches(ctx, "include", rule.Name(), filter.KwargsJSON(rule.Args()), pred, args)
}

// markMatches stamps every strain the predicate selects with the rule's
// flag, name, and kwargs. Later rules overwrite earlier stamps, so the
// last match owns the recorded reason.
func (e *Engine) markMatches(ctx context.Context, flag, name, kwargs, pred string, args []any) error {
	query := fmt.Sprintf("UPDATE %s SET %s = 1, filter = ?, kwargs = ?", e.t(tableFilterReason), flag)
	if pred != "" {
		query += " WHERE " + pred
	}
	bound := append([]any{name, kwargs}, args...)
	if _, err := e.db.ExecContext(ctx, e.db.Rebind(query), bound...); err != nil {
		return fmt.Errorf("failed to apply %s rule: %s", name, err)
	}
	return nil
}

// wherePredicate translates a column comparison into SQL. A clause naming
// a column absent from the header can never equal its value: `=` matches
// nothing (matchable false) and `!=` matches every strain (empty
// predicate).
func (e *Engine) wherePredicate(clause types.WhereClause) (string, []any, bool) {
	if !utils.Contains(e.run.Columns, clause.Column) {
		return "", nil, clause.Negated
	}
	op := "="
	if clause.Negated {
		op = "!="
	}
	pred := fmt.Sprintf("strain IN (SELECT %s FROM %s WHERE LOWER(%s) %s LOWER(?))",
		quoteIdentifier(e.run.IDColumn), e.t(tableMetadata), quoteIdentifier(clause.Column), op)
	return pred, []any{clause.Value}, true
}

// queryMisses streams the metadata back out of the database and returns
// every strain the query expression does NOT select. The expression runs
// in Go because its comparisons fall back from numeric to lexical per
// value, which SQL affinity rules cannot reproduce.
func (e *Engine) queryMisses(ctx context.Context, expr types.QueryExpr) ([]string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(quoteIdentifiers(e.run.Columns), ", "), e.t(tableMetadata))
	var misses []string
	err := e.streamRecords(ctx, query, func(record types.Record) error {
		if !filter.EvalQuery(expr, record) {
			misses = append(misses, record[e.run.IDColumn])
		}
		return nil
	})
	return misses, err
}

// streamRecords runs a query selecting exactly the run's metadata columns
// in header order and hands each row to fn as a record.
func (e *Engine) streamRecords(ctx context.Context, query string, fn func(types.Record) error) error {
	rows, err := e.db.QueryxContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to stream metadata: %s", err)
	}
	defer rows.Close()

	for rows.Next() {
		scanned := make(map[string]any, len(e.run.Columns))
		if err := utils.MapScan(rows.Rows, scanned); err != nil {
			return fmt.Errorf("failed to scan metadata row: %s", err)
		}
		record := make(types.Record, len(e.run.Columns))
		for _, col := range e.run.Columns {
			if value, found := scanned[col]; found && value != nil {
				record[col] = fmt.Sprint(value)
			}
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (e *Engine) fillStrainList(ctx context.Context, strains []string) error {
	if _, err := e.db.ExecContext(ctx, "DELETE FROM "+e.t(tableStrainList)); err != nil {
		return fmt.Errorf("failed to clear strain list: %s", err)
	}
	rows := make([][]any, 0, len(strains))
	for _, id := range strains {
		rows = append(rows, []any{id})
	}
	return e.insertBatch(ctx, e.t(tableStrainList), []string{"strain"}, rows)
}

func (e *Engine) GroupSizes(ctx context.Context) (map[string]int64, error) {
	if err := e.buildCandidates(ctx); err != nil {
		return nil, err
	}
	rows, err := e.db.QueryxContext(ctx, fmt.Sprintf("SELECT gkey, COUNT(*) FROM %s GROUP BY gkey", e.t(tableCandidates)))
	if err != nil {
		return nil, fmt.Errorf("failed to count groups: %s", err)
	}
	defer rows.Close()

	sizes := make(map[string]int64)
	for rows.Next() {
		var (
			key  string
			size int64
		)
		if err := rows.Scan(&key, &size); err != nil {
			return nil, fmt.Errorf("failed to scan group size: %s", err)
		}
		sizes[key] = size
	}
	return sizes, rows.Err()
}

// buildCandidates collects every strain still in play after the rules,
// computes its group key and priority, and stages the triples for the
// ranking query. Group keys come from the shared grouping logic so the
// engines can never bucket differently. The triples accumulate before the
// insert because the single sqlite connection cannot write under an open
// cursor.
func (e *Engine) buildCandidates(ctx context.Context) error {
	columns := make([]string, len(e.run.Columns))
	for i, col := range e.run.Columns {
		columns[i] = "m." + quoteIdentifier(col)
	}
	query := fmt.Sprintf(
		"SELECT %s FROM %s m JOIN %s fr ON m.%s = fr.strain WHERE fr.exclude = 0 AND fr.include = 0",
		strings.Join(columns, ", "), e.t(tableMetadata), e.t(tableFilterReason), quoteIdentifier(e.run.IDColumn),
	)

	var rows [][]any
	err := e.streamRecords(ctx, query, func(record types.Record) error {
		strain := record[e.run.IDColumn]
		d := dates.Parse(record[constants.DateColumn])
		key, ok := e.run.Group.KeyOf(record, d)
		if !ok {
			return nil
		}
		var priority any
		if e.run.Priorities != nil {
			if v, ranked := e.run.Priorities.Get(strain); ranked {
				priority = v
			}
		} else {
			priority = e.run.Generator.Priority(strain)
		}
		rows = append(rows, []any{strain, key, priority})
		return nil
	})
	if err != nil {
		return err
	}
	return e.insertBatch(ctx, e.t(tableCandidates), []string{"strain", "gkey", "priority"}, rows)
}

func (e *Engine) ApplyQuotas(ctx context.Context, quotas map[string]int64) error {
	rows := make([][]any, 0, len(quotas))
	for key, size := range quotas {
		rows = append(rows, []any{key, size})
	}
	if err := e.insertBatch(ctx, e.t(tableGroupSizes), []string{"gkey", "size"}, rows); err != nil {
		return err
	}

	// Strains that passed every rule but could not form a group key fall
	// out of the ranking with no itemized reason, matching the in-memory
	// engine.
	ungrouped := fmt.Sprintf(
		"UPDATE %s SET exclude = 1 WHERE exclude = 0 AND include = 0 AND strain NOT IN (SELECT strain FROM %s)",
		e.t(tableFilterReason), e.t(tableCandidates),
	)
	if _, err := e.db.ExecContext(ctx, ungrouped); err != nil {
		return fmt.Errorf("failed to drop ungrouped strains: %s", err)
	}

	query := rankCandidatesQuery(e.t(tableFilterReason), e.t(tableCandidates), e.t(tableGroupSizes))
	if _, err := e.db.ExecContext(ctx, e.db.Rebind(query), types.ReasonSubsample, ""); err != nil {
		return fmt.Errorf("failed to apply group quotas: %s", err)
	}
	return nil
}

func (e *Engine) Results(ctx context.Context) (*engines.Results, error) {
	results := &engines.Results{
		Strains: make(map[string]struct{}),
		Passed:  make(map[string]struct{}),
		Reasons: make(map[string]types.Reason),
	}

	if err := e.db.GetContext(ctx, &results.MetadataStrains,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", e.t(tableMetadata))); err != nil {
		return nil, fmt.Errorf("failed to count metadata rows: %s", err)
	}

	var strains []string
	if err := e.db.SelectContext(ctx, &strains,
		fmt.Sprintf("SELECT strain FROM %s", e.t(tableFilterReason))); err != nil {
		return nil, fmt.Errorf("failed to list strains: %s", err)
	}
	for _, id := range strains {
		results.Strains[id] = struct{}{}
	}

	var passed []string
	if err := e.db.SelectContext(ctx, &passed,
		fmt.Sprintf("SELECT strain FROM %s WHERE exclude = 0 OR include = 1", e.t(tableFilterReason))); err != nil {
		return nil, fmt.Errorf("failed to list passed strains: %s", err)
	}
	for _, id := range passed {
		results.Passed[id] = struct{}{}
	}

	rows, err := e.db.QueryxContext(ctx,
		fmt.Sprintf("SELECT strain, filter, kwargs FROM %s WHERE filter IS NOT NULL", e.t(tableFilterReason)))
	if err != nil {
		return nil, fmt.Errorf("failed to list filter reasons: %s", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name, kwargs string
		if err := rows.Scan(&id, &name, &kwargs); err != nil {
			return nil, fmt.Errorf("failed to scan filter reason: %s", err)
		}
		results.Reasons[id] = types.Reason{Rule: name, Kwargs: kwargs}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	counts, err := e.db.QueryxContext(ctx, e.db.Rebind(fmt.Sprintf(
		"SELECT filter, kwargs, COUNT(*) FROM %s WHERE filter IS NOT NULL AND filter != ? GROUP BY filter, kwargs",
		e.t(tableFilterReason))), types.ReasonSubsample)
	if err != nil {
		return nil, fmt.Errorf("failed to count filter matches: %s", err)
	}
	defer counts.Close()
	raw := make(map[filter.CountKey]int64)
	for counts.Next() {
		var (
			key filter.CountKey
			n   int64
		)
		if err := counts.Scan(&key.Rule, &key.Kwargs, &n); err != nil {
			return nil, fmt.Errorf("failed to scan filter count: %s", err)
		}
		raw[key] = n
	}
	if err := counts.Err(); err != nil {
		return nil, err
	}
	results.Counts = filter.OrderCounts(e.run.Rules, raw)

	if err := e.db.GetContext(ctx, &results.SubsampledOut, e.db.Rebind(fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE filter = ?", e.t(tableFilterReason))), types.ReasonSubsample); err != nil {
		return nil, fmt.Errorf("failed to count subsampled strains: %s", err)
	}
	return results, nil
}

func (e *Engine) Close(ctx context.Context) error {
	if e.db == nil {
		return nil
	}
	return e.dia.cleanup(ctx, e.db)
}

func (e *Engine) insertBatch(ctx context.Context, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := e.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %s", err)
	}
	defer tx.Rollback()
	if err := insertRows(ctx, tx, table, columns, rows); err != nil {
		return err
	}
	return tx.Commit()
}

// maxBindParams caps the bind parameters of one INSERT, comfortably under
// the historical sqlite limit of 999.
const maxBindParams = 900

func insertRows(ctx context.Context, tx *sqlx.Tx, table string, columns []string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	perStatement := maxBindParams / len(columns)
	if perStatement < 1 {
		perStatement = 1
	}

	tuple := "(?" + strings.Repeat(", ?", len(columns)-1) + ")"
	for start := 0; start < len(rows); start += perStatement {
		end := start + perStatement
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		tuples := make([]string, len(chunk))
		args := make([]any, 0, len(chunk)*len(columns))
		for i, row := range chunk {
			tuples[i] = tuple
			args = append(args, row...)
		}
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
			table, strings.Join(columns, ", "), strings.Join(tuples, ", "))
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %s", table, err)
		}
	}
	return nil
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

func nullableInt(ok bool, v int) any {
	if !ok {
		return nil
	}
	return v
}

func nullableFloat(ok bool, v float64) any {
	if !ok {
		return nil
	}
	return v
}
