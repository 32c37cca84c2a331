// Package filter builds the rule pipeline from configuration, parses the
// two query syntaxes, evaluates predicates for the in-memory engine, and
// renders the filter report shared by all engines.
package filter

import (
	"strings"

	"github.com/seqsift/seqsift/types"
)

// ParseWhere parses a column match of the form "column=value" or
// "column!=value". The value may contain further '=' characters.
func ParseWhere(raw string) (types.WhereClause, error) {
	var column, value string
	negated := false
	if i := strings.Index(raw, "!="); i >= 0 {
		column, value = raw[:i], raw[i+2:]
		negated = true
	} else if i := strings.Index(raw, "="); i >= 0 {
		column, value = raw[:i], raw[i+1:]
	} else {
		return types.WhereClause{}, types.Configf("failed to parse the filter query %q: expected 'column=value' or 'column!=value'", raw)
	}
	if column == "" {
		return types.WhereClause{}, types.Configf("failed to parse the filter query %q: missing column name", raw)
	}
	return types.WhereClause{
		Raw:     raw,
		Column:  column,
		Value:   value,
		Negated: negated,
	}, nil
}

// WhereMatches evaluates a where clause against one record. Values compare
// case-insensitively. A record without the column never matches '=' and
// always matches '!='.
func WhereMatches(clause types.WhereClause, record types.Record) bool {
	value, ok := record[clause.Column]
	if clause.Negated {
		return !ok || !asciiEqualFold(value, clause.Value)
	}
	return ok && asciiEqualFold(value, clause.Value)
}

// asciiEqualFold is ASCII-only case-insensitive equality, matching the
// LOWER() the relational engines apply on the SQL side.
func asciiEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
