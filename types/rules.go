package types

// Rule name tags. These end up in the run log's filter column and key the
// report templates, so they are part of the output contract.
const (
	RuleExcludeAll     = "filter_by_exclude_all"
	RuleExcludeStrains = "filter_by_exclude_strains"
	RuleExcludeWhere   = "filter_by_exclude_where"
	RuleQuery          = "filter_by_query"
	RuleAmbiguousDate  = "filter_by_ambiguous_date"
	RuleMinDate        = "filter_by_min_date"
	RuleMaxDate        = "filter_by_max_date"
	RuleMinLength      = "filter_by_sequence_length"
	RuleMaxLength      = "filter_by_max_length"
	RuleNonNucleotide  = "filter_by_non_nucleotide"
	RuleSequenceIndex  = "filter_by_sequence_index"
	RuleSkipMonth      = "skip_group_by_with_ambiguous_month"
	RuleSkipYear       = "skip_group_by_with_ambiguous_year"
	RuleIncludeStrains = "force_include_strains"
	RuleIncludeWhere   = "force_include_where"

	// ReasonSubsample tags records dropped by group quotas rather than by
	// an explicit rule.
	ReasonSubsample = "subsampling"
)

// WhereClause is one parsed `column=value` or `column!=value` comparison
// from --exclude-where / --include-where. Matching is case-insensitive on
// the value; a record missing the column never matches `=` and always
// matches `!=`.
type WhereClause struct {
	Raw     string
	Column  string
	Value   string
	Negated bool
}

// ExcludeRule drops records that match it. The set of implementations is
// closed; engines dispatch on the concrete type.
type ExcludeRule interface {
	Name() string
	Args() map[string]any
	excludeRule()
}

// IncludeRule force-retains records that match it, overriding every
// exclude rule and bypassing subsampling.
type IncludeRule interface {
	Name() string
	Args() map[string]any
	includeRule()
}

// RuleSet is the full predicate configuration of one run.
type RuleSet struct {
	Excludes []ExcludeRule
	Includes []IncludeRule
}

// ExcludeAll drops every record; only force-includes survive it.
type ExcludeAll struct{}

func (ExcludeAll) Name() string         { return RuleExcludeAll }
func (ExcludeAll) Args() map[string]any { return map[string]any{} }
func (ExcludeAll) excludeRule()         {}

// ExcludeStrains drops identifiers listed in a file.
type ExcludeStrains struct {
	File    string
	Strains map[string]struct{}
}

func (r ExcludeStrains) Name() string         { return RuleExcludeStrains }
func (r ExcludeStrains) Args() map[string]any { return map[string]any{"exclude_file": r.File} }
func (ExcludeStrains) excludeRule()           {}

// ExcludeWhere drops records matching one column comparison.
type ExcludeWhere struct {
	Clause WhereClause
}

func (r ExcludeWhere) Name() string         { return RuleExcludeWhere }
func (r ExcludeWhere) Args() map[string]any { return map[string]any{"exclude_where": r.Clause.Raw} }
func (ExcludeWhere) excludeRule()           {}

// ExcludeByQuery drops records NOT matching the query expression; the
// query selects the records to keep.
type ExcludeByQuery struct {
	Query string
	Expr  QueryExpr
}

func (r ExcludeByQuery) Name() string         { return RuleQuery }
func (r ExcludeByQuery) Args() map[string]any { return map[string]any{"query": r.Query} }
func (ExcludeByQuery) excludeRule()           {}

// ExcludeAmbiguousDates drops records whose date is ambiguous or missing
// at the given resolution (day, month, year, or any).
type ExcludeAmbiguousDates struct {
	Level string
}

func (r ExcludeAmbiguousDates) Name() string         { return RuleAmbiguousDate }
func (r ExcludeAmbiguousDates) Args() map[string]any { return map[string]any{"ambiguity": r.Level} }
func (ExcludeAmbiguousDates) excludeRule()           {}

// MinDateRule drops records whose latest possible date is before the
// bound, so an ambiguous date straddling it survives; records with no
// parseable date are dropped too.
type MinDateRule struct {
	Date  string
	Bound float64
}

func (r MinDateRule) Name() string         { return RuleMinDate }
func (r MinDateRule) Args() map[string]any { return map[string]any{"min_date": r.Date} }
func (MinDateRule) excludeRule()           {}

// MaxDateRule drops records whose earliest possible date is after the
// bound; records with no parseable date are dropped too.
type MaxDateRule struct {
	Date  string
	Bound float64
}

func (r MaxDateRule) Name() string         { return RuleMaxDate }
func (r MaxDateRule) Args() map[string]any { return map[string]any{"max_date": r.Date} }
func (MaxDateRule) excludeRule()           {}

// MinLengthRule drops records whose sequence holds fewer than Length
// A/C/G/T bases (case-insensitive).
type MinLengthRule struct {
	Length int
}

func (r MinLengthRule) Name() string         { return RuleMinLength }
func (r MinLengthRule) Args() map[string]any { return map[string]any{"min_length": r.Length} }
func (MinLengthRule) excludeRule()           {}

// MaxLengthRule drops records whose sequence holds more than Length
// A/C/G/T bases (case-insensitive).
type MaxLengthRule struct {
	Length int
}

func (r MaxLengthRule) Name() string         { return RuleMaxLength }
func (r MaxLengthRule) Args() map[string]any { return map[string]any{"max_length": r.Length} }
func (MaxLengthRule) excludeRule()           {}

// NonNucleotideRule drops records whose sequence contains characters
// outside the accepted nucleotide alphabet.
type NonNucleotideRule struct{}

func (NonNucleotideRule) Name() string         { return RuleNonNucleotide }
func (NonNucleotideRule) Args() map[string]any { return map[string]any{} }
func (NonNucleotideRule) excludeRule()         {}

// SequenceIndexRule drops records with no entry in the sequence index.
// Added implicitly whenever sequence data is in play.
type SequenceIndexRule struct{}

func (SequenceIndexRule) Name() string         { return RuleSequenceIndex }
func (SequenceIndexRule) Args() map[string]any { return map[string]any{} }
func (SequenceIndexRule) excludeRule()         {}

// SkipAmbiguousGroup drops records whose date cannot supply a requested
// year or month grouping bucket. Level is "month" or "year"; an ambiguous
// year is reported as such even though it also implies an ambiguous month,
// because the year variant is applied after the month variant.
type SkipAmbiguousGroup struct {
	Level string
}

func (r SkipAmbiguousGroup) Name() string {
	if r.Level == "year" {
		return RuleSkipYear
	}
	return RuleSkipMonth
}
func (SkipAmbiguousGroup) Args() map[string]any { return map[string]any{} }
func (SkipAmbiguousGroup) excludeRule()         {}

// IncludeStrains force-retains identifiers listed in a file.
type IncludeStrains struct {
	File    string
	Strains map[string]struct{}
}

func (r IncludeStrains) Name() string         { return RuleIncludeStrains }
func (r IncludeStrains) Args() map[string]any { return map[string]any{"include_file": r.File} }
func (IncludeStrains) includeRule()           {}

// IncludeWhere force-retains records matching one column comparison.
type IncludeWhere struct {
	Clause WhereClause
}

func (r IncludeWhere) Name() string         { return RuleIncludeWhere }
func (r IncludeWhere) Args() map[string]any { return map[string]any{"include_where": r.Clause.Raw} }
func (IncludeWhere) includeRule()           {}
