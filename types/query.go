package types

// Condition is one column comparison inside a query expression.
// Operator is one of ==, !=, <, <=, >, >=.
type Condition struct {
	Column   string
	Operator string
	Value    string
}

// QueryExpr is a parsed boolean expression over metadata columns. The
// closed set of node kinds keeps evaluation a plain tree walk; queries are
// never evaluated through dynamic code.
type QueryExpr interface {
	queryExpr()
}

// ConditionExpr is a leaf comparison.
type ConditionExpr struct {
	Condition
}

// MembershipExpr tests a column against a literal list: `col in (...)` or
// `col not in (...)`.
type MembershipExpr struct {
	Column  string
	Values  []string
	Negated bool
}

// LogicalExpr combines operands with "and" or "or".
type LogicalExpr struct {
	Operator string
	Operands []QueryExpr
}

// NotExpr negates its operand.
type NotExpr struct {
	Operand QueryExpr
}

func (ConditionExpr) queryExpr()  {}
func (MembershipExpr) queryExpr() {}
func (LogicalExpr) queryExpr()    {}
func (NotExpr) queryExpr()        {}

// Columns returns every column referenced by the expression, in first-use
// order without duplicates. Used to validate queries against the metadata
// header before any record is evaluated.
func Columns(expr QueryExpr) []string {
	var out []string
	seen := map[string]bool{}
	var walk func(QueryExpr)
	walk = func(e QueryExpr) {
		switch node := e.(type) {
		case ConditionExpr:
			if !seen[node.Column] {
				seen[node.Column] = true
				out = append(out, node.Column)
			}
		case MembershipExpr:
			if !seen[node.Column] {
				seen[node.Column] = true
				out = append(out, node.Column)
			}
		case LogicalExpr:
			for _, op := range node.Operands {
				walk(op)
			}
		case NotExpr:
			walk(node.Operand)
		}
	}
	walk(expr)
	return out
}
