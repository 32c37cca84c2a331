package filter

import (
	"strings"

	"github.com/seqsift/seqsift/types"
	"github.com/seqsift/seqsift/utils/logger"
	"github.com/seqsift/seqsift/utils/typeutils"
)

// Query syntax: boolean expressions over column/literal comparisons.
//
//	region == 'Asia' and (country != "Brazil" or year >= 2020)
//	country in ('Ecuador', 'Peru') and not length < 27000
//
// Legacy '&'/'|' operators are accepted with a deprecation warning.

type tokenKind int

const (
	tkEOF tokenKind = iota
	tkIdent
	tkString
	tkNumber
	tkOp
	tkLParen
	tkRParen
	tkComma
)

type token struct {
	kind tokenKind
	val  string
}

type lexer struct {
	input     string
	pos       int
	pandasOps bool
}

func (l *lexer) lex() ([]token, error) {
	var tokens []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tkEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) next() (token, error) {
	for l.pos < len(l.input) && (l.input[l.pos] == ' ' || l.input[l.pos] == '\t' || l.input[l.pos] == '\n') {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return token{kind: tkEOF}, nil
	}

	c := l.input[l.pos]
	switch {
	case c == '(' || c == '[':
		l.pos++
		return token{kind: tkLParen}, nil
	case c == ')' || c == ']':
		l.pos++
		return token{kind: tkRParen}, nil
	case c == ',':
		l.pos++
		return token{kind: tkComma}, nil
	case c == '&':
		l.pos++
		l.pandasOps = true
		return token{kind: tkOp, val: "and"}, nil
	case c == '|':
		l.pos++
		l.pandasOps = true
		return token{kind: tkOp, val: "or"}, nil
	case c == '\'' || c == '"':
		quote := c
		end := strings.IndexByte(l.input[l.pos+1:], quote)
		if end < 0 {
			return token{}, types.Configf("failed to parse query: unterminated string at %q", l.input[l.pos:])
		}
		val := l.input[l.pos+1 : l.pos+1+end]
		l.pos += end + 2
		return token{kind: tkString, val: val}, nil
	case c == '`':
		end := strings.IndexByte(l.input[l.pos+1:], '`')
		if end < 0 {
			return token{}, types.Configf("failed to parse query: unterminated column name at %q", l.input[l.pos:])
		}
		val := l.input[l.pos+1 : l.pos+1+end]
		l.pos += end + 2
		return token{kind: tkIdent, val: val}, nil
	case strings.HasPrefix(l.input[l.pos:], "=="), strings.HasPrefix(l.input[l.pos:], "!="),
		strings.HasPrefix(l.input[l.pos:], "<="), strings.HasPrefix(l.input[l.pos:], ">="),
		strings.HasPrefix(l.input[l.pos:], "<>"):
		op := l.input[l.pos : l.pos+2]
		l.pos += 2
		if op == "<>" {
			op = "!="
		}
		return token{kind: tkOp, val: op}, nil
	case c == '=':
		l.pos++
		return token{kind: tkOp, val: "=="}, nil
	case c == '<' || c == '>':
		l.pos++
		return token{kind: tkOp, val: string(c)}, nil
	case c == '-' || c == '.' || (c >= '0' && c <= '9'):
		start := l.pos
		l.pos++
		for l.pos < len(l.input) {
			d := l.input[l.pos]
			if d == '.' || (d >= '0' && d <= '9') {
				l.pos++
				continue
			}
			break
		}
		return token{kind: tkNumber, val: l.input[start:l.pos]}, nil
	case isIdentByte(c):
		start := l.pos
		for l.pos < len(l.input) && isIdentByte(l.input[l.pos]) {
			l.pos++
		}
		word := l.input[start:l.pos]
		switch strings.ToLower(word) {
		case "and", "or", "not", "in":
			return token{kind: tkOp, val: strings.ToLower(word)}, nil
		}
		return token{kind: tkIdent, val: word}, nil
	default:
		return token{}, types.Configf("failed to parse query: unexpected character %q", string(c))
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '.' || c == '/' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) cur() token { return p.tokens[p.pos] }

func (p *parser) advance() { p.pos++ }

func (p *parser) isOp(v string) bool {
	return p.cur().kind == tkOp && p.cur().val == v
}

// ParseQuery parses a query expression into its evaluation tree.
func ParseQuery(query string) (types.QueryExpr, error) {
	l := &lexer{input: query}
	tokens, err := l.lex()
	if err != nil {
		return nil, err
	}
	if l.pandasOps {
		logger.Warnf("query operators '&' and '|' are deprecated, use 'and' and 'or'")
	}

	p := &parser{tokens: tokens}
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tkEOF {
		return nil, types.Configf("failed to parse query %q: unexpected trailing input", query)
	}
	return expr, nil
}

func (p *parser) parseOr() (types.QueryExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	operands := []types.QueryExpr{left}
	for p.isOp("or") {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return left, nil
	}
	return types.LogicalExpr{Operator: "or", Operands: operands}, nil
}

func (p *parser) parseAnd() (types.QueryExpr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	operands := []types.QueryExpr{left}
	for p.isOp("and") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	if len(operands) == 1 {
		return left, nil
	}
	return types.LogicalExpr{Operator: "and", Operands: operands}, nil
}

func (p *parser) parseNot() (types.QueryExpr, error) {
	if p.isOp("not") {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return types.NotExpr{Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (types.QueryExpr, error) {
	if p.cur().kind == tkLParen {
		p.advance()
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().kind != tkRParen {
			return nil, types.Configf("failed to parse query: missing closing parenthesis")
		}
		p.advance()
		return expr, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (types.QueryExpr, error) {
	left := p.cur()
	if left.kind != tkIdent && left.kind != tkString && left.kind != tkNumber {
		return nil, types.Configf("failed to parse query: expected a column or value, got %q", left.val)
	}
	p.advance()

	// column in (...)  /  column not in (...)
	if p.isOp("in") || (p.isOp("not") && p.peekIsIn()) {
		negated := false
		if p.isOp("not") {
			negated = true
			p.advance()
		}
		p.advance() // in
		if left.kind != tkIdent {
			return nil, types.Configf("failed to parse query: membership tests require a column name")
		}
		values, err := p.parseValueList()
		if err != nil {
			return nil, err
		}
		return types.MembershipExpr{Column: left.val, Values: values, Negated: negated}, nil
	}

	op := p.cur()
	if op.kind != tkOp || !isComparisonOp(op.val) {
		return nil, types.Configf("failed to parse query: expected a comparison operator after %q", left.val)
	}
	p.advance()

	right := p.cur()
	if right.kind != tkIdent && right.kind != tkString && right.kind != tkNumber {
		return nil, types.Configf("failed to parse query: expected a value after %q", op.val)
	}
	p.advance()

	switch {
	case left.kind == tkIdent && right.kind != tkIdent:
		return types.ConditionExpr{Condition: types.Condition{
			Column: left.val, Operator: op.val, Value: right.val,
		}}, nil
	case left.kind != tkIdent && right.kind == tkIdent:
		return types.ConditionExpr{Condition: types.Condition{
			Column: right.val, Operator: mirrorOp(op.val), Value: left.val,
		}}, nil
	case left.kind == tkIdent && right.kind == tkIdent:
		return nil, types.Configf("failed to parse query: the value side of a comparison must be a quoted string or number, got %q", right.val)
	default:
		return nil, types.Configf("failed to parse query: comparisons must reference a column")
	}
}

func (p *parser) peekIsIn() bool {
	next := p.pos + 1
	return next < len(p.tokens) && p.tokens[next].kind == tkOp && p.tokens[next].val == "in"
}

func (p *parser) parseValueList() ([]string, error) {
	if p.cur().kind != tkLParen {
		return nil, types.Configf("failed to parse query: membership tests require a value list")
	}
	p.advance()

	var values []string
	for {
		tok := p.cur()
		if tok.kind != tkString && tok.kind != tkNumber {
			return nil, types.Configf("failed to parse query: value lists may only contain quoted strings and numbers")
		}
		values = append(values, tok.val)
		p.advance()
		if p.cur().kind == tkComma {
			p.advance()
			continue
		}
		break
	}
	if p.cur().kind != tkRParen {
		return nil, types.Configf("failed to parse query: missing closing parenthesis in value list")
	}
	p.advance()
	return values, nil
}

func isComparisonOp(op string) bool {
	switch op {
	case "==", "!=", "<", "<=", ">", ">=":
		return true
	}
	return false
}

func mirrorOp(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	}
	return op
}

// ValidateQueryColumns rejects queries that reference columns absent from
// the metadata.
func ValidateQueryColumns(expr types.QueryExpr, columns []string) error {
	present := make(map[string]struct{}, len(columns))
	for _, col := range columns {
		present[col] = struct{}{}
	}
	var missing []string
	for _, col := range types.Columns(expr) {
		if _, ok := present[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return types.Configf("query references columns that do not exist in the metadata: %s", strings.Join(missing, ", "))
	}
	return nil
}

// EvalQuery evaluates a parsed query against one record. Comparisons are
// numeric when both sides parse as numbers and lexical otherwise.
func EvalQuery(expr types.QueryExpr, record types.Record) bool {
	switch e := expr.(type) {
	case types.ConditionExpr:
		cmp := typeutils.Compare(record[e.Column], e.Value)
		switch e.Operator {
		case "==":
			return cmp == 0
		case "!=":
			return cmp != 0
		case "<":
			return cmp < 0
		case "<=":
			return cmp <= 0
		case ">":
			return cmp > 0
		case ">=":
			return cmp >= 0
		}
		return false
	case types.MembershipExpr:
		value := record[e.Column]
		member := false
		for _, candidate := range e.Values {
			if typeutils.Compare(value, candidate) == 0 {
				member = true
				break
			}
		}
		if e.Negated {
			return !member
		}
		return member
	case types.LogicalExpr:
		if e.Operator == "and" {
			for _, operand := range e.Operands {
				if !EvalQuery(operand, record) {
					return false
				}
			}
			return true
		}
		for _, operand := range e.Operands {
			if EvalQuery(operand, record) {
				return true
			}
		}
		return false
	case types.NotExpr:
		return !EvalQuery(e.Operand, record)
	}
	return false
}
