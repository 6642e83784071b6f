package query

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/datastax/sql-data-gateway/schema"
)

// The filter grammar is the OData-like comparison syntax:
//
//	expr       := andExpr { 'or' andExpr }
//	andExpr    := unaryExpr { 'and' unaryExpr }
//	unaryExpr  := 'not' unaryExpr | primary
//	primary    := '(' expr ')' | field op literal
//	op         := 'eq' | 'ne' | 'gt' | 'ge' | 'lt' | 'le'
//	literal    := number | 'string' | true | false | null | @claims.name
//
// @claims references are only valid inside database policy expressions.

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdent
	tokenString
	tokenNumber
	tokenLeftParen
	tokenRightParen
	tokenParameter
)

type token struct {
	kind  tokenKind
	text  string
	pos   int
	value interface{}
}

type filterParser struct {
	input   string
	pos     int
	current token

	entity *schema.Entity
	role   string
	action schema.Action

	// policyMode allows @claims parameters and skips column authorization,
	// since policies are written by the configuration author
	policyMode bool
	claims     map[string]interface{}
}

// BuildFilter translates a filter expression into a predicate tree over
// backing columns. Referenced fields are resolved through the entity's
// exposed name mapping and checked against the role's column allow-list.
func BuildFilter(filter string, entity *schema.Entity, role string, action schema.Action) (*Predicate, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}
	parser := &filterParser{input: filter, entity: entity, role: role, action: action}
	return parser.parse()
}

func buildPolicyPredicate(policy string, entity *schema.Entity, claims map[string]interface{}) (*Predicate, error) {
	if strings.TrimSpace(policy) == "" {
		return nil, nil
	}
	parser := &filterParser{input: policy, entity: entity, policyMode: true, claims: claims}
	return parser.parse()
}

func (p *filterParser) parse() (*Predicate, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	predicate, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.current.kind != tokenEOF {
		return nil, NewParsingError(p.current.pos, "unexpected '"+p.current.text+"'")
	}
	return predicate, nil
}

func (p *filterParser) parseOr() (*Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = Or(left, right)
	}
	return left, nil
}

func (p *filterParser) parseAnd() (*Predicate, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = And(left, right)
	}
	return left, nil
}

func (p *filterParser) parseUnary() (*Predicate, error) {
	if p.isKeyword("not") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		child, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not(child), nil
	}
	return p.parsePrimary()
}

func (p *filterParser) parsePrimary() (*Predicate, error) {
	if p.current.kind == tokenLeftParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.current.kind != tokenRightParen {
			return nil, NewParsingError(p.current.pos, "expected ')'")
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseComparison()
}

func (p *filterParser) parseComparison() (*Predicate, error) {
	if p.current.kind != tokenIdent {
		return nil, NewParsingError(p.current.pos, "expected a field name")
	}
	field := p.current.text

	backing, found := p.entity.BackingColumn(field)
	if !found {
		return nil, NewFieldNotFoundError(field, p.entity.Name)
	}
	if !p.policyMode && !p.entity.ColumnAllowed(p.role, p.action, backing) {
		return nil, NewFieldAuthorizationError(field)
	}
	column, _ := p.entity.Column(backing)

	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.current.kind != tokenIdent {
		return nil, NewParsingError(p.current.pos, "expected a comparison operator")
	}
	operator, validOp := comparisonOperators[strings.ToLower(p.current.text)]
	if !validOp {
		return nil, NewParsingError(p.current.pos, "unknown operator '"+p.current.text+"'")
	}

	if err := p.advance(); err != nil {
		return nil, err
	}
	literalPos := p.current.pos
	literal, isNull, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}

	if isNull {
		// NULL only supports equality semantics
		switch operator {
		case OpEqual:
			return IsNull(backing), nil
		case OpNotEqual:
			return IsNotNull(backing), nil
		default:
			return nil, NewParsingError(literalPos, "NULL can only be compared with 'eq' or 'ne'")
		}
	}

	value, castErr := schema.Cast(literal, column.Type)
	if castErr != nil {
		return nil, NewBinaryTypeError(backing, column.Type, literal)
	}
	return Compare(backing, operator, value), nil
}

// parseLiteral consumes the current literal token and returns its raw value.
// The second return value reports a NULL literal.
func (p *filterParser) parseLiteral() (interface{}, bool, error) {
	current := p.current
	switch current.kind {
	case tokenString, tokenNumber:
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		return current.value, false, nil
	case tokenParameter:
		if !p.policyMode {
			return nil, false, NewParsingError(current.pos, "parameters are not allowed in filter expressions")
		}
		name := strings.TrimPrefix(current.text, "claims.")
		if name == current.text {
			return nil, false, NewParsingError(current.pos, "unknown parameter source '@"+current.text+"'")
		}
		value, found := p.claims[name]
		if !found {
			return nil, false, NewMissingClaimError(name)
		}
		if err := p.advance(); err != nil {
			return nil, false, err
		}
		return value, false, nil
	case tokenIdent:
		switch strings.ToLower(current.text) {
		case "true":
			if err := p.advance(); err != nil {
				return nil, false, err
			}
			return true, false, nil
		case "false":
			if err := p.advance(); err != nil {
				return nil, false, err
			}
			return false, false, nil
		case "null":
			if err := p.advance(); err != nil {
				return nil, false, err
			}
			return nil, true, nil
		}
	}
	return nil, false, NewParsingError(current.pos, "expected a literal value")
}

var comparisonOperators = map[string]Operator{
	"eq": OpEqual,
	"ne": OpNotEqual,
	"gt": OpGreaterThan,
	"ge": OpGreaterThanOrEqual,
	"lt": OpLessThan,
	"le": OpLessThanOrEqual,
}

func (p *filterParser) isKeyword(keyword string) bool {
	return p.current.kind == tokenIdent && strings.EqualFold(p.current.text, keyword)
}

// advance scans the next token from the input.
func (p *filterParser) advance() error {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
	start := p.pos

	if p.pos >= len(p.input) {
		p.current = token{kind: tokenEOF, pos: start}
		return nil
	}

	c := p.input[p.pos]
	switch {
	case c == '(':
		p.pos++
		p.current = token{kind: tokenLeftParen, text: "(", pos: start}
	case c == ')':
		p.pos++
		p.current = token{kind: tokenRightParen, text: ")", pos: start}
	case c == '\'':
		value, err := p.scanString()
		if err != nil {
			return err
		}
		p.current = token{kind: tokenString, text: value, pos: start, value: value}
	case c == '@':
		p.pos++
		name := p.scanIdent(true)
		if name == "" {
			return NewParsingError(start, "expected a parameter name after '@'")
		}
		p.current = token{kind: tokenParameter, text: name, pos: start}
	case c == '-' || unicode.IsDigit(rune(c)):
		value, err := p.scanNumber()
		if err != nil {
			return err
		}
		p.current = token{kind: tokenNumber, text: p.input[start:p.pos], pos: start, value: value}
	case c == '_' || unicode.IsLetter(rune(c)):
		name := p.scanIdent(false)
		p.current = token{kind: tokenIdent, text: name, pos: start}
	default:
		return NewParsingError(start, "unexpected character '"+string(c)+"'")
	}
	return nil
}

// scanString reads a single-quoted string; a doubled quote is an escape.
func (p *filterParser) scanString() (string, error) {
	start := p.pos
	p.pos++
	var builder strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if c == '\'' {
			if p.pos+1 < len(p.input) && p.input[p.pos+1] == '\'' {
				builder.WriteByte('\'')
				p.pos += 2
				continue
			}
			p.pos++
			return builder.String(), nil
		}
		builder.WriteByte(c)
		p.pos++
	}
	return "", NewParsingError(start, "unterminated string literal")
}

func (p *filterParser) scanNumber() (interface{}, error) {
	start := p.pos
	if p.input[p.pos] == '-' {
		p.pos++
	}
	digits := 0
	isFloat := false
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if unicode.IsDigit(rune(c)) {
			digits++
			p.pos++
		} else if c == '.' && !isFloat {
			isFloat = true
			p.pos++
		} else {
			break
		}
	}
	if digits == 0 {
		return nil, NewParsingError(start, "malformed number")
	}
	text := p.input[start:p.pos]
	if isFloat {
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, NewParsingError(start, "malformed number")
		}
		return value, nil
	}
	value, err := strconv.Atoi(text)
	if err != nil {
		return nil, NewParsingError(start, "malformed number")
	}
	return value, nil
}

func (p *filterParser) scanIdent(allowDots bool) string {
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || (allowDots && c == '.') {
			p.pos++
		} else {
			break
		}
	}
	return p.input[start:p.pos]
}
