package db

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/datastax/sql-data-gateway/query"
	"github.com/datastax/sql-data-gateway/schema"
)

// QueryGenerator turns backend-agnostic query structures into SQL text with
// bound parameters. Implementations differ only in placeholder format and
// identifier quoting; the core never branches on backend identity.
type QueryGenerator interface {
	SelectQuery(structure *query.SelectStructure) (string, []interface{}, error)
	InsertQuery(structure *query.InsertStructure) (string, []interface{}, error)
	UpdateQuery(structure *query.UpdateStructure) (string, []interface{}, error)
	DeleteQuery(structure *query.DeleteStructure) (string, []interface{}, error)
}

type generator struct {
	placeholder sq.PlaceholderFormat
	quoteChar   string
}

func NewQueryGenerator(backend string) (QueryGenerator, error) {
	switch backend {
	case "postgresql":
		return &generator{placeholder: sq.Dollar, quoteChar: `"`}, nil
	case "mysql":
		return &generator{placeholder: sq.Question, quoteChar: "`"}, nil
	case "sqlite":
		return &generator{placeholder: sq.Question, quoteChar: `"`}, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", backend)
	}
}

// quote returns a safely quoted identifier; embedded quote characters are
// doubled so metadata-supplied names cannot break out of the identifier.
func (g *generator) quote(name string) string {
	escaped := strings.ReplaceAll(name, g.quoteChar, g.quoteChar+g.quoteChar)
	return g.quoteChar + escaped + g.quoteChar
}

func (g *generator) qualify(source schema.Source) string {
	if source.Schema == "" {
		return g.quote(source.Object)
	}
	return g.quote(source.Schema) + "." + g.quote(source.Object)
}

func (g *generator) column(qualifier string, name string) string {
	if qualifier == "" {
		return g.quote(name)
	}
	return g.quote(qualifier) + "." + g.quote(name)
}

func (g *generator) SelectQuery(structure *query.SelectStructure) (string, []interface{}, error) {
	// Qualify column references only when joins make them ambiguous
	baseQualifier := ""
	if len(structure.Joins) > 0 {
		baseQualifier = structure.Source.Object
	}

	columns := make([]string, 0, len(structure.Projections)+len(structure.ExtraColumns))
	for _, projection := range structure.Projections {
		columns = append(columns, g.column(baseQualifier, projection.Backing))
	}
	for _, extra := range structure.ExtraColumns {
		columns = append(columns, g.column(baseQualifier, extra))
	}

	builder := sq.Select(columns...).From(g.qualify(structure.Source))

	for _, join := range structure.Joins {
		onClauses := make([]string, 0, len(join.On))
		for _, pair := range join.On {
			onClauses = append(onClauses, fmt.Sprintf("%s = %s",
				g.column(join.Source.Object, pair.JoinColumn),
				g.column(structure.Source.Object, pair.BaseColumn)))
		}
		builder = builder.Join(fmt.Sprintf("%s ON %s", g.qualify(join.Source), strings.Join(onClauses, " AND ")))
	}

	if structure.Predicate != nil {
		condition, err := g.predicateSqlizer(structure.Predicate, baseQualifier)
		if err != nil {
			return "", nil, err
		}
		builder = builder.Where(condition)
	}

	if len(structure.OrderBy) > 0 {
		clauses := make([]string, 0, len(structure.OrderBy))
		for _, order := range structure.OrderBy {
			clauses = append(clauses, g.column(baseQualifier, order.ColumnName)+" "+order.Direction.String())
		}
		builder = builder.OrderBy(clauses...)
	}

	if structure.Limit > 0 {
		builder = builder.Limit(uint64(structure.Limit))
	}

	return builder.PlaceholderFormat(g.placeholder).ToSql()
}

func (g *generator) InsertQuery(structure *query.InsertStructure) (string, []interface{}, error) {
	columns := make([]string, 0, len(structure.Columns))
	for _, column := range structure.Columns {
		columns = append(columns, g.quote(column))
	}
	return sq.Insert(g.qualify(structure.Source)).
		Columns(columns...).
		Values(structure.Values...).
		PlaceholderFormat(g.placeholder).
		ToSql()
}

func (g *generator) UpdateQuery(structure *query.UpdateStructure) (string, []interface{}, error) {
	builder := sq.Update(g.qualify(structure.Source))
	for i, column := range structure.Columns {
		builder = builder.Set(g.quote(column), structure.Values[i])
	}
	if structure.Predicate != nil {
		condition, err := g.predicateSqlizer(structure.Predicate, "")
		if err != nil {
			return "", nil, err
		}
		builder = builder.Where(condition)
	}
	return builder.PlaceholderFormat(g.placeholder).ToSql()
}

func (g *generator) DeleteQuery(structure *query.DeleteStructure) (string, []interface{}, error) {
	builder := sq.Delete(g.qualify(structure.Source))
	if structure.Predicate != nil {
		condition, err := g.predicateSqlizer(structure.Predicate, "")
		if err != nil {
			return "", nil, err
		}
		builder = builder.Where(condition)
	}
	return builder.PlaceholderFormat(g.placeholder).ToSql()
}

// predicateSqlizer walks the predicate tree; comparison values always end
// up as bound parameters.
func (g *generator) predicateSqlizer(predicate *query.Predicate, baseQualifier string) (sq.Sqlizer, error) {
	qualifier := predicate.Qualifier
	if qualifier == "" {
		qualifier = baseQualifier
	}

	switch predicate.Kind {
	case query.PredicateComparison:
		return sq.Expr(
			fmt.Sprintf("%s %s ?", g.column(qualifier, predicate.Column), sqlOperator(predicate.Operator)),
			predicate.Value), nil
	case query.PredicateIsNull:
		return sq.Expr(g.column(qualifier, predicate.Column) + " IS NULL"), nil
	case query.PredicateIsNotNull:
		return sq.Expr(g.column(qualifier, predicate.Column) + " IS NOT NULL"), nil
	case query.PredicateAnd:
		children, err := g.childSqlizers(predicate.Children, baseQualifier)
		if err != nil {
			return nil, err
		}
		return sq.And(children), nil
	case query.PredicateOr:
		children, err := g.childSqlizers(predicate.Children, baseQualifier)
		if err != nil {
			return nil, err
		}
		return sq.Or(children), nil
	case query.PredicateNot:
		child, err := g.predicateSqlizer(predicate.Children[0], baseQualifier)
		if err != nil {
			return nil, err
		}
		return sq.Expr("NOT (?)", child), nil
	default:
		return nil, fmt.Errorf("unsupported predicate kind: %d", predicate.Kind)
	}
}

func (g *generator) childSqlizers(predicates []*query.Predicate, baseQualifier string) ([]sq.Sqlizer, error) {
	children := make([]sq.Sqlizer, 0, len(predicates))
	for _, predicate := range predicates {
		child, err := g.predicateSqlizer(predicate, baseQualifier)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func sqlOperator(op query.Operator) string {
	if op == query.OpNotEqual {
		return "<>"
	}
	return op.String()
}
