package query

import (
	"strconv"

	"github.com/datastax/sql-data-gateway/schema"
)

type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "DESC"
	}
	return "ASC"
}

// OrderByItem is a caller-requested ordering over an exposed field.
type OrderByItem struct {
	Field     string
	Direction Direction
}

// OrderColumn is one column of the augmented, fully resolved ordering.
type OrderColumn struct {
	SchemaName string
	TableName  string
	ColumnName string
	Direction  Direction
}

// PageSpec is the result of the pagination engine: the deterministic
// ordering, the keyset predicate for rows strictly after the continuation
// token, and the effective row limit.
type PageSpec struct {
	OrderBy []OrderColumn
	After   *Predicate
	// First is the page size the client asked for; Limit fetches one extra
	// row to detect whether a further page exists
	First int
	Limit int
}

// BuildPageSpec augments the requested ordering with primary key
// tie-breakers and resolves the continuation token into an after-predicate.
//
// The augmented ordering is total: every primary key column appears exactly
// once, so no two distinct rows compare equal across the full key.
func BuildPageSpec(entity *schema.Entity, orderBy []OrderByItem, first int, afterToken string) (*PageSpec, error) {
	if first <= 0 {
		return nil, NewInvalidFirstError(strconv.Itoa(first))
	}
	if len(entity.PrimaryKey) == 0 {
		return nil, NewPaginationErrorf(
			"Entity '%s' has no key columns to page over, configure key-fields for its source", entity.Name)
	}

	augmented, err := augmentOrderBy(entity, orderBy)
	if err != nil {
		return nil, err
	}

	spec := &PageSpec{
		OrderBy: augmented,
		First:   first,
		Limit:   first + 1,
	}

	if afterToken != "" {
		values, err := decodeToken(afterToken, augmented, entity)
		if err != nil {
			return nil, err
		}
		spec.After = afterPredicate(augmented, values)
	}

	return spec, nil
}

// augmentOrderBy resolves the requested fields and appends every primary
// key column not already present, in the entity's declared key order, with
// an ascending default direction.
func augmentOrderBy(entity *schema.Entity, orderBy []OrderByItem) ([]OrderColumn, error) {
	augmented := make([]OrderColumn, 0, len(orderBy)+len(entity.PrimaryKey))
	seen := make(map[string]Direction, len(orderBy))

	for _, item := range orderBy {
		backing, found := entity.BackingColumn(item.Field)
		if !found {
			return nil, NewFieldNotFoundError(item.Field, entity.Name)
		}
		if previous, duplicate := seen[backing]; duplicate {
			if previous != item.Direction {
				return nil, NewPaginationError(
					"Conflicting order directions requested for column: " + item.Field)
			}
			// same column, same direction: first occurrence wins
			continue
		}
		seen[backing] = item.Direction
		augmented = append(augmented, OrderColumn{
			SchemaName: entity.Source.Schema,
			TableName:  entity.Source.Object,
			ColumnName: backing,
			Direction:  item.Direction,
		})
	}

	for _, pkColumn := range entity.PrimaryKey {
		if _, present := seen[pkColumn]; present {
			continue
		}
		seen[pkColumn] = Ascending
		augmented = append(augmented, OrderColumn{
			SchemaName: entity.Source.Schema,
			TableName:  entity.Source.Object,
			ColumnName: pkColumn,
			Direction:  Ascending,
		})
	}

	return augmented, nil
}

// afterPredicate builds the keyset comparator for rows strictly after the
// token values under the augmented ordering:
//
//	(c1 > v1) OR (c1 = v1 AND c2 > v2) OR ... OR (c1 = v1 AND ... AND cN > vN)
//
// where ">" flips to "<" for descending columns, tie-breaking identically
// to the ORDER BY direction per column.
func afterPredicate(orderBy []OrderColumn, values []interface{}) *Predicate {
	terms := make([]*Predicate, 0, len(orderBy))
	for i, column := range orderBy {
		conjuncts := make([]*Predicate, 0, i+1)
		for j := 0; j < i; j++ {
			conjuncts = append(conjuncts, Compare(orderBy[j].ColumnName, OpEqual, values[j]))
		}
		operator := OpGreaterThan
		if column.Direction == Descending {
			operator = OpLessThan
		}
		conjuncts = append(conjuncts, Compare(column.ColumnName, operator, values[i]))
		terms = append(terms, And(conjuncts...))
	}
	return Or(terms...)
}

// NextToken encodes a continuation token from the last returned row.
func NextToken(row map[string]interface{}, orderBy []OrderColumn) (string, error) {
	elements := make([]tokenElement, 0, len(orderBy))
	for _, column := range orderBy {
		value, found := row[column.ColumnName]
		if !found {
			return "", NewPaginationError(
				"Cannot build a continuation token, column missing from the result row: " + column.ColumnName)
		}
		elements = append(elements, tokenElement{
			Value:      value,
			Direction:  int(column.Direction),
			SchemaName: column.SchemaName,
			TableName:  column.TableName,
			ColumnName: column.ColumnName,
		})
	}
	return encodeToken(elements)
}

// CompletePage trims the extra probe row fetched beyond the requested page
// size and synthesizes the continuation token from the last returned row.
// A short page, or one exactly at the end of the data, yields no token.
func CompletePage(rows []map[string]interface{}, first int, orderBy []OrderColumn) ([]map[string]interface{}, string, bool, error) {
	if len(rows) <= first {
		return rows, "", false, nil
	}
	page := rows[:first]
	token, err := NextToken(page[first-1], orderBy)
	if err != nil {
		return nil, "", false, err
	}
	return page, token, true, nil
}
