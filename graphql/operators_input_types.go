package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/datastax/sql-data-gateway/query"
	"github.com/datastax/sql-data-gateway/schema"
)

var stringOperatorType = operatorType(graphql.String)
var intOperatorType = operatorType(graphql.Int)
var floatOperatorType = operatorType(graphql.Float)
var booleanOperatorType = operatorType(graphql.Boolean)

// filterOperators contains the predicate operator for a given "graphql" operator
var filterOperators = map[string]query.Operator{
	"eq": query.OpEqual,
	"ne": query.OpNotEqual,
	"gt": query.OpGreaterThan,
	"ge": query.OpGreaterThanOrEqual,
	"lt": query.OpLessThan,
	"le": query.OpLessThanOrEqual,
}

var operatorsInputTypes = map[schema.ColumnType]*graphql.InputObject{
	schema.TypeString:   stringOperatorType,
	schema.TypeBytes:    stringOperatorType,
	schema.TypeInt:      intOperatorType,
	schema.TypeBigInt:   operatorType(bigint),
	schema.TypeFloat:    floatOperatorType,
	schema.TypeDecimal:  operatorType(decimalScalar),
	schema.TypeBoolean:  booleanOperatorType,
	schema.TypeDateTime: operatorType(timestamp),
	schema.TypeUUID:     operatorType(uuid),
}

func operatorType(graphqlType graphql.Type) *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name: graphqlType.Name() + "FilterInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"eq": {Type: graphqlType},
			"ne": {Type: graphqlType},
			"gt": {Type: graphqlType},
			"ge": {Type: graphqlType},
			"lt": {Type: graphqlType},
			"le": {Type: graphqlType},
		},
	})
}
