package graphql

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"github.com/datastax/sql-data-gateway/config"
	"github.com/datastax/sql-data-gateway/db"
	"github.com/datastax/sql-data-gateway/log"
	"github.com/datastax/sql-data-gateway/schema"
)

const insertPrefix = "insert"
const deletePrefix = "delete"
const updatePrefix = "update"

// SchemaGenerator builds a GraphQL schema out of a metadata snapshot: one
// query field and three mutation fields per configured entity.
type SchemaGenerator struct {
	dbClient     *db.Db
	naming       config.NamingConvention
	supportedOps config.Operations
	development  bool
	logger       log.Logger
}

// snapshotSchema holds the generated types for one snapshot.
type snapshotSchema struct {
	// entity type by entity name, with each column as scalar value
	entityValueTypes map[string]*graphql.Object
	// mutation payload input type by entity name
	entityInputTypes map[string]*graphql.InputObject
	// filter input type by entity name, with each field as operator input
	entityFilterTypes map[string]*graphql.InputObject
	// order enum by entity name
	orderEnums map[string]*graphql.Enum
	// result type by entity name for a select query
	resultSelectTypes map[string]*graphql.Object
	// result type by entity name for an insert/update/delete mutation
	resultModificationTypes map[string]*graphql.Object
	// entity name by exposed type name, for mutation field dispatch
	entityByTypeName map[string]string
}

var inputQueryOptions = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "QueryOptions",
	Fields: graphql.InputObjectConfigFieldMap{
		"first": {Type: graphql.Int},
		"after": {Type: graphql.String},
	},
})

func NewSchemaGenerator(dbClient *db.Db, cfg config.Config) *SchemaGenerator {
	return &SchemaGenerator{
		dbClient:     dbClient,
		naming:       cfg.Naming(),
		supportedOps: cfg.SupportedOperations(),
		development:  cfg.DevelopmentMode(),
		logger:       cfg.Logger(),
	}
}

func buildType(columnType schema.ColumnType) graphql.Output {
	switch columnType {
	case schema.TypeInt:
		return graphql.Int
	case schema.TypeBigInt:
		return bigint
	case schema.TypeFloat:
		return graphql.Float
	case schema.TypeDecimal:
		return decimalScalar
	case schema.TypeBoolean:
		return graphql.Boolean
	case schema.TypeDateTime:
		return timestamp
	case schema.TypeUUID:
		return uuid
	default:
		// string and bytes (base64) travel as plain strings
		return graphql.String
	}
}

// BuildSchema generates the executable schema for a snapshot.
func (sg *SchemaGenerator) BuildSchema(snapshot *schema.Snapshot) (graphql.Schema, error) {
	ss := &snapshotSchema{}
	if err := ss.buildTypes(snapshot, sg.naming); err != nil {
		return graphql.Schema{}, err
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    sg.buildQuery(snapshot, ss),
		Mutation: sg.buildMutation(snapshot, ss),
	})
}

func (s *snapshotSchema) buildTypes(snapshot *schema.Snapshot, naming config.NamingConvention) error {
	s.buildEntityTypes(snapshot, naming)
	s.buildOrderEnums(snapshot, naming)
	s.buildResultTypes(snapshot, naming)
	return nil
}

func (s *snapshotSchema) buildEntityTypes(snapshot *schema.Snapshot, naming config.NamingConvention) {
	names := snapshot.EntityNames()
	s.entityValueTypes = make(map[string]*graphql.Object, len(names))
	s.entityInputTypes = make(map[string]*graphql.InputObject, len(names))
	s.entityFilterTypes = make(map[string]*graphql.InputObject, len(names))
	s.entityByTypeName = make(map[string]string, len(names))

	for _, name := range names {
		entity, _ := snapshot.Entity(name)
		fields := graphql.Fields{}
		inputFields := graphql.InputObjectConfigFieldMap{}
		filterFields := graphql.InputObjectConfigFieldMap{}

		for _, column := range entity.Columns {
			exposed, _ := entity.ExposedColumn(column.Name)
			fieldType := buildType(column.Type)

			fields[exposed] = &graphql.Field{Type: fieldType}
			if !column.ReadOnly {
				inputFields[exposed] = &graphql.InputObjectFieldConfig{Type: fieldType}
			}
			filterFields[exposed] = &graphql.InputObjectFieldConfig{
				Type: operatorsInputTypes[column.Type],
			}
		}

		typeName := naming.ToExposedType(name)
		s.entityByTypeName[typeName] = name

		s.entityValueTypes[name] = graphql.NewObject(graphql.ObjectConfig{
			Name:   typeName,
			Fields: fields,
		})

		s.entityInputTypes[name] = graphql.NewInputObject(graphql.InputObjectConfig{
			Name:   typeName + "Input",
			Fields: inputFields,
		})

		s.entityFilterTypes[name] = graphql.NewInputObject(graphql.InputObjectConfig{
			Name:   typeName + "FilterInput",
			Fields: filterFields,
		})
	}
}

func (s *snapshotSchema) buildOrderEnums(snapshot *schema.Snapshot, naming config.NamingConvention) {
	names := snapshot.EntityNames()
	s.orderEnums = make(map[string]*graphql.Enum, len(names))

	for _, name := range names {
		entity, _ := snapshot.Entity(name)
		values := make(map[string]*graphql.EnumValueConfig, len(entity.Columns)*2)
		for _, column := range entity.Columns {
			exposed, _ := entity.ExposedColumn(column.Name)
			values[exposed+"_ASC"] = &graphql.EnumValueConfig{
				Value:       exposed + "_ASC",
				Description: fmt.Sprintf("Order %s by %s in ascending order", name, exposed),
			}
			values[exposed+"_DESC"] = &graphql.EnumValueConfig{
				Value:       exposed + "_DESC",
				Description: fmt.Sprintf("Order %s by %s in descending order", name, exposed),
			}
		}

		s.orderEnums[name] = graphql.NewEnum(graphql.EnumConfig{
			Name:   naming.ToExposedType(name) + "Order",
			Values: values,
		})
	}
}

func (s *snapshotSchema) buildResultTypes(snapshot *schema.Snapshot, naming config.NamingConvention) {
	names := snapshot.EntityNames()
	s.resultSelectTypes = make(map[string]*graphql.Object, len(names))
	s.resultModificationTypes = make(map[string]*graphql.Object, len(names))

	for _, name := range names {
		itemType, ok := s.entityValueTypes[name]
		if !ok {
			panic(fmt.Sprintf("entity value type for '%s' not found", name))
		}

		s.resultSelectTypes[name] = graphql.NewObject(graphql.ObjectConfig{
			Name: naming.ToExposedType(name) + "Result",
			Fields: graphql.Fields{
				"after":       {Type: graphql.String},
				"hasNextPage": {Type: graphql.Boolean},
				"values":      {Type: graphql.NewList(graphql.NewNonNull(itemType))},
			},
		})

		s.resultModificationTypes[name] = graphql.NewObject(graphql.ObjectConfig{
			Name: naming.ToExposedType(name) + "MutationResult",
			Fields: graphql.Fields{
				"applied": {Type: graphql.NewNonNull(graphql.Boolean)},
				"value":   {Type: itemType},
			},
		})
	}
}

func (sg *SchemaGenerator) buildQuery(snapshot *schema.Snapshot, ss *snapshotSchema) *graphql.Object {
	fields := graphql.Fields{}
	resolve := sg.queryFieldResolver(snapshot)

	for _, name := range snapshot.EntityNames() {
		fields[name] = &graphql.Field{
			Type: ss.resultSelectTypes[name],
			Args: graphql.FieldConfigArgument{
				"filter":  {Type: ss.entityFilterTypes[name]},
				"orderBy": {Type: graphql.NewList(ss.orderEnums[name])},
				"options": {Type: inputQueryOptions},
			},
			Resolve: resolve,
		}
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name:   "Query",
		Fields: fields,
	})
}

func (sg *SchemaGenerator) buildMutation(snapshot *schema.Snapshot, ss *snapshotSchema) *graphql.Object {
	fields := graphql.Fields{}
	resolve := sg.mutationFieldResolver(snapshot, ss)

	for _, name := range snapshot.EntityNames() {
		typeName := sg.naming.ToExposedType(name)

		fields[insertPrefix+typeName] = &graphql.Field{
			Type: ss.resultModificationTypes[name],
			Args: graphql.FieldConfigArgument{
				"value": {Type: graphql.NewNonNull(ss.entityInputTypes[name])},
			},
			Resolve: resolve,
		}

		fields[updatePrefix+typeName] = &graphql.Field{
			Type: ss.resultModificationTypes[name],
			Args: graphql.FieldConfigArgument{
				"value":  {Type: graphql.NewNonNull(ss.entityInputTypes[name])},
				"filter": {Type: graphql.NewNonNull(ss.entityFilterTypes[name])},
			},
			Resolve: resolve,
		}

		fields[deletePrefix+typeName] = &graphql.Field{
			Type: ss.resultModificationTypes[name],
			Args: graphql.FieldConfigArgument{
				"filter": {Type: graphql.NewNonNull(ss.entityFilterTypes[name])},
			},
			Resolve: resolve,
		}
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name:   "Mutation",
		Fields: fields,
	})
}
