package graphql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/graphql-go/graphql"
	"github.com/mitchellh/mapstructure"

	"github.com/datastax/sql-data-gateway/auth"
	"github.com/datastax/sql-data-gateway/config"
	"github.com/datastax/sql-data-gateway/query"
	"github.com/datastax/sql-data-gateway/schema"
	"github.com/datastax/sql-data-gateway/types"
)

const defaultPageSize = 100

// filterOperatorOrder fixes the conjunct order so generated statements are
// deterministic regardless of argument map iteration.
var filterOperatorOrder = []string{"eq", "ne", "gt", "ge", "lt", "le"}

func (sg *SchemaGenerator) queryFieldResolver(snapshot *schema.Snapshot) graphql.FieldResolveFn {
	return func(params graphql.ResolveParams) (interface{}, error) {
		if !sg.supportedOps.IsSupported(config.EntityRead) {
			return nil, fmt.Errorf("read operations are not supported")
		}
		entity, found := snapshot.Entity(params.Info.FieldName)
		if !found {
			return nil, fmt.Errorf("unable to find entity '%s'", params.Info.FieldName)
		}

		result, err := sg.resolveSelect(params.Context, entity, params.Args)
		return result, sg.sanitizeError(err)
	}
}

func (sg *SchemaGenerator) resolveSelect(
	ctx context.Context, entity *schema.Entity, args map[string]interface{},
) (*types.QueryResult, error) {
	role := auth.ContextRole(ctx)
	claims := auth.ContextClaims(ctx)

	projected, err := query.FilterAllowedColumns(entity, role, schema.ActionRead, nil)
	if err != nil {
		return nil, err
	}

	filter, err := adaptFilter(entity, role, schema.ActionRead, args["filter"])
	if err != nil {
		return nil, err
	}

	policy, err := query.RowPolicy(entity, role, schema.ActionRead, claims)
	if err != nil {
		return nil, err
	}

	orderBy, err := adaptOrderBy(args["orderBy"])
	if err != nil {
		return nil, err
	}

	var options types.QueryOptions
	if rawOptions, found := args["options"]; found {
		if err := mapstructure.Decode(rawOptions, &options); err != nil {
			return nil, fmt.Errorf("invalid query options: %s", err)
		}
	}
	if options.First == 0 {
		options.First = defaultPageSize
	}

	spec, err := query.BuildPageSpec(entity, orderBy, options.First, options.After)
	if err != nil {
		return nil, err
	}

	combined := query.And(query.CombinePolicy(filter, policy), spec.After)
	structure, err := query.BuildSelect(entity, projected, combined, spec)
	if err != nil {
		return nil, err
	}

	rows, err := sg.dbClient.Select(ctx, structure)
	if err != nil {
		sg.logger.Error("select failed", "entity", entity.Name, "error", err)
		return nil, err
	}

	page, token, hasNext, err := query.CompletePage(rows, spec.First, spec.OrderBy)
	if err != nil {
		return nil, err
	}

	return &types.QueryResult{
		After:       token,
		HasNextPage: hasNext,
		Values:      structure.AdaptRows(page),
	}, nil
}

func (sg *SchemaGenerator) mutationFieldResolver(snapshot *schema.Snapshot, ss *snapshotSchema) graphql.FieldResolveFn {
	return func(params graphql.ResolveParams) (interface{}, error) {
		operation, typeName := mutationPrefix(params.Info.FieldName)
		entityName, found := ss.entityByTypeName[typeName]
		if !found {
			return nil, fmt.Errorf("unable to find entity for type name '%s'", typeName)
		}
		entity, _ := snapshot.Entity(entityName)

		result, err := sg.resolveMutation(params.Context, entity, operation, params.Args)
		return result, sg.sanitizeError(err)
	}
}

func (sg *SchemaGenerator) resolveMutation(
	ctx context.Context, entity *schema.Entity, operation string, args map[string]interface{},
) (*types.ModificationResult, error) {
	role := auth.ContextRole(ctx)
	claims := auth.ContextClaims(ctx)

	switch operation {
	case insertPrefix:
		if !sg.supportedOps.IsSupported(config.EntityCreate) {
			return nil, fmt.Errorf("create operations are not supported")
		}
		values, _ := args["value"].(map[string]interface{})
		structure, err := query.BuildInsert(entity, role, values)
		if err != nil {
			return nil, err
		}
		result, err := sg.dbClient.Insert(ctx, structure)
		if err != nil {
			return nil, err
		}
		result.Value = values
		return result, nil

	case updatePrefix:
		if !sg.supportedOps.IsSupported(config.EntityUpdate) {
			return nil, fmt.Errorf("update operations are not supported")
		}
		filter, err := adaptFilter(entity, role, schema.ActionUpdate, args["filter"])
		if err != nil {
			return nil, err
		}
		policy, err := query.RowPolicy(entity, role, schema.ActionUpdate, claims)
		if err != nil {
			return nil, err
		}
		values, _ := args["value"].(map[string]interface{})
		structure, err := query.BuildUpdate(entity, role, values, query.CombinePolicy(filter, policy))
		if err != nil {
			return nil, err
		}
		result, err := sg.dbClient.Update(ctx, structure)
		if err != nil {
			return nil, err
		}
		result.Value = values
		return result, nil

	case deletePrefix:
		if !sg.supportedOps.IsSupported(config.EntityDelete) {
			return nil, fmt.Errorf("delete operations are not supported")
		}
		filter, err := adaptFilter(entity, role, schema.ActionDelete, args["filter"])
		if err != nil {
			return nil, err
		}
		policy, err := query.RowPolicy(entity, role, schema.ActionDelete, claims)
		if err != nil {
			return nil, err
		}
		return sg.dbClient.Delete(ctx, query.BuildDelete(entity, query.CombinePolicy(filter, policy)))
	}

	return nil, fmt.Errorf("operation '%s' not supported", operation)
}

// adaptFilter converts the filter argument into a predicate, walking the
// entity's declared column order.
func adaptFilter(entity *schema.Entity, role string, action schema.Action, rawFilter interface{}) (*query.Predicate, error) {
	filter, _ := rawFilter.(map[string]interface{})
	if len(filter) == 0 {
		return nil, nil
	}

	conjuncts := make([]*query.Predicate, 0, len(filter))
	for _, column := range entity.Columns {
		exposed, _ := entity.ExposedColumn(column.Name)
		rawOperators, present := filter[exposed]
		if !present {
			continue
		}
		if action != schema.ActionDelete && !entity.ColumnAllowed(role, action, column.Name) {
			return nil, query.NewFieldAuthorizationError(exposed)
		}

		operators, _ := rawOperators.(map[string]interface{})
		for _, name := range filterOperatorOrder {
			rawValue, present := operators[name]
			if !present {
				continue
			}
			value, castErr := schema.Cast(rawValue, column.Type)
			if castErr != nil {
				return nil, query.NewBinaryTypeError(column.Name, column.Type, rawValue)
			}
			conjuncts = append(conjuncts, query.Compare(column.Name, filterOperators[name], value))
		}
	}
	return query.And(conjuncts...), nil
}

// adaptOrderBy parses order enum values of the form "field_ASC"/"field_DESC".
func adaptOrderBy(rawOrderBy interface{}) ([]query.OrderByItem, error) {
	rawItems, _ := rawOrderBy.([]interface{})
	if len(rawItems) == 0 {
		return nil, nil
	}

	items := make([]query.OrderByItem, 0, len(rawItems))
	for _, rawItem := range rawItems {
		value, _ := rawItem.(string)
		index := strings.LastIndex(value, "_")
		if index <= 0 {
			return nil, fmt.Errorf("invalid order value '%s'", value)
		}
		direction := query.Ascending
		if value[index+1:] == "DESC" {
			direction = query.Descending
		}
		items = append(items, query.OrderByItem{Field: value[:index], Direction: direction})
	}
	return items, nil
}

// sanitizeError strips internal detail from translation errors outside of
// development mode.
func (sg *SchemaGenerator) sanitizeError(err error) error {
	if err == nil {
		return nil
	}
	var translationError *query.Error
	if errors.As(err, &translationError) {
		return errors.New(translationError.PublicMessage(sg.development))
	}
	if sg.development {
		return err
	}
	return errors.New("internal error processing the request")
}

func mutationPrefix(value string) (string, string) {
	mutationPrefixes := []string{insertPrefix, deletePrefix, updatePrefix}

	for _, prefix := range mutationPrefixes {
		if strings.Index(value, prefix) == 0 {
			return prefix, value[len(prefix):]
		}
	}

	return "", value
}
