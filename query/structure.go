package query

import (
	"fmt"
	"net/http"

	"github.com/datastax/sql-data-gateway/schema"
)

type ProjectedColumn struct {
	Exposed string
	Backing string
}

type JoinColumnPair struct {
	// JoinColumn belongs to the joined object, BaseColumn to the
	// statement's target object
	JoinColumn string
	BaseColumn string
}

type Join struct {
	Source schema.Source
	On     []JoinColumnPair
}

// SelectStructure is the backend-agnostic shape of a SELECT statement,
// consumed by the per-backend SQL generators.
type SelectStructure struct {
	Source      schema.Source
	Projections []ProjectedColumn
	// ExtraColumns are backing columns fetched beyond the projection so the
	// continuation token can be built from every order-by column; AdaptRow
	// never copies them into the response.
	ExtraColumns []string
	Joins        []Join
	Predicate    *Predicate
	OrderBy      []OrderColumn
	Limit        int
}

// AdaptRow renames a result row from backing column names to the exposed
// field names of the projection.
func (s *SelectStructure) AdaptRow(row map[string]interface{}) map[string]interface{} {
	adapted := make(map[string]interface{}, len(s.Projections))
	for _, projection := range s.Projections {
		if value, found := row[projection.Backing]; found {
			adapted[projection.Exposed] = value
		}
	}
	return adapted
}

// AdaptRows applies AdaptRow to a page of rows.
func (s *SelectStructure) AdaptRows(rows []map[string]interface{}) []map[string]interface{} {
	adapted := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		adapted = append(adapted, s.AdaptRow(row))
	}
	return adapted
}

type InsertStructure struct {
	Source  schema.Source
	Columns []string
	Values  []interface{}
}

type UpdateStructure struct {
	Source    schema.Source
	Columns   []string
	Values    []interface{}
	Predicate *Predicate
}

type DeleteStructure struct {
	Source    schema.Source
	Predicate *Predicate
}

// BuildSelect assembles the SELECT structure for an entity. Every requested
// exposed column must resolve to a backing column; an empty request
// projects all columns.
func BuildSelect(entity *schema.Entity, projected []string, predicate *Predicate, spec *PageSpec) (*SelectStructure, error) {
	if len(projected) == 0 {
		projected = entity.ExposedColumns()
	}

	projections := make([]ProjectedColumn, 0, len(projected))
	for _, exposed := range projected {
		backing, found := entity.BackingColumn(exposed)
		if !found {
			return nil, NewInvalidProjectionError(exposed)
		}
		projections = append(projections, ProjectedColumn{Exposed: exposed, Backing: backing})
	}

	structure := &SelectStructure{
		Source:      entity.Source,
		Projections: projections,
		Predicate:   predicate,
	}
	if spec != nil {
		structure.OrderBy = spec.OrderBy
		structure.Limit = spec.Limit

		selected := make(map[string]bool, len(projections))
		for _, projection := range projections {
			selected[projection.Backing] = true
		}
		for _, order := range spec.OrderBy {
			if !selected[order.ColumnName] {
				structure.ExtraColumns = append(structure.ExtraColumns, order.ColumnName)
			}
		}
	}
	return structure, nil
}

// BuildInsert resolves and type-checks a mutation payload keyed by exposed
// field names. Read-only (identity/computed) columns cannot be written.
func BuildInsert(entity *schema.Entity, role string, values map[string]interface{}) (*InsertStructure, error) {
	columns, params, err := resolveWriteValues(entity, role, schema.ActionCreate, values)
	if err != nil {
		return nil, err
	}
	return &InsertStructure{Source: entity.Source, Columns: columns, Values: params}, nil
}

func BuildUpdate(entity *schema.Entity, role string, values map[string]interface{}, predicate *Predicate) (*UpdateStructure, error) {
	columns, params, err := resolveWriteValues(entity, role, schema.ActionUpdate, values)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &Error{
			Kind:    ErrFieldResolution,
			Status:  http.StatusBadRequest,
			Message: "Update payload must include at least one column to update",
		}
	}
	return &UpdateStructure{Source: entity.Source, Columns: columns, Values: params, Predicate: predicate}, nil
}

func BuildDelete(entity *schema.Entity, predicate *Predicate) *DeleteStructure {
	return &DeleteStructure{Source: entity.Source, Predicate: predicate}
}

// resolveWriteValues walks the entity's declared column order so generated
// statements are deterministic regardless of payload map iteration.
func resolveWriteValues(entity *schema.Entity, role string, action schema.Action, values map[string]interface{}) ([]string, []interface{}, error) {
	for exposed := range values {
		backing, found := entity.BackingColumn(exposed)
		if !found {
			return nil, nil, NewFieldNotFoundError(exposed, entity.Name)
		}
		column, _ := entity.Column(backing)
		if column.ReadOnly {
			return nil, nil, &Error{
				Kind:    ErrFieldResolution,
				Status:  http.StatusBadRequest,
				Message: fmt.Sprintf("Field '%s' cannot be included in the mutation payload", exposed),
				Detail:  fmt.Sprintf("column '%s' is read-only", backing),
			}
		}
		if !entity.ColumnAllowed(role, action, backing) {
			return nil, nil, NewFieldAuthorizationError(exposed)
		}
	}

	columns := make([]string, 0, len(values))
	params := make([]interface{}, 0, len(values))
	for _, column := range entity.Columns {
		exposed, _ := entity.ExposedColumn(column.Name)
		raw, present := values[exposed]
		if !present {
			continue
		}
		value, castErr := schema.Cast(raw, column.Type)
		if castErr != nil {
			return nil, nil, NewTypeCastError(raw, column.Name, column.Type)
		}
		columns = append(columns, column.Name)
		params = append(params, value)
	}
	return columns, params, nil
}

// BuildPrimaryKeyPredicate casts textual route segments into the primary
// key columns' types. A crafted segment that cannot be cast fails here;
// values never reach statement text uncast.
func BuildPrimaryKeyPredicate(entity *schema.Entity, segments map[string]string) (*Predicate, error) {
	if len(segments) != len(entity.PrimaryKey) {
		return nil, NewPaginationErrorf("Primary key route requires %d value(s), got %d",
			len(entity.PrimaryKey), len(segments))
	}
	conjuncts := make([]*Predicate, 0, len(entity.PrimaryKey))
	for _, pkColumn := range entity.PrimaryKey {
		exposed, _ := entity.ExposedColumn(pkColumn)
		raw, present := segments[exposed]
		if !present {
			return nil, NewFieldNotFoundError(exposed, entity.Name)
		}
		column, _ := entity.Column(pkColumn)
		value, err := schema.CastString(raw, column.Type)
		if err != nil {
			return nil, NewTypeCastError(raw, pkColumn, column.Type)
		}
		conjuncts = append(conjuncts, Compare(pkColumn, OpEqual, value))
	}
	return And(conjuncts...), nil
}

// BuildRelationshipSelect assembles the SELECT retrieving the rows of a
// named relationship for one parent row. Direct relationships filter the
// target by the join fields; linking-object relationships join through the
// intermediate table.
func BuildRelationshipSelect(
	snapshot *schema.Snapshot,
	parent *schema.Entity,
	relationshipName string,
	parentRow map[string]interface{},
	projected []string,
	spec *PageSpec,
) (*SelectStructure, error) {
	relationship, found := parent.Relationships[relationshipName]
	if !found {
		return nil, NewFieldNotFoundError(relationshipName, parent.Name)
	}
	target, found := snapshot.Entity(relationship.Target)
	if !found {
		return nil, NewConfigurationError(
			fmt.Sprintf("relationship '%s' targets unknown entity '%s'", relationshipName, relationship.Target))
	}

	structure, err := BuildSelect(target, projected, nil, spec)
	if err != nil {
		return nil, err
	}

	if relationship.LinkingObject == "" {
		conjuncts := make([]*Predicate, 0, len(relationship.SourceFields))
		for i, sourceField := range relationship.SourceFields {
			value, present := parentRow[sourceField]
			if !present {
				return nil, NewConfigurationError(
					fmt.Sprintf("relationship '%s' source column '%s' missing from parent row", relationshipName, sourceField))
			}
			conjuncts = append(conjuncts, Compare(relationship.TargetFields[i], OpEqual, value))
		}
		structure.Predicate = And(conjuncts...)
		return structure, nil
	}

	// Many-to-many: join the linking object against the target's join
	// fields and filter the linking side by the parent's values.
	on := make([]JoinColumnPair, 0, len(relationship.LinkingTargetFields))
	for i, linkingColumn := range relationship.LinkingTargetFields {
		on = append(on, JoinColumnPair{JoinColumn: linkingColumn, BaseColumn: relationship.TargetFields[i]})
	}
	structure.Joins = []Join{{
		Source: schema.Source{Schema: parent.Source.Schema, Object: relationship.LinkingObject},
		On:     on,
	}}

	conjuncts := make([]*Predicate, 0, len(relationship.LinkingSourceFields))
	for i, linkingColumn := range relationship.LinkingSourceFields {
		sourceField := relationship.SourceFields[i]
		value, present := parentRow[sourceField]
		if !present {
			return nil, NewConfigurationError(
				fmt.Sprintf("relationship '%s' source column '%s' missing from parent row", relationshipName, sourceField))
		}
		conjuncts = append(conjuncts, CompareQualified(relationship.LinkingObject, linkingColumn, OpEqual, value))
	}
	structure.Predicate = And(conjuncts...)
	return structure, nil
}
