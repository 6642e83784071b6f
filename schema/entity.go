package schema

import (
	"fmt"

	"github.com/datastax/sql-data-gateway/config"
)

type SourceKind int

const (
	SourceTable SourceKind = iota
	SourceView
	SourceStoredProcedure
)

// Source identifies the database object an entity is mapped to.
type Source struct {
	Schema string
	Object string
	Kind   SourceKind
}

type Column struct {
	Name       string
	Type       ColumnType
	Nullable   bool
	HasDefault bool
	// ReadOnly marks identity/computed columns that are excluded from writes
	ReadOnly bool
}

type Cardinality int

const (
	CardinalityOne Cardinality = iota
	CardinalityMany
)

// Relationship describes how an entity joins to a target entity, either
// directly through source/target fields or through a linking object.
type Relationship struct {
	Target              string
	Cardinality         Cardinality
	SourceFields        []string
	TargetFields        []string
	LinkingObject       string
	LinkingSourceFields []string
	LinkingTargetFields []string
}

type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ActionPermission holds the column allow-list (nil means every column)
// and the optional row-level policy expression for one role and action.
type ActionPermission struct {
	Columns []string
	Policy  string
}

type RolePermission struct {
	Role    string
	Actions map[Action]ActionPermission
}

// EntityInfo is the raw material for building an Entity, combining the
// declarative configuration with the discovered database metadata.
type EntityInfo struct {
	Name          string
	Source        Source
	Columns       []Column
	PrimaryKey    []string
	Mappings      map[string]string
	Relationships map[string]Relationship
	Permissions   []RolePermission
}

// Entity is the immutable per-request view of one configured resource.
type Entity struct {
	Name          string
	Source        Source
	Columns       []Column
	PrimaryKey    []string
	Relationships map[string]Relationship

	columnIndex      map[string]int
	exposedToBacking map[string]string
	backingToExposed map[string]string
	permissions      map[string]map[Action]ActionPermission
}

// NewEntity validates the configured mappings against the column set and
// builds the exposed<->backing name indexes. Columns without an explicit
// mapping get an exposed name from the naming convention.
func NewEntity(info EntityInfo, naming config.NamingConvention) (*Entity, error) {
	if len(info.Columns) == 0 {
		return nil, fmt.Errorf("entity '%s' has no columns", info.Name)
	}

	columnIndex := make(map[string]int, len(info.Columns))
	for i, column := range info.Columns {
		if _, found := columnIndex[column.Name]; found {
			return nil, fmt.Errorf("entity '%s' declares column '%s' more than once", info.Name, column.Name)
		}
		columnIndex[column.Name] = i
	}

	for _, pkColumn := range info.PrimaryKey {
		if _, found := columnIndex[pkColumn]; !found {
			return nil, fmt.Errorf("entity '%s' primary key column '%s' not found", info.Name, pkColumn)
		}
	}
	if len(info.PrimaryKey) == 0 && info.Source.Kind == SourceTable {
		return nil, fmt.Errorf("entity '%s' has no primary key", info.Name)
	}

	exposedToBacking := make(map[string]string, len(info.Columns))
	backingToExposed := make(map[string]string, len(info.Columns))

	for exposed, backing := range info.Mappings {
		if _, found := columnIndex[backing]; !found {
			return nil, fmt.Errorf("entity '%s' maps '%s' to unknown column '%s'", info.Name, exposed, backing)
		}
		if _, found := backingToExposed[backing]; found {
			return nil, fmt.Errorf("entity '%s' maps column '%s' more than once", info.Name, backing)
		}
		exposedToBacking[exposed] = backing
		backingToExposed[backing] = exposed
	}

	for _, column := range info.Columns {
		if _, mapped := backingToExposed[column.Name]; mapped {
			continue
		}
		exposed := naming.ToExposedField(column.Name)
		if _, taken := exposedToBacking[exposed]; taken {
			return nil, fmt.Errorf("entity '%s' exposed name '%s' is ambiguous", info.Name, exposed)
		}
		exposedToBacking[exposed] = column.Name
		backingToExposed[column.Name] = exposed
	}

	permissions := make(map[string]map[Action]ActionPermission, len(info.Permissions))
	for _, rolePermission := range info.Permissions {
		actions := make(map[Action]ActionPermission, len(rolePermission.Actions))
		for action, permission := range rolePermission.Actions {
			for _, column := range permission.Columns {
				if _, found := columnIndex[column]; !found {
					return nil, fmt.Errorf(
						"entity '%s' permission for role '%s' references unknown column '%s'",
						info.Name, rolePermission.Role, column)
				}
			}
			actions[action] = permission
		}
		permissions[rolePermission.Role] = actions
	}

	relationships := make(map[string]Relationship, len(info.Relationships))
	for name, relationship := range info.Relationships {
		relationships[name] = relationship
	}

	return &Entity{
		Name:             info.Name,
		Source:           info.Source,
		Columns:          info.Columns,
		PrimaryKey:       info.PrimaryKey,
		Relationships:    relationships,
		columnIndex:      columnIndex,
		exposedToBacking: exposedToBacking,
		backingToExposed: backingToExposed,
		permissions:      permissions,
	}, nil
}

// Column returns the definition of a backing column.
func (e *Entity) Column(backing string) (Column, bool) {
	index, found := e.columnIndex[backing]
	if !found {
		return Column{}, false
	}
	return e.Columns[index], true
}

// BackingColumn resolves an exposed field name to its backing column name.
func (e *Entity) BackingColumn(exposed string) (string, bool) {
	backing, found := e.exposedToBacking[exposed]
	return backing, found
}

// ExposedColumn resolves a backing column name to its exposed field name.
func (e *Entity) ExposedColumn(backing string) (string, bool) {
	exposed, found := e.backingToExposed[backing]
	return exposed, found
}

// ExposedColumns returns the exposed field names in declared column order.
func (e *Entity) ExposedColumns() []string {
	names := make([]string, 0, len(e.Columns))
	for _, column := range e.Columns {
		names = append(names, e.backingToExposed[column.Name])
	}
	return names
}

func (e *Entity) IsPrimaryKey(backing string) bool {
	for _, pkColumn := range e.PrimaryKey {
		if pkColumn == backing {
			return true
		}
	}
	return false
}

// HasPermission reports whether the role is granted the action at all.
func (e *Entity) HasPermission(role string, action Action) bool {
	actions, found := e.permissions[role]
	if !found {
		return false
	}
	_, found = actions[action]
	return found
}

// AllowedColumns returns the backing column allow-list for a role and
// action. A nil slice with found=true means every column is allowed.
func (e *Entity) AllowedColumns(role string, action Action) ([]string, bool) {
	actions, found := e.permissions[role]
	if !found {
		return nil, false
	}
	permission, found := actions[action]
	if !found {
		return nil, false
	}
	return permission.Columns, true
}

// ColumnAllowed reports whether the role may use the backing column for
// the action. Field-level checks do not apply to delete.
func (e *Entity) ColumnAllowed(role string, action Action, backing string) bool {
	if action == ActionDelete {
		return e.HasPermission(role, action)
	}
	allowed, found := e.AllowedColumns(role, action)
	if !found {
		return false
	}
	if allowed == nil {
		return true
	}
	for _, column := range allowed {
		if column == backing {
			return true
		}
	}
	return false
}

// Policy returns the row-level policy expression for a role and action,
// or an empty string when no policy is configured.
func (e *Entity) Policy(role string, action Action) string {
	actions, found := e.permissions[role]
	if !found {
		return ""
	}
	return actions[action].Policy
}
