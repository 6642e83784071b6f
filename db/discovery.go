package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/datastax/sql-data-gateway/config"
	"github.com/datastax/sql-data-gateway/schema"
)

// Discovery reads the backend's own metadata catalog and combines it with
// the declarative configuration into an immutable snapshot. It runs at
// startup (and on the refresh interval); an entity configured against a
// missing object is fatal, the gateway refuses to serve inconsistently.

const (
	postgresColumnsQuery = `
		SELECT column_name, data_type, is_nullable, column_default, is_identity
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`

	postgresPrimaryKeyQuery = `
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY kcu.ordinal_position`

	mysqlColumnsQuery = `
		SELECT column_name, data_type, is_nullable, column_default, extra
		FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE()) AND table_name = ?
		ORDER BY ordinal_position`

	mysqlPrimaryKeyQuery = `
		SELECT column_name
		FROM information_schema.key_column_usage
		WHERE constraint_name = 'PRIMARY'
			AND table_schema = COALESCE(NULLIF(?, ''), DATABASE()) AND table_name = ?
		ORDER BY ordinal_position`
)

// Discover builds the metadata snapshot for the configured entities.
func (db *Db) Discover(ctx context.Context, runtime *config.RuntimeConfig, naming config.NamingConvention) (*schema.Snapshot, error) {
	entities := make([]*schema.Entity, 0, len(runtime.Entities))

	for name, entityConfig := range runtime.Entities {
		source := sourceFromConfig(db.backend, name, entityConfig.Source, naming)

		columns, primaryKey, err := db.describeObject(ctx, source)
		if err != nil {
			return nil, fmt.Errorf("discovering entity '%s': %w", name, err)
		}
		if len(columns) == 0 {
			return nil, fmt.Errorf("entity '%s' is mapped to '%s' which does not exist", name, source.Object)
		}
		// Views expose no primary key in the catalog; key-fields fill the gap
		if len(primaryKey) == 0 {
			primaryKey = entityConfig.Source.KeyFields
		}

		entity, err := schema.NewEntity(schema.EntityInfo{
			Name:          name,
			Source:        source,
			Columns:       columns,
			PrimaryKey:    primaryKey,
			Mappings:      entityConfig.Mappings,
			Relationships: relationshipsFromConfig(entityConfig.Relationships),
			Permissions:   permissionsFromConfig(entityConfig.Permissions),
		}, naming)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}

	return schema.NewSnapshot(entities...)
}

func sourceFromConfig(backend string, entityName string, sourceConfig config.SourceConfig, naming config.NamingConvention) schema.Source {
	sourceSchema := sourceConfig.Schema
	if sourceSchema == "" && backend == "postgresql" {
		sourceSchema = "public"
	}
	object := sourceConfig.Object
	if object == "" {
		object = naming.ToBackingObject(entityName)
	}
	kind := schema.SourceTable
	switch sourceConfig.Kind {
	case "view":
		kind = schema.SourceView
	case "stored-procedure":
		kind = schema.SourceStoredProcedure
	}
	return schema.Source{Schema: sourceSchema, Object: object, Kind: kind}
}

func (db *Db) describeObject(ctx context.Context, source schema.Source) ([]schema.Column, []string, error) {
	switch db.backend {
	case "postgresql":
		return db.describeWithCatalog(ctx, source, postgresColumnsQuery, postgresPrimaryKeyQuery)
	case "mysql":
		return db.describeWithCatalog(ctx, source, mysqlColumnsQuery, mysqlPrimaryKeyQuery)
	case "sqlite":
		return db.describeSqliteObject(ctx, source)
	default:
		return nil, nil, fmt.Errorf("unsupported backend: %s", db.backend)
	}
}

func (db *Db) describeWithCatalog(ctx context.Context, source schema.Source, columnsQuery string, pkQuery string) ([]schema.Column, []string, error) {
	rows, err := db.conn.QueryContext(ctx, columnsQuery, source.Schema, source.Object)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var name, dataType, isNullable string
		var columnDefault, generated *string
		if err := rows.Scan(&name, &dataType, &isNullable, &columnDefault, &generated); err != nil {
			return nil, nil, err
		}
		columns = append(columns, schema.Column{
			Name:       name,
			Type:       mapDatabaseType(dataType),
			Nullable:   strings.EqualFold(isNullable, "YES"),
			HasDefault: columnDefault != nil,
			ReadOnly:   isGeneratedColumn(generated),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	pkRows, err := db.conn.QueryContext(ctx, pkQuery, source.Schema, source.Object)
	if err != nil {
		return nil, nil, err
	}
	defer pkRows.Close()

	var primaryKey []string
	for pkRows.Next() {
		var name string
		if err := pkRows.Scan(&name); err != nil {
			return nil, nil, err
		}
		primaryKey = append(primaryKey, name)
	}
	return columns, primaryKey, pkRows.Err()
}

func (db *Db) describeSqliteObject(ctx context.Context, source schema.Source) ([]schema.Column, []string, error) {
	rows, err := db.conn.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%q)", source.Object))
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var columns []schema.Column
	var primaryKey []string
	for rows.Next() {
		var cid, notNull, pkPosition int
		var name, dataType string
		var defaultValue *string
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pkPosition); err != nil {
			return nil, nil, err
		}
		columns = append(columns, schema.Column{
			Name:       name,
			Type:       mapDatabaseType(dataType),
			Nullable:   notNull == 0,
			HasDefault: defaultValue != nil,
		})
		if pkPosition > 0 {
			primaryKey = append(primaryKey, name)
		}
	}
	return columns, primaryKey, rows.Err()
}

func isGeneratedColumn(marker *string) bool {
	if marker == nil {
		return false
	}
	value := strings.ToLower(*marker)
	return value == "yes" || strings.Contains(value, "auto_increment") || strings.Contains(value, "generated")
}

// mapDatabaseType maps a catalog type name to the gateway scalar type.
func mapDatabaseType(dataType string) schema.ColumnType {
	normalized := strings.ToLower(strings.TrimSpace(dataType))
	if index := strings.IndexByte(normalized, '('); index > 0 {
		normalized = normalized[:index]
	}

	switch normalized {
	case "smallint", "int", "integer", "int2", "int4", "mediumint", "tinyint":
		return schema.TypeInt
	case "bigint", "int8":
		return schema.TypeBigInt
	case "real", "float", "double", "double precision", "float4", "float8":
		return schema.TypeFloat
	case "numeric", "decimal":
		return schema.TypeDecimal
	case "boolean", "bool":
		return schema.TypeBoolean
	case "date", "datetime", "timestamp", "timestamp with time zone", "timestamp without time zone":
		return schema.TypeDateTime
	case "uuid":
		return schema.TypeUUID
	case "bytea", "blob", "binary", "varbinary":
		return schema.TypeBytes
	default:
		return schema.TypeString
	}
}

func relationshipsFromConfig(configs map[string]config.RelationshipConfig) map[string]schema.Relationship {
	relationships := make(map[string]schema.Relationship, len(configs))
	for name, relationship := range configs {
		cardinality := schema.CardinalityOne
		if relationship.Cardinality == "many" {
			cardinality = schema.CardinalityMany
		}
		relationships[name] = schema.Relationship{
			Target:              relationship.Target,
			Cardinality:         cardinality,
			SourceFields:        relationship.SourceFields,
			TargetFields:        relationship.TargetFields,
			LinkingObject:       relationship.LinkingObject,
			LinkingSourceFields: relationship.LinkingSourceFields,
			LinkingTargetFields: relationship.LinkingTargetFields,
		}
	}
	return relationships
}

func permissionsFromConfig(configs []config.PermissionConfig) []schema.RolePermission {
	permissions := make([]schema.RolePermission, 0, len(configs))
	for _, permission := range configs {
		actions := make(map[schema.Action]schema.ActionPermission, len(permission.Actions))
		for _, actionConfig := range permission.Actions {
			actionPermission := schema.ActionPermission{
				Columns: actionConfig.Columns,
				Policy:  actionConfig.Policy,
			}
			if actionConfig.Action == "*" {
				for _, action := range []schema.Action{
					schema.ActionCreate, schema.ActionRead, schema.ActionUpdate, schema.ActionDelete,
				} {
					actions[action] = actionPermission
				}
				continue
			}
			actions[schema.Action(actionConfig.Action)] = actionPermission
		}
		permissions = append(permissions, schema.RolePermission{Role: permission.Role, Actions: actions})
	}
	return permissions
}
