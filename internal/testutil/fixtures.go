// Package testutil holds shared fixtures for unit tests: a small library
// catalog with entities, relationships and permissions covering the
// translation layer's features.
package testutil

import (
	"github.com/datastax/sql-data-gateway/config"
	"github.com/datastax/sql-data-gateway/schema"
)

// BooksEntity returns the books fixture: integer primary key, a decimal
// price, a read-only version column, per-role permissions and an owner
// policy referencing a claim.
func BooksEntity() *schema.Entity {
	entity, err := schema.NewEntity(schema.EntityInfo{
		Name: "books",
		Source: schema.Source{
			Schema: "public",
			Object: "books",
			Kind:   schema.SourceTable,
		},
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInt},
			{Name: "title", Type: schema.TypeString},
			{Name: "publisher_id", Type: schema.TypeInt},
			{Name: "author_id", Type: schema.TypeInt},
			{Name: "price", Type: schema.TypeDecimal, Nullable: true},
			{Name: "row_version", Type: schema.TypeInt, ReadOnly: true},
		},
		PrimaryKey: []string{"id"},
		Relationships: map[string]schema.Relationship{
			"author": {
				Target:       "authors",
				Cardinality:  schema.CardinalityOne,
				SourceFields: []string{"author_id"},
				TargetFields: []string{"id"},
			},
			"categories": {
				Target:              "categories",
				Cardinality:         schema.CardinalityMany,
				SourceFields:        []string{"id"},
				TargetFields:        []string{"id"},
				LinkingObject:       "book_categories",
				LinkingSourceFields: []string{"book_id"},
				LinkingTargetFields: []string{"category_id"},
			},
		},
		Permissions: []schema.RolePermission{
			{
				Role: "anonymous",
				Actions: map[schema.Action]schema.ActionPermission{
					schema.ActionRead: {},
				},
			},
			{
				Role: "restricted",
				Actions: map[schema.Action]schema.ActionPermission{
					schema.ActionRead: {Columns: []string{"id", "title"}},
				},
			},
			{
				Role: "writer",
				Actions: map[schema.Action]schema.ActionPermission{
					schema.ActionCreate: {},
					schema.ActionRead:   {},
					schema.ActionUpdate: {},
					schema.ActionDelete: {},
				},
			},
			{
				Role: "owner",
				Actions: map[schema.Action]schema.ActionPermission{
					schema.ActionRead:   {Policy: "authorId eq @claims.sub"},
					schema.ActionUpdate: {Policy: "authorId eq @claims.sub"},
					schema.ActionDelete: {Policy: "authorId eq @claims.sub"},
				},
			},
		},
	}, config.NewDefaultNaming())
	if err != nil {
		panic(err)
	}
	return entity
}

// AuthorsEntity returns the relationship target for the books fixture.
func AuthorsEntity() *schema.Entity {
	entity, err := schema.NewEntity(schema.EntityInfo{
		Name: "authors",
		Source: schema.Source{
			Schema: "public",
			Object: "authors",
			Kind:   schema.SourceTable,
		},
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInt},
			{Name: "name", Type: schema.TypeString},
		},
		PrimaryKey: []string{"id"},
		Permissions: []schema.RolePermission{
			{
				Role: "anonymous",
				Actions: map[schema.Action]schema.ActionPermission{
					schema.ActionRead: {},
				},
			},
		},
	}, config.NewDefaultNaming())
	if err != nil {
		panic(err)
	}
	return entity
}

// CategoriesEntity returns the many-to-many target for the books fixture.
func CategoriesEntity() *schema.Entity {
	entity, err := schema.NewEntity(schema.EntityInfo{
		Name: "categories",
		Source: schema.Source{
			Schema: "public",
			Object: "categories",
			Kind:   schema.SourceTable,
		},
		Columns: []schema.Column{
			{Name: "id", Type: schema.TypeInt},
			{Name: "name", Type: schema.TypeString},
		},
		PrimaryKey: []string{"id"},
		Permissions: []schema.RolePermission{
			{
				Role: "anonymous",
				Actions: map[schema.Action]schema.ActionPermission{
					schema.ActionRead: {},
				},
			},
		},
	}, config.NewDefaultNaming())
	if err != nil {
		panic(err)
	}
	return entity
}

// LibrarySnapshot builds the complete fixture snapshot.
func LibrarySnapshot() *schema.Snapshot {
	snapshot, err := schema.NewSnapshot(BooksEntity(), AuthorsEntity(), CategoriesEntity())
	if err != nil {
		panic(err)
	}
	return snapshot
}

// BookRows returns five books keyed by backing column name, ids 1 through 5,
// with publisher ids that produce ordering ties.
func BookRows() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": 1, "title": "A Trip to the Moon", "publisher_id": 10, "author_id": 100, "row_version": 1},
		{"id": 2, "title": "The Sea Voyage", "publisher_id": 20, "author_id": 100, "row_version": 1},
		{"id": 3, "title": "Desert Letters", "publisher_id": 20, "author_id": 200, "row_version": 1},
		{"id": 4, "title": "Winter Notes", "publisher_id": 10, "author_id": 200, "row_version": 1},
		{"id": 5, "title": "The Last Harbor", "publisher_id": 30, "author_id": 300, "row_version": 1},
	}
}
