package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastax/sql-data-gateway/internal/testutil"
	"github.com/datastax/sql-data-gateway/query"
	"github.com/datastax/sql-data-gateway/schema"
)

func TestSelectQueryGeneration(t *testing.T) {
	items := []struct {
		backend string
		source  schema.Source
		query   string
	}{
		{
			"postgresql",
			schema.Source{Schema: "public", Object: "books"},
			`SELECT "id", "title" FROM "public"."books" WHERE ("title" = $1 AND "publisher_id" = $2) ORDER BY "id" ASC LIMIT 3`,
		},
		{
			"mysql",
			schema.Source{Object: "books"},
			"SELECT `id`, `title` FROM `books` WHERE (`title` = ? AND `publisher_id` = ?) ORDER BY `id` ASC LIMIT 3",
		},
		{
			"sqlite",
			schema.Source{Object: "books"},
			`SELECT "id", "title" FROM "books" WHERE ("title" = ? AND "publisher_id" = ?) ORDER BY "id" ASC LIMIT 3`,
		},
	}

	for _, item := range items {
		t.Run(item.backend, func(t *testing.T) {
			generator, err := NewQueryGenerator(item.backend)
			require.NoError(t, err)

			statement, args, err := generator.SelectQuery(&query.SelectStructure{
				Source: item.source,
				Projections: []query.ProjectedColumn{
					{Exposed: "id", Backing: "id"},
					{Exposed: "title", Backing: "title"},
				},
				Predicate: query.And(
					query.Compare("title", query.OpEqual, "x"),
					query.Compare("publisher_id", query.OpEqual, 10),
				),
				OrderBy: []query.OrderColumn{
					{SchemaName: "public", TableName: "books", ColumnName: "id", Direction: query.Ascending},
				},
				Limit: 3,
			})
			require.NoError(t, err)
			assert.Equal(t, item.query, statement)
			assert.Equal(t, []interface{}{"x", 10}, args)
		})
	}
}

func TestSelectQueryKeysetPredicate(t *testing.T) {
	generator, err := NewQueryGenerator("postgresql")
	require.NoError(t, err)

	after := query.Or(
		query.Compare("publisher_id", query.OpLessThan, 20),
		query.And(
			query.Compare("publisher_id", query.OpEqual, 20),
			query.Compare("id", query.OpGreaterThan, 2),
		),
	)

	statement, args, err := generator.SelectQuery(&query.SelectStructure{
		Source:      schema.Source{Schema: "public", Object: "books"},
		Projections: []query.ProjectedColumn{{Exposed: "id", Backing: "id"}},
		Predicate:   after,
		OrderBy: []query.OrderColumn{
			{SchemaName: "public", TableName: "books", ColumnName: "publisher_id", Direction: query.Descending},
			{SchemaName: "public", TableName: "books", ColumnName: "id", Direction: query.Ascending},
		},
		Limit: 3,
	})
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "id" FROM "public"."books"`+
			` WHERE ("publisher_id" < $1 OR ("publisher_id" = $2 AND "id" > $3))`+
			` ORDER BY "publisher_id" DESC, "id" ASC LIMIT 3`,
		statement)
	assert.Equal(t, []interface{}{20, 20, 2}, args)
}

func TestSelectQuerySpecialPredicates(t *testing.T) {
	generator, err := NewQueryGenerator("postgresql")
	require.NoError(t, err)

	items := []struct {
		name      string
		predicate *query.Predicate
		where     string
		args      []interface{}
	}{
		{"is null", query.IsNull("price"), `"price" IS NULL`, nil},
		{"is not null", query.IsNotNull("price"), `"price" IS NOT NULL`, nil},
		{"not", query.Not(query.Compare("id", query.OpEqual, 1)), `NOT ("id" = $1)`, []interface{}{1}},
		{"not equal renders portable", query.Compare("id", query.OpNotEqual, 1), `"id" <> $1`, []interface{}{1}},
	}

	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			statement, args, err := generator.SelectQuery(&query.SelectStructure{
				Source:      schema.Source{Object: "books"},
				Projections: []query.ProjectedColumn{{Exposed: "id", Backing: "id"}},
				Predicate:   item.predicate,
			})
			require.NoError(t, err)
			assert.Equal(t, `SELECT "id" FROM "books" WHERE `+item.where, statement)
			if item.args == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, item.args, args)
			}
		})
	}
}

func TestSelectQueryWithJoin(t *testing.T) {
	snapshot := testutil.LibrarySnapshot()
	books, _ := snapshot.Entity("books")

	structure, err := query.BuildRelationshipSelect(
		snapshot, books, "categories", map[string]interface{}{"id": 1}, []string{"id", "name"}, nil)
	require.NoError(t, err)

	generator, err := NewQueryGenerator("postgresql")
	require.NoError(t, err)

	statement, args, err := generator.SelectQuery(structure)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "categories"."id", "categories"."name" FROM "public"."categories"`+
			` JOIN "public"."book_categories" ON "book_categories"."category_id" = "categories"."id"`+
			` WHERE "book_categories"."book_id" = $1`,
		statement)
	assert.Equal(t, []interface{}{1}, args)
}

func TestInsertQueryGeneration(t *testing.T) {
	items := []struct {
		backend string
		query   string
	}{
		{"postgresql", `INSERT INTO "public"."books" ("id","title") VALUES ($1,$2)`},
		{"mysql", "INSERT INTO `public`.`books` (`id`,`title`) VALUES (?,?)"},
		{"sqlite", `INSERT INTO "public"."books" ("id","title") VALUES (?,?)`},
	}

	for _, item := range items {
		t.Run(item.backend, func(t *testing.T) {
			generator, err := NewQueryGenerator(item.backend)
			require.NoError(t, err)

			statement, args, err := generator.InsertQuery(&query.InsertStructure{
				Source:  schema.Source{Schema: "public", Object: "books"},
				Columns: []string{"id", "title"},
				Values:  []interface{}{6, "New Book"},
			})
			require.NoError(t, err)
			assert.Equal(t, item.query, statement)
			assert.Equal(t, []interface{}{6, "New Book"}, args)
		})
	}
}

func TestUpdateQueryGeneration(t *testing.T) {
	generator, err := NewQueryGenerator("postgresql")
	require.NoError(t, err)

	statement, args, err := generator.UpdateQuery(&query.UpdateStructure{
		Source:    schema.Source{Schema: "public", Object: "books"},
		Columns:   []string{"title"},
		Values:    []interface{}{"Renamed"},
		Predicate: query.Compare("id", query.OpEqual, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "public"."books" SET "title" = $1 WHERE "id" = $2`, statement)
	assert.Equal(t, []interface{}{"Renamed", 1}, args)
}

func TestDeleteQueryGeneration(t *testing.T) {
	generator, err := NewQueryGenerator("postgresql")
	require.NoError(t, err)

	statement, args, err := generator.DeleteQuery(&query.DeleteStructure{
		Source:    schema.Source{Schema: "public", Object: "books"},
		Predicate: query.Compare("id", query.OpEqual, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, `DELETE FROM "public"."books" WHERE "id" = $1`, statement)
	assert.Equal(t, []interface{}{1}, args)
}

// An embedded quote character stays inside the quoted identifier.
func TestIdentifierQuoting(t *testing.T) {
	generator, err := NewQueryGenerator("postgresql")
	require.NoError(t, err)

	statement, _, err := generator.SelectQuery(&query.SelectStructure{
		Source:      schema.Source{Object: `bad"name`},
		Projections: []query.ProjectedColumn{{Exposed: "id", Backing: "id"}},
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "id" FROM "bad""name"`, statement)

	mysqlGenerator, err := NewQueryGenerator("mysql")
	require.NoError(t, err)
	statement, _, err = mysqlGenerator.SelectQuery(&query.SelectStructure{
		Source:      schema.Source{Object: "bad`name"},
		Projections: []query.ProjectedColumn{{Exposed: "id", Backing: "id"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT `id` FROM `bad``name`", statement)
}

func TestNewQueryGeneratorUnsupportedBackend(t *testing.T) {
	_, err := NewQueryGenerator("oracle")
	assert.Error(t, err)
}

func TestSelectQueryExtraOrderColumns(t *testing.T) {
	generator, err := NewQueryGenerator("postgresql")
	require.NoError(t, err)

	statement, _, err := generator.SelectQuery(&query.SelectStructure{
		Source:       schema.Source{Schema: "public", Object: "books"},
		Projections:  []query.ProjectedColumn{{Exposed: "title", Backing: "title"}},
		ExtraColumns: []string{"id"},
		OrderBy: []query.OrderColumn{
			{SchemaName: "public", TableName: "books", ColumnName: "id", Direction: query.Ascending},
		},
		Limit: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, `SELECT "title", "id" FROM "public"."books" ORDER BY "id" ASC LIMIT 3`, statement)
}
