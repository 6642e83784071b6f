package db

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datastax/sql-data-gateway/config"
	"github.com/datastax/sql-data-gateway/log"
	"github.com/datastax/sql-data-gateway/schema"
)

func TestSourceFromConfig(t *testing.T) {
	naming := config.NewDefaultNaming()

	t.Run("postgres default schema", func(t *testing.T) {
		source := sourceFromConfig("postgresql", "books", config.SourceConfig{Object: "books"}, naming)
		assert.Equal(t, schema.Source{Schema: "public", Object: "books", Kind: schema.SourceTable}, source)
	})

	t.Run("object derived from entity name", func(t *testing.T) {
		source := sourceFromConfig("sqlite", "bookCategories", config.SourceConfig{}, naming)
		assert.Equal(t, "book_categories", source.Object)
	})

	t.Run("view kind", func(t *testing.T) {
		source := sourceFromConfig("mysql", "sales", config.SourceConfig{Object: "sales_v", Kind: "view"}, naming)
		assert.Equal(t, schema.SourceView, source.Kind)
		assert.Equal(t, "sales_v", source.Object)
		assert.Equal(t, "", source.Schema)
	})
}

func TestMapDatabaseType(t *testing.T) {
	items := []struct {
		dataType string
		expected schema.ColumnType
	}{
		{"integer", schema.TypeInt},
		{"INT", schema.TypeInt},
		{"bigint", schema.TypeBigInt},
		{"double precision", schema.TypeFloat},
		{"numeric(10,2)", schema.TypeDecimal},
		{"boolean", schema.TypeBoolean},
		{"timestamp with time zone", schema.TypeDateTime},
		{"uuid", schema.TypeUUID},
		{"bytea", schema.TypeBytes},
		{"varchar(255)", schema.TypeString},
		{"text", schema.TypeString},
	}

	for _, item := range items {
		t.Run(item.dataType, func(t *testing.T) {
			assert.Equal(t, item.expected, mapDatabaseType(item.dataType))
		})
	}
}

func TestPermissionsFromConfig(t *testing.T) {
	permissions := permissionsFromConfig([]config.PermissionConfig{
		{
			Role: "writer",
			Actions: []config.ActionConfig{
				{Action: "*", Policy: "authorId eq @claims.sub"},
			},
		},
		{
			Role: "restricted",
			Actions: []config.ActionConfig{
				{Action: "read", Columns: []string{"id", "title"}},
			},
		},
	})
	require.Len(t, permissions, 2)

	writer := permissions[0]
	assert.Equal(t, "writer", writer.Role)
	for _, action := range []schema.Action{
		schema.ActionCreate, schema.ActionRead, schema.ActionUpdate, schema.ActionDelete,
	} {
		permission, found := writer.Actions[action]
		require.True(t, found, "expected action %s", action)
		assert.Equal(t, "authorId eq @claims.sub", permission.Policy)
	}

	restricted := permissions[1]
	require.Len(t, restricted.Actions, 1)
	assert.Equal(t, []string{"id", "title"}, restricted.Actions[schema.ActionRead].Columns)
}

func TestIsGeneratedColumn(t *testing.T) {
	yes := "YES"
	autoIncrement := "auto_increment"
	empty := ""

	assert.False(t, isGeneratedColumn(nil))
	assert.False(t, isGeneratedColumn(&empty))
	assert.True(t, isGeneratedColumn(&yes))
	assert.True(t, isGeneratedColumn(&autoIncrement))
}

// Views expose no primary key in the catalog; key-fields take its place so
// the entity stays pageable.
func TestDiscoverViewKeyFields(t *testing.T) {
	conn, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec(`CREATE TABLE books (id INTEGER PRIMARY KEY, title TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = conn.Exec(`CREATE VIEW book_titles AS SELECT id, title FROM books`)
	require.NoError(t, err)

	dbClient, err := NewDbWithConnection(conn, "sqlite", log.NewZapLogger(zap.NewNop()))
	require.NoError(t, err)

	runtime := &config.RuntimeConfig{
		Backend: "sqlite",
		Entities: map[string]config.EntityConfig{
			"bookTitles": {
				Source: config.SourceConfig{Kind: "view", KeyFields: []string{"id"}},
			},
		},
	}
	snapshot, err := dbClient.Discover(context.Background(), runtime, config.NewDefaultNaming())
	require.NoError(t, err)

	entity, found := snapshot.Entity("bookTitles")
	require.True(t, found)
	assert.Equal(t, []string{"id"}, entity.PrimaryKey)

	// A discovered primary key is never overridden by configuration
	runtime.Entities["books"] = config.EntityConfig{
		Source: config.SourceConfig{KeyFields: []string{"title"}},
	}
	snapshot, err = dbClient.Discover(context.Background(), runtime, config.NewDefaultNaming())
	require.NoError(t, err)
	books, found := snapshot.Entity("books")
	require.True(t, found)
	assert.Equal(t, []string{"id"}, books.PrimaryKey)
}
