package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastax/sql-data-gateway/config"
)

func testEntityInfo() EntityInfo {
	return EntityInfo{
		Name:   "books",
		Source: Source{Schema: "public", Object: "books", Kind: SourceTable},
		Columns: []Column{
			{Name: "id", Type: TypeInt},
			{Name: "title", Type: TypeString},
			{Name: "publisher_id", Type: TypeInt},
		},
		PrimaryKey: []string{"id"},
	}
}

func TestNewEntityDefaultMappings(t *testing.T) {
	entity, err := NewEntity(testEntityInfo(), config.NewDefaultNaming())
	require.NoError(t, err)

	backing, found := entity.BackingColumn("publisherId")
	assert.True(t, found)
	assert.Equal(t, "publisher_id", backing)

	exposed, found := entity.ExposedColumn("publisher_id")
	assert.True(t, found)
	assert.Equal(t, "publisherId", exposed)

	assert.Equal(t, []string{"id", "title", "publisherId"}, entity.ExposedColumns())
	assert.True(t, entity.IsPrimaryKey("id"))
	assert.False(t, entity.IsPrimaryKey("title"))
}

func TestNewEntityExplicitMappings(t *testing.T) {
	info := testEntityInfo()
	info.Mappings = map[string]string{"publisher": "publisher_id"}

	entity, err := NewEntity(info, config.NewDefaultNaming())
	require.NoError(t, err)

	backing, found := entity.BackingColumn("publisher")
	assert.True(t, found)
	assert.Equal(t, "publisher_id", backing)

	// The generated name is replaced by the explicit one
	_, found = entity.BackingColumn("publisherId")
	assert.False(t, found)
}

func TestNewEntityValidation(t *testing.T) {
	items := []struct {
		name    string
		mutate  func(info *EntityInfo)
		message string
	}{
		{
			"no columns",
			func(info *EntityInfo) { info.Columns = nil },
			"has no columns",
		},
		{
			"duplicate column",
			func(info *EntityInfo) { info.Columns = append(info.Columns, Column{Name: "id", Type: TypeInt}) },
			"more than once",
		},
		{
			"unknown primary key column",
			func(info *EntityInfo) { info.PrimaryKey = []string{"missing"} },
			"primary key column 'missing' not found",
		},
		{
			"table without primary key",
			func(info *EntityInfo) { info.PrimaryKey = nil },
			"has no primary key",
		},
		{
			"mapping to unknown column",
			func(info *EntityInfo) { info.Mappings = map[string]string{"x": "missing"} },
			"unknown column 'missing'",
		},
		{
			"column mapped twice",
			func(info *EntityInfo) {
				info.Mappings = map[string]string{"a": "title", "b": "title"}
			},
			"more than once",
		},
		{
			"permission with unknown column",
			func(info *EntityInfo) {
				info.Permissions = []RolePermission{{
					Role:    "reader",
					Actions: map[Action]ActionPermission{ActionRead: {Columns: []string{"missing"}}},
				}}
			},
			"unknown column 'missing'",
		},
	}

	for _, item := range items {
		t.Run(item.name, func(t *testing.T) {
			info := testEntityInfo()
			item.mutate(&info)
			_, err := NewEntity(info, config.NewDefaultNaming())
			require.Error(t, err)
			assert.Contains(t, err.Error(), item.message)
		})
	}
}

func TestEntityPermissions(t *testing.T) {
	info := testEntityInfo()
	info.Permissions = []RolePermission{
		{
			Role: "reader",
			Actions: map[Action]ActionPermission{
				ActionRead: {Columns: []string{"id", "title"}},
			},
		},
		{
			Role: "admin",
			Actions: map[Action]ActionPermission{
				ActionRead:   {},
				ActionDelete: {Policy: "id eq @claims.sub"},
			},
		},
	}

	entity, err := NewEntity(info, config.NewDefaultNaming())
	require.NoError(t, err)

	assert.True(t, entity.HasPermission("reader", ActionRead))
	assert.False(t, entity.HasPermission("reader", ActionUpdate))
	assert.False(t, entity.HasPermission("stranger", ActionRead))

	assert.True(t, entity.ColumnAllowed("reader", ActionRead, "title"))
	assert.False(t, entity.ColumnAllowed("reader", ActionRead, "publisher_id"))

	// nil allow-list means every column
	assert.True(t, entity.ColumnAllowed("admin", ActionRead, "publisher_id"))

	// delete skips the field-level check
	assert.True(t, entity.ColumnAllowed("admin", ActionDelete, "publisher_id"))

	assert.Equal(t, "id eq @claims.sub", entity.Policy("admin", ActionDelete))
	assert.Empty(t, entity.Policy("admin", ActionRead))
	assert.Empty(t, entity.Policy("stranger", ActionRead))
}

func TestViewWithoutPrimaryKey(t *testing.T) {
	info := testEntityInfo()
	info.Source.Kind = SourceView
	info.PrimaryKey = nil

	_, err := NewEntity(info, config.NewDefaultNaming())
	assert.NoError(t, err)
}
