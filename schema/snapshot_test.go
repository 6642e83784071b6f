package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastax/sql-data-gateway/config"
)

func newTestEntity(t *testing.T, name string, relationships map[string]Relationship) *Entity {
	entity, err := NewEntity(EntityInfo{
		Name:   name,
		Source: Source{Object: name, Kind: SourceTable},
		Columns: []Column{
			{Name: "id", Type: TypeInt},
		},
		PrimaryKey:    []string{"id"},
		Relationships: relationships,
	}, config.NewDefaultNaming())
	require.NoError(t, err)
	return entity
}

func TestNewSnapshot(t *testing.T) {
	snapshot, err := NewSnapshot(
		newTestEntity(t, "books", nil),
		newTestEntity(t, "authors", nil),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"authors", "books"}, snapshot.EntityNames())

	entity, found := snapshot.Entity("books")
	assert.True(t, found)
	assert.Equal(t, "books", entity.Name)

	_, found = snapshot.Entity("missing")
	assert.False(t, found)
}

func TestNewSnapshotRejectsReservedNames(t *testing.T) {
	for _, name := range []string{"Query", "Mutation", "PageInfo"} {
		_, err := NewSnapshot(newTestEntity(t, name, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "reserved")
	}
}

func TestNewSnapshotRejectsDuplicates(t *testing.T) {
	_, err := NewSnapshot(
		newTestEntity(t, "books", nil),
		newTestEntity(t, "books", nil),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")
}

func TestNewSnapshotValidatesRelationshipTargets(t *testing.T) {
	books := newTestEntity(t, "books", map[string]Relationship{
		"author": {Target: "authors", SourceFields: []string{"id"}, TargetFields: []string{"id"}},
	})

	_, err := NewSnapshot(books)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown entity 'authors'")

	_, err = NewSnapshot(books, newTestEntity(t, "authors", nil))
	assert.NoError(t, err)
}

func TestStoreSwap(t *testing.T) {
	first, err := NewSnapshot(newTestEntity(t, "books", nil))
	require.NoError(t, err)
	second, err := NewSnapshot(newTestEntity(t, "authors", nil))
	require.NoError(t, err)

	store := NewStore(first)
	assert.Same(t, first, store.Load())

	store.Swap(second)
	assert.Same(t, second, store.Load())
}
