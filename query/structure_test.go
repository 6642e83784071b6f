package query

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastax/sql-data-gateway/internal/testutil"
)

func TestBuildSelectProjections(t *testing.T) {
	entity := testutil.BooksEntity()

	t.Run("explicit projection resolves to backing names", func(t *testing.T) {
		structure, err := BuildSelect(entity, []string{"title", "publisherId"}, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []ProjectedColumn{
			{Exposed: "title", Backing: "title"},
			{Exposed: "publisherId", Backing: "publisher_id"},
		}, structure.Projections)
	})

	t.Run("empty projection selects every column", func(t *testing.T) {
		structure, err := BuildSelect(entity, nil, nil, nil)
		require.NoError(t, err)
		assert.Len(t, structure.Projections, len(entity.Columns))
	})

	t.Run("unknown projection fails", func(t *testing.T) {
		_, err := BuildSelect(entity, []string{"nonexistent"}, nil, nil)
		var translationError *Error
		require.ErrorAs(t, err, &translationError)
		assert.Equal(t, ErrFieldResolution, translationError.Kind)
		assert.Contains(t, translationError.Message, "nonexistent")
	})

	t.Run("page spec carries order and limit", func(t *testing.T) {
		spec, err := BuildPageSpec(entity, nil, 3, "")
		require.NoError(t, err)
		structure, err := BuildSelect(entity, nil, nil, spec)
		require.NoError(t, err)
		assert.Equal(t, spec.OrderBy, structure.OrderBy)
		assert.Equal(t, 4, structure.Limit)
	})
}

func TestAdaptRows(t *testing.T) {
	entity := testutil.BooksEntity()
	structure, err := BuildSelect(entity, []string{"id", "publisherId"}, nil, nil)
	require.NoError(t, err)

	adapted := structure.AdaptRows([]map[string]interface{}{
		{"id": 1, "publisher_id": 10, "title": "dropped, not projected"},
	})
	require.Len(t, adapted, 1)
	assert.Equal(t, map[string]interface{}{"id": 1, "publisherId": 10}, adapted[0])
}

func TestBuildInsert(t *testing.T) {
	entity := testutil.BooksEntity()

	t.Run("payload is cast and ordered by declared columns", func(t *testing.T) {
		structure, err := BuildInsert(entity, "writer", map[string]interface{}{
			"price": "12.50",
			"title": "New Book",
			"id":    float64(6), // JSON numbers arrive as float64
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "title", "price"}, structure.Columns)
		require.Len(t, structure.Values, 3)
		assert.Equal(t, 6, structure.Values[0])
		assert.Equal(t, "New Book", structure.Values[1])
		assert.True(t, decimal.RequireFromString("12.50").Equal(structure.Values[2].(decimal.Decimal)))
	})

	t.Run("unknown field fails", func(t *testing.T) {
		_, err := BuildInsert(entity, "writer", map[string]interface{}{"bogus": 1})
		var translationError *Error
		require.ErrorAs(t, err, &translationError)
		assert.Equal(t, ErrFieldResolution, translationError.Kind)
	})

	t.Run("read only column cannot be written", func(t *testing.T) {
		_, err := BuildInsert(entity, "writer", map[string]interface{}{"rowVersion": 2})
		var translationError *Error
		require.ErrorAs(t, err, &translationError)
		assert.Equal(t, ErrFieldResolution, translationError.Kind)
		assert.Contains(t, translationError.Message, "rowVersion")
	})

	t.Run("role without create is rejected", func(t *testing.T) {
		_, err := BuildInsert(entity, "anonymous", map[string]interface{}{"title": "x"})
		var translationError *Error
		require.ErrorAs(t, err, &translationError)
		assert.Equal(t, ErrAuthorization, translationError.Kind)
	})

	t.Run("uncastable value fails", func(t *testing.T) {
		_, err := BuildInsert(entity, "writer", map[string]interface{}{"id": "not-a-number"})
		var translationError *Error
		require.ErrorAs(t, err, &translationError)
		assert.Equal(t, ErrTypeCast, translationError.Kind)
	})
}

func TestBuildUpdate(t *testing.T) {
	entity := testutil.BooksEntity()
	predicate := Compare("id", OpEqual, 1)

	structure, err := BuildUpdate(entity, "writer", map[string]interface{}{"title": "Renamed"}, predicate)
	require.NoError(t, err)
	assert.Equal(t, []string{"title"}, structure.Columns)
	assert.Equal(t, predicate, structure.Predicate)

	_, err = BuildUpdate(entity, "writer", map[string]interface{}{}, predicate)
	var translationError *Error
	require.ErrorAs(t, err, &translationError)
	assert.Contains(t, translationError.Message, "at least one column")
}

func TestBuildPrimaryKeyPredicate(t *testing.T) {
	entity := testutil.BooksEntity()

	t.Run("segment is cast to the key type", func(t *testing.T) {
		predicate, err := BuildPrimaryKeyPredicate(entity, map[string]string{"id": "42"})
		require.NoError(t, err)
		assert.Equal(t, "id", predicate.Column)
		assert.Equal(t, OpEqual, predicate.Operator)
		assert.Equal(t, 42, predicate.Value)
	})

	t.Run("crafted segment fails the cast", func(t *testing.T) {
		_, err := BuildPrimaryKeyPredicate(entity, map[string]string{"id": "1 OR 1=1"})
		var translationError *Error
		require.ErrorAs(t, err, &translationError)
		assert.Equal(t, ErrTypeCast, translationError.Kind)
	})

	t.Run("wrong segment count fails", func(t *testing.T) {
		_, err := BuildPrimaryKeyPredicate(entity, map[string]string{"id": "1", "title": "x"})
		require.Error(t, err)
	})
}

func TestBuildRelationshipSelect(t *testing.T) {
	snapshot := testutil.LibrarySnapshot()
	books, _ := snapshot.Entity("books")

	t.Run("direct relationship filters by parent values", func(t *testing.T) {
		parentRow := map[string]interface{}{"id": 1, "author_id": 100}
		structure, err := BuildRelationshipSelect(snapshot, books, "author", parentRow, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "authors", structure.Source.Object)
		assert.Empty(t, structure.Joins)
		require.Equal(t, PredicateComparison, structure.Predicate.Kind)
		assert.Equal(t, "id", structure.Predicate.Column)
		assert.Equal(t, 100, structure.Predicate.Value)
	})

	t.Run("linking object produces a join", func(t *testing.T) {
		parentRow := map[string]interface{}{"id": 1}
		structure, err := BuildRelationshipSelect(snapshot, books, "categories", parentRow, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "categories", structure.Source.Object)
		require.Len(t, structure.Joins, 1)
		assert.Equal(t, "book_categories", structure.Joins[0].Source.Object)
		assert.Equal(t, []JoinColumnPair{{JoinColumn: "category_id", BaseColumn: "id"}}, structure.Joins[0].On)

		require.Equal(t, PredicateComparison, structure.Predicate.Kind)
		assert.Equal(t, "book_categories", structure.Predicate.Qualifier)
		assert.Equal(t, "book_id", structure.Predicate.Column)
		assert.Equal(t, 1, structure.Predicate.Value)
	})

	t.Run("unknown relationship fails", func(t *testing.T) {
		_, err := BuildRelationshipSelect(snapshot, books, "nope", map[string]interface{}{}, nil, nil)
		var translationError *Error
		require.ErrorAs(t, err, &translationError)
		assert.Equal(t, ErrFieldResolution, translationError.Kind)
	})

	t.Run("missing parent value is a configuration error", func(t *testing.T) {
		_, err := BuildRelationshipSelect(snapshot, books, "author", map[string]interface{}{}, nil, nil)
		var translationError *Error
		require.ErrorAs(t, err, &translationError)
		assert.Equal(t, ErrConfiguration, translationError.Kind)
	})
}

// A projection that leaves out order-by columns must still fetch them, or
// the continuation token cannot be built from the last row of a full page.
func TestBuildSelectFetchesOrderColumnsOutsideProjection(t *testing.T) {
	entity := testutil.BooksEntity()
	spec, err := BuildPageSpec(entity, nil, 2, "")
	require.NoError(t, err)

	structure, err := BuildSelect(entity, []string{"title"}, nil, spec)
	require.NoError(t, err)
	assert.Equal(t, []ProjectedColumn{{Exposed: "title", Backing: "title"}}, structure.Projections)
	assert.Equal(t, []string{"id"}, structure.ExtraColumns)

	page, token, hasNext, err := CompletePage(testutil.BookRows()[:3], 2, spec.OrderBy)
	require.NoError(t, err)
	require.True(t, hasNext)
	assert.NotEmpty(t, token)

	adapted := structure.AdaptRows(page)
	require.Len(t, adapted, 2)
	assert.Equal(t, map[string]interface{}{"title": "A Trip to the Moon"}, adapted[0])
	assert.Equal(t, map[string]interface{}{"title": "The Sea Voyage"}, adapted[1])
}

func TestBuildSelectNoExtraColumnsWhenKeyProjected(t *testing.T) {
	entity := testutil.BooksEntity()
	spec, err := BuildPageSpec(entity, nil, 2, "")
	require.NoError(t, err)

	structure, err := BuildSelect(entity, []string{"id", "title"}, nil, spec)
	require.NoError(t, err)
	assert.Empty(t, structure.ExtraColumns)
}
