package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datastax/sql-data-gateway/query"
)

func TestParseOrderBy(t *testing.T) {
	items := []struct {
		value    string
		expected []query.OrderByItem
	}{
		{"", nil},
		{"  ", nil},
		{"title", []query.OrderByItem{{Field: "title", Direction: query.Ascending}}},
		{"title asc", []query.OrderByItem{{Field: "title", Direction: query.Ascending}}},
		{"title desc", []query.OrderByItem{{Field: "title", Direction: query.Descending}}},
		{"title DESC", []query.OrderByItem{{Field: "title", Direction: query.Descending}}},
		{
			"title desc, id",
			[]query.OrderByItem{
				{Field: "title", Direction: query.Descending},
				{Field: "id", Direction: query.Ascending},
			},
		},
	}

	for _, item := range items {
		t.Run(item.value, func(t *testing.T) {
			parsed, err := parseOrderBy(item.value)
			require.NoError(t, err)
			assert.Equal(t, item.expected, parsed)
		})
	}
}

func TestParseOrderByErrors(t *testing.T) {
	for _, value := range []string{"title sideways", "title desc extra"} {
		t.Run(value, func(t *testing.T) {
			_, err := parseOrderBy(value)
			var translationError *query.Error
			require.ErrorAs(t, err, &translationError)
			assert.Equal(t, query.ErrParsing, translationError.Kind)
		})
	}
}

func TestParseFirst(t *testing.T) {
	first, err := parseFirst("", 100)
	require.NoError(t, err)
	assert.Equal(t, 100, first)

	first, err = parseFirst("25", 100)
	require.NoError(t, err)
	assert.Equal(t, 25, first)

	_, err = parseFirst("lots", 100)
	var translationError *query.Error
	require.ErrorAs(t, err, &translationError)
	assert.Equal(t, query.ErrPagination, translationError.Kind)
	assert.Contains(t, translationError.Message, "lots")
}

func TestParseSelect(t *testing.T) {
	assert.Nil(t, parseSelect(""))
	assert.Equal(t, []string{"id", "title"}, parseSelect("id,title"))
	assert.Equal(t, []string{"id", "title"}, parseSelect(" id , title ,"))
}
