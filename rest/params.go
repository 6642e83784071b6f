package rest

import (
	"strconv"
	"strings"

	"github.com/datastax/sql-data-gateway/query"
)

// Query string parameters understood by the list endpoint.
const (
	filterParam  = "$filter"
	orderByParam = "$orderby"
	selectParam  = "$select"
	firstParam   = "$first"
	afterParam   = "$after"
)

// parseOrderBy parses "$orderby=title desc, id" into order-by items over
// exposed field names.
func parseOrderBy(value string) ([]query.OrderByItem, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	parts := strings.Split(value, ",")
	items := make([]query.OrderByItem, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(part)
		switch len(fields) {
		case 1:
			items = append(items, query.OrderByItem{Field: fields[0], Direction: query.Ascending})
		case 2:
			direction := query.Ascending
			switch strings.ToLower(fields[1]) {
			case "asc":
			case "desc":
				direction = query.Descending
			default:
				return nil, query.NewParsingError(
					strings.Index(value, fields[1]), "order direction must be 'asc' or 'desc'")
			}
			items = append(items, query.OrderByItem{Field: fields[0], Direction: direction})
		default:
			return nil, query.NewParsingError(0, "malformed $orderby expression")
		}
	}
	return items, nil
}

// parseFirst parses the requested page size, falling back to the default
// when the parameter is absent.
func parseFirst(value string, defaultPageSize int) (int, error) {
	if value == "" {
		return defaultPageSize, nil
	}
	first, err := strconv.Atoi(value)
	if err != nil {
		return 0, query.NewInvalidFirstError(value)
	}
	return first, nil
}

// parseSelect splits the $select projection list.
func parseSelect(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			fields = append(fields, trimmed)
		}
	}
	return fields
}
