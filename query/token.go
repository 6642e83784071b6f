package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/datastax/sql-data-gateway/schema"
)

// tokenElement is one (column, value, direction) tuple of a continuation
// token. The wire format is a URL-safe base64 encoding of the JSON array of
// elements in augmented order-by sequence; the only contract is round-trip
// correctness, not format stability.
type tokenElement struct {
	Value      interface{} `json:"value"`
	Direction  int         `json:"direction"`
	SchemaName string      `json:"schemaName"`
	TableName  string      `json:"tableName"`
	ColumnName string      `json:"columnName"`
}

func encodeToken(elements []tokenElement) (string, error) {
	buffer, err := json.Marshal(elements)
	if err != nil {
		return "", NewPaginationError("Cannot build a continuation token: " + err.Error())
	}
	return base64.URLEncoding.EncodeToString(buffer), nil
}

// decodeToken parses and validates a continuation token against the
// augmented ordering, returning the native typed values in order. Every
// failure mode surfaces as the same malformed token error class.
func decodeToken(token string, expected []OrderColumn, entity *schema.Entity) ([]interface{}, error) {
	buffer, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, NewMalformedTokenError("invalid base64 payload")
	}

	var elements []tokenElement
	if err := json.Unmarshal(buffer, &elements); err != nil {
		return nil, NewMalformedTokenError("invalid token payload")
	}

	if len(elements) != len(expected) {
		return nil, NewMalformedTokenError(fmt.Sprintf(
			"token has %d columns, the requested ordering has %d", len(elements), len(expected)))
	}

	values := make([]interface{}, 0, len(elements))
	for i, element := range elements {
		column := expected[i]
		if element.ColumnName != column.ColumnName ||
			element.SchemaName != column.SchemaName ||
			element.TableName != column.TableName {
			return nil, NewMalformedTokenError(fmt.Sprintf(
				"token column '%s' does not match ordering column '%s'", element.ColumnName, column.ColumnName))
		}
		if element.Direction != int(column.Direction) {
			return nil, NewMalformedTokenError(
				"token direction does not match the requested ordering for column '" + element.ColumnName + "'")
		}

		definition, found := entity.Column(column.ColumnName)
		if !found {
			return nil, NewMalformedTokenError("token references unknown column '" + element.ColumnName + "'")
		}
		value, castErr := schema.Cast(element.Value, definition.Type)
		if castErr != nil {
			castFailure := NewTypeCastError(element.Value, column.ColumnName, definition.Type)
			return nil, NewMalformedTokenError(castFailure.Error())
		}
		values = append(values, value)
	}

	return values, nil
}
