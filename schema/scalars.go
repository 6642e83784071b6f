package schema

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ColumnType is the scalar type backing a column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeInt
	TypeBigInt
	TypeFloat
	TypeDecimal
	TypeBoolean
	TypeDateTime
	TypeUUID
	TypeBytes
)

func (t ColumnType) String() string {
	switch t {
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeBigInt:
		return "BigInt"
	case TypeFloat:
		return "Float"
	case TypeDecimal:
		return "Decimal"
	case TypeBoolean:
		return "Boolean"
	case TypeDateTime:
		return "DateTime"
	case TypeUUID:
		return "Uuid"
	case TypeBytes:
		return "Bytes"
	default:
		return "Unknown"
	}
}

// Cast converts a request-supplied value (JSON or GraphQL argument
// representation) into the native value for the column type. A value that
// cannot be represented in the column type is rejected; there is no
// fallback to string interpolation.
func Cast(value interface{}, t ColumnType) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	switch t {
	case TypeString:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case TypeInt:
		switch v := value.(type) {
		case int:
			return v, nil
		case int32:
			return int(v), nil
		case int64:
			return int(v), nil
		case float64:
			if v == float64(int(v)) {
				return int(v), nil
			}
		}
	case TypeBigInt:
		switch v := value.(type) {
		case int:
			return int64(v), nil
		case int64:
			return v, nil
		case float64:
			if v == float64(int64(v)) {
				return int64(v), nil
			}
		case string:
			// 64-bit values lose precision as JSON numbers, accept the string form
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				return parsed, nil
			}
		}
	case TypeFloat:
		switch v := value.(type) {
		case int:
			return float64(v), nil
		case float64:
			return v, nil
		}
	case TypeDecimal:
		switch v := value.(type) {
		case decimal.Decimal:
			return v, nil
		case float64:
			return decimal.NewFromFloat(v), nil
		case int:
			return decimal.NewFromInt(int64(v)), nil
		case string:
			if parsed, err := decimal.NewFromString(v); err == nil {
				return parsed, nil
			}
		}
	case TypeBoolean:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case TypeDateTime:
		switch v := value.(type) {
		case time.Time:
			return v, nil
		case string:
			if parsed, err := time.Parse(time.RFC3339, v); err == nil {
				return parsed, nil
			}
		}
	case TypeUUID:
		switch v := value.(type) {
		case uuid.UUID:
			return v, nil
		case string:
			if parsed, err := uuid.Parse(v); err == nil {
				return parsed, nil
			}
		}
	case TypeBytes:
		switch v := value.(type) {
		case []byte:
			return v, nil
		case string:
			if decoded, err := base64.StdEncoding.DecodeString(v); err == nil {
				return decoded, nil
			}
		}
	}

	return nil, fmt.Errorf("value '%v' cannot be cast to type %s", value, t)
}

// CastString converts the textual form of a value (route segments, query
// string parameters) into the native value for the column type.
func CastString(value string, t ColumnType) (interface{}, error) {
	switch t {
	case TypeString:
		return value, nil
	case TypeInt:
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("value '%s' cannot be cast to type %s", value, t)
		}
		return parsed, nil
	case TypeBigInt:
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("value '%s' cannot be cast to type %s", value, t)
		}
		return parsed, nil
	case TypeFloat:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("value '%s' cannot be cast to type %s", value, t)
		}
		return parsed, nil
	case TypeBoolean:
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("value '%s' cannot be cast to type %s", value, t)
		}
		return parsed, nil
	default:
		return Cast(value, t)
	}
}
