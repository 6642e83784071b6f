package query

import (
	"fmt"
	"net/http"

	"github.com/datastax/sql-data-gateway/schema"
)

// ErrorKind categorizes request translation failures. Every kind maps to a
// single HTTP-equivalent status; none of them are retryable.
type ErrorKind int

const (
	ErrParsing ErrorKind = iota
	ErrFieldResolution
	ErrTypeCast
	ErrAuthorization
	ErrPagination
	ErrConfiguration
)

func (k ErrorKind) String() string {
	switch k {
	case ErrParsing:
		return "ParsingError"
	case ErrFieldResolution:
		return "FieldResolutionError"
	case ErrTypeCast:
		return "TypeCastError"
	case ErrAuthorization:
		return "AuthorizationError"
	case ErrPagination:
		return "PaginationError"
	case ErrConfiguration:
		return "ConfigurationError"
	default:
		return "UnknownError"
	}
}

// Error is the tagged result type for all validation failures in this
// package. Message is safe to return to clients in production mode; Detail
// may include schema and type paths and is only surfaced in development.
type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Detail  string
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// PublicMessage returns the message to embed in the response body.
func (e *Error) PublicMessage(development bool) string {
	if development && e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

func NewParsingError(position int, message string) *Error {
	return &Error{
		Kind:    ErrParsing,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Syntax error at position %d: %s", position, message),
	}
}

func NewFieldNotFoundError(field string, entityPath string) *Error {
	return &Error{
		Kind:    ErrFieldResolution,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Invalid value provided for field: %s", field),
		Detail:  fmt.Sprintf("could not find a property named '%s' on type '%s'", field, entityPath),
	}
}

func NewInvalidProjectionError(field string) *Error {
	return &Error{
		Kind:    ErrFieldResolution,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Invalid field to be returned requested: %s", field),
	}
}

func NewBinaryTypeError(column string, columnType schema.ColumnType, value interface{}) *Error {
	return &Error{
		Kind:    ErrTypeCast,
		Status:  http.StatusBadRequest,
		Message: "Binary operator incompatible types",
		Detail:  fmt.Sprintf("cannot compare column '%s' of type %s with value '%v'", column, columnType, value),
	}
}

func NewTypeCastError(value interface{}, column string, columnType schema.ColumnType) *Error {
	return &Error{
		Kind:    ErrTypeCast,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf("Parameter cannot be resolved as column '%s' with type '%s'", column, columnType),
		Detail:  fmt.Sprintf("value '%v'", value),
	}
}

func NewFieldAuthorizationError(field string) *Error {
	return &Error{
		Kind:    ErrAuthorization,
		Status:  http.StatusForbidden,
		Message: "Field authorization failure",
		Detail:  fmt.Sprintf("field '%s'", field),
	}
}

func NewEntityAuthorizationError(entity string, action schema.Action) *Error {
	return &Error{
		Kind:    ErrAuthorization,
		Status:  http.StatusForbidden,
		Message: "Authorization failure",
		Detail:  fmt.Sprintf("entity '%s', action '%s'", entity, action),
	}
}

func NewMissingClaimError(claim string) *Error {
	return &Error{
		Kind:    ErrAuthorization,
		Status:  http.StatusForbidden,
		Message: "Authorization failure",
		Detail:  fmt.Sprintf("claim '%s' is not present in the request context", claim),
	}
}

func NewInvalidFirstError(actual string) *Error {
	return &Error{
		Kind:   ErrPagination,
		Status: http.StatusBadRequest,
		Message: fmt.Sprintf(
			"Invalid number of items requested, first must be an integer greater than 0. Actual value: %s", actual),
	}
}

func NewPaginationError(message string) *Error {
	return &Error{
		Kind:    ErrPagination,
		Status:  http.StatusBadRequest,
		Message: message,
	}
}

// NewPaginationErrorf is the fmt variant of NewPaginationError.
func NewPaginationErrorf(format string, args ...interface{}) *Error {
	return NewPaginationError(fmt.Sprintf(format, args...))
}

// NewMalformedTokenError covers every continuation token decode failure.
// The internal cause stays in Detail so that production responses never
// leak token structure or schema names.
func NewMalformedTokenError(detail string) *Error {
	return &Error{
		Kind:    ErrPagination,
		Status:  http.StatusBadRequest,
		Message: "Malformed continuation token",
		Detail:  detail,
	}
}

func NewConfigurationError(message string) *Error {
	return &Error{
		Kind:    ErrConfiguration,
		Status:  http.StatusInternalServerError,
		Message: message,
	}
}
