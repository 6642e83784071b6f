// types package contains the public API types
// that are shared between both REST and GraphQL
package types

import "net/http"

// ModificationResult reports a mutation outcome; Value echoes the accepted
// payload keyed by exposed field names, empty for deletes.
type ModificationResult struct {
	Applied bool                   `json:"applied"`
	Value   map[string]interface{} `json:"value,omitempty"`
}

type QueryResult struct {
	After       string                   `json:"after,omitempty"`
	HasNextPage bool                     `json:"hasNextPage"`
	Values      []map[string]interface{} `json:"values"`
}

type QueryOptions struct {
	First int    `json:"first"`
	After string `json:"after"`
}

// Route represents a request route to be served
type Route struct {
	Method  string
	Pattern string
	Handler http.Handler
}
