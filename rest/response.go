package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/datastax/sql-data-gateway/query"
	m "github.com/datastax/sql-data-gateway/rest/models"
)

// RespondJSONObjectWithCode writes the object and status header to the response.
func RespondJSONObjectWithCode(w http.ResponseWriter, code int, obj interface{}) {
	setCommonHeaders(w)
	w.WriteHeader(code)
	if obj != nil {
		_ = json.NewEncoder(w).Encode(obj)
	}
}

// RespondWithError maps a translation error onto its HTTP status. In
// production mode only the generic message is written.
func RespondWithError(w http.ResponseWriter, err error, development bool) {
	var translationError *query.Error
	if errors.As(err, &translationError) {
		RespondJSONObjectWithCode(w, translationError.Status, m.ModelError{
			Description:  translationError.PublicMessage(development),
			InternalCode: translationError.Kind.String(),
		})
		return
	}

	description := "internal server error"
	if development {
		description = err.Error()
	}
	RespondJSONObjectWithCode(w, http.StatusInternalServerError, m.ModelError{Description: description})
}

func RespondNotFound(w http.ResponseWriter, description string) {
	RespondJSONObjectWithCode(w, http.StatusNotFound, m.ModelError{Description: description})
}

func setCommonHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
}
