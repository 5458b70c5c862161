package httpapi

import (
	"encoding/json"
	"net/http"

	"modelyaml/internal/manager"
	"modelyaml/internal/registry"
	"modelyaml/internal/resolver"
	"modelyaml/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg, Code: status})
}

// errorResponse maps service errors to a status code and payload.
func errorResponse(err error) (int, types.ErrorResponse) {
	status := http.StatusInternalServerError
	switch {
	case manager.IsModelNotFound(err), resolver.IsEmptyChain(err):
		status = http.StatusNotFound
	case resolver.IsCycle(err), resolver.IsUnknownReference(err):
		status = http.StatusUnprocessableEntity
	case manager.IsInvalidDefinition(err), registry.IsInvalidModelID(err):
		status = http.StatusBadRequest
	case registry.IsDuplicateBaseKey(err):
		status = http.StatusConflict
	default:
		if he, ok := err.(HTTPError); ok {
			status = he.StatusCode()
		}
	}
	return status, types.ErrorResponse{Error: err.Error(), Code: status, Kind: resolver.Kind(err)}
}

// writeServiceError writes err with its mapped status. Invalid definitions
// carry their problem list instead of a plain error.
func writeServiceError(w http.ResponseWriter, err error) int {
	if manager.IsInvalidDefinition(err) {
		writeJSON(w, http.StatusBadRequest, types.ValidateResponse{Valid: false, Problems: manager.Problems(err)})
		return http.StatusBadRequest
	}
	status, body := errorResponse(err)
	writeJSON(w, status, body)
	return status
}
