package httpapi

import (
	"encoding/json"
	"net/http"

	"inferd/internal/codec"
	"inferd/internal/dispatch"
	"inferd/internal/registry"
	"inferd/pkg/v2"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v2.ErrorResponse{Error: msg, Code: status})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case codec.IsInvalidArgument(err):
		return http.StatusBadRequest
	case registry.IsNotFound(err):
		return http.StatusNotFound
	case registry.IsConflict(err):
		return http.StatusConflict
	case registry.IsNotReady(err), registry.IsUnavailable(err):
		return http.StatusServiceUnavailable
	case dispatch.IsExecutorFailure(err):
		return http.StatusInternalServerError
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func writeEngineError(w http.ResponseWriter, err error) {
	writeJSONError(w, statusFor(err), err.Error())
}
