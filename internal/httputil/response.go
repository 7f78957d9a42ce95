package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/trackfix-data/trackfix/internal/monitoring"
	"github.com/trackfix-data/trackfix/internal/trackerr"
)

// errorBody is the wire shape of every error response:
// {"error": {"kind": "...", "message": "..."}}.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Logf("failed to encode json response: %v", err)
	}
}

// WriteJSONOK writes a successful JSON response (200 OK).
func WriteJSONOK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// WriteJSONError writes a JSON error response with an explicit status,
// kind and message.
func WriteJSONError(w http.ResponseWriter, status int, kind, msg string) {
	WriteJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: msg}})
}

// WriteError maps a domain error onto the HTTP status it deserves and
// writes it in the standard error envelope.
func WriteError(w http.ResponseWriter, err error) {
	kind := trackerr.KindOf(err)
	WriteJSONError(w, StatusForKind(kind), kind.String(), err.Error())
}

// StatusForKind maps error kinds to HTTP status codes.
func StatusForKind(kind trackerr.Kind) int {
	switch kind {
	case trackerr.KindNotFound:
		return http.StatusNotFound
	case trackerr.KindUnsupportedFormat,
		trackerr.KindInvalidFormat,
		trackerr.KindInvalidArgument,
		trackerr.KindOutOfRange,
		trackerr.KindUnsupportedExportFormat:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// MethodNotAllowed writes a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// BadRequest writes a 400 Bad Request response with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusBadRequest, trackerr.KindInvalidArgument.String(), msg)
}

// NotFound writes a 404 Not Found response.
func NotFound(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusNotFound, trackerr.KindNotFound.String(), msg)
}

// InternalServerError writes a 500 Internal Server Error response.
func InternalServerError(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusInternalServerError, trackerr.KindInternal.String(), msg)
}
