// Package api serves the HTTP surface of the Emily API.
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getemily/emily-api/internal/models"
)

// fallbackErrorBody is served when marshaling a response fails at runtime.
// It is built once at startup so the failure path never depends on the
// encoder working.
var fallbackErrorBody []byte

func init() {
	var err error
	fallbackErrorBody, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse marshals response and writes it with the given status.
// Marshaling happens before any header is written so an encoding failure can
// still downgrade the whole response to the fallback body and a 500.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorBody
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// writeError writes an error envelope with the given status and message.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSONResponse(w, statusCode, models.Error(message))
}

// decodeJSONBody decodes the request body into dst. On failure it logs under
// the handler's name, answers 400, and returns false; handlers bail out on a
// false return.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, handler string, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		slog.Warn("Server."+handler+": failed to decode JSON", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON format")
		return false
	}
	return true
}
