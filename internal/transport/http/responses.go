package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "caregate/pkg/domain-errors"
)

// writeJSON writes a JSON body with the given status.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses so every
// handler returns the same JSON error envelope. Internal detail stays in
// wrapped causes and logs; only the client-safe message leaves the process.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":             string(code),
		"error_description": dErrors.MessageOf(err),
	})
}
