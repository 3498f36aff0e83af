package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// maxBodyBytes caps JSON request bodies at 1 MB.
const maxBodyBytes = 1 << 20

// writeSuccess writes a JSON response of the form
// {"success": true, <field>: ..., ...}.
func writeSuccess(w http.ResponseWriter, status int, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	body["success"] = true
	for k, v := range fields {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode json response", "error", err)
	}
}

// writeEntity writes {"success": true, <key>: payload}.
func writeEntity(w http.ResponseWriter, status int, key string, payload any) {
	writeSuccess(w, status, map[string]any{key: payload})
}

// writeError writes {"success": false, "error": msg} with the given status.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"success": false, "error": msg}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode json error response", "error", err)
	}
}

// readJSON decodes the request body into v. Returns an error message suitable
// for a 400 response, or empty string on success.
func readJSON(r *http.Request, v any) string {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return "request body too large"
		case errors.Is(err, io.EOF):
			return "request body is empty"
		default:
			return "invalid json body"
		}
	}
	return ""
}
