package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
)

// WriteJSONResponse encodes v to a buffer first to prevent partial writes if
// JSON encoding fails, then writes it with the JSON content type. Reports
// whether the response was written.
func WriteJSONResponse(w http.ResponseWriter, v any) bool {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("API: Failed to write response: %v", err)
		return false
	}
	return true
}
