// Package httpx holds the small request and response helpers shared by the
// HTTP handlers.
package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// OwnerHeader carries the authenticated user id set by the upstream gateway.
const OwnerHeader = "X-User-ID"

const maxBody = 1 << 20

// Owner returns the caller's user id, or false when the header is missing.
func Owner(r *http.Request) (string, bool) {
	owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
	return owner, owner != ""
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError sends {"error": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// ReadJSON decodes a bounded request body into out. An empty body leaves out
// untouched.
func ReadJSON(r *http.Request, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// WriteFile sends an attachment.
func WriteFile(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
