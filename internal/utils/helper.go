package utils

import (
	"encoding/json"
	"net/http"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page normalises a limit/page pair into limit and offset.
func Page(limit, page int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func StrPtr(s string) *string {
	return &s
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	OrderID string `json:"order_id,omitempty"`
}

func WriteJSONError(w http.ResponseWriter, status int, body ErrorBody) {
	WriteJSON(w, status, map[string]ErrorBody{"error": body})
}
