package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"

	RequestIDHeader = "X-Request-ID"
	UserNameHeader  = "X-User-Name"
	UserNameQuery   = "user_name"
)

func RequestIDFromContext(ctx context.Context) string {
	if rid, ok := ctx.Value(RequestIDKey).(string); ok {
		return rid
	}
	return ""
}

// UserNameFromRequest prefers the header over the query parameter.
func UserNameFromRequest(r *http.Request) string {
	if name := strings.TrimSpace(r.Header.Get(UserNameHeader)); name != "" {
		return name
	}
	return strings.TrimSpace(r.URL.Query().Get(UserNameQuery))
}
