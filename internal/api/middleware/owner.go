package middleware

import (
	"context"
	"net/http"
	"strings"
)

type contextKey string

// OwnerKey is the context key for the requesting user's id.
const OwnerKey contextKey = "owner_id"

// OwnerExtractor reads the requesting user from the X-User-Id header, then
// the user_id query parameter. Authentication happens upstream; handlers
// reject requests that carry no owner.
func OwnerExtractor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get("X-User-Id"))
		if owner == "" {
			owner = strings.TrimSpace(r.URL.Query().Get("user_id"))
		}
		if owner != "" {
			r = r.WithContext(WithOwner(r.Context(), owner))
		}
		next.ServeHTTP(w, r)
	})
}

// WithOwner stores the owner id in ctx.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, OwnerKey, owner)
}

// GetOwner returns the owner id from ctx, or "" when absent.
func GetOwner(ctx context.Context) string {
	if v, ok := ctx.Value(OwnerKey).(string); ok {
		return v
	}
	return ""
}
