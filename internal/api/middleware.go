package api

import (
	"context"
	"log"
	"net/http"
	"strings"
)

type contextKey string

// RemoteUserKey is the context key used to store the authenticated user.
const RemoteUserKey contextKey = "remote_user"

// RequireAuth middleware checks for the Remote-User header set by the
// forward-auth reverse proxy (e.g. Authelia). The server is never exposed
// directly; every request reaches it through the proxy, which strips any
// client-supplied Remote-User header. Returns 401 Unauthorized if the header
// is missing.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get("Remote-User"))
		if user == "" {
			log.Println("Auth: No Remote-User header present")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), RemoteUserKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRemoteUserFromContext returns the authenticated user from the context.
func GetRemoteUserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(RemoteUserKey).(string)
	return user, ok
}
