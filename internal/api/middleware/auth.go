package middleware

import (
	"context"
	"net/http"
)

type contextKey string

// userIDKey is the context key for the authenticated user's ID.
const userIDKey contextKey = "user_id"

// authEnvelope matches the API response envelope for errors written by
// middleware. This avoids importing the api package (which would create a
// circular dependency).
type authEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Authenticator resolves a bearer credential (session token or API key) to
// a user ID.
type Authenticator interface {
	Resolve(ctx context.Context, credential string) (string, error)
}

// RequireAuth returns middleware that resolves the Authorization header to a
// user identity. On success it stores the user ID in the request context; on
// failure it writes a 401 JSON error without invoking the handler.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential := r.Header.Get("Authorization")
			if credential == "" {
				writeAuthError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			userID, err := auth.Resolve(r.Context(), credential)
			if err != nil {
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired credentials")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retrieves the authenticated user ID from the context.
// Returns the empty string for unauthenticated requests.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// WithUserID returns a context carrying the given user ID. Intended for tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// writeAuthError writes a JSON error matching the API envelope format.
func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"success":false,"error":"` + msg + `"}`)) //nolint:errcheck
}
