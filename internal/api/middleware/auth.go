package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ContextKey is a type for context keys
type ContextKey string

const (
	// ContextKeyAPIKey is the context key for the API key
	ContextKeyAPIKey ContextKey = "api_key"
	// ContextKeyUserID is the context key for the end user the call is made for
	ContextKeyUserID ContextKey = "user_id"
)

// HeaderUserID carries the end user's UUID on authenticated calls
const HeaderUserID = "X-User-ID"

// APIKeyAuth validates the bearer API key. With no keys configured any
// non-empty key is accepted, which is only meant for development.
func APIKeyAuth(keys []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}
			apiKey := strings.TrimSpace(parts[1])

			if len(keys) > 0 && !matchesAny(apiKey, keys) {
				writeError(w, http.StatusUnauthorized, "invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAPIKey, apiKey)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser parses the X-User-ID header into the request context
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(HeaderUserID)
		if raw == "" {
			writeError(w, http.StatusBadRequest, "missing "+HeaderUserID+" header")
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil || userID == uuid.Nil {
			writeError(w, http.StatusBadRequest, HeaderUserID+" must be a UUID")
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// AdminAuth requires the admin token in the X-Admin-Token header, or in the
// admin_token query parameter for websocket clients that cannot set headers.
// An empty configured token disables admin access.
func AdminAuth(token string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-Admin-Token")
			if provided == "" {
				provided = r.URL.Query().Get("admin_token")
			}
			if provided == "" {
				writeError(w, http.StatusForbidden, "admin token required")
				return
			}
			if token == "" || !matchesAny(provided, []string{token}) {
				writeError(w, http.StatusForbidden, "invalid admin token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetAPIKey returns the API key from context
func GetAPIKey(ctx context.Context) string {
	if key, ok := ctx.Value(ContextKeyAPIKey).(string); ok {
		return key
	}
	return ""
}

// GetUserID returns the end user set by RequireUser
func GetUserID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return id, ok
}

func matchesAny(candidate string, accepted []string) bool {
	found := false
	for _, k := range accepted {
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(k)) == 1 {
			found = true
		}
	}
	return found
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
