package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/recallware/memspace/internal/api"
)

type contextKey string

const OwnerIDKey contextKey = "owner_id"

type AuthValidator interface {
	ValidateAPIKey(ctx context.Context, token string) (string, error)
}

// APIKeyAuth resolves a bearer API key to its owner id and stores it
// in the request context. All failure modes answer 401.
func APIKeyAuth(validator AuthValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.Error(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.Error(w, http.StatusUnauthorized, "invalid authorization format")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")

			ownerID, err := validator.ValidateAPIKey(r.Context(), token)
			if err != nil {
				api.Error(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			ctx := context.WithValue(r.Context(), OwnerIDKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetOwnerID returns the authenticated owner id from context.
func GetOwnerID(ctx context.Context) string {
	ownerID, _ := ctx.Value(OwnerIDKey).(string)
	return ownerID
}
