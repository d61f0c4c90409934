package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"sharefun/internal/httputil"
	"sharefun/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user's ID
	UserIDKey contextKey = "user_id"

	// TokenHeader is the fallback header for clients that cannot set Authorization.
	TokenHeader = "token"
)

// TokenAuthenticator resolves a session token to a user ID.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

// TokenFromRequest reads "Authorization: Bearer <token>", then the token header.
func TokenFromRequest(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return strings.TrimSpace(r.Header.Get(TokenHeader))
}

// AuthMiddleware rejects requests without a live session and stores the
// session's user ID in the request context.
func AuthMiddleware(auth TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := TokenFromRequest(r)
			if tokenString == "" {
				httputil.WriteUnauthorized(w, "Missing authentication token")
				return
			}

			userID, err := auth.Authenticate(r.Context(), tokenString)
			if err != nil {
				switch {
				case errors.Is(err, model.ErrSessionExpired):
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Session has expired")
				case errors.Is(err, model.ErrInvalidToken):
					httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")
				default:
					log.WithError(err).Error("[AuthMiddleware] Session lookup failed")
					httputil.WriteInternalError(w, "Failed to authenticate")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserIDFromContext extracts the user ID from the request context
// Returns the user ID and true if found, or 0 and false if not found
func GetUserIDFromContext(ctx context.Context) (int64, bool) {
	userID, ok := ctx.Value(UserIDKey).(int64)
	return userID, ok
}
