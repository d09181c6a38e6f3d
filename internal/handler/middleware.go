package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const userIDContextKey contextKey = "auth_user_id"

// AuthMiddleware verifies the bearer token and stores the acting user's ID in
// the request context. Tokens are HS256, signed with the configured secret;
// the subject claim is the user ID. Issuance happens elsewhere, this side
// only verifies.
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				respondError(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}

			token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			userID := subjectUserID(token)
			if userID <= 0 {
				respondError(w, http.StatusUnauthorized, "invalid token subject")
				return
			}

			ctx := context.WithValue(r.Context(), userIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// subjectUserID extracts the user ID from the token's subject claim. The
// claim may arrive as a JSON number or a string depending on the issuer.
func subjectUserID(token *jwt.Token) int64 {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0
	}
	switch sub := claims["sub"].(type) {
	case float64:
		return int64(sub)
	case string:
		id, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return 0
		}
		return id
	default:
		return 0
	}
}

// GetUserID returns the authenticated user's ID from the context, or 0 when
// the request did not pass AuthMiddleware.
func GetUserID(ctx context.Context) int64 {
	if id, ok := ctx.Value(userIDContextKey).(int64); ok {
		return id
	}
	return 0
}

// CronAuth guards the batch trigger endpoint with a shared secret, supplied
// either in the X-Cron-Secret header or the secret query parameter. An empty
// configured secret disables the endpoint entirely.
func CronAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				respondError(w, http.StatusForbidden, "cron trigger disabled")
				return
			}

			provided := r.Header.Get("X-Cron-Secret")
			if provided == "" {
				provided = r.URL.Query().Get("secret")
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
				respondError(w, http.StatusForbidden, "invalid cron secret")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
