package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const providerClaimsKey contextKey = "providerClaims"

// ProviderJWT enforces an HMAC-signed JWT on provider dashboard endpoints.
// The token subject must match the {providerID} route parameter, so a
// provider can only read its own appointments and stats.
func ProviderJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "provider auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := strings.TrimPrefix(auth, "Bearer ")
			claims := jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			if providerID := chi.URLParam(r, "providerID"); providerID != "" && claims.Subject != providerID {
				http.Error(w, "token does not grant access to this provider", http.StatusForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), providerClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ProviderClaimsFromContext returns provider JWT claims if present.
func ProviderClaimsFromContext(ctx context.Context) (jwt.RegisteredClaims, bool) {
	claims, ok := ctx.Value(providerClaimsKey).(jwt.RegisteredClaims)
	return claims, ok
}
