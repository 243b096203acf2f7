package middleware

import (
	"app/internal/logger"
	"app/internal/model"
	"app/internal/util" // JWT helper
	"context"
	"net/http"
	"strings"
)

// Injected key type to avoid context collisions
type contextKey string

const ClaimsContextKey = contextKey("claims")

// ClaimsFromContext returns the identity claims embedded by AuthMiddleware.
func ClaimsFromContext(ctx context.Context) (model.IdentityClaims, bool) {
	claims, ok := ctx.Value(ClaimsContextKey).(model.IdentityClaims)
	return claims, ok
}

func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logger.New()
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Error().Msg("Authorization header missing")
				http.Error(w, "Authorization header missing", http.StatusUnauthorized)
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.Error().Msg("Invalid authorization header")
				http.Error(w, "Invalid authorization header", http.StatusUnauthorized)
				return
			}
			tokenString := parts[1]
			claims, err := util.ValidateJWT(tokenString, jwtSecret)
			if err != nil {
				logger.Error().Msgf("Invalid token: %+v", err)
				http.Error(w, "Invalid token: "+err.Error(), http.StatusUnauthorized)
				return
			}
			// Embed the full identity claims into request context; the
			// authorization gate decides admin access from the email claim.
			identity := model.IdentityClaims{UserID: claims.Subject, Email: claims.Email}
			ctx := context.WithValue(r.Context(), ClaimsContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
