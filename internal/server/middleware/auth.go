package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/otpauth/internal/server/handlers"
	"github.com/iudanet/otpauth/internal/server/jwt"
)

// TokenParser проверяет подпись и срок действия сессионного токена
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
}

// AuthMiddleware создает middleware для проверки JWT токена
func AuthMiddleware(logger *slog.Logger, tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем токен из заголовка Authorization
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Ожидаем формат: "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				// сам заголовок не логируем, в нем может быть токен
				logger.Warn("Invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.Parse(parts[1])
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			var expiresAt time.Time
			if claims.ExpiresAt != nil {
				expiresAt = claims.ExpiresAt.UTC()
			}

			ctx := handlers.WithSession(r.Context(), claims.Username(), expiresAt)

			logger.Debug("User authenticated", "username", claims.Username())

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
