package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/iudanet/otpauth/pkg/api"
)

// RecoveryMiddleware создает middleware для восстановления после паники
// Перехватывает panic, логирует стек вызовов и возвращает 500 Internal Server Error
// в формате api.ErrorResponse
func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return RecoveryWithCustomError(logger, "internal server error")
}

// RecoveryWithCustomError создает middleware с кастомным сообщением об ошибке
func RecoveryWithCustomError(logger *slog.Logger, errorMessage string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					// Получаем стек вызовов для диагностики
					stackTrace := debug.Stack()

					logger.ErrorContext(r.Context(), "Panic recovered",
						slog.Any("error", err),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("remote_addr", r.RemoteAddr),
						slog.String("stack", string(stackTrace)),
					)

					// Возвращаем generic ошибку клиенту (не раскрываем детали)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: errorMessage})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
