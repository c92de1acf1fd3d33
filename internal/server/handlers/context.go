package handlers

import (
	"context"
	"time"
)

// contextKey тип для ключей контекста
type contextKey string

const (
	// UsernameKey ключ для хранения username (sub токена) в контексте
	UsernameKey contextKey = "username"
	// ExpiresAtKey ключ для хранения времени истечения токена в контексте
	ExpiresAtKey contextKey = "expires_at"
)

// WithSession добавляет данные проверенного токена в контекст
func WithSession(ctx context.Context, username string, expiresAt time.Time) context.Context {
	ctx = context.WithValue(ctx, UsernameKey, username)
	return context.WithValue(ctx, ExpiresAtKey, expiresAt)
}

// GetUsername извлекает username из контекста запроса
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}

// GetExpiresAt извлекает время истечения токена из контекста запроса
func GetExpiresAt(ctx context.Context) (time.Time, bool) {
	expiresAt, ok := ctx.Value(ExpiresAtKey).(time.Time)
	return expiresAt, ok
}
