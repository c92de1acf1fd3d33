package storage

import (
	"context"
	"time"
)

// AuthStorage хранит сессию клиента между запусками CLI
type AuthStorage interface {
	// SaveAuth перезаписывает текущую сессию
	SaveAuth(ctx context.Context, auth *AuthData) error

	// GetAuth returns ErrAuthNotFound if no session has been saved.
	GetAuth(ctx context.Context) (*AuthData, error)

	// DeleteAuth removes the stored session (logout)
	DeleteAuth(ctx context.Context) error

	// IsAuthenticated reports whether a session exists and its token has not expired.
	IsAuthenticated(ctx context.Context) (bool, error)
}

// AuthData - сессия, полученная от сервера после signin или verify.
// Token хранится как есть: это подписанный сервером JWT без секретов внутри.
type AuthData struct {
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ServerURL string    `json:"server_url"`
}

// Expired сообщает, истек ли токен к моменту now
func (a *AuthData) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
