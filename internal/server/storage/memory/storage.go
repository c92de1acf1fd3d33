// Package memory - хранилище пользователей в памяти процесса.
// Используется для локального запуска и в тестах оркестратора.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/iudanet/otpauth/internal/models"
	"github.com/iudanet/otpauth/internal/server/storage"
)

// Storage хранит копии пользователей, индексированные по id, username и email
type Storage struct {
	byID       map[string]*models.User
	byUsername map[string]string
	byEmail    map[string]string
	mu         sync.Mutex
}

// New creates an empty in-memory storage
func New() *Storage {
	return &Storage{
		byID:       make(map[string]*models.User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	email := strings.ToLower(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[user.Username]; ok {
		return storage.ErrUserAlreadyExists
	}
	if _, ok := s.byEmail[email]; ok {
		return storage.ErrUserAlreadyExists
	}

	stored := *user
	s.byID[user.ID] = &stored
	s.byUsername[user.Username] = user.ID
	s.byEmail[email] = user.ID

	return nil
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookup(s.byUsername[username])
}

// GetUserByEmail retrieves user by email (case-insensitive)
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lookup(s.byEmail[strings.ToLower(email)])
}

// MarkOTPVerified sets otp_verified flag
func (s *Storage) MarkOTPVerified(ctx context.Context, userID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return storage.ErrUserNotFound
	}
	user.OTPVerified = true

	return nil
}

// lookup возвращает копию, чтобы вызывающий код не мог изменить хранилище в обход методов
func (s *Storage) lookup(id string) (*models.User, error) {
	user, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

// Ping всегда успешен, пока не отменен ctx
func (s *Storage) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close ничего не освобождает
func (s *Storage) Close() error {
	return nil
}
