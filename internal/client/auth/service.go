// Package auth связывает HTTP клиент с локальным хранилищем сессии:
// вызывает signup/signin/verify и сохраняет полученный токен.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/otpauth/internal/client/api"
	"github.com/iudanet/otpauth/internal/client/storage"
	"github.com/iudanet/otpauth/internal/validation"
	pkgapi "github.com/iudanet/otpauth/pkg/api"
)

// ErrNotLoggedIn возвращается, если сохраненной сессии нет
var ErrNotLoggedIn = errors.New("not logged in")

// APIClient - часть HTTP клиента, нужная сервису
type APIClient interface {
	Signup(ctx context.Context, req pkgapi.SignupRequest) (*pkgapi.AuthResponse, error)
	SignIn(ctx context.Context, req pkgapi.SignInRequest) (*pkgapi.AuthResponse, error)
	VerifyOTP(ctx context.Context, req pkgapi.VerifyOTPRequest) (*pkgapi.AuthResponse, error)
	Me(ctx context.Context, token string) (*pkgapi.MeResponse, error)
}

// Result - итог signup/signin/verify для CLI
type Result struct {
	ExpiresAt time.Time
	Username  string
	Message   string
	// NeedsOTP - сервер отправил код, нужен verify
	NeedsOTP bool
}

// Status описывает локальную сессию и ответ сервера на нее
type Status struct {
	ExpiresAt time.Time
	Username  string
	ServerURL string
	// Valid - сервер принял токен
	Valid bool
}

// Service предоставляет функции авторизации
type Service struct {
	apiClient APIClient
	store     storage.AuthStorage
	logger    *slog.Logger
	now       func() time.Time
	serverURL string
}

// NewService создает новый сервис авторизации
func NewService(apiClient APIClient, store storage.AuthStorage, serverURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		apiClient: apiClient,
		store:     store,
		logger:    logger,
		now:       time.Now,
		serverURL: serverURL,
	}
}

// Signup регистрирует пользователя. Токен не выдается до подтверждения кода
func (s *Service) Signup(ctx context.Context, username, email, password string) (*Result, error) {
	if err := validation.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("invalid username: %w", err)
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("invalid password: %w", err)
	}

	resp, err := s.apiClient.Signup(ctx, pkgapi.SignupRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("signup failed: %w", err)
	}

	return s.handle(ctx, resp)
}

// SignIn выполняет вход. Для неподтвержденного аккаунта сервер шлет новый код
func (s *Service) SignIn(ctx context.Context, username, password string) (*Result, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password are required")
	}

	resp, err := s.apiClient.SignIn(ctx, pkgapi.SignInRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return nil, fmt.Errorf("signin failed: %w", err)
	}

	return s.handle(ctx, resp)
}

// Verify подтверждает код и сохраняет сессию
func (s *Service) Verify(ctx context.Context, username, code string) (*Result, error) {
	if err := validation.ValidateOTPCode(code); err != nil {
		return nil, fmt.Errorf("invalid code: %w", err)
	}

	resp, err := s.apiClient.VerifyOTP(ctx, pkgapi.VerifyOTPRequest{
		Username: username,
		Code:     code,
	})
	if err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}

	return s.handle(ctx, resp)
}

// Status читает локальную сессию и проверяет токен на сервере.
// 401 от сервера не ошибка: Valid будет false.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	data, err := s.store.GetAuth(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	status := &Status{
		ExpiresAt: data.ExpiresAt,
		Username:  data.Username,
		ServerURL: data.ServerURL,
	}
	if data.Expired(s.now()) {
		return status, nil
	}

	me, err := s.apiClient.Me(ctx, data.Token)
	if err != nil {
		if api.IsStatus(err, http.StatusUnauthorized) {
			return status, nil
		}
		return nil, fmt.Errorf("failed to check session: %w", err)
	}

	status.Valid = true
	status.Username = me.Username
	return status, nil
}

// Logout удаляет локальную сессию. Токены stateless, сервер не уведомляется
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.DeleteAuth(ctx); err != nil {
		if errors.Is(err, storage.ErrAuthNotFound) {
			return ErrNotLoggedIn
		}
		return fmt.Errorf("failed to delete local auth data: %w", err)
	}
	return nil
}

// handle сохраняет токен из ответа, если сервер его выдал
func (s *Service) handle(ctx context.Context, resp *pkgapi.AuthResponse) (*Result, error) {
	result := &Result{
		Username: resp.Username,
		Message:  resp.Message,
	}

	switch resp.Status {
	case pkgapi.StatusOTPSent:
		result.NeedsOTP = true
		return result, nil
	case pkgapi.StatusAuthenticated:
	default:
		return nil, fmt.Errorf("unexpected response status %q", resp.Status)
	}

	if resp.Token == "" || resp.ExpiresAt == nil {
		return nil, fmt.Errorf("server response has no token")
	}
	result.ExpiresAt = *resp.ExpiresAt

	err := s.store.SaveAuth(ctx, &storage.AuthData{
		ExpiresAt: resp.ExpiresAt.UTC(),
		Username:  resp.Username,
		Token:     resp.Token,
		ServerURL: s.serverURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Debug("session saved",
		slog.String("username", resp.Username),
		slog.Time("expires_at", result.ExpiresAt))

	return result, nil
}
