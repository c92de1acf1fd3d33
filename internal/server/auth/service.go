// Package auth реализует регистрацию, вход по паролю с подтверждением TOTP
// и вход через внешнего OAuth провайдера.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/otpauth/internal/models"
	"github.com/iudanet/otpauth/internal/otp"
	"github.com/iudanet/otpauth/internal/server/delivery"
	"github.com/iudanet/otpauth/internal/server/oauth"
	"github.com/iudanet/otpauth/internal/server/storage"
	"github.com/iudanet/otpauth/internal/validation"
)

// Hasher хеширует и проверяет пароли
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// OTPEngine генерирует секреты и коды TOTP
type OTPEngine interface {
	GenerateSecret() ([]byte, error)
	CurrentCode(secret []byte, t time.Time) (string, error)
	Validate(secret []byte, code string, t time.Time) bool
}

// TokenIssuer подписывает сессионные токены
type TokenIssuer interface {
	Issue(username string, now time.Time) (string, time.Time, error)
}

// Status - итог успешной операции
type Status string

const (
	// StatusAuthenticated - выдан сессионный токен
	StatusAuthenticated Status = "authenticated"
	// StatusOTPSent - код отправлен, требуется VerifyOTP
	StatusOTPSent Status = "otp_sent"
)

// Result - результат операции. Token заполнен только при StatusAuthenticated
type Result struct {
	ExpiresAt time.Time
	Status    Status
	Username  string
	Token     string
}

// SignupRequest - данные регистрации
type SignupRequest struct {
	Username string
	Email    string
	Password string
}

// SignInRequest - данные входа по паролю
type SignInRequest struct {
	Username string
	Password string
}

// VerifyOTPRequest - код, введенный пользователем
type VerifyOTPRequest struct {
	Username string
	Code     string
}

// FederatedSignInRequest - authorization code внешнего провайдера
type FederatedSignInRequest struct {
	Code string
}

// Deps - зависимости Service. Provider и Reconciler необязательны
type Deps struct {
	Logger     *slog.Logger
	Users      storage.UserStorage
	Hasher     Hasher
	OTP        OTPEngine
	Sender     delivery.Sender
	Tokens     TokenIssuer
	Provider   oauth.Provider
	Reconciler *Reconciler
	Now        func() time.Time
}

// Service - оркестратор аутентификации. Не хранит состояния между запросами
type Service struct {
	logger     *slog.Logger
	users      storage.UserStorage
	hasher     Hasher
	otp        OTPEngine
	sender     delivery.Sender
	tokens     TokenIssuer
	provider   oauth.Provider
	reconciler *Reconciler
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// dummyPassword - пароль фиктивного хеша, с которым сравниваются попытки входа
// неизвестного пользователя и аккаунта без пароля
const dummyPassword = "otpauth-timing-equalizer"

// NewService проверяет обязательные зависимости и создает Service
func NewService(d Deps) (*Service, error) {
	switch {
	case d.Users == nil:
		return nil, errors.New("auth: user storage is required")
	case d.Hasher == nil:
		return nil, errors.New("auth: hasher is required")
	case d.OTP == nil:
		return nil, errors.New("auth: otp engine is required")
	case d.Sender == nil:
		return nil, errors.New("auth: otp sender is required")
	case d.Tokens == nil:
		return nil, errors.New("auth: token issuer is required")
	}

	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Reconciler == nil {
		d.Reconciler = NewReconciler(d.Logger, d.Users, ProvisionAuto)
	}
	d.Reconciler.now = d.Now

	return &Service{
		logger:     d.Logger,
		users:      d.Users,
		hasher:     d.Hasher,
		otp:        d.OTP,
		sender:     d.Sender,
		tokens:     d.Tokens,
		provider:   d.Provider,
		reconciler: d.Reconciler,
		now:        d.Now,
	}, nil
}

// Signup создает локальный аккаунт и отправляет первый код.
// Аккаунт создается только после успешной отправки, токен до VerifyOTP не выдается
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Result, error) {
	email := validation.NormalizeEmail(req.Email)

	for _, err := range []error{
		validation.ValidateUsername(req.Username),
		validation.ValidateEmail(email),
		validation.ValidatePassword(req.Password),
	} {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
		}
	}

	if err := s.ensureAvailable(ctx, req.Username, email); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		return nil, ErrHashingFailed
	}

	secret, err := s.otp.GenerateSecret()
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate otp secret", slog.Any("error", err))
		return nil, ErrSecretUnavailable
	}

	now := s.now()
	if err := s.dispatchCode(ctx, secret, email, now); err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        email,
		Credential:   models.CredentialLocal,
		PasswordHash: passwordHash,
		OTPSecret:    otp.EncodeSecret(secret),
		OTPVerified:  false,
		CreatedAt:    now.UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserAlreadyExists) {
			s.logger.WarnContext(ctx, "user already exists", slog.String("username", req.Username))
			return nil, ErrAccountExists
		}
		s.logger.ErrorContext(ctx, "failed to create user", slog.Any("error", err))
		return nil, ErrStoreUnavailable
	}

	s.logger.InfoContext(ctx, "user registered, otp sent",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID))

	return &Result{Status: StatusOTPSent, Username: user.Username}, nil
}

// SignIn проверяет пароль. Подтвержденный пользователь получает токен,
// неподтвержденному отправляется новый код
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*Result, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, validation.NewFieldError("username", "username cannot be empty"))
	}
	if req.Password == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, validation.NewFieldError("password", "password cannot be empty"))
	}

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.burnVerify(req.Password)
			s.logger.WarnContext(ctx, "sign in failed: user not found", slog.String("username", req.Username))
			return nil, ErrInvalidCredentials
		}
		s.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		return nil, ErrStoreUnavailable
	}

	if !user.HasPassword() {
		s.burnVerify(req.Password)
		s.logger.WarnContext(ctx, "sign in failed: account has no password", slog.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.logger.WarnContext(ctx, "sign in failed: invalid password", slog.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}

	if user.OTPVerified {
		return s.issue(ctx, user)
	}

	secret, err := otp.DecodeSecret(user.OTPSecret)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored otp secret is unreadable",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, ErrSecretUnavailable
	}

	if err := s.dispatchCode(ctx, secret, user.Email, s.now()); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "otp sent, verification required", slog.String("username", user.Username))

	return &Result{Status: StatusOTPSent, Username: user.Username}, nil
}

// burnVerify сравнивает пароль с фиктивным хешем той же стоимости
func (s *Service) burnVerify(password string) {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash(dummyPassword)
		if err != nil {
			s.logger.Error("failed to prepare dummy password hash", slog.Any("error", err))
			return
		}
		s.dummyHash = hash
	})
	s.hasher.Verify(password, s.dummyHash)
}

// VerifyOTP проверяет код и выдает токен. Первое успешное подтверждение
// отмечает пользователя как verified, повторные проходят без изменения состояния
func (s *Service) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*Result, error) {
	if req.Username == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, validation.NewFieldError("username", "username cannot be empty"))
	}

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			s.logger.WarnContext(ctx, "otp verification for unknown user", slog.String("username", req.Username))
			return nil, ErrUserNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get user", slog.Any("error", err))
		return nil, ErrStoreUnavailable
	}

	if !user.HasOTP() {
		s.logger.WarnContext(ctx, "otp verification for account without otp", slog.String("username", req.Username))
		return nil, ErrInvalidOTP
	}

	secret, err := otp.DecodeSecret(user.OTPSecret)
	if err != nil {
		s.logger.ErrorContext(ctx, "stored otp secret is unreadable",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, ErrSecretUnavailable
	}

	if !s.otp.Validate(secret, req.Code, s.now()) {
		s.logger.WarnContext(ctx, "invalid otp code", slog.String("username", req.Username))
		return nil, ErrInvalidOTP
	}

	if !user.OTPVerified {
		if err := s.users.MarkOTPVerified(ctx, user.ID); err != nil {
			if errors.Is(err, storage.ErrUserNotFound) {
				return nil, ErrUserNotFound
			}
			s.logger.ErrorContext(ctx, "failed to mark otp verified", slog.Any("error", err))
			return nil, ErrStoreUnavailable
		}
		s.logger.InfoContext(ctx, "otp verified", slog.String("username", user.Username))
	}

	return s.issue(ctx, user)
}

// FederatedSignIn обменивает code провайдера на профиль, сопоставляет email
// с пользователем и выдает токен. Пароль и OTP в этом сценарии не проверяются
func (s *Service) FederatedSignIn(ctx context.Context, req FederatedSignInRequest) (*Result, error) {
	if req.Code == "" {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, validation.NewFieldError("code", "code cannot be empty"))
	}

	if s.provider == nil {
		s.logger.ErrorContext(ctx, "federated sign in requested but no identity provider is configured")
		return nil, ErrProviderExchangeFailed
	}

	tokens, err := s.provider.Exchange(ctx, req.Code)
	if err != nil {
		s.logger.WarnContext(ctx, "oauth code exchange failed", slog.Any("error", err))
		return nil, ErrProviderExchangeFailed
	}

	profile, err := s.provider.FetchProfile(ctx, tokens)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch oauth profile", slog.Any("error", err))
		return nil, ErrProviderExchangeFailed
	}

	if profile.Email == "" || !profile.EmailVerified {
		s.logger.WarnContext(ctx, "oauth profile has no verified email", slog.String("subject", profile.Subject))
		return nil, ErrProviderExchangeFailed
	}

	user, err := s.reconciler.Reconcile(ctx, profile.Email)
	if err != nil {
		return nil, err
	}

	return s.issue(ctx, user)
}

// ensureAvailable проверяет, что username и email свободны
func (s *Service) ensureAvailable(ctx context.Context, username, email string) error {
	lookups := []func() (*models.User, error){
		func() (*models.User, error) { return s.users.GetUserByUsername(ctx, username) },
		func() (*models.User, error) { return s.users.GetUserByEmail(ctx, email) },
	}

	for _, lookup := range lookups {
		_, err := lookup()
		switch {
		case err == nil:
			s.logger.WarnContext(ctx, "user already exists", slog.String("username", username))
			return ErrAccountExists
		case errors.Is(err, storage.ErrUserNotFound):
		default:
			s.logger.ErrorContext(ctx, "failed to check user availability", slog.Any("error", err))
			return ErrStoreUnavailable
		}
	}

	return nil
}

// dispatchCode вычисляет код текущего окна и отправляет его
func (s *Service) dispatchCode(ctx context.Context, secret []byte, email string, now time.Time) error {
	code, err := s.otp.CurrentCode(secret, now)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to compute otp code", slog.Any("error", err))
		return ErrSecretUnavailable
	}

	if err := s.sender.SendCode(ctx, email, code); err != nil {
		s.logger.ErrorContext(ctx, "failed to deliver otp", slog.Any("error", err))
		return ErrDeliveryFailed
	}

	return nil
}

func (s *Service) issue(ctx context.Context, user *models.User) (*Result, error) {
	token, expiresAt, err := s.tokens.Issue(user.Username, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue token", slog.Any("error", err))
		return nil, ErrTokenIssuanceFailed
	}

	s.logger.InfoContext(ctx, "user authenticated",
		slog.String("username", user.Username),
		slog.String("user_id", user.ID))

	return &Result{
		Status:    StatusAuthenticated,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
