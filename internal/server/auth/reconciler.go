package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/otpauth/internal/models"
	"github.com/iudanet/otpauth/internal/server/storage"
	"github.com/iudanet/otpauth/internal/validation"
)

// ProvisionPolicy определяет, что делать с email провайдера, которого нет в хранилище
type ProvisionPolicy int

const (
	// ProvisionAuto создает federated-аккаунт без пароля и OTP
	ProvisionAuto ProvisionPolicy = iota
	// ProvisionReject возвращает ErrIdentityNotLinked
	ProvisionReject
)

// Reconciler сопоставляет email внешнего провайдера с единственной записью пользователя
type Reconciler struct {
	users  storage.UserStorage
	logger *slog.Logger
	now    func() time.Time
	policy ProvisionPolicy
}

// NewReconciler создает Reconciler
func NewReconciler(logger *slog.Logger, users storage.UserStorage, policy ProvisionPolicy) *Reconciler {
	return &Reconciler{
		users:  users,
		logger: logger,
		now:    time.Now,
		policy: policy,
	}
}

// Reconcile возвращает пользователя с этим email, при необходимости создавая его.
// Параллельные вызовы с одним email сходятся на одной записи
func (r *Reconciler) Reconcile(ctx context.Context, email string) (*models.User, error) {
	email = validation.NormalizeEmail(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, err)
	}

	user, err := r.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		r.logger.ErrorContext(ctx, "failed to get user by email", slog.Any("error", err))
		return nil, ErrStoreUnavailable
	}

	if r.policy == ProvisionReject {
		r.logger.WarnContext(ctx, "federated identity is not linked", slog.String("email", email))
		return nil, ErrIdentityNotLinked
	}

	// username = email: локальные username не содержат @, коллизий нет
	user = &models.User{
		ID:          uuid.New().String(),
		Username:    email,
		Email:       email,
		Credential:  models.CredentialFederated,
		OTPVerified: false,
		CreatedAt:   r.now().UTC(),
	}

	if err := r.users.CreateUser(ctx, user); err != nil {
		if !errors.Is(err, storage.ErrUserAlreadyExists) {
			r.logger.ErrorContext(ctx, "failed to provision federated user", slog.Any("error", err))
			return nil, ErrStoreUnavailable
		}

		// Запись создал параллельный запрос
		existing, getErr := r.users.GetUserByEmail(ctx, email)
		if getErr == nil {
			return existing, nil
		}
		if errors.Is(getErr, storage.ErrUserNotFound) {
			r.logger.WarnContext(ctx, "federated username is taken by another account", slog.String("email", email))
			return nil, ErrAccountExists
		}
		r.logger.ErrorContext(ctx, "failed to re-read federated user", slog.Any("error", getErr))
		return nil, ErrStoreUnavailable
	}

	r.logger.InfoContext(ctx, "federated user provisioned",
		slog.String("user_id", user.ID),
		slog.String("email", email))

	return user, nil
}
