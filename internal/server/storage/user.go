package storage

import (
	"context"

	"github.com/iudanet/otpauth/internal/models"
)

// UserStorage defines interface for user credential persistence
type UserStorage interface {
	// CreateUser creates a new user in the storage
	// Returns ErrUserAlreadyExists if username or email is already taken
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByUsername retrieves user by username
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// GetUserByEmail retrieves user by email (case-insensitive)
	// Returns ErrUserNotFound if user doesn't exist
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// MarkOTPVerified sets otp_verified flag, repeated calls are no-op
	// Returns ErrUserNotFound if user doesn't exist
	MarkOTPVerified(ctx context.Context, userID string) error
}
