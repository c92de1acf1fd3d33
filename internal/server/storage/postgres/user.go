package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/iudanet/otpauth/internal/models"
	"github.com/iudanet/otpauth/internal/server/storage"
)

// uniqueViolation - SQLSTATE нарушения ограничения уникальности
const uniqueViolation = "23505"

const selectUserColumns = `SELECT id, username, email, credential, password_hash, otp_secret, otp_verified, created_at
		 FROM users
		 `

// CreateUser creates a new user in the storage
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	query :=
		`INSERT INTO users (id, username, email, credential, password_hash, otp_secret, otp_verified, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		string(user.Credential),
		nullString(user.PasswordHash),
		nullString(user.OTPSecret),
		user.OTPVerified,
		user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return storage.ErrUserAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

// GetUserByUsername retrieves user by username
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, selectUserColumns+`WHERE username = $1`, username)
}

// GetUserByEmail retrieves user by email
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, selectUserColumns+`WHERE lower(email) = lower($1)`, email)
}

// MarkOTPVerified sets otp_verified flag
func (s *Storage) MarkOTPVerified(ctx context.Context, userID string) error {
	query := `UPDATE users SET otp_verified = TRUE WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

func (s *Storage) getUser(ctx context.Context, query string, arg any) (*models.User, error) {
	user := &models.User{}
	var (
		credential   string
		passwordHash sql.NullString
		otpSecret    sql.NullString
	)

	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&credential,
		&passwordHash,
		&otpSecret,
		&user.OTPVerified,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Credential = models.CredentialKind(credential)
	if !user.Credential.IsValid() {
		return nil, fmt.Errorf("%w: user %s has credential kind %q", storage.ErrInvalidRecord, user.ID, credential)
	}
	user.PasswordHash = passwordHash.String
	user.OTPSecret = otpSecret.String

	return user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
