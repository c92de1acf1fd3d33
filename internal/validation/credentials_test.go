package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		errMsg   string
		wantErr  bool
	}{
		{
			name:     "valid password - exactly 8 chars",
			password: "password",
			wantErr:  false,
		},
		{
			name:     "valid password - with special chars",
			password: "P@ssw0rd!@#$",
			wantErr:  false,
		},
		{
			name:     "valid password - unicode counted by characters",
			password: "пароль12",
			wantErr:  false,
		},
		{
			name:     "valid password - exactly 72 bytes",
			password: strings.Repeat("a", 72),
			wantErr:  false,
		},
		{
			name:     "invalid - empty password",
			password: "",
			wantErr:  true,
			errMsg:   "password cannot be empty",
		},
		{
			name:     "invalid - too short (7 chars)",
			password: "passwor",
			wantErr:  true,
			errMsg:   "must be at least 8 characters",
		},
		{
			name:     "invalid - 73 bytes",
			password: strings.Repeat("a", 73),
			wantErr:  true,
			errMsg:   "must not exceed 72 bytes",
		},
		{
			name:     "invalid - 40 cyrillic chars are 80 bytes",
			password: strings.Repeat("я", 40),
			wantErr:  true,
			errMsg:   "must not exceed 72 bytes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		errMsg  string
		wantErr bool
	}{
		{name: "simple", email: "alice@example.com"},
		{name: "plus and dots", email: "alice.smith+otp@mail.example.org"},
		{name: "empty", email: "", wantErr: true, errMsg: "email cannot be empty"},
		{name: "no at", email: "alice.example.com", wantErr: true, errMsg: "invalid email format"},
		{name: "no domain", email: "alice@", wantErr: true, errMsg: "invalid email format"},
		{name: "no tld", email: "alice@localhost", wantErr: true, errMsg: "invalid email format"},
		{name: "spaces", email: "alice smith@example.com", wantErr: true, errMsg: "invalid email format"},
		{name: "too long", email: strings.Repeat("a", 250) + "@example.com", wantErr: true, errMsg: "too long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmail(tt.email)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)

			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, "email", fieldErr.Field)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
	assert.Equal(t, "", NormalizeEmail(""))
}

func TestValidateOTPCode(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{name: "six digits", code: "123456"},
		{name: "leading zeros", code: "000123"},
		{name: "empty", code: "", wantErr: true},
		{name: "five digits", code: "12345", wantErr: true},
		{name: "seven digits", code: "1234567", wantErr: true},
		{name: "letters", code: "12a456", wantErr: true},
		{name: "spaces", code: "123 456", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOTPCode(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
