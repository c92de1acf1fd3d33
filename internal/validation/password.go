package validation

import "fmt"

const (
	// MinPasswordLen минимальная длина пароля в символах
	MinPasswordLen = 8
	// MaxPasswordBytes максимальная длина пароля в байтах (ограничение bcrypt)
	MaxPasswordBytes = 72
)

// ValidatePassword проверяет требования к паролю
// Минимум 8 символов, максимум 72 байта
func ValidatePassword(password string) error {
	if password == "" {
		return NewFieldError("password", "password cannot be empty")
	}

	if len([]rune(password)) < MinPasswordLen {
		return NewFieldError("password", fmt.Sprintf("password must be at least %d characters long", MinPasswordLen))
	}

	if len(password) > MaxPasswordBytes {
		return NewFieldError("password", fmt.Sprintf("password must not exceed %d bytes", MaxPasswordBytes))
	}

	return nil
}
