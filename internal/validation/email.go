package validation

import (
	"regexp"
	"strings"
)

// EmailPattern - упрощенная проверка формата адреса
var EmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// MaxEmailLen - ограничение длины адреса из RFC 5321
const MaxEmailLen = 254

// NormalizeEmail приводит адрес к виду, в котором он хранится
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail проверяет формат email
func ValidateEmail(email string) error {
	if email == "" {
		return NewFieldError("email", "email cannot be empty")
	}

	if len(email) > MaxEmailLen {
		return NewFieldError("email", "email is too long")
	}

	if !EmailPattern.MatchString(email) {
		return NewFieldError("email", "invalid email format")
	}

	return nil
}
