package validation

import "regexp"

// OTPCodePattern - шесть десятичных цифр
var OTPCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidateOTPCode проверяет формат одноразового кода
func ValidateOTPCode(code string) error {
	if code == "" {
		return NewFieldError("code", "code cannot be empty")
	}

	if !OTPCodePattern.MatchString(code) {
		return NewFieldError("code", "code must be 6 digits")
	}

	return nil
}
