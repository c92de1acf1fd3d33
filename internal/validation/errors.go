package validation

import "errors"

// ErrInvalid - общий sentinel для всех ошибок валидации
var ErrInvalid = errors.New("validation failed")

// FieldError описывает, какое поле не прошло проверку
type FieldError struct {
	Field   string
	Message string
}

// NewFieldError создает ошибку валидации поля
func NewFieldError(field, message string) *FieldError {
	return &FieldError{Field: field, Message: message}
}

func (e *FieldError) Error() string {
	return e.Message
}

// Unwrap позволяет проверять ошибку через errors.Is(err, ErrInvalid)
func (e *FieldError) Unwrap() error {
	return ErrInvalid
}
