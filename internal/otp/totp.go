// Package otp генерирует и проверяет одноразовые коды TOTP (RFC 6238).
//
// Параметры фиксированы: HMAC-SHA1, 6 цифр, шаг 30 секунд, допускается
// отклонение на одно окно в каждую сторону. Секрет хранится в base32 без паддинга.
package otp

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
	"time"

	potp "github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	// SecretSize - длина секрета в байтах (160 бит)
	SecretSize = 20
	// Period - длительность окна в секундах
	Period = 30
	// Skew - количество соседних окон, которые принимаются при проверке
	Skew = 1
	// Digits - длина кода
	Digits = 6
)

// ErrInvalidSecret возвращается при попытке декодировать некорректный секрет
var ErrInvalidSecret = errors.New("invalid otp secret")

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Engine вычисляет и проверяет коды для секрета пользователя
type Engine struct {
	opts totp.ValidateOpts
}

// NewEngine создает Engine с параметрами RFC 6238 по умолчанию
func NewEngine() *Engine {
	return &Engine{
		opts: totp.ValidateOpts{
			Period:    Period,
			Skew:      Skew,
			Digits:    potp.DigitsSix,
			Algorithm: potp.AlgorithmSHA1,
		},
	}
}

// GenerateSecret возвращает новый случайный секрет из crypto/rand
func (e *Engine) GenerateSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate otp secret: %w", err)
	}
	return secret, nil
}

// CurrentCode возвращает код для окна, в которое попадает t
func (e *Engine) CurrentCode(secret []byte, t time.Time) (string, error) {
	if len(secret) == 0 {
		return "", ErrInvalidSecret
	}
	code, err := totp.GenerateCodeCustom(EncodeSecret(secret), t, e.opts)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp code: %w", err)
	}
	return code, nil
}

// Validate проверяет код для окна t и соседних окон.
// Некорректный по формату код просто не проходит проверку
func (e *Engine) Validate(secret []byte, code string, t time.Time) bool {
	if len(secret) == 0 || len(code) != Digits {
		return false
	}
	ok, err := totp.ValidateCustom(code, EncodeSecret(secret), t, e.opts)
	if err != nil {
		return false
	}
	return ok
}

// EncodeSecret кодирует секрет для хранения (base32 RFC 4648 без паддинга)
func EncodeSecret(secret []byte) string {
	return secretEncoding.EncodeToString(secret)
}

// DecodeSecret декодирует секрет, сохраненный через EncodeSecret
func DecodeSecret(encoded string) ([]byte, error) {
	encoded = strings.TrimRight(strings.ToUpper(strings.TrimSpace(encoded)), "=")
	if encoded == "" {
		return nil, ErrInvalidSecret
	}
	secret, err := secretEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSecret, err)
	}
	return secret, nil
}
