package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL - срок жизни сессионного токена
const DefaultTTL = 24 * time.Hour

var (
	// ErrEmptySigningKey возвращается при попытке создать Issuer без ключа
	ErrEmptySigningKey = errors.New("jwt signing key is empty")
	// ErrInvalidToken возвращается для поддельных, просроченных и некорректных токенов
	ErrInvalidToken = errors.New("invalid token")
)

// Claims - содержимое токена: только sub (username) и exp
type Claims struct {
	jwt.RegisteredClaims
}

// Username возвращает subject токена
func (c *Claims) Username() string {
	return c.Subject
}

// Issuer подписывает и проверяет сессионные токены HS256
type Issuer struct {
	now func() time.Time
	key []byte
	ttl time.Duration
}

// NewIssuer создает Issuer. Пустой ключ - ошибка конфигурации, сервер не должен стартовать
func NewIssuer(key []byte, ttl time.Duration) (*Issuer, error) {
	if len(key) == 0 {
		return nil, ErrEmptySigningKey
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		key: key,
		ttl: ttl,
		now: time.Now,
	}, nil
}

// TTL возвращает срок жизни выдаваемых токенов
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue подписывает токен для username со сроком now+ttl
func (i *Issuer) Issue(username string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.ttl).Truncate(time.Second)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// Parse проверяет подпись и срок действия токена
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// Проверяем что используется правильный алгоритм подписи
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
