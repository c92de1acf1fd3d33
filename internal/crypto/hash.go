package crypto

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrHashingFailed возвращается, если bcrypt не смог посчитать хеш
var ErrHashingFailed = errors.New("password hashing failed")

// MaxPasswordBytes - максимальная длина пароля, которую принимает bcrypt
const MaxPasswordBytes = 72

// Hasher хеширует и проверяет пароли с фиксированной стоимостью bcrypt
type Hasher struct {
	cost int
}

// NewHasher создает Hasher. Стоимость вне диапазона bcrypt заменяется на bcrypt.DefaultCost
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash возвращает bcrypt хеш пароля (соль встроена в результат)
func (h *Hasher) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrHashingFailed, err)
	}
	return string(hash), nil
}

// Verify сравнивает пароль с хешем. Сравнение выполняет bcrypt за постоянное время
func (h *Hasher) Verify(password, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Cost возвращает стоимость, с которой работает Hasher
func (h *Hasher) Cost() int {
	return h.cost
}
