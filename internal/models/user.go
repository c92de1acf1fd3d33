package models

import "time"

// CredentialKind определяет, какими способами пользователь может подтвердить личность
type CredentialKind string

const (
	// CredentialLocal - локальный аккаунт: пароль + TOTP
	CredentialLocal CredentialKind = "local"
	// CredentialFederated - аккаунт, созданный через внешнего OAuth провайдера (без пароля и OTP)
	CredentialFederated CredentialKind = "federated"
)

// User представляет пользователя в системе
type User struct {
	CreatedAt    time.Time      `json:"created_at"`   // время создания
	ID           string         `json:"id"`           // UUID пользователя
	Username     string         `json:"username"`     // уникальный username
	Email        string         `json:"email"`        // уникальный email (в нижнем регистре)
	Credential   CredentialKind `json:"credential"`   // тип учетных данных
	PasswordHash string         `json:"-"`            // bcrypt хеш пароля, пустой для federated
	OTPSecret    string         `json:"-"`            // base32 TOTP секрет, пустой для federated
	OTPVerified  bool           `json:"otp_verified"` // второй фактор подтвержден хотя бы раз
}

// HasPassword сообщает, может ли пользователь входить по паролю
func (u *User) HasPassword() bool {
	return u.Credential == CredentialLocal && u.PasswordHash != ""
}

// HasOTP сообщает, есть ли у пользователя TOTP секрет
func (u *User) HasOTP() bool {
	return u.Credential == CredentialLocal && u.OTPSecret != ""
}

// IsValid проверяет известность типа учетных данных
func (k CredentialKind) IsValid() bool {
	switch k {
	case CredentialLocal, CredentialFederated:
		return true
	}
	return false
}
