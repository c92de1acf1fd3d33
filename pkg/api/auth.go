package api

import "time"

// SignupRequest представляет запрос на регистрацию нового пользователя
type SignupRequest struct {
	Username string `json:"username"` // username пользователя
	Email    string `json:"email"`    // email для доставки OTP
	Password string `json:"password"` // пароль в открытом виде (только по TLS)
}

// SignInRequest представляет запрос на вход по паролю
type SignInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// VerifyOTPRequest представляет запрос на подтверждение одноразового кода
type VerifyOTPRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"` // 6 цифр
}

// Статусы AuthResponse
const (
	StatusAuthenticated = "authenticated"
	StatusOTPSent       = "otp_sent"
)

// AuthResponse представляет ответ signup, signin, verify-otp и oauth callback.
// Token и ExpiresAt заполнены только при Status == "authenticated"
type AuthResponse struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"` // время истечения токена (RFC 3339)
	Status    string     `json:"status"`               // authenticated или otp_sent
	Username  string     `json:"username"`
	Token     string     `json:"token,omitempty"` // JWT HS256
	Message   string     `json:"message,omitempty"`
}

// MeResponse представляет ответ с данными текущего пользователя
type MeResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

// HealthResponse представляет ответ health check
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Storage string `json:"storage,omitempty"`
}

// ErrorResponse представляет ответ с ошибкой
type ErrorResponse struct {
	Error   string `json:"error"`             // описание ошибки
	Message string `json:"message,omitempty"` // дополнительное сообщение
}
