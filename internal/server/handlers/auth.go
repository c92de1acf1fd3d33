package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/otpauth/internal/server/auth"
	"github.com/iudanet/otpauth/internal/server/oauth"
	"github.com/iudanet/otpauth/internal/validation"
	"github.com/iudanet/otpauth/pkg/api"
)

// StateCookieName - cookie с state параметром OAuth
const StateCookieName = "oauthstate"

// stateCookieTTL - сколько живет state между login и callback
const stateCookieTTL = 10 * time.Minute

// AuthService - операции оркестратора, которые использует AuthHandler
type AuthService interface {
	Signup(ctx context.Context, req auth.SignupRequest) (*auth.Result, error)
	SignIn(ctx context.Context, req auth.SignInRequest) (*auth.Result, error)
	VerifyOTP(ctx context.Context, req auth.VerifyOTPRequest) (*auth.Result, error)
	FederatedSignIn(ctx context.Context, req auth.FederatedSignInRequest) (*auth.Result, error)
}

// AuthHandler обрабатывает запросы авторизации
type AuthHandler struct {
	logger       *slog.Logger
	service      AuthService
	provider     oauth.Provider
	secureCookie bool
}

// NewAuthHandler создает новый handler для авторизации.
// provider может быть nil, тогда OAuth endpoints отвечают 404
func NewAuthHandler(logger *slog.Logger, service AuthService, provider oauth.Provider, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		logger:       logger,
		service:      service,
		provider:     provider,
		secureCookie: secureCookie,
	}
}

// Signup обрабатывает POST /api/v1/auth/signup
// Регистрация нового пользователя, код отправляется на email
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SignupRequest
	if !h.decodeRequest(ctx, w, r, &req, "signup") {
		return
	}

	res, err := h.service.Signup(ctx, auth.SignupRequest{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.sendAuthError(ctx, w, err)
		return
	}

	h.sendResult(w, res, "verification code sent")
}

// SignIn обрабатывает POST /api/v1/auth/signin
// Подтвержденный пользователь получает токен (200), иначе отправляется код (202)
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.SignInRequest
	if !h.decodeRequest(ctx, w, r, &req, "signin") {
		return
	}

	res, err := h.service.SignIn(ctx, auth.SignInRequest{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		h.sendAuthError(ctx, w, err)
		return
	}

	h.sendResult(w, res, "verification code sent")
}

// VerifyOTP обрабатывает POST /api/v1/auth/verify-otp
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req api.VerifyOTPRequest
	if !h.decodeRequest(ctx, w, r, &req, "verify") {
		return
	}

	res, err := h.service.VerifyOTP(ctx, auth.VerifyOTPRequest{
		Username: req.Username,
		Code:     req.Code,
	})
	if err != nil {
		h.sendAuthError(ctx, w, err)
		return
	}

	h.sendResult(w, res, "")
}

// OAuthLogin обрабатывает GET /api/v1/auth/oauth/login
// Сохраняет state в cookie и перенаправляет на страницу согласия провайдера
func (h *AuthHandler) OAuthLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		h.sendError(w, "oauth is not configured", http.StatusNotFound)
		return
	}

	state, err := generateState()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to generate oauth state", slog.Any("error", err))
		h.sendError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(stateCookieTTL),
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// OAuthCallback обрабатывает GET /api/v1/auth/oauth/callback?code=&state=
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.provider == nil {
		h.sendError(w, "oauth is not configured", http.StatusNotFound)
		return
	}

	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.WarnContext(ctx, "oauth state mismatch")
		h.sendError(w, "invalid oauth state", http.StatusBadRequest)
		return
	}

	// state одноразовый
	http.SetCookie(w, &http.Cookie{
		Name:   StateCookieName,
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.WarnContext(ctx, "oauth consent denied", slog.String("error", errParam))
		h.sendError(w, "authorization denied by provider", http.StatusUnauthorized)
		return
	}

	res, err := h.service.FederatedSignIn(ctx, auth.FederatedSignInRequest{
		Code: r.URL.Query().Get("code"),
	})
	if err != nil {
		h.sendAuthError(ctx, w, err)
		return
	}

	h.sendResult(w, res, "")
}

// Me обрабатывает GET /api/v1/auth/me
// Требует AuthMiddleware
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	username, ok := GetUsername(r.Context())
	if !ok {
		h.sendError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	expiresAt, _ := GetExpiresAt(r.Context())

	h.sendJSON(w, api.MeResponse{
		Username:  username,
		ExpiresAt: expiresAt,
	}, http.StatusOK)
}

// sendResult отправляет результат операции: 200 с токеном или 202 после отправки кода
func (h *AuthHandler) sendResult(w http.ResponseWriter, res *auth.Result, otpMessage string) {
	resp := api.AuthResponse{
		Status:   string(res.Status),
		Username: res.Username,
	}

	if res.Status == auth.StatusOTPSent {
		resp.Message = otpMessage
		h.sendJSON(w, resp, http.StatusAccepted)
		return
	}

	expiresAt := res.ExpiresAt.UTC()
	resp.Token = res.Token
	resp.ExpiresAt = &expiresAt
	h.sendJSON(w, resp, http.StatusOK)
}

// sendAuthError переводит ошибку оркестратора в HTTP статус.
// Для ошибок валидации клиенту возвращается описание поля
func (h *AuthHandler) sendAuthError(ctx context.Context, w http.ResponseWriter, err error) {
	status, message := StatusFor(err)

	var fieldErr *validation.FieldError
	if errors.As(err, &fieldErr) {
		h.sendErrorMessage(w, message, fieldErr.Error(), status)
		return
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "auth request failed", slog.Any("error", err), slog.Int("status", status))
	}

	h.sendError(w, message, status)
}

// StatusFor возвращает HTTP статус и публичное сообщение для ошибки оркестратора
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrValidationFailed):
		return http.StatusBadRequest, "validation failed"
	case errors.Is(err, auth.ErrAccountExists):
		return http.StatusConflict, "account already exists"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, auth.ErrInvalidOTP):
		return http.StatusUnauthorized, "invalid otp"
	case errors.Is(err, auth.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, auth.ErrIdentityNotLinked):
		return http.StatusForbidden, "identity not linked"
	case errors.Is(err, auth.ErrDeliveryFailed):
		return http.StatusBadGateway, "otp delivery failed"
	case errors.Is(err, auth.ErrProviderExchangeFailed):
		return http.StatusBadGateway, "identity provider exchange failed"
	case errors.Is(err, auth.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// sendJSON отправляет JSON ответ
func (h *AuthHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	sendJSON(h.logger, w, data, statusCode)
}

// sendError отправляет JSON ответ с ошибкой
// decodeRequest читает JSON тело не длиннее maxRequestBody и отвечает 400 или 413 при ошибке
func (h *AuthHandler) decodeRequest(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any, op string) bool {
	err := decodeJSON(w, r, dst)
	if err == nil {
		return true
	}

	h.logger.WarnContext(ctx, "failed to decode "+op+" request", slog.Any("error", err))

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.sendError(w, "request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	h.sendError(w, "invalid request body", http.StatusBadRequest)
	return false
}

func (h *AuthHandler) sendError(w http.ResponseWriter, message string, statusCode int) {
	h.sendErrorMessage(w, message, "", statusCode)
}

func (h *AuthHandler) sendErrorMessage(w http.ResponseWriter, message, details string, statusCode int) {
	resp := api.ErrorResponse{
		Error:   message,
		Message: details,
	}
	h.sendJSON(w, resp, statusCode)
}
