package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iudanet/otpauth/pkg/api"
)

// Client представляет HTTP клиент для взаимодействия с сервером
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient создает новый API клиент
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			// Настройка обработки редиректов
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// Ограничиваем количество редиректов
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				// Копируем заголовки Authorization при редиректе
				if len(via) > 0 && via[0].Header.Get("Authorization") != "" {
					req.Header.Set("Authorization", via[0].Header.Get("Authorization"))
				}
				return nil
			},
		},
	}
}

// Signup регистрирует нового пользователя. Сервер отправляет код на email
func (c *Client) Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/signup", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("signup request failed: %w", err)
	}
	return &resp, nil
}

// SignIn выполняет вход по паролю. Если аккаунт не подтвержден,
// resp.Status == api.StatusOTPSent и токена нет
func (c *Client) SignIn(ctx context.Context, req api.SignInRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/signin", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("signin request failed: %w", err)
	}
	return &resp, nil
}

// VerifyOTP подтверждает одноразовый код и получает токен
func (c *Client) VerifyOTP(ctx context.Context, req api.VerifyOTPRequest) (*api.AuthResponse, error) {
	var resp api.AuthResponse
	err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/verify-otp", "", req, &resp)
	if err != nil {
		return nil, fmt.Errorf("verify otp request failed: %w", err)
	}
	return &resp, nil
}

// Me проверяет токен на сервере
func (c *Client) Me(ctx context.Context, token string) (*api.MeResponse, error) {
	var resp api.MeResponse
	err := c.doRequest(ctx, http.MethodGet, "/api/v1/auth/me", token, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("me request failed: %w", err)
	}
	return &resp, nil
}

// doRequest выполняет HTTP запрос
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result interface{}) error {
	url := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Читаем тело ответа
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	// Проверяем статус код
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newStatusError(resp.StatusCode, respBody)
	}

	// Декодируем успешный ответ
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// StatusError - ответ сервера с кодом не 2xx
type StatusError struct {
	Reason     string // api.ErrorResponse.Error
	Message    string
	StatusCode int
}

func newStatusError(statusCode int, body []byte) *StatusError {
	e := &StatusError{StatusCode: statusCode}

	var errResp api.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		e.Reason = errResp.Error
		e.Message = errResp.Message
		return e
	}

	e.Reason = strings.TrimSpace(string(body))
	return e
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server error (%d): %s: %s", e.StatusCode, e.Reason, e.Message)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Reason)
}

// IsStatus сообщает, что err - ответ сервера с указанным кодом
func IsStatus(err error, statusCode int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == statusCode
}
