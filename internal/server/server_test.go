package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/otpauth/internal/crypto"
	"github.com/iudanet/otpauth/internal/otp"
	"github.com/iudanet/otpauth/internal/server/auth"
	"github.com/iudanet/otpauth/internal/server/handlers"
	"github.com/iudanet/otpauth/internal/server/jwt"
	"github.com/iudanet/otpauth/internal/server/storage/memory"
	"github.com/iudanet/otpauth/pkg/api"
)

// inbox перехватывает отправленные коды
type inbox struct {
	codes map[string]string
	mu    sync.Mutex
}

func (i *inbox) SendCode(ctx context.Context, to, code string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[to] = code
	return nil
}

func (i *inbox) code(to string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.codes[to]
}

func setupTestServer(t *testing.T) (*httptest.Server, *inbox) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	mail := &inbox{codes: make(map[string]string)}

	issuer, err := jwt.NewIssuer([]byte("integration-key"), jwt.DefaultTTL)
	require.NoError(t, err)

	service, err := auth.NewService(auth.Deps{
		Logger: logger,
		Users:  store,
		Hasher: crypto.NewHasher(bcrypt.MinCost),
		OTP:    otp.NewEngine(),
		Sender: mail,
		Tokens: issuer,
	})
	require.NoError(t, err)

	router := NewRouter(logger,
		handlers.NewAuthHandler(logger, service, nil, false),
		handlers.NewHealthHandler(logger, store, "test"),
		issuer)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, mail
}

func doJSON(t *testing.T, method, url string, body any, token string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, resp.Body.Close())
	}()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, data
}

func TestRouter_SignupVerifySignIn(t *testing.T) {
	srv, mail := setupTestServer(t)

	// Регистрация: 202, токена нет
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signup", api.SignupRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password123",
	}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	code := mail.code("alice@example.com")
	require.Len(t, code, 6)

	// Вход до подтверждения снова отправляет код
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signin", api.SignInRequest{
		Username: "alice",
		Password: "password123",
	}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	// Подтверждение
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/verify-otp", api.VerifyOTPRequest{
		Username: "alice",
		Code:     mail.code("alice@example.com"),
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var verified api.AuthResponse
	require.NoError(t, json.Unmarshal(body, &verified))
	require.NotEmpty(t, verified.Token)
	require.NotNil(t, verified.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(jwt.DefaultTTL), *verified.ExpiresAt, time.Minute)

	// Токен открывает /me
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/v1/auth/me", nil, verified.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var me api.MeResponse
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, "alice", me.Username)

	// Подтвержденный пользователь входит сразу
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signin", api.SignInRequest{
		Username: "alice",
		Password: "password123",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var signedIn api.AuthResponse
	require.NoError(t, json.Unmarshal(body, &signedIn))
	assert.Equal(t, api.StatusAuthenticated, signedIn.Status)
	assert.NotEmpty(t, signedIn.Token)
}

func TestRouter_Errors(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/signup", api.SignupRequest{
		Username: "bob",
		Email:    "bob@example.com",
		Password: "password123",
	}, "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	tests := []struct {
		body   any
		name   string
		method string
		path   string
		token  string
		status int
	}{
		{
			name:   "duplicate signup",
			method: http.MethodPost,
			path:   "/api/v1/auth/signup",
			body:   api.SignupRequest{Username: "bob", Email: "other@example.com", Password: "password123"},
			status: http.StatusConflict,
		},
		{
			name:   "wrong password",
			method: http.MethodPost,
			path:   "/api/v1/auth/signin",
			body:   api.SignInRequest{Username: "bob", Password: "password124"},
			status: http.StatusUnauthorized,
		},
		{
			name:   "verify unknown user",
			method: http.MethodPost,
			path:   "/api/v1/auth/verify-otp",
			body:   api.VerifyOTPRequest{Username: "nobody", Code: "123456"},
			status: http.StatusNotFound,
		},
		{
			name:   "me without token",
			method: http.MethodGet,
			path:   "/api/v1/auth/me",
			status: http.StatusUnauthorized,
		},
		{
			name:   "me with garbage token",
			method: http.MethodGet,
			path:   "/api/v1/auth/me",
			token:  "not.a.token",
			status: http.StatusUnauthorized,
		},
		{
			name:   "wrong method",
			method: http.MethodGet,
			path:   "/api/v1/auth/signup",
			status: http.StatusMethodNotAllowed,
		},
		{
			name:   "oauth disabled",
			method: http.MethodGet,
			path:   "/api/v1/auth/oauth/login",
			status: http.StatusNotFound,
		},
		{
			name:   "health",
			method: http.MethodGet,
			path:   "/api/v1/health",
			status: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doJSON(t, tt.method, srv.URL+tt.path, tt.body, tt.token)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))
		})
	}
}

func TestListenAndServe_Shutdown(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Свободный порт
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	go func() {
		done <- ListenAndServe(ctx, logger, handler, DefaultConfig(addr))
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusNoContent
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
