package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iudanet/otpauth/internal/crypto"
	"github.com/iudanet/otpauth/internal/models"
	"github.com/iudanet/otpauth/internal/otp"
	"github.com/iudanet/otpauth/internal/server/jwt"
	"github.com/iudanet/otpauth/internal/server/oauth"
	"github.com/iudanet/otpauth/internal/server/storage"
	"github.com/iudanet/otpauth/internal/server/storage/memory"
)

var testNow = time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)

// sentCode - письмо, перехваченное fakeSender
type sentCode struct {
	to   string
	code string
}

// fakeSender запоминает отправленные коды
type fakeSender struct {
	err  error
	sent []sentCode
	mu   sync.Mutex
}

func (f *fakeSender) SendCode(ctx context.Context, to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentCode{to: to, code: code})
	return nil
}

func (f *fakeSender) last(t *testing.T) sentCode {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent, "no code was sent")
	return f.sent[len(f.sent)-1]
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

// failingStore оборачивает хранилище и подменяет ошибки отдельных методов
type failingStore struct {
	storage.UserStorage
	createErr error
	getErr    error
	markErr   error
}

func (f *failingStore) CreateUser(ctx context.Context, user *models.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	return f.UserStorage.CreateUser(ctx, user)
}

func (f *failingStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.UserStorage.GetUserByUsername(ctx, username)
}

func (f *failingStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.UserStorage.GetUserByEmail(ctx, email)
}

func (f *failingStore) MarkOTPVerified(ctx context.Context, userID string) error {
	if f.markErr != nil {
		return f.markErr
	}
	return f.UserStorage.MarkOTPVerified(ctx, userID)
}

type failingHasher struct{}

func (failingHasher) Hash(string) (string, error) { return "", errors.New("bcrypt exploded") }
func (failingHasher) Verify(string, string) bool  { return false }

// countingHasher считает вызовы Verify поверх настоящего Hasher
type countingHasher struct {
	Hasher
	verifies atomic.Int32
}

func (h *countingHasher) Verify(password, hash string) bool {
	h.verifies.Add(1)
	return h.Hasher.Verify(password, hash)
}

type failingIssuer struct{}

func (failingIssuer) Issue(string, time.Time) (string, time.Time, error) {
	return "", time.Time{}, errors.New("signing failed")
}

// fakeProvider - внешний провайдер с заранее заданным профилем
type fakeProvider struct {
	profile     *oauth.Profile
	exchangeErr error
	profileErr  error
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://idp.example.com/auth?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*oauth.Tokens, error) {
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth.Tokens{AccessToken: "access-" + code}, nil
}

func (p *fakeProvider) FetchProfile(ctx context.Context, tokens *oauth.Tokens) (*oauth.Profile, error) {
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	out := *p.profile
	return &out, nil
}

// fixture собирает Service на реальных bcrypt, TOTP и JWT и хранилище в памяти
type fixture struct {
	service *Service
	store   *memory.Storage
	sender  *fakeSender
	issuer  *jwt.Issuer
	engine  *otp.Engine
	logs    *bytes.Buffer
	clock   *testClock
}

type testClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixtureOption func(*Deps)

func withUsers(users storage.UserStorage) fixtureOption {
	return func(d *Deps) { d.Users = users }
}

func withProvider(p oauth.Provider) fixtureOption {
	return func(d *Deps) { d.Provider = p }
}

func withPolicy(policy ProvisionPolicy) fixtureOption {
	return func(d *Deps) { d.Reconciler = NewReconciler(d.Logger, d.Users, policy) }
}

func withHasher(h Hasher) fixtureOption {
	return func(d *Deps) { d.Hasher = h }
}

func withTokens(ti TokenIssuer) fixtureOption {
	return func(d *Deps) { d.Tokens = ti }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{
		Level: slog.LevelDebug,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Время содержит цифры, которые могут совпасть с кодом
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))

	issuer, err := jwt.NewIssuer([]byte("test-signing-key"), jwt.DefaultTTL)
	require.NoError(t, err)

	f := &fixture{
		store:  memory.New(),
		sender: &fakeSender{},
		issuer: issuer,
		engine: otp.NewEngine(),
		logs:   logs,
		clock:  &testClock{now: testNow},
	}

	deps := Deps{
		Logger: logger,
		Users:  f.store,
		Hasher: crypto.NewHasher(bcrypt.MinCost),
		OTP:    f.engine,
		Sender: f.sender,
		Tokens: issuer,
		Now:    f.clock.Now,
	}
	for _, opt := range opts {
		opt(&deps)
	}

	f.service, err = NewService(deps)
	require.NoError(t, err)

	return f
}

// signupUser регистрирует пользователя и возвращает отправленный ему код
func (f *fixture) signupUser(t *testing.T, username, email, password string) string {
	t.Helper()
	res, err := f.service.Signup(context.Background(), SignupRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	require.Equal(t, StatusOTPSent, res.Status)
	return f.sender.last(t).code
}

// verifiedUser регистрирует и подтверждает пользователя
func (f *fixture) verifiedUser(t *testing.T, username, email, password string) {
	t.Helper()
	code := f.signupUser(t, username, email, password)
	_, err := f.service.VerifyOTP(context.Background(), VerifyOTPRequest{Username: username, Code: code})
	require.NoError(t, err)
}
