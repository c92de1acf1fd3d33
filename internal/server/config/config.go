// Package config handles configuration for the server component:
// defaults, environment overlay and command-line flags, in that order.
package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Поддерживаемые хранилища
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Ошибки валидации конфигурации
var (
	ErrMissingSigningKey = errors.New("signing key is required (SECRET_KEY or -secret-key)")
	ErrUnknownDriver     = errors.New("unknown database driver")
)

// Config holds runtime settings for the server.
//
// Fields:
//   - Addr: HTTP bind address.
//   - DatabaseDriver / DatabaseDSN: credential store backend and its DSN (file path for sqlite).
//   - SigningKey: HMAC secret for session tokens (HS256). Required.
//   - TokenTTL: session token lifetime.
//   - BcryptCost: password hashing cost.
//   - PostmarkToken / MailFrom: OTP delivery; without a token codes are written to the log.
//   - OAuthClientID / OAuthClientSecret / OAuthRedirectURL: Google sign-in; disabled when ID is empty.
//   - ProvisionFederated: create accounts for unknown federated emails.
//   - SecureCookies: mark the OAuth state cookie Secure (behind TLS).
type Config struct {
	Addr               string
	DatabaseDriver     string
	DatabaseDSN        string
	SigningKey         string
	PostmarkToken      string
	MailFrom           string
	OAuthClientID      string
	OAuthClientSecret  string
	OAuthRedirectURL   string
	LogLevel           string
	TokenTTL           time.Duration
	BcryptCost         int
	ProvisionFederated bool
	SecureCookies      bool
}

// LoadDefaults populates Config with development defaults.
// SigningKey остается пустым и должен быть задан явно
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "otpauth.db"
	c.TokenTTL = 24 * time.Hour
	c.BcryptCost = bcrypt.DefaultCost
	c.MailFrom = "no-reply@localhost"
	c.OAuthRedirectURL = "http://localhost:8080/api/v1/auth/oauth/callback"
	c.ProvisionFederated = true
	c.LogLevel = "info"
}

// Load builds a Config: defaults, then environment variables looked up
// through getenv, then flags from args (without the program name).
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := cfg.parseEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromOS вызывает Load с os.Args и os.Getenv
func LoadFromOS() (*Config, error) {
	return Load(os.Args[1:], os.Getenv)
}

// parseEnv накладывает непустые переменные окружения
func (c *Config) parseEnv(getenv func(string) string) error {
	strs := map[string]*string{
		"SERVER_ADDR":         &c.Addr,
		"DATABASE_DRIVER":     &c.DatabaseDriver,
		"DATABASE_URL":        &c.DatabaseDSN,
		"SECRET_KEY":          &c.SigningKey,
		"POSTMARK_API_TOKEN":  &c.PostmarkToken,
		"MAIL_FROM":           &c.MailFrom,
		"OAUTH_CLIENT_ID":     &c.OAuthClientID,
		"OAUTH_CLIENT_SECRET": &c.OAuthClientSecret,
		"OAUTH_REDIRECT_URL":  &c.OAuthRedirectURL,
		"LOG_LEVEL":           &c.LogLevel,
	}
	for key, dst := range strs {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	if v := getenv("TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TOKEN_TTL: %w", err)
		}
		c.TokenTTL = d
	}

	if v := getenv("BCRYPT_COST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BCRYPT_COST: %w", err)
		}
		c.BcryptCost = n
	}

	bools := map[string]*bool{
		"PROVISION_FEDERATED": &c.ProvisionFederated,
		"SECURE_COOKIES":      &c.SecureCookies,
	}
	for key, dst := range bools {
		v := getenv(key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}

	return nil
}

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string              HTTP bind address (e.g., ":8080")
//	-driver string         sqlite, postgres or memory
//	-d string              database DSN
//	-secret-key string     JWT HMAC secret key
//	-token-ttl duration    session token lifetime
//	-bcrypt-cost int       bcrypt cost
//	-postmark-token string Postmark server token
//	-mail-from string      sender address
//	-oauth-client-id, -oauth-client-secret, -oauth-redirect-url string
//	-provision-federated   create accounts for unknown federated emails
//	-secure-cookies        Secure attribute on the OAuth state cookie
//	-log-level string      debug, info, warn or error
func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("otpauth-server", flag.ContinueOnError)

	fs.StringVar(&c.Addr, "a", c.Addr, "address and port to run server")
	fs.StringVar(&c.DatabaseDriver, "driver", c.DatabaseDriver, "database driver: sqlite, postgres or memory")
	fs.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "database DSN")
	fs.StringVar(&c.SigningKey, "secret-key", c.SigningKey, "JWT signing key")
	fs.DurationVar(&c.TokenTTL, "token-ttl", c.TokenTTL, "session token lifetime")
	fs.IntVar(&c.BcryptCost, "bcrypt-cost", c.BcryptCost, "bcrypt cost")
	fs.StringVar(&c.PostmarkToken, "postmark-token", c.PostmarkToken, "Postmark server token")
	fs.StringVar(&c.MailFrom, "mail-from", c.MailFrom, "OTP email sender")
	fs.StringVar(&c.OAuthClientID, "oauth-client-id", c.OAuthClientID, "Google OAuth client ID")
	fs.StringVar(&c.OAuthClientSecret, "oauth-client-secret", c.OAuthClientSecret, "Google OAuth client secret")
	fs.StringVar(&c.OAuthRedirectURL, "oauth-redirect-url", c.OAuthRedirectURL, "Google OAuth redirect URL")
	fs.BoolVar(&c.ProvisionFederated, "provision-federated", c.ProvisionFederated, "create accounts for unknown federated emails")
	fs.BoolVar(&c.SecureCookies, "secure-cookies", c.SecureCookies, "set Secure on the OAuth state cookie")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")

	return fs.Parse(args)
}

// Validate проверяет обязательные поля
func (c *Config) Validate() error {
	if c.SigningKey == "" {
		return ErrMissingSigningKey
	}

	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres, DriverMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.DatabaseDriver)
	}

	if c.DatabaseDriver != DriverMemory && c.DatabaseDSN == "" {
		return fmt.Errorf("database DSN is required for %s", c.DatabaseDriver)
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("token ttl must be positive, got %s", c.TokenTTL)
	}

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// OAuthEnabled сообщает, настроен ли вход через Google
func (c *Config) OAuthEnabled() bool {
	return c.OAuthClientID != ""
}

// SlogLevel переводит LogLevel в slog.Level
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return level, nil
}
