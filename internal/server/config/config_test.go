package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// envMap returns a getenv func backed by a map
func envMap(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, DriverSQLite, c.DatabaseDriver)
	assert.Equal(t, "otpauth.db", c.DatabaseDSN)
	assert.Empty(t, c.SigningKey)
	assert.Equal(t, 24*time.Hour, c.TokenTTL)
	assert.Equal(t, bcrypt.DefaultCost, c.BcryptCost)
	assert.True(t, c.ProvisionFederated)
	assert.False(t, c.SecureCookies)
	assert.False(t, c.OAuthEnabled())
}

func TestLoad_Precedence(t *testing.T) {
	env := envMap(map[string]string{
		"SECRET_KEY":          "env-secret",
		"DATABASE_DRIVER":     "postgres",
		"DATABASE_URL":        "postgres://env/db",
		"TOKEN_TTL":           "1h",
		"BCRYPT_COST":         "12",
		"POSTMARK_API_TOKEN":  "pm-token",
		"OAUTH_CLIENT_ID":     "client-id",
		"PROVISION_FEDERATED": "false",
		"LOG_LEVEL":           "debug",
	})

	cfg, err := Load([]string{"-a", "127.0.0.1:9090", "-secret-key", "flag-secret", "-token-ttl", "30m"}, env)
	require.NoError(t, err)

	// flags перекрывают env
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr)
	assert.Equal(t, "flag-secret", cfg.SigningKey)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)

	// env перекрывает defaults
	assert.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	assert.Equal(t, "postgres://env/db", cfg.DatabaseDSN)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "pm-token", cfg.PostmarkToken)
	assert.False(t, cfg.ProvisionFederated)
	assert.True(t, cfg.OAuthEnabled())

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	// defaults остаются
	assert.Equal(t, "no-reply@localhost", cfg.MailFrom)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		env     map[string]string
		wantErr error
		name    string
		errMsg  string
		args    []string
	}{
		{
			name:    "missing signing key",
			env:     map[string]string{},
			wantErr: ErrMissingSigningKey,
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"SECRET_KEY": "k", "DATABASE_DRIVER": "mysql"},
			wantErr: ErrUnknownDriver,
		},
		{
			name:   "bad ttl in env",
			env:    map[string]string{"SECRET_KEY": "k", "TOKEN_TTL": "forever"},
			errMsg: "TOKEN_TTL",
		},
		{
			name:   "bad bcrypt cost in env",
			env:    map[string]string{"SECRET_KEY": "k", "BCRYPT_COST": "high"},
			errMsg: "BCRYPT_COST",
		},
		{
			name:   "bad bool in env",
			env:    map[string]string{"SECRET_KEY": "k", "SECURE_COOKIES": "maybe"},
			errMsg: "SECURE_COOKIES",
		},
		{
			name:   "negative ttl",
			env:    map[string]string{"SECRET_KEY": "k"},
			args:   []string{"-token-ttl", "-1h"},
			errMsg: "token ttl must be positive",
		},
		{
			name:   "empty dsn for sqlite",
			env:    map[string]string{"SECRET_KEY": "k"},
			args:   []string{"-d", ""},
			errMsg: "database DSN is required",
		},
		{
			name:   "bad log level",
			env:    map[string]string{"SECRET_KEY": "k", "LOG_LEVEL": "verbose"},
			errMsg: "log level",
		},
		{
			name:   "unknown flag",
			env:    map[string]string{"SECRET_KEY": "k"},
			args:   []string{"-unknown"},
			errMsg: "flag provided but not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args, envMap(tt.env))
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.errMsg != "" {
				assert.Contains(t, err.Error(), tt.errMsg)
			}
		})
	}
}

func TestLoad_MemoryDriverNeedsNoDSN(t *testing.T) {
	cfg, err := Load([]string{"-driver", "memory", "-d", ""}, envMap(map[string]string{"SECRET_KEY": "k"}))
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.DatabaseDriver)
}
