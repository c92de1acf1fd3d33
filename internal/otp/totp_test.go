package otp

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rfcSecret - секрет из тестовых векторов RFC 6238 (SHA1)
var rfcSecret = []byte("12345678901234567890")

func TestEngine_CurrentCode_RFCVectors(t *testing.T) {
	e := NewEngine()

	// Последние 6 цифр 8-значных векторов из приложения B RFC 6238
	tests := []struct {
		name string
		unix int64
		want string
	}{
		{name: "T=59", unix: 59, want: "287082"},
		{name: "T=1111111109", unix: 1111111109, want: "081804"},
		{name: "T=1111111111", unix: 1111111111, want: "050471"},
		{name: "T=1234567890", unix: 1234567890, want: "005924"},
		{name: "T=2000000000", unix: 2000000000, want: "279037"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := e.CurrentCode(rfcSecret, time.Unix(tt.unix, 0).UTC())
			require.NoError(t, err)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestEngine_CurrentCode_Deterministic(t *testing.T) {
	e := NewEngine()
	secret, err := e.GenerateSecret()
	require.NoError(t, err)

	windowStart := time.Unix(1700000010, 0).UTC().Truncate(Period * time.Second)

	first, err := e.CurrentCode(secret, windowStart)
	require.NoError(t, err)
	sameWindow, err := e.CurrentCode(secret, windowStart.Add(29*time.Second))
	require.NoError(t, err)

	assert.Len(t, first, Digits)
	assert.Equal(t, first, sameWindow)
}

func TestEngine_Validate_Windows(t *testing.T) {
	e := NewEngine()
	now := time.Unix(1111111111, 0).UTC()

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{name: "current window", offset: 0, want: true},
		{name: "previous window", offset: -Period * time.Second, want: true},
		{name: "next window", offset: Period * time.Second, want: true},
		{name: "two windows back", offset: -2 * Period * time.Second, want: false},
		{name: "two windows ahead", offset: 2 * Period * time.Second, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := e.CurrentCode(rfcSecret, now.Add(tt.offset))
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Validate(rfcSecret, code, now))
		})
	}
}

func TestEngine_Validate_Malformed(t *testing.T) {
	e := NewEngine()
	now := time.Unix(59, 0).UTC()

	tests := []struct {
		name   string
		secret []byte
		code   string
	}{
		{name: "empty code", secret: rfcSecret, code: ""},
		{name: "too short", secret: rfcSecret, code: "28708"},
		{name: "too long", secret: rfcSecret, code: "2870820"},
		{name: "letters", secret: rfcSecret, code: "abcdef"},
		{name: "wrong code", secret: rfcSecret, code: "000000"},
		{name: "empty secret", secret: nil, code: "287082"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, e.Validate(tt.secret, tt.code, now))
		})
	}
}

func TestEngine_Validate_OtherSecret(t *testing.T) {
	e := NewEngine()
	now := time.Now()

	a, err := e.GenerateSecret()
	require.NoError(t, err)
	b, err := e.GenerateSecret()
	require.NoError(t, err)

	code, err := e.CurrentCode(a, now)
	require.NoError(t, err)

	assert.True(t, e.Validate(a, code, now))
	// Коды разных секретов совпадают с вероятностью 1e-6 на окно
	if otherCode, err := e.CurrentCode(b, now); err == nil && otherCode != code {
		assert.False(t, e.Validate(b, code, now))
	}
}

func TestEngine_GenerateSecret(t *testing.T) {
	e := NewEngine()

	a, err := e.GenerateSecret()
	require.NoError(t, err)
	b, err := e.GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, a, SecretSize)
	assert.Len(t, b, SecretSize)
	assert.NotEqual(t, a, b)
}

func TestEngine_CurrentCode_EmptySecret(t *testing.T) {
	_, err := NewEngine().CurrentCode(nil, time.Now())
	assert.ErrorIs(t, err, ErrInvalidSecret)
}

func TestEncodeDecodeSecret(t *testing.T) {
	encoded := EncodeSecret(rfcSecret)
	assert.Equal(t, "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", encoded)
	assert.NotContains(t, encoded, "=")

	decoded, err := DecodeSecret(encoded)
	require.NoError(t, err)
	assert.Equal(t, rfcSecret, decoded)

	// 7 байт не кратны 5, при кодировании без паддинга хвост обрезается
	short := []byte("0123456")
	decoded, err = DecodeSecret(strings.ToLower(EncodeSecret(short)))
	require.NoError(t, err)
	assert.Equal(t, short, decoded)
}

func TestDecodeSecret_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		encoded string
	}{
		{name: "empty", encoded: ""},
		{name: "whitespace", encoded: "   "},
		{name: "invalid alphabet", encoded: "1111!!!!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeSecret(tt.encoded)
			assert.ErrorIs(t, err, ErrInvalidSecret)
		})
	}
}
