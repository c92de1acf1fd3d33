package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iudanet/otpauth/internal/client/auth"
	"github.com/iudanet/otpauth/internal/client/iocli"
)

// PasswordEnv - переменная окружения с паролем для неинтерактивного запуска
const PasswordEnv = "OTPAUTH_PASSWORD"

// Passwords - источники пароля помимо интерактивного ввода
type Passwords struct {
	FromFile string
	FromArgs string
}

// AuthService - операции клиента, которые вызывает CLI
type AuthService interface {
	Signup(ctx context.Context, username, email, password string) (*auth.Result, error)
	SignIn(ctx context.Context, username, password string) (*auth.Result, error)
	Verify(ctx context.Context, username, code string) (*auth.Result, error)
	Status(ctx context.Context) (*auth.Status, error)
	Logout(ctx context.Context) error
}

type Cli struct {
	io          iocli.IO
	authService AuthService
	getenv      func(string) string
	passwords   Passwords
}

func New(stdio iocli.IO, authService AuthService, passwords Passwords) *Cli {
	return &Cli{
		io:          stdio,
		authService: authService,
		getenv:      os.Getenv,
		passwords:   passwords,
	}
}

// getPassword retrieves the account password with priority:
// 1. Environment variable OTPAUTH_PASSWORD
// 2. File specified in passwords.FromFile
// 3. Command-line parameter passwords.FromArgs
// 4. Interactive prompt (fallback)
func (c *Cli) getPassword(prompt string) (string, error) {
	// Priority 1: Environment variable
	if envPassword := c.getenv(PasswordEnv); envPassword != "" {
		return envPassword, nil
	}

	// Priority 2: File
	if c.passwords.FromFile != "" {
		content, err := os.ReadFile(c.passwords.FromFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		password := strings.TrimSpace(string(content))
		if password == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return password, nil
	}

	// Priority 3: CLI parameter
	if c.passwords.FromArgs != "" {
		return c.passwords.FromArgs, nil
	}

	// Priority 4: Interactive prompt
	password, err := c.io.ReadPassword(prompt)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}

	return password, nil
}

// interactivePassword сообщает, будет ли пароль введен с клавиатуры
func (c *Cli) interactivePassword() bool {
	return c.getenv(PasswordEnv) == "" && c.passwords.FromFile == "" && c.passwords.FromArgs == ""
}

func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "OTPAuth Client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  otpauth [OPTIONS] COMMAND [ARGS]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintln(w, "  --version             Show version information")
	fmt.Fprintln(w, "  --server URL          Server URL (default: http://localhost:8080)")
	fmt.Fprintln(w, "  --db PATH             Path to local session database (default: otpauth-client.db)")
	fmt.Fprintln(w, "  --password PASSWORD   Account password (not recommended, use env var or file)")
	fmt.Fprintln(w, "  --password-file PATH  Path to file containing the account password")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Password Priority (highest to lowest):")
	fmt.Fprintln(w, "  1. OTPAUTH_PASSWORD environment variable")
	fmt.Fprintln(w, "  2. --password-file (file path)")
	fmt.Fprintln(w, "  3. --password (command line)")
	fmt.Fprintln(w, "  4. Interactive prompt (fallback)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  signup                   Create an account and confirm the emailed code")
	fmt.Fprintln(w, "  signin                   Sign in; asks for a code if the account is unverified")
	fmt.Fprintln(w, "  verify [USER] [CODE]     Confirm a one-time code")
	fmt.Fprintln(w, "  status                   Show the saved session and check it on the server")
	fmt.Fprintln(w, "  logout                   Delete the saved session")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  otpauth signup")
	fmt.Fprintln(w, "  otpauth verify alice 123456")
	fmt.Fprintln(w, "  otpauth --server https://auth.example.com signin")
}
