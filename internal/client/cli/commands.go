package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/iudanet/otpauth/internal/client/auth"
)

// ErrUnknownCommand возвращается для неизвестной команды
var ErrUnknownCommand = errors.New("unknown command")

func (c *Cli) Run(ctx context.Context, command string, args []string) error {
	switch command {
	case "signup":
		return c.runSignup(ctx)
	case "signin", "login":
		return c.runSignIn(ctx)
	case "verify":
		return c.runVerify(ctx, args)
	case "status":
		return c.runStatus(ctx)
	case "logout":
		return c.runLogout(ctx)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, command)
	}
}

func (c *Cli) runSignup(ctx context.Context) error {
	c.io.Println("=== Sign up ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	email, err := c.io.ReadInput("Email: ")
	if err != nil {
		return fmt.Errorf("failed to read email: %w", err)
	}

	password, err := c.getPassword("Password (min 8 chars): ")
	if err != nil {
		return err
	}

	if c.interactivePassword() {
		confirm, err := c.io.ReadPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	result, err := c.authService.Signup(ctx, username, email, password)
	if err != nil {
		return err
	}

	c.io.Println()
	c.io.Printf("✓ Account %s created. A verification code was sent to %s\n", result.Username, email)

	return c.confirmCode(ctx, username)
}

func (c *Cli) runSignIn(ctx context.Context) error {
	c.io.Println("=== Sign in ===")
	c.io.Println()

	username, err := c.io.ReadInput("Username: ")
	if err != nil {
		return fmt.Errorf("failed to read username: %w", err)
	}

	password, err := c.getPassword("Password: ")
	if err != nil {
		return err
	}

	result, err := c.authService.SignIn(ctx, username, password)
	if err != nil {
		return err
	}

	if result.NeedsOTP {
		c.io.Println()
		c.io.Println("Your account is not verified yet. A new code was sent to your email.")
		return c.confirmCode(ctx, username)
	}

	c.printSession(result)
	return nil
}

func (c *Cli) runVerify(ctx context.Context, args []string) error {
	var username, code string
	if len(args) > 0 {
		username = args[0]
	}
	if len(args) > 1 {
		code = args[1]
	}

	if username == "" {
		var err error
		username, err = c.io.ReadInput("Username: ")
		if err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}

	if code == "" {
		return c.confirmCode(ctx, username)
	}

	result, err := c.authService.Verify(ctx, username, code)
	if err != nil {
		return err
	}

	c.printSession(result)
	return nil
}

// confirmCode спрашивает код и подтверждает его
func (c *Cli) confirmCode(ctx context.Context, username string) error {
	code, err := c.io.ReadInput("Verification code: ")
	if err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}

	result, err := c.authService.Verify(ctx, username, code)
	if err != nil {
		return err
	}

	c.printSession(result)
	return nil
}

func (c *Cli) printSession(result *auth.Result) {
	c.io.Println()
	c.io.Println("✓ Signed in!")
	c.io.Printf("Username: %s\n", result.Username)
	c.io.Printf("Token expires: %s\n", formatExpiry(result.ExpiresAt))
	c.io.Println("Your session has been saved.")
}
