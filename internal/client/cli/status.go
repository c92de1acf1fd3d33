package cli

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/otpauth/internal/client/auth"
)

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Authentication Status ===")
	c.io.Println()

	status, err := c.authService.Status(ctx)
	if err != nil {
		if errors.Is(err, auth.ErrNotLoggedIn) {
			c.io.Println("Status: Not authenticated")
			c.io.Println()
			c.io.Println("Run 'otpauth signin' to authenticate.")
			return nil
		}
		return err
	}

	c.io.Printf("Username: %s\n", status.Username)
	c.io.Printf("Server: %s\n", status.ServerURL)
	c.io.Printf("Token expires: %s\n", status.ExpiresAt.Format(time.RFC3339))

	if status.Valid {
		c.io.Println("Status: Authenticated")
		return nil
	}

	c.io.Println("Status: Session expired or revoked. Please sign in again.")
	return nil
}
