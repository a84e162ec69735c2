package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/manajemen-lele/lele/internal/auth"
)

// UserRegistrar creates or updates local accounts.
type UserRegistrar interface {
	Register(ctx context.Context, email, password string) (*auth.User, error)
}

// UsersCLI seeds operator accounts for the local auth provider.
type UsersCLI struct {
	registrar UserRegistrar
}

// NewUsersCLI constructs the helper.
func NewUsersCLI(registrar UserRegistrar) *UsersCLI {
	return &UsersCLI{registrar: registrar}
}

// UserSeedOptions configures SeedCommand.
type UserSeedOptions struct {
	Email    string
	Password string
	Stdout   io.Writer
	Stderr   io.Writer
}

// SeedCommand upserts one account and returns the process exit code.
func (c *UsersCLI) SeedCommand(ctx context.Context, opts UserSeedOptions) int {
	email := strings.TrimSpace(opts.Email)
	if email == "" || !strings.Contains(email, "@") {
		fmt.Fprintln(opts.Stderr, "invalid email")
		return 1
	}
	if len(opts.Password) < 8 {
		fmt.Fprintln(opts.Stderr, "password must be at least 8 characters")
		return 1
	}
	user, err := c.registrar.Register(ctx, email, opts.Password)
	if err != nil {
		fmt.Fprintf(opts.Stderr, "seed user: %v\n", err)
		return 2
	}
	fmt.Fprintf(opts.Stdout, "user %s ready (%s)\n", user.Email, user.ID)
	return 0
}
