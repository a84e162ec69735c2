// Package auth signs the single farm operator in and out.
package auth

import (
	"context"
	"time"
)

// User represents an authenticated account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
}

// Authenticator validates email and password credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*User, error)
}

// Provider names accepted by AUTH_PROVIDER.
const (
	ProviderLocal  = "local"
	ProviderGoTrue = "gotrue"
)
