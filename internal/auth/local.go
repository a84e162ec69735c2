package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/manajemen-lele/lele/internal/shared"
)

// ErrUserNotFound is returned when no account has the email.
var ErrUserNotFound = errors.New("auth: user not found")

// UserStore loads and creates local accounts.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, email, passwordHash string) (*User, error)
}

// PGUserStore implements UserStore over the users table.
type PGUserStore struct {
	pool *pgxpool.Pool
}

// NewPGUserStore constructs a PostgreSQL user store.
func NewPGUserStore(pool *pgxpool.Pool) *PGUserStore {
	return &PGUserStore{pool: pool}
}

// FindByEmail fetches a user by email.
func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var (
		u  User
		id int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, is_active, created_at FROM users WHERE lower(email) = lower($1)`,
		email,
	).Scan(&id, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.ID = strconv.FormatInt(id, 10)
	return &u, nil
}

// Create inserts an active account.
func (s *PGUserStore) Create(ctx context.Context, email, passwordHash string) (*User, error) {
	var (
		u  User
		id int64
	)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2)
		 ON CONFLICT (email) DO UPDATE SET password_hash = EXCLUDED.password_hash, is_active = TRUE
		 RETURNING id, email, password_hash, is_active, created_at`,
		email, passwordHash,
	).Scan(&id, &u.Email, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("auth: create user: %w", err)
	}
	u.ID = strconv.FormatInt(id, 10)
	return &u, nil
}

// LocalAuthenticator checks bcrypt hashes from a UserStore.
type LocalAuthenticator struct {
	users UserStore
}

// NewLocalAuthenticator constructs a LocalAuthenticator.
func NewLocalAuthenticator(users UserStore) *LocalAuthenticator {
	return &LocalAuthenticator{users: users}
}

// Authenticate validates email/password credentials.
func (a *LocalAuthenticator) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := a.users.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register hashes password and stores the account.
func (a *LocalAuthenticator) Register(ctx context.Context, email, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return a.users.Create(ctx, strings.TrimSpace(email), string(hash))
}
