package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/manajemen-lele/lele/internal/shared"
)

// GoTrueConfig configures the hosted auth endpoint.
type GoTrueConfig struct {
	URL       string
	Key       string
	JWTSecret string
	Timeout   time.Duration
}

// GoTrueAuthenticator signs in against a GoTrue password grant.
type GoTrueAuthenticator struct {
	http   *resty.Client
	secret []byte
}

// NewGoTrueAuthenticator constructs the authenticator. Without a JWT secret
// the access token is decoded but not verified.
func NewGoTrueAuthenticator(cfg GoTrueConfig) *GoTrueAuthenticator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")+"/auth/v1").
		SetHeader("apikey", cfg.Key).
		SetTimeout(timeout)
	var secret []byte
	if cfg.JWTSecret != "" {
		secret = []byte(cfg.JWTSecret)
	}
	return &GoTrueAuthenticator{http: client, secret: secret}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type tokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticate implements Authenticator.
func (a *GoTrueAuthenticator) Authenticate(ctx context.Context, email, password string) (*User, error) {
	var (
		ok   tokenResponse
		fail tokenError
	)
	resp, err := a.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": strings.TrimSpace(email), "password": password}).
		SetResult(&ok).
		SetError(&fail).
		Post("/token")
	if err != nil {
		return nil, fmt.Errorf("auth: gotrue: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusBadRequest, resp.StatusCode() == http.StatusUnauthorized:
		return nil, shared.ErrInvalidCredentials
	case resp.IsError():
		return nil, fmt.Errorf("auth: gotrue status %d: %s", resp.StatusCode(), fail.ErrorDescription+fail.Msg)
	}

	claims, err := a.parse(ok.AccessToken)
	if err != nil {
		return nil, err
	}
	user := &User{ID: claims.Subject, Email: claims.Email, IsActive: true}
	if user.ID == "" {
		user.ID = ok.User.ID
	}
	if user.Email == "" {
		user.Email = ok.User.Email
	}
	return user, nil
}

func (a *GoTrueAuthenticator) parse(token string) (*accessClaims, error) {
	if token == "" {
		return nil, errors.New("auth: gotrue returned no access token")
	}
	claims := &accessClaims{}
	if a.secret == nil {
		if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
			return nil, fmt.Errorf("auth: decode access token: %w", err)
		}
		return claims, nil
	}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
	}
	return claims, nil
}
