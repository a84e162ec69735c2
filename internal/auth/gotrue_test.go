package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manajemen-lele/lele/internal/shared"
)

func signed(t *testing.T, secret string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "a1b2",
		"email": "petani@lele.id",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func gotrueServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon", r.Header.Get("apikey"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		if body["password"] != "rahasia" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": token,
			"user":         map[string]string{"id": "a1b2", "email": body["email"]},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGoTrueVerifiedLogin(t *testing.T) {
	srv := gotrueServer(t, signed(t, "jwt-secret"))
	a := NewGoTrueAuthenticator(GoTrueConfig{URL: srv.URL, Key: "anon", JWTSecret: "jwt-secret"})

	user, err := a.Authenticate(context.Background(), "petani@lele.id", "rahasia")
	require.NoError(t, err)
	assert.Equal(t, "a1b2", user.ID)
	assert.Equal(t, "petani@lele.id", user.Email)

	_, err = a.Authenticate(context.Background(), "petani@lele.id", "salah")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestGoTrueRejectsForeignSignature(t *testing.T) {
	srv := gotrueServer(t, signed(t, "other-secret"))
	a := NewGoTrueAuthenticator(GoTrueConfig{URL: srv.URL, Key: "anon", JWTSecret: "jwt-secret"})

	_, err := a.Authenticate(context.Background(), "petani@lele.id", "rahasia")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestGoTrueUnverifiedDecode(t *testing.T) {
	srv := gotrueServer(t, signed(t, "whatever"))
	a := NewGoTrueAuthenticator(GoTrueConfig{URL: srv.URL, Key: "anon"})

	user, err := a.Authenticate(context.Background(), "petani@lele.id", "rahasia")
	require.NoError(t, err)
	assert.Equal(t, "a1b2", user.ID)
}
