package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/manajemen-lele/lele/internal/auth"
	"github.com/manajemen-lele/lele/internal/shared"
	"github.com/manajemen-lele/lele/internal/view"
	_ "github.com/manajemen-lele/lele/testing"
)

type stubStore struct {
	user *auth.User
}

func (s *stubStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || !strings.EqualFold(s.user.Email, email) {
		return nil, auth.ErrUserNotFound
	}
	return s.user, nil
}

func (s *stubStore) Create(ctx context.Context, email, hash string) (*auth.User, error) {
	s.user = &auth.User{ID: "1", Email: email, PasswordHash: hash, IsActive: true}
	return s.user, nil
}

type harness struct {
	router   http.Handler
	sessions *shared.SessionManager
}

// newHarness mounts the auth routes behind minimal session and shell middleware.
func newHarness(t *testing.T, authn auth.Authenticator) *harness {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)
	handler := auth.NewHandler(nil, authn, templates, sessions, shared.NewCSRFManager("csrf"), false)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			ctx = shared.ContextWithShell(ctx, shared.LoadShell(req, sess))
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req.WithContext(ctx))
			require.NoError(t, sessions.Commit(ctx, w, sess))
			for k, v := range rec.Header() {
				w.Header()[k] = append(w.Header()[k], v...)
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	handler.MountRoutes(r)
	return &harness{router: r, sessions: sessions}
}

func (h *harness) post(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func localAuth(t *testing.T) auth.Authenticator {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("rahasia123"), bcrypt.MinCost)
	require.NoError(t, err)
	return auth.NewLocalAuthenticator(&stubStore{user: &auth.User{ID: "1", Email: "petani@lele.id", PasswordHash: string(hashed), IsActive: true}})
}

func TestLoginPage(t *testing.T) {
	h := newHarness(t, localAuth(t))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<form")
	assert.Contains(t, rec.Body.String(), `name="csrf_token"`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h := newHarness(t, localAuth(t))
	rec := h.post("/login", url.Values{"email": {"petani@lele.id"}, "password": {"salah"}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email atau password salah.")
}

func TestLoginLogoutCycle(t *testing.T) {
	h := newHarness(t, localAuth(t))
	rec := h.post("/login", url.Values{"email": {"petani@lele.id"}, "password": {"rahasia123"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	cookie := cookieNamed(rec, "test_session")
	require.NotNil(t, cookie)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	sess, err := h.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1", sess.User())
	assert.Equal(t, "petani@lele.id", sess.Email())

	rec = h.post("/logout", url.Values{}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	sess, err = h.sessions.Load(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, sess.User())
}

func TestThemeToggleSurvivesLogout(t *testing.T) {
	h := newHarness(t, localAuth(t))
	rec := h.post("/theme", url.Values{"next": {"/modal"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/modal", rec.Header().Get("Location"))
	theme := cookieNamed(rec, shared.ThemeCookie)
	require.NotNil(t, theme)
	assert.Equal(t, "dark", theme.Value)

	rec = h.post("/logout", url.Values{}, theme)
	assert.Nil(t, cookieNamed(rec, shared.ThemeCookie), "logout leaves the theme alone")

	rec = h.post("/theme", url.Values{"next": {"//evil.example"}}, theme)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	assert.Equal(t, "light", cookieNamed(rec, shared.ThemeCookie).Value)
}
