package shared

import (
	"net/http"
	"time"
)

// ThemeCookie persists the dark mode preference outside the session so it
// survives logout.
const ThemeCookie = "lele_theme"

const themeDark = "dark"

// Shell is the application-wide state shared by every page.
type Shell struct {
	LoggedIn  bool
	DarkMode  bool
	UserEmail string
}

// LoadShell derives the shell flags from the session and theme cookie.
func LoadShell(r *http.Request, sess *Session) Shell {
	var shell Shell
	if sess != nil && sess.User() != "" {
		shell.LoggedIn = true
		shell.UserEmail = sess.Email()
	}
	if c, err := r.Cookie(ThemeCookie); err == nil && c.Value == themeDark {
		shell.DarkMode = true
	}
	return shell
}

// WriteTheme stores the dark mode preference for a year.
func WriteTheme(w http.ResponseWriter, dark, secure bool) {
	value := "light"
	if dark {
		value = themeDark
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ThemeCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().AddDate(1, 0, 0),
	})
}

// ShellMiddleware injects the Shell for every request. It must run after the
// session middleware.
func ShellMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shell := LoadShell(r, SessionFromContext(r.Context()))
		next.ServeHTTP(w, r.WithContext(ContextWithShell(r.Context(), shell)))
	})
}

// RequireAuth redirects anonymous visitors to the login page.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ShellFromContext(r.Context()).LoggedIn {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
