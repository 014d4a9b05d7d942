package middleware

import (
	"net/http"
	"strings"

	"github.com/dukerupert/citievents/internal/auth"
)

// SessionCookieName holds the admin's backend token when the console is
// used from a browser.
const SessionCookieName = "citievents_session"

// RequireAdmin takes the backend bearer token from the Authorization header
// or the session cookie and attaches it to the request context. The backend
// decides whether the token is valid; requests without one go to the login
// entry point.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := requestToken(r)
		if token == "" {
			RedirectToLogin(w, r)
			return
		}
		ctx := auth.WithToken(r.Context(), token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// RedirectToLogin sends the client back to the login entry point.
// HTMX-aware: returns HX-Redirect header instead of 303 redirect for HTMX requests.
func RedirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ClearSession expires the session cookie.
func ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
