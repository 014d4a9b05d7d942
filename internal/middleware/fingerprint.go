package middleware

import (
	"net/http"

	"github.com/dukerupert/citievents/internal/identity"
)

// Fingerprint attaches the visitor's pseudo-identity, derived from the real
// client IP and User-Agent, for identity.Request to pick up.
func Fingerprint(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp := identity.Fingerprint(RealIP(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(identity.NewContext(r.Context(), fp)))
	})
}
