package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// RequireAuthorization returns a middleware that rejects requests whose
// Authorization header does not carry the expected bearer token. An empty
// token disables the check, leaving the facilitator open.
func RequireAuthorization(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "invalid authorization")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
