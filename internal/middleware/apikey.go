package middleware

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

const headerAPIKey = "X-API-Key"

// APIKey returns middleware that checks the X-API-Key header against a
// bcrypt hash of the configured key. An empty hash disables the check
// (local development).
func APIKey(keyHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if keyHash == "" {
				next.ServeHTTP(w, r)
				return
			}

			key := r.Header.Get(headerAPIKey)
			if key == "" {
				// WebSocket clients cannot set headers; allow ?key= there.
				key = r.URL.Query().Get("key")
			}
			if key == "" {
				http.Error(w, `{"error":"api key required"}`, http.StatusUnauthorized)
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
				http.Error(w, `{"error":"invalid api key"}`, http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
