package daemon

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// authMiddleware validates bearer tokens against a plain token or a bcrypt
// hash. With neither configured every request passes through.
func authMiddleware(token, hash string, next http.Handler) http.Handler {
	if token == "" && hash == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		presented, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || !tokenMatches(presented, token, hash) {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized", "unauthorized"), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func tokenMatches(presented, token, hash string) bool {
	if presented == "" {
		return false
	}
	if token != "" && subtle.ConstantTimeCompare([]byte(presented), []byte(token)) == 1 {
		return true
	}
	if hash != "" && bcrypt.CompareHashAndPassword([]byte(hash), []byte(presented)) == nil {
		return true
	}
	return false
}
