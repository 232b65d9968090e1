package web

import (
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

// Operator holds the credentials guarding operator pages. An empty
// PasswordHash disables them.
type Operator struct {
	User         string
	PasswordHash string // bcrypt
}

// RequireOperator wraps next with HTTP basic auth checked against op.
func RequireOperator(op Operator, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if op.PasswordHash == "" {
			http.Error(w, "operator access disabled", http.StatusForbidden)
			return
		}
		user, pass, ok := r.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(op.User)) == 1
		if !ok || !userOK || bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(pass)) != nil {
			w.Header().Set("WWW-Authenticate", `Basic realm="BoothGo operator"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
