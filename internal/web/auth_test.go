package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestRequireOperator(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	op := Operator{User: "operator", PasswordHash: string(hash)}
	handler := RequireOperator(op, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name       string
		user, pass string
		noAuth     bool
		want       int
	}{
		{name: "valid", user: "operator", pass: "s3cret", want: http.StatusTeapot},
		{name: "wrong_password", user: "operator", pass: "nope", want: http.StatusUnauthorized},
		{name: "wrong_user", user: "guest", pass: "s3cret", want: http.StatusUnauthorized},
		{name: "no_credentials", noAuth: true, want: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/library", nil)
			if !tt.noAuth {
				req.SetBasicAuth(tt.user, tt.pass)
			}
			w := httptest.NewRecorder()
			handler(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate challenge")
			}
		})
	}
}

func TestRequireOperator_Disabled(t *testing.T) {
	handler := RequireOperator(Operator{User: "operator"}, func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	})
	req := httptest.NewRequest(http.MethodGet, "/library", nil)
	req.SetBasicAuth("operator", "")
	w := httptest.NewRecorder()
	handler(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
