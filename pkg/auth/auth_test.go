package auth_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/provoke-dev/provoke/pkg/auth"
)

func TestGuardValidate(t *testing.T) {
	g, err := auth.NewGuard("secret")
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	if !g.Enabled() {
		t.Error("Enabled() = false, want true")
	}
	if err := g.Validate("secret"); err != nil {
		t.Errorf("Validate(correct) error = %v, want nil", err)
	}
	if err := g.Validate("wrong"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Validate(wrong) error = %v, want ErrInvalidToken", err)
	}
}

func TestGuardDisabled(t *testing.T) {
	g, err := auth.NewGuard("")
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	if g.Enabled() {
		t.Error("Enabled() = true, want false for empty secret")
	}
	if err := g.Validate("anything"); err != nil {
		t.Errorf("Validate() error = %v, want nil when disabled", err)
	}
}

func TestMiddleware(t *testing.T) {
	g, err := auth.NewGuard("secret")
	if err != nil {
		t.Fatalf("NewGuard() error = %v", err)
	}

	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"valid token", "Bearer secret", http.StatusOK},
		{"wrong token", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/invoke", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestMiddlewareDisabledPassesThrough(t *testing.T) {
	g, _ := auth.NewGuard("")
	handler := g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/invoke", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d with auth disabled", rec.Code, http.StatusOK)
	}
}

func TestGenerateToken(t *testing.T) {
	a, err := auth.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	b, err := auth.GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	if a == "" || b == "" {
		t.Error("GenerateToken() returned empty token")
	}
	if a == b {
		t.Error("GenerateToken() returned identical tokens")
	}
}
