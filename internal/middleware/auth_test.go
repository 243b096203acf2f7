package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"app/internal/model"
	"app/internal/util"

	"github.com/dgrijalva/jwt-go"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string) string {
	t.Helper()
	claims := util.Claims{
		Email:          "admin@example.com",
		StandardClaims: jwt.StandardClaims{Subject: "admin-1"},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func TestAuthMiddlewareEmbedsClaims(t *testing.T) {
	var got model.IdentityClaims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFromContext(r.Context())
		if !ok {
			t.Fatal("claims missing from context")
		}
		got = claims
	})

	req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret))
	rr := httptest.NewRecorder()
	AuthMiddleware(testSecret)(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got.UserID != "admin-1" || got.Email != "admin@example.com" {
		t.Fatalf("unexpected claims: %+v", got)
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	})
	mw := AuthMiddleware(testSecret)(next)

	cases := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret")},
		{"garbage token", "Bearer not-a-jwt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			mw.ServeHTTP(rr, req)
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", rr.Code)
			}
		})
	}
}
