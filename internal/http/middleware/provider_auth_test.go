package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

func signedProviderToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func providerRouter(secret string) (*chi.Mux, *bool) {
	called := false
	r := chi.NewRouter()
	r.With(ProviderJWT(secret)).Get("/providers/{providerID}/stats", func(w http.ResponseWriter, req *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	return r, &called
}

func TestProviderJWTMissingSecret(t *testing.T) {
	router, called := providerRouter("")
	req := httptest.NewRequest(http.MethodGet, "/providers/p1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized || *called {
		t.Fatalf("expected 401 without handler call, got %d", rec.Code)
	}
}

func TestProviderJWTMissingHeader(t *testing.T) {
	router, _ := providerRouter("secret")
	req := httptest.NewRequest(http.MethodGet, "/providers/p1/stats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProviderJWTWrongSecret(t *testing.T) {
	router, _ := providerRouter("secret")
	req := httptest.NewRequest(http.MethodGet, "/providers/p1/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signedProviderToken(t, "wrong", "p1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestProviderJWTSubjectMismatch(t *testing.T) {
	router, called := providerRouter("secret")
	req := httptest.NewRequest(http.MethodGet, "/providers/p1/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signedProviderToken(t, "secret", "p2"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden || *called {
		t.Fatalf("expected 403 for foreign provider, got %d", rec.Code)
	}
}

func TestProviderJWTValidToken(t *testing.T) {
	router, called := providerRouter("secret")
	req := httptest.NewRequest(http.MethodGet, "/providers/p1/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signedProviderToken(t, "secret", "p1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !*called {
		t.Fatalf("expected 200 with handler call, got %d", rec.Code)
	}
}

func TestProviderJWTExpiredToken(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "p1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	router, _ := providerRouter("secret")
	req := httptest.NewRequest(http.MethodGet, "/providers/p1/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", rec.Code)
	}
}
