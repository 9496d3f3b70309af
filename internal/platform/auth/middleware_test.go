package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testKey = []byte("test-signing-key")

func signToken(t *testing.T, roles []string, key []byte) string {
	t.Helper()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doRequest(header string, mw ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	e := echo.New()
	h := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	rec := doRequest("", JWTMiddleware(JWTConfig{SigningKey: testKey}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	token := signToken(t, []string{"auditor"}, testKey)
	rec := doRequest("Bearer "+token, JWTMiddleware(JWTConfig{SigningKey: testKey}))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	token := signToken(t, []string{"auditor"}, []byte("other-key"))
	rec := doRequest("Bearer "+token, JWTMiddleware(JWTConfig{SigningKey: testKey}))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	token := signToken(t, []string{"auditor"}, testKey)

	rec := doRequest("Bearer "+token, JWTMiddleware(JWTConfig{SigningKey: testKey}), RequireRole("admin", "auditor"))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for auditor, got %d", rec.Code)
	}

	rec = doRequest("Bearer "+token, JWTMiddleware(JWTConfig{SigningKey: testKey}), RequireRole("admin"))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for auditor on admin route, got %d", rec.Code)
	}
}

func TestDevAuthMiddleware_GrantsAdmin(t *testing.T) {
	rec := doRequest("", DevAuthMiddleware(), RequireRole("admin"))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
