package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vibast-solutions/ms-go-accounts/app/middleware"

	"github.com/labstack/echo/v4"
)

func runAPIKey(t *testing.T, m *middleware.APIKeyMiddleware, header string) int {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if header != "" {
		req.Header.Set(middleware.HeaderAPIKey, header)
	}
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	handler := m.RequireAPIKey(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := handler(ctx); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec.Code
}

func TestRequireAPIKey_MissingHeader(t *testing.T) {
	if code := runAPIKey(t, middleware.NewAPIKeyMiddleware("secret"), ""); code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", code)
	}
}

func TestRequireAPIKey_WrongKey(t *testing.T) {
	if code := runAPIKey(t, middleware.NewAPIKeyMiddleware("secret"), "nope"); code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", code)
	}
}

func TestRequireAPIKey_ValidKey(t *testing.T) {
	if code := runAPIKey(t, middleware.NewAPIKeyMiddleware("secret"), " secret "); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
}

func TestRequireAPIKey_DisabledWithoutKey(t *testing.T) {
	if code := runAPIKey(t, middleware.NewAPIKeyMiddleware(""), ""); code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", code)
	}
}
