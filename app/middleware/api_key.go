package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const HeaderAPIKey = "X-API-Key"

type APIKeyMiddleware struct {
	key []byte
}

func NewAPIKeyMiddleware(key string) *APIKeyMiddleware {
	return &APIKeyMiddleware{key: []byte(key)}
}

// RequireAPIKey passes every request through when no key is configured.
func (m *APIKeyMiddleware) RequireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if len(m.key) == 0 {
			return next(c)
		}

		apiKey := strings.TrimSpace(c.Request().Header.Get(HeaderAPIKey))
		if apiKey == "" {
			logrus.Debug("Missing x-api-key header")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "unauthorized",
			})
		}

		if subtle.ConstantTimeCompare([]byte(apiKey), m.key) != 1 {
			logrus.Debug("Invalid x-api-key header")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "unauthorized",
			})
		}

		return next(c)
	}
}
