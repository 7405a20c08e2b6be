package middleware

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const (
	ContextKeyUserID = "user_id"

	loginPath = "/users/login"
)

type sessionResolver interface {
	CurrentUser(r *http.Request) (uint64, bool)
}

type SessionMiddleware struct {
	sessions sessionResolver
}

func NewSessionMiddleware(sessions sessionResolver) *SessionMiddleware {
	return &SessionMiddleware{sessions: sessions}
}

// RequireSession redirects anonymous requests to the login page with message.
func (m *SessionMiddleware) RequireSession(message string) echo.MiddlewareFunc {
	location := loginPath
	if message != "" {
		location += "?" + url.Values{"message": {message}}.Encode()
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := m.sessions.CurrentUser(c.Request())
			if !ok {
				logrus.WithField("path", c.Path()).Debug("Missing or invalid session")
				return c.Redirect(http.StatusSeeOther, location)
			}

			c.Set(ContextKeyUserID, userID)
			return next(c)
		}
	}
}
