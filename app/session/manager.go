// Package session binds an HTTP client to a user id through a signed cookie.
//
// Session state lives in the cookie itself (an HS256 token carrying the user id,
// a session id and the expiry). The server only remembers sessions that were
// logged out early. Changing the signing secret, including restarting with a
// generated one, invalidates every outstanding session.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultCookieName = "session_id"
	DefaultTTL        = time.Hour
)

var (
	ErrNoSession      = errors.New("no session")
	ErrInvalidSession = errors.New("invalid or expired session")
	ErrEmptySecret    = errors.New("session secret cannot be empty")
)

type Claims struct {
	UserID uint64 `json:"uid"`
	jwt.RegisteredClaims
}

type Option func(*Manager)

type Manager struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	secure     bool
	revoked    RevocationStore
	now        func() time.Time
}

func NewManager(secret []byte, opts ...Option) (*Manager, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	m := &Manager{
		secret:     secret,
		cookieName: DefaultCookieName,
		ttl:        DefaultTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.revoked == nil {
		m.revoked = NewMemoryRevocationStore(m.now)
	}
	return m, nil
}

func WithCookieName(name string) Option {
	return func(m *Manager) {
		if name != "" {
			m.cookieName = name
		}
	}
}

func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

func WithSecureCookie(secure bool) Option {
	return func(m *Manager) {
		m.secure = secure
	}
}

func WithRevocationStore(store RevocationStore) Option {
	return func(m *Manager) {
		if store != nil {
			m.revoked = store
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewSecret returns 32 random bytes suitable as a signing secret.
func NewSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate session secret: %w", err)
	}
	return secret, nil
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session token for userID.
func (m *Manager) Issue(userID uint64) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, expiresAt, nil
}

// Login establishes a session for userID on the response.
func (m *Manager) Login(w http.ResponseWriter, userID uint64) error {
	token, _, err := m.Issue(userID)
	if err != nil {
		return err
	}

	http.SetCookie(w, m.cookie(token, int(m.ttl.Seconds())))
	return nil
}

// CurrentUser returns the user bound to the request's session cookie.
func (m *Manager) CurrentUser(r *http.Request) (uint64, bool) {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return 0, false
	}

	userID, err := m.Resolve(r.Context(), cookie.Value)
	if err != nil {
		return 0, false
	}
	return userID, true
}

// Resolve validates a raw session token and returns its user id.
func (m *Manager) Resolve(ctx context.Context, token string) (uint64, error) {
	claims, err := m.parse(token)
	if err != nil {
		return 0, err
	}

	revoked, err := m.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return 0, err
	}
	if revoked {
		return 0, ErrInvalidSession
	}

	return claims.UserID, nil
}

// Logout revokes the request's session, if any, and expires the cookie.
// It returns ErrNoSession when the request carried no valid session.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	defer http.SetCookie(w, m.cookie("", -1))

	cookie, err := r.Cookie(m.cookieName)
	if err != nil || cookie.Value == "" {
		return ErrNoSession
	}

	claims, err := m.parse(cookie.Value)
	if err != nil {
		return ErrNoSession
	}

	revoked, err := m.revoked.IsRevoked(r.Context(), claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrNoSession
	}

	return m.revoked.Revoke(r.Context(), claims.ID, claims.ExpiresAt.Time.Sub(m.now()))
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.ID == "" || claims.UserID == 0 {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
