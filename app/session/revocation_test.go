package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-accounts/app/session"
)

func TestMemoryRevocationStore(t *testing.T) {
	c := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	store := session.NewMemoryRevocationStore(c.Now)
	ctx := context.Background()

	revoked, err := store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, store.Revoke(ctx, "a", time.Minute))
	revoked, err = store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	c.now = c.now.Add(2 * time.Minute)
	revoked, err = store.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked, "entries lapse with the session")

	require.NoError(t, store.Revoke(ctx, "b", 0))
	revoked, err = store.IsRevoked(ctx, "b")
	require.NoError(t, err)
	assert.False(t, revoked, "already expired sessions are not recorded")
}

func TestRedisRevocationStore_Revoke(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := session.NewRedisRevocationStore(client)

	mock.ExpectSet("session:revoked:abc", "1", 30*time.Minute).SetVal("OK")
	require.NoError(t, store.Revoke(context.Background(), "abc", 30*time.Minute))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRevocationStore_RevokeError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := session.NewRedisRevocationStore(client)

	mock.ExpectSet("session:revoked:abc", "1", time.Minute).SetErr(errors.New("connection refused"))
	err := store.Revoke(context.Background(), "abc", time.Minute)
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRevocationStore_IsRevoked(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := session.NewRedisRevocationStore(client)
	ctx := context.Background()

	mock.ExpectExists("session:revoked:abc").SetVal(1)
	revoked, err := store.IsRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	mock.ExpectExists("session:revoked:def").SetVal(0)
	revoked, err = store.IsRevoked(ctx, "def")
	require.NoError(t, err)
	assert.False(t, revoked)

	mock.ExpectExists("session:revoked:ghi").SetErr(errors.New("timeout"))
	_, err = store.IsRevoked(ctx, "ghi")
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestManager_WithRedisRevocation(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := newManager(t, c, session.WithRevocationStore(session.NewRedisRevocationStore(client)))
	cookie := loginCookie(t, m, 11)

	mock.Regexp().ExpectExists(`session:revoked:.+`).SetVal(0)
	userID, ok := m.CurrentUser(requestWith(cookie))
	require.True(t, ok)
	assert.Equal(t, uint64(11), userID)

	require.NoError(t, mock.ExpectationsWereMet())
}
