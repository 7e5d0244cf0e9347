package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewSessionManager(client, "vl_session", "secret", time.Hour, false)
}

func TestSessionRoundTripKeepsUserAndRole(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, req)
	require.NoError(t, err)
	require.Empty(t, sess.User())

	sess.SetUser("3f0c8a6e-0000-0000-0000-000000000001", "supplier")
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "3f0c8a6e-0000-0000-0000-000000000001", loaded.User())
	require.Equal(t, "supplier", loaded.Role())
}

func TestSessionDestroyClearsCookieAndStore(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	sess.SetUser("user-1", "buyer")
	rr := httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))
	cookie := rr.Result().Cookies()[0]

	sm.Destroy(sess)
	rr = httptest.NewRecorder()
	require.NoError(t, sm.Commit(ctx, rr, sess))
	cleared := rr.Result().Cookies()[0]
	require.Equal(t, -1, cleared.MaxAge)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := sm.Load(ctx, next)
	require.NoError(t, err)
	require.Empty(t, loaded.User())
}

func TestSessionUnknownCookieYieldsAnonymous(t *testing.T) {
	sm := newTestManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sm.CookieName(), Value: "gone"})
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	require.Empty(t, sess.User())
	require.Empty(t, sess.Role())
}
