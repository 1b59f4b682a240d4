package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"o2d-dashboard/internal/access"
	"o2d-dashboard/internal/session"
	"o2d-dashboard/internal/upstream"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSessions(t *testing.T) *session.Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return session.NewStore(session.NewRedisKVStore(client), access.DefaultCatalog(), time.Hour, zap.NewNop())
}

// fakeAuthUpstream serves the upstream auth contract for handler tests.
func fakeAuthUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "secret" {
				json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "invalid credentials"})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"success": true,
				"data": map[string]any{
					"user": map[string]any{
						"id":       1,
						"username": body["username"],
						"access":   "dashboard, orders",
						"role":     "operator",
					},
					"token": "tok-xyz",
				},
			})
		case "/auth/logout":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newAuthFixture(t *testing.T) (*AuthHandler, *session.Store) {
	t.Helper()
	srv := fakeAuthUpstream(t)
	up := upstream.NewClient(srv.URL, srv.URL, 5*time.Second, zap.NewNop())
	sessions := newTestSessions(t)
	return NewAuthHandler(up, sessions, access.DefaultCatalog(), zap.NewNop()), sessions
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestLogin_Success(t *testing.T) {
	h, sessions := newAuthFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"ops1","password":"secret"}`))
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	sid := data["sessionId"].(string)
	require.NotEmpty(t, sid)
	assert.Equal(t, "tok-xyz", data["token"])
	assert.Equal(t, []any{"dashboard", "orders"}, data["access"])

	// 会话已持久化并可恢复
	sess, ok := sessions.Restore(context.Background(), sid)
	require.True(t, ok)
	assert.Equal(t, "ops1", sess.Identity.Username)
	assert.Equal(t, []string{"dashboard", "orders"}, sess.Access)
	assert.Equal(t, "tok-xyz", sess.Token)
}

func TestLogin_BadCredentials(t *testing.T) {
	h, _ := newAuthFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"ops1","password":"wrong"}`))
	h.Login(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeResponse(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "login failed", resp.Error)
}

func TestLogin_MissingFields(t *testing.T) {
	h, _ := newAuthFixture(t)

	for _, body := range []string{``, `{}`, `{"username":"ops1"}`, `{"password":"secret"}`, `{not json`} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		h.Login(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body=%q", body)
	}
}

func TestLogout_ClearsSessionEvenWithoutUpstream(t *testing.T) {
	h, sessions := newAuthFixture(t)
	ctx := context.Background()

	// 先登录建立会话
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"username":"ops1","password":"secret"}`))
	h.Login(rec, req)
	sid := decodeResponse(t, rec).Data.(map[string]any)["sessionId"].(string)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("X-Session-Id", sid)
	h.Logout(rec, req)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	_, ok := sessions.Restore(ctx, sid)
	assert.False(t, ok)
}

func TestLogout_UnknownSessionStillSucceeds(t *testing.T) {
	h, _ := newAuthFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("X-Session-Id", "no-such-session")
	h.Logout(rec, req)

	assert.True(t, decodeResponse(t, rec).Success)
}
