package httpapi

import (
	"net/http"

	"o2d-dashboard/internal/access"
	"o2d-dashboard/internal/session"
	"o2d-dashboard/internal/upstream"

	"go.uber.org/zap"
)

// AuthHandler 登录/登出 Handler
// 登录代理到上游 auth 服务，成功后签发服务端会话。
type AuthHandler struct {
	upstream *upstream.Client
	sessions *session.Store
	catalog  *access.Catalog
	logger   *zap.Logger
}

func NewAuthHandler(up *upstream.Client, sessions *session.Store, catalog *access.Catalog, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		upstream: up,
		sessions: sessions,
		catalog:  catalog,
		logger:   logger,
	}
}

// Login 用户登录
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readBodyJSON(r, 1<<20, &reqBody); err != nil || reqBody.Username == "" || reqBody.Password == "" {
		writeJSON(w, http.StatusBadRequest, Fail("username and password are required"))
		return
	}

	// 1. 代理到上游 auth
	result, err := h.upstream.Login(ctx, reqBody.Username, reqBody.Password)
	if err != nil {
		h.logger.Warn("Upstream login failed",
			zap.String("username", reqBody.Username),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, Fail("login failed"))
		return
	}

	// 2. 解析 access 集合（"all" 对照当前目录展开）
	accessSet := access.Resolve(result.User.Access, h.catalog)

	// 3. 签发会话
	sid, err := h.sessions.Create(ctx, result.User, accessSet, result.Token)
	if err != nil {
		h.logger.Error("Failed to create session", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to create session"))
		return
	}

	h.logger.Info("User logged in",
		zap.String("username", result.User.Username),
		zap.Int("access_count", len(accessSet)),
	)

	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"sessionId": sid,
		"user":      result.User,
		"access":    accessSet,
		"token":     result.Token,
	}))
}

// Logout 用户登出（上游通知尽力而为，会话一定清除）
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sid := sessionID(r)

	if sess, ok := h.sessions.Restore(ctx, sid); ok {
		if err := h.upstream.Logout(ctx, sess.Token); err != nil {
			h.logger.Warn("Upstream logout failed", zap.Error(err))
		}
	}

	if err := h.sessions.Clear(ctx, sid); err != nil {
		h.logger.Warn("Failed to clear session", zap.String("session_id", sid), zap.Error(err))
	}

	writeJSON(w, http.StatusOK, Ok(true))
}
