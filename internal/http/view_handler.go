package httpapi

import (
	"net/http"

	"o2d-dashboard/internal/router"
	"o2d-dashboard/internal/session"

	"go.uber.org/zap"
)

// ViewHandler 视图路由 Handler
type ViewHandler struct {
	router   *router.Router
	sessions *session.Store
	logger   *zap.Logger
}

func NewViewHandler(rt *router.Router, sessions *session.Store, logger *zap.Logger) *ViewHandler {
	return &ViewHandler{
		router:   rt,
		sessions: sessions,
		logger:   logger,
	}
}

// viewData 路由决策 + 渲染指示
type viewData struct {
	State  router.State       `json:"state"`
	ViewID string             `json:"viewId,omitempty"`
	Render router.RenderState `json:"render"`
	View   *router.View       `json:"view,omitempty"`
}

func (h *ViewHandler) respond(w http.ResponseWriter, res router.Resolution) {
	render, view := h.router.Render(res)
	writeJSON(w, http.StatusOK, Ok(viewData{
		State:  res.State,
		ViewID: res.ViewID,
		Render: render,
		View:   view,
	}))
}

// Resolve 会话重载后的视图解析（恢复上次视图或选择默认落地页）
func (h *ViewHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, ok := h.sessions.Restore(ctx, sessionID(r))
	if !ok {
		sess = nil
	}
	h.respond(w, h.router.Resolve(ctx, sess))
}

// Select 显式导航
func (h *ViewHandler) Select(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var reqBody struct {
		ViewID string `json:"viewId"`
	}
	if err := readBodyJSON(r, 1<<16, &reqBody); err != nil || reqBody.ViewID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("viewId is required"))
		return
	}

	sess, ok := h.sessions.Restore(ctx, sessionID(r))
	if !ok {
		sess = nil
	}
	h.respond(w, h.router.SelectView(ctx, sess, reqBody.ViewID))
}
