package router

import (
	"context"

	"o2d-dashboard/internal/access"
	"o2d-dashboard/internal/session"

	"go.uber.org/zap"
)

// State 视图路由状态机的状态
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	// StateResolving: identity present, no view chosen yet. Also the terminal
	// state when nothing at all is permitted (render a loading/empty screen,
	// never an error).
	StateResolving State = "resolving"
	StateActive    State = "active"
	StateDenied    State = "denied"
)

// Resolution is the outcome of a routing decision. ViewID is set for Active
// and Denied.
type Resolution struct {
	State  State  `json:"state"`
	ViewID string `json:"viewId,omitempty"`
}

// View 一个可展示的屏幕组件
type View struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DefaultViews 侧边栏组件注册表（与权限目录同序）
func DefaultViews() []View {
	return []View{
		{ID: "dashboard", Label: "Dashboard"},
		{ID: "orders", Label: "Orders"},
		{ID: "gate-entry", Label: "Gate Entry"},
		{ID: "first-weight", Label: "First Weight"},
		{ID: "load-vehicle", Label: "Load Vehicle"},
		{ID: "second-weight", Label: "Second Weight"},
		{ID: "generate-invoice", Label: "Generate Invoice"},
		{ID: "gate-out", Label: "Gate Out Entry"},
		{ID: "payment", Label: "Payment"},
		{ID: "complaint-details", Label: "Complaint Details"},
		{ID: "party-feedback", Label: "Party Feedback"},
		{ID: "permissions", Label: "Permissions"},
		{ID: "register", Label: "User Register"},
	}
}

// Router maps a requested view id to a displayable component, enforcing
// capability membership and remembering the last-viewed screen per session.
type Router struct {
	catalog  *access.Catalog
	sessions *session.Store
	views    map[string]View
	logger   *zap.Logger
}

func New(catalog *access.Catalog, sessions *session.Store, views []View, logger *zap.Logger) *Router {
	m := make(map[string]View, len(views))
	for _, v := range views {
		m[v.ID] = v
	}
	return &Router{
		catalog:  catalog,
		sessions: sessions,
		views:    m,
		logger:   logger,
	}
}

// Lookup returns the registered component for a view id.
func (r *Router) Lookup(viewID string) (View, bool) {
	v, ok := r.views[viewID]
	return v, ok
}

// Resolve computes the view for a freshly authenticated or reloaded session:
//  1. the persisted last view, when still permitted (admin bypass applies),
//  2. else "dashboard" when permitted (persisted immediately),
//  3. else the first permitted catalog entry, scanning in catalog order and
//     skipping "register" (never a default landing screen),
//  4. else remain Resolving. Intentional degraded behavior, not an error.
func (r *Router) Resolve(ctx context.Context, sess *session.Session) Resolution {
	if sess == nil {
		return Resolution{State: StateUnauthenticated}
	}

	if saved, ok := r.sessions.LastView(ctx, sess.ID); ok && r.permitted(saved, sess) {
		return Resolution{State: StateActive, ViewID: saved}
	}

	if r.permitted("dashboard", sess) {
		r.persistView(ctx, sess.ID, "dashboard")
		return Resolution{State: StateActive, ViewID: "dashboard"}
	}

	for _, id := range r.catalog.IDs() {
		if id == "register" {
			continue
		}
		if r.permitted(id, sess) {
			r.persistView(ctx, sess.ID, id)
			return Resolution{State: StateActive, ViewID: id}
		}
	}

	r.logger.Warn("No permitted view for session, staying in resolving state",
		zap.String("session_id", sess.ID),
		zap.String("username", sess.Identity.Username),
	)
	return Resolution{State: StateResolving}
}

// SelectView handles explicit navigation. The requested id is persisted as
// the last view even when denied, so a later capability grant resumes there.
func (r *Router) SelectView(ctx context.Context, sess *session.Session, viewID string) Resolution {
	if sess == nil {
		return Resolution{State: StateUnauthenticated}
	}

	r.persistView(ctx, sess.ID, viewID)

	if !r.permitted(viewID, sess) {
		return Resolution{State: StateDenied, ViewID: viewID}
	}
	return Resolution{State: StateActive, ViewID: viewID}
}

// Logout clears the session, including the persisted view.
func (r *Router) Logout(ctx context.Context, sid string) error {
	return r.sessions.Clear(ctx, sid)
}

func (r *Router) permitted(viewID string, sess *session.Session) bool {
	return access.Permitted(viewID, sess.Identity.Role, sess.Access, r.catalog)
}

func (r *Router) persistView(ctx context.Context, sid string, viewID string) {
	if err := r.sessions.SetLastView(ctx, sid, viewID); err != nil {
		r.logger.Warn("Failed to persist last view",
			zap.String("session_id", sid),
			zap.String("view_id", viewID),
			zap.Error(err),
		)
	}
}

// RenderState 渲染结果（每条失败路径都有确定的渲染，不允许空白界面）
type RenderState string

const (
	RenderLogin    RenderState = "login"
	RenderLoading  RenderState = "loading"
	RenderDenied   RenderState = "denied"
	RenderNotFound RenderState = "not-found"
	RenderView     RenderState = "view"
)

// Render maps a resolution to what should be on screen. An Active resolution
// whose id has no registered component renders "not-found" (neither success
// nor denied).
func (r *Router) Render(res Resolution) (RenderState, *View) {
	switch res.State {
	case StateUnauthenticated:
		return RenderLogin, nil
	case StateResolving:
		return RenderLoading, nil
	case StateDenied:
		return RenderDenied, nil
	}
	v, ok := r.Lookup(res.ViewID)
	if !ok {
		return RenderNotFound, nil
	}
	return RenderView, &v
}
