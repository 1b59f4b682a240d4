package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux（避免引入第三方路由依赖）
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func methodOnly(method string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h(w, req)
	}
}

// RegisterAuthRoutes 注册登录/登出路由
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.Handle("/api/v1/auth/login", methodOnly(http.MethodPost, h.Login))
	r.Handle("/api/v1/auth/logout", methodOnly(http.MethodPost, h.Logout))
}

// RegisterViewRoutes 注册视图路由端点
func (r *Router) RegisterViewRoutes(h *ViewHandler) {
	r.Handle("/api/v1/views/resolve", methodOnly(http.MethodGet, h.Resolve))
	r.Handle("/api/v1/views/select", methodOnly(http.MethodPost, h.Select))
}

// RegisterDashboardRoutes 注册看板路由
func (r *Router) RegisterDashboardRoutes(h *DashboardHandler) {
	r.Handle("/api/v1/dashboard/summary", methodOnly(http.MethodGet, h.GetSummary))
	r.Handle("/api/v1/dashboard/refresh", methodOnly(http.MethodPost, h.Refresh))
	r.Handle("/api/v1/dashboard/report", methodOnly(http.MethodPost, h.Report))
}

// RegisterOpsRoutes 健康检查与指标
func (r *Router) RegisterOpsRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.mux.Handle("/metrics", promhttp.Handler())
}
