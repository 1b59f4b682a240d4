package httpapi

import (
	"context"
	"net/http"
	"time"

	"o2d-dashboard/internal/dashboard"
	"o2d-dashboard/internal/models"
	"o2d-dashboard/internal/report"

	"go.uber.org/zap"
)

// DashboardHandler 看板 Handler（过滤、指标、排名、报表）
type DashboardHandler struct {
	datasource *dashboard.DataSource
	renderer   report.Renderer // nil when no renderer is configured
	logger     *zap.Logger
}

func NewDashboardHandler(ds *dashboard.DataSource, renderer report.Renderer, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		datasource: ds,
		renderer:   renderer,
		logger:     logger,
	}
}

// summaryData 看板响应：状态标注 + 过滤后的行/指标/排名/图表
type summaryData struct {
	Loading          bool                    `json:"loading"`
	Refreshing       bool                    `json:"refreshing"`
	LastError        string                  `json:"lastError,omitempty"`
	LastUpdated      *time.Time              `json:"lastUpdated,omitempty"`
	Summary          dashboard.MetricSet     `json:"summary"`
	AppliedFilters   models.FilterSelection  `json:"appliedFilters"`
	HasActiveFilters bool                    `json:"hasActiveFilters"`
	Filters          models.FilterVocabulary `json:"filters"`
	Rows             []models.DispatchRow    `json:"rows"`
	Ranking          []dashboard.RankedEntry `json:"ranking"`
	Chart            []dashboard.ChartPoint  `json:"chart"`
}

// GetSummary 获取过滤后的看板数据
func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	sel := selectionFromQuery(r)

	snapshot, status := h.datasource.Current()
	if snapshot == nil {
		if status.LastError != "" {
			// 无旧快照可退：阻塞错误态
			writeJSON(w, http.StatusOK, Fail(status.LastError))
			return
		}
		writeJSON(w, http.StatusOK, Ok(summaryData{
			Loading:        true,
			AppliedFilters: sel,
			Rows:           []models.DispatchRow{},
			Ranking:        []dashboard.RankedEntry{},
			Chart:          []dashboard.ChartPoint{},
		}))
		return
	}

	filtersActive := dashboard.HasActiveFilters(sel)
	filtered := dashboard.ApplyFilters(snapshot.Rows, sel)

	vocabulary := snapshot.Filters
	if len(vocabulary.States) == 0 {
		// Server omitted the state vocabulary: derive it from the rows.
		vocabulary.States = models.DeriveVocabulary(snapshot.Rows).States
	}

	writeJSON(w, http.StatusOK, Ok(summaryData{
		Refreshing:       status.Refreshing,
		LastError:        status.LastError,
		LastUpdated:      status.LastUpdated,
		Summary:          dashboard.DeriveMetrics(snapshot.Summary, filtered, filtersActive),
		AppliedFilters:   sel,
		HasActiveFilters: filtersActive,
		Filters:          vocabulary,
		Rows:             filtered,
		Ranking:          dashboard.Rank(filtered),
		Chart:            dashboard.ChartSeries(filtered),
	}))
}

// Refresh 手动刷新（与定时刷新同一路径，在途抓取时合并）
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshed := h.datasource.Refresh(r.Context())
	writeJSON(w, http.StatusOK, Ok(map[string]bool{"refreshed": refreshed}))
}

// Report 生成可打印报表；配置了渲染器时异步移交（fire-and-forget）
func (h *DashboardHandler) Report(w http.ResponseWriter, r *http.Request) {
	sel := selectionFromQuery(r)

	snapshot, status := h.datasource.Current()
	if snapshot == nil {
		msg := status.LastError
		if msg == "" {
			msg = "dashboard data not loaded yet"
		}
		writeJSON(w, http.StatusOK, Fail(msg))
		return
	}

	filtersActive := dashboard.HasActiveFilters(sel)
	filtered := dashboard.ApplyFilters(snapshot.Rows, sel)

	doc, err := report.Compose(report.Input{
		Metrics:     dashboard.DeriveMetrics(snapshot.Summary, filtered, filtersActive),
		Selection:   sel,
		Ranking:     dashboard.Rank(filtered),
		Rows:        filtered,
		GeneratedAt: time.Now(),
	})
	if err != nil {
		h.logger.Error("Failed to compose report", zap.Error(err))
		writeJSON(w, http.StatusOK, Fail("failed to compose report"))
		return
	}

	if h.renderer != nil {
		go func(doc *report.Document) {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.renderer.Submit(ctx, doc); err != nil {
				h.logger.Warn("Report renderer hand-off failed", zap.Error(err))
			}
		}(doc)
	}

	writeJSON(w, http.StatusOK, Ok(doc))
}

// selectionFromQuery parses the five predicates; absent parameters fall back
// to their sentinels. Dates use yyyy-mm-dd; unparseable values are ignored.
func selectionFromQuery(r *http.Request) models.FilterSelection {
	q := r.URL.Query()
	sel := models.DefaultSelection()

	if v := q.Get("party"); v != "" {
		sel.Party = v
	}
	if v := q.Get("item"); v != "" {
		sel.Item = v
	}
	if v := q.Get("salesPerson"); v != "" {
		sel.SalesPerson = v
	}
	if v := q.Get("state"); v != "" {
		sel.State = v
	}
	if v := q.Get("from"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			sel.FromDate = &t
		}
	}
	if v := q.Get("to"); v != "" {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			sel.ToDate = &t
		}
	}
	return sel
}
