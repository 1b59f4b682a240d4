package dashboard

import (
	"context"
	"sync"
	"time"

	"o2d-dashboard/internal/models"

	"go.uber.org/zap"
)

// Fetcher 快照来源（HTTP 上游或直连 SQL，见 service 装配）
type Fetcher interface {
	FetchDashboard(ctx context.Context) (*models.DashboardSnapshot, error)
}

// Status describes the datasource to the UI: "loading" (no snapshot yet) is
// distinguishable from "refreshing" (stale-but-available snapshot shown while
// a fetch is in flight).
type Status struct {
	Loading     bool       `json:"loading"`
	Refreshing  bool       `json:"refreshing"`
	LastError   string     `json:"lastError,omitempty"`
	LastUpdated *time.Time `json:"lastUpdated,omitempty"`
}

// DataSource 周期性抓取看板快照
// 并发约束：同一时刻至多一个抓取在途，抓取期间到达的 tick 被合并（跳过）而
// 不是排队。快照整体原子替换；抓取失败保留旧快照并附带错误标注。
type DataSource struct {
	fetcher  Fetcher
	interval time.Duration
	logger   *zap.Logger

	mu         sync.Mutex
	snapshot   *models.DashboardSnapshot
	lastErr    error
	inFlight   bool
	nextSeq    uint64
	appliedSeq uint64
}

func NewDataSource(fetcher Fetcher, interval time.Duration, logger *zap.Logger) *DataSource {
	return &DataSource{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
	}
}

// Run fetches once immediately, then on every tick until the context is
// cancelled. Manual refreshes share the same path and the same in-flight
// guard.
func (d *DataSource) Run(ctx context.Context) {
	d.Refresh(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !d.Refresh(ctx) {
				d.logger.Debug("Refresh tick coalesced, fetch already in flight")
			}
		}
	}
}

// Refresh performs one fetch. Returns false when an earlier fetch is still in
// flight (the call is coalesced, never queued).
func (d *DataSource) Refresh(ctx context.Context) bool {
	d.mu.Lock()
	if d.inFlight {
		d.mu.Unlock()
		return false
	}
	d.inFlight = true
	d.nextSeq++
	seq := d.nextSeq
	d.mu.Unlock()

	snapshot, err := d.fetcher.FetchDashboard(ctx)
	d.apply(seq, snapshot, err)
	return true
}

// apply installs a fetch result. Responses older than the latest applied one
// are discarded so a slow fetch can never overwrite newer data.
func (d *DataSource) apply(seq uint64, snapshot *models.DashboardSnapshot, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.inFlight = false

	if seq <= d.appliedSeq {
		refreshDiscarded.Inc()
		d.logger.Warn("Discarding out-of-order fetch response",
			zap.Uint64("seq", seq),
			zap.Uint64("applied_seq", d.appliedSeq),
		)
		return
	}
	d.appliedSeq = seq

	if err != nil {
		refreshTotal.WithLabelValues("failure").Inc()
		d.lastErr = err
		// Previous snapshot stays visible: stale-but-available beats empty.
		d.logger.Error("Dashboard refresh failed",
			zap.Error(err),
			zap.Bool("has_previous_snapshot", d.snapshot != nil),
		)
		return
	}

	refreshTotal.WithLabelValues("success").Inc()
	snapshotRows.Set(float64(len(snapshot.Rows)))
	d.snapshot = snapshot
	d.lastErr = nil
	d.logger.Info("Dashboard snapshot refreshed",
		zap.Int("rows", len(snapshot.Rows)),
		zap.Time("fetched_at", snapshot.FetchedAt),
	)
}

// Current returns the latest snapshot (nil when none has been applied yet)
// together with the datasource status.
func (d *DataSource) Current() (*models.DashboardSnapshot, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st := Status{
		Loading:    d.snapshot == nil,
		Refreshing: d.inFlight && d.snapshot != nil,
	}
	if d.lastErr != nil {
		st.LastError = d.lastErr.Error()
	}
	if d.snapshot != nil {
		t := d.snapshot.FetchedAt
		st.LastUpdated = &t
	}
	return d.snapshot, st
}
