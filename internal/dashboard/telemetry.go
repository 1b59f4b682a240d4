package dashboard

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "o2d_dashboard_refresh_total",
		Help: "Dashboard snapshot refresh attempts by result.",
	}, []string{"result"})

	refreshDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "o2d_dashboard_refresh_discarded_total",
		Help: "Fetch responses discarded for arriving out of order.",
	})

	snapshotRows = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "o2d_dashboard_snapshot_rows",
		Help: "Row count of the currently applied snapshot.",
	})
)
