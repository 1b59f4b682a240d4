package dashboard

import "o2d-dashboard/internal/models"

// MetricSet 看板头部的四个计数指标
type MetricSet struct {
	TotalGateIn    int `json:"totalGateIn"`
	TotalGateOut   int `json:"totalGateOut"`
	PendingGateOut int `json:"pendingGateOut"`
	// TotalDispatch is defined identically to TotalGateIn in the current
	// model (both count the filtered rows); kept as a separate field so the
	// two can diverge once more event types exist.
	TotalDispatch int `json:"totalDispatch"`
}

// DeriveMetrics computes the headline counters.
//
// Without active filters the server-supplied summary is authoritative (it may
// cover rows outside the fetch window); row-derived counts fill only fields
// the server omitted. With active filters every counter is recomputed from
// the filtered rows so the numbers stay consistent with what is on screen.
func DeriveMetrics(summary models.DashboardSummary, filtered []models.DispatchRow, filtersActive bool) MetricSet {
	fromRows := countFromRows(filtered)
	if filtersActive {
		return fromRows
	}

	out := fromRows
	if summary.TotalGateIn != nil {
		out.TotalGateIn = *summary.TotalGateIn
	}
	if summary.TotalGateOut != nil {
		out.TotalGateOut = *summary.TotalGateOut
	}
	if summary.PendingGateOut != nil {
		out.PendingGateOut = *summary.PendingGateOut
	}
	if summary.TotalDispatch != nil {
		out.TotalDispatch = *summary.TotalDispatch
	}
	return out
}

func countFromRows(rows []models.DispatchRow) MetricSet {
	gateOut := 0
	for _, row := range rows {
		if row.GateOutTime != "" {
			gateOut++
		}
	}
	return MetricSet{
		TotalGateIn:    len(rows),
		TotalGateOut:   gateOut,
		PendingGateOut: len(rows) - gateOut,
		TotalDispatch:  len(rows),
	}
}
