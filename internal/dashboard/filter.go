package dashboard

import (
	"time"

	"o2d-dashboard/internal/models"
)

// HasActiveFilters reports whether any predicate differs from its sentinel.
// This flag gates the metric dual-source policy in DeriveMetrics.
func HasActiveFilters(sel models.FilterSelection) bool {
	return sel.Party != models.AllParties ||
		sel.Item != models.AllItems ||
		sel.SalesPerson != models.AllSalesPersons ||
		sel.State != models.AllStates ||
		sel.FromDate != nil ||
		sel.ToDate != nil
}

// ApplyFilters returns the rows matching every active predicate. A row
// missing a field fails that predicate (it never vacuously passes). With the
// all-default selection the input is returned unchanged.
func ApplyFilters(rows []models.DispatchRow, sel models.FilterSelection) []models.DispatchRow {
	if !HasActiveFilters(sel) {
		return rows
	}

	out := make([]models.DispatchRow, 0, len(rows))
	for _, row := range rows {
		if matches(row, sel) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row models.DispatchRow, sel models.FilterSelection) bool {
	if sel.Party != models.AllParties && row.PartyName != sel.Party {
		return false
	}
	if sel.Item != models.AllItems && row.ItemName != sel.Item {
		return false
	}
	if sel.SalesPerson != models.AllSalesPersons && row.SalesPerson != sel.SalesPerson {
		return false
	}
	if sel.State != models.AllStates && row.StateName != sel.State {
		return false
	}

	if sel.FromDate != nil || sel.ToDate != nil {
		rowDate, ok := row.ResolveDate()
		if !ok {
			// No resolvable date with an active bound: excluded.
			return false
		}
		if !inDayRange(rowDate, sel.FromDate, sel.ToDate) {
			return false
		}
	}

	return true
}

// inDayRange compares at calendar-day granularity, dropping time-of-day on
// both the row date and the bounds. Bounds are inclusive.
func inDayRange(t time.Time, from, to *time.Time) bool {
	day := dayOf(t)
	if from != nil && day.Before(dayOf(*from)) {
		return false
	}
	if to != nil && day.After(dayOf(*to)) {
		return false
	}
	return true
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
