package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"o2d-dashboard/internal/models"

	"go.uber.org/zap"
)

// DispatchRepository 直连派车登记表的快照来源
// 与 HTTP 上游二选一（DASHBOARD_SOURCE=sql 时启用），产出相同的快照结构。
type DispatchRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewDispatchRepository(db *sql.DB, logger *zap.Logger) *DispatchRepository {
	return &DispatchRepository{db: db, logger: logger}
}

// FetchDashboard implements dashboard.Fetcher against the dispatch_register
// table. The filter vocabulary is derived from the fetched rows; the summary
// counters come from an unwindowed aggregate so unfiltered metrics stay
// authoritative even when the row fetch is capped.
func (r *DispatchRepository) FetchDashboard(ctx context.Context) (*models.DashboardSnapshot, error) {
	rows, err := r.fetchRows(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := r.fetchSummary(ctx)
	if err != nil {
		return nil, err
	}

	return &models.DashboardSnapshot{
		Summary:   summary,
		Filters:   models.DeriveVocabulary(rows),
		Rows:      rows,
		FetchedAt: time.Now(),
	}, nil
}

func (r *DispatchRepository) fetchRows(ctx context.Context) ([]models.DispatchRow, error) {
	result, err := r.db.QueryContext(ctx,
		`SELECT indate, outdate, gate_out_time,
		        order_vrno, gate_vrno, wslipno,
		        sales_person, party_name, item_name, invoice_no, state_name
		 FROM dispatch_register
		 ORDER BY indate DESC NULLS LAST
		 LIMIT 5000`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatch rows: %w", err)
	}
	defer result.Close()

	out := []models.DispatchRow{}
	for result.Next() {
		var (
			inDate, outDate   sql.NullTime
			gateOutTime       sql.NullTime
			orderVrno         sql.NullString
			gateVrno, wslipno sql.NullString
			salesPerson       sql.NullString
			partyName         sql.NullString
			itemName          sql.NullString
			invoiceNo         sql.NullString
			stateName         sql.NullString
		)
		if err := result.Scan(
			&inDate, &outDate, &gateOutTime,
			&orderVrno, &gateVrno, &wslipno,
			&salesPerson, &partyName, &itemName, &invoiceNo, &stateName,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch row: %w", err)
		}

		// Same normalization boundary as the HTTP path.
		out = append(out, models.NormalizeRow(models.RawDispatchRow{
			InDate:      formatNullTime(inDate),
			OutDate:     formatNullTime(outDate),
			GateOutTime: formatNullTime(gateOutTime),
			OrderVrno:   orderVrno.String,
			GateVrno:    gateVrno.String,
			Wslipno:     wslipno.String,
			SalesPerson: salesPerson.String,
			PartyName:   partyName.String,
			ItemName:    itemName.String,
			InvoiceNo:   invoiceNo.String,
			StateName:   stateName.String,
		}))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dispatch rows: %w", err)
	}
	return out, nil
}

func (r *DispatchRepository) fetchSummary(ctx context.Context) (models.DashboardSummary, error) {
	var gateIn, gateOut, pending int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(gate_out_time),
		        COUNT(*) - COUNT(gate_out_time)
		 FROM dispatch_register`).Scan(&gateIn, &gateOut, &pending)
	if err != nil {
		return models.DashboardSummary{}, fmt.Errorf("failed to query dispatch summary: %w", err)
	}
	return models.DashboardSummary{
		TotalGateIn:    &gateIn,
		TotalGateOut:   &gateOut,
		PendingGateOut: &pending,
	}, nil
}

func formatNullTime(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(time.RFC3339)
}
