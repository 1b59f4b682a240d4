package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockRepo(t *testing.T) (*DispatchRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDispatchRepository(db, zap.NewNop()), mock
}

func dispatchColumns() []string {
	return []string{
		"indate", "outdate", "gate_out_time",
		"order_vrno", "gate_vrno", "wslipno",
		"sales_person", "party_name", "item_name", "invoice_no", "state_name",
	}
}

func TestFetchDashboard_BuildsSnapshot(t *testing.T) {
	repo, mock := newMockRepo(t)

	inDate := time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC)
	outDate := time.Date(2025, 1, 6, 17, 30, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT indate, outdate, gate_out_time").
		WillReturnRows(sqlmock.NewRows(dispatchColumns()).
			AddRow(inDate, outDate, outDate,
				"ORD-1", "G-1", "W-1",
				" Ravi ", "Acme Traders", "Steel", "INV-1", "Punjab").
			AddRow(inDate, nil, nil,
				"ORD-2", nil, nil,
				"Meera", "Zenith", "Cement", nil, nil))

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "count", "diff"}).
			AddRow(120, 80, 40))

	snapshot, err := repo.FetchDashboard(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, snapshot.Rows, 2)
	first := snapshot.Rows[0]
	assert.Equal(t, "Acme Traders", first.PartyName)
	// 与 HTTP 路径相同的归一化边界：空白被裁剪
	assert.Equal(t, "Ravi", first.SalesPerson)
	assert.Equal(t, outDate.Format(time.RFC3339), first.OutDate)

	second := snapshot.Rows[1]
	assert.Empty(t, second.OutDate)
	assert.Empty(t, second.GateOutTime)
	assert.Empty(t, second.StateName)

	// 汇总来自未开窗的聚合查询
	require.NotNil(t, snapshot.Summary.TotalGateIn)
	assert.Equal(t, 120, *snapshot.Summary.TotalGateIn)
	assert.Equal(t, 80, *snapshot.Summary.TotalGateOut)
	assert.Equal(t, 40, *snapshot.Summary.PendingGateOut)
	assert.Nil(t, snapshot.Summary.TotalDispatch)

	// 词表由行数据派生（排序去重，空值剔除）
	assert.Equal(t, []string{"Acme Traders", "Zenith"}, snapshot.Filters.Parties)
	assert.Equal(t, []string{"Cement", "Steel"}, snapshot.Filters.Items)
	assert.Equal(t, []string{"Punjab"}, snapshot.Filters.States)
	assert.False(t, snapshot.FetchedAt.IsZero())
}

func TestFetchDashboard_EmptyTable(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT indate, outdate, gate_out_time").
		WillReturnRows(sqlmock.NewRows(dispatchColumns()))
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count", "count", "diff"}).
			AddRow(0, 0, 0))

	snapshot, err := repo.FetchDashboard(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.Rows)
	assert.Empty(t, snapshot.Filters.Parties)
	require.NotNil(t, snapshot.Summary.TotalGateIn)
	assert.Zero(t, *snapshot.Summary.TotalGateIn)
}

func TestFetchDashboard_RowQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT indate, outdate, gate_out_time").
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FetchDashboard(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query dispatch rows")
}

func TestFetchDashboard_SummaryQueryError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT indate, outdate, gate_out_time").
		WillReturnRows(sqlmock.NewRows(dispatchColumns()))
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnError(errors.New("connection reset"))

	_, err := repo.FetchDashboard(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query dispatch summary")
}
