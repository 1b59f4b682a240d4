package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"o2d-dashboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedFetcher returns queued results in order.
type scriptedFetcher struct {
	mu      sync.Mutex
	results []fetchResult
}

type fetchResult struct {
	snapshot *models.DashboardSnapshot
	err      error
}

func (f *scriptedFetcher) FetchDashboard(context.Context) (*models.DashboardSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.results) == 0 {
		return nil, errors.New("no scripted result")
	}
	r := f.results[0]
	f.results = f.results[1:]
	return r.snapshot, r.err
}

// blockingFetcher parks in FetchDashboard until released, so tests can observe
// the in-flight state.
type blockingFetcher struct {
	started chan struct{}
	release chan struct{}
}

func newBlockingFetcher() *blockingFetcher {
	return &blockingFetcher{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (f *blockingFetcher) FetchDashboard(context.Context) (*models.DashboardSnapshot, error) {
	f.started <- struct{}{}
	<-f.release
	return &models.DashboardSnapshot{FetchedAt: time.Now()}, nil
}

func snapshotWithRows(n int) *models.DashboardSnapshot {
	return &models.DashboardSnapshot{
		Rows:      make([]models.DispatchRow, n),
		FetchedAt: time.Now(),
	}
}

func TestDataSource_InitialStateIsLoading(t *testing.T) {
	d := NewDataSource(&scriptedFetcher{}, time.Minute, zap.NewNop())

	snapshot, st := d.Current()
	assert.Nil(t, snapshot)
	assert.True(t, st.Loading)
	assert.False(t, st.Refreshing)
	assert.Empty(t, st.LastError)
	assert.Nil(t, st.LastUpdated)
}

func TestDataSource_RefreshInstallsSnapshot(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{snapshot: snapshotWithRows(3)}}}
	d := NewDataSource(fetcher, time.Minute, zap.NewNop())

	require.True(t, d.Refresh(context.Background()))

	snapshot, st := d.Current()
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Rows, 3)
	assert.False(t, st.Loading)
	assert.Empty(t, st.LastError)
	require.NotNil(t, st.LastUpdated)
}

func TestDataSource_FailureKeepsPreviousSnapshot(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{snapshot: snapshotWithRows(3)},
		{err: errors.New("upstream down")},
	}}
	d := NewDataSource(fetcher, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.True(t, d.Refresh(ctx))
	require.True(t, d.Refresh(ctx))

	// 失败后旧快照仍可见，错误附带呈现
	snapshot, st := d.Current()
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Rows, 3)
	assert.Equal(t, "upstream down", st.LastError)
	assert.False(t, st.Loading)
}

func TestDataSource_SuccessClearsLastError(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{
		{err: errors.New("upstream down")},
		{snapshot: snapshotWithRows(1)},
	}}
	d := NewDataSource(fetcher, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.True(t, d.Refresh(ctx))
	_, st := d.Current()
	assert.Equal(t, "upstream down", st.LastError)
	assert.True(t, st.Loading)

	require.True(t, d.Refresh(ctx))
	_, st = d.Current()
	assert.Empty(t, st.LastError)
	assert.False(t, st.Loading)
}

func TestDataSource_ConcurrentRefreshCoalesced(t *testing.T) {
	fetcher := newBlockingFetcher()
	d := NewDataSource(fetcher, time.Minute, zap.NewNop())
	ctx := context.Background()

	done := make(chan bool, 1)
	go func() { done <- d.Refresh(ctx) }()
	<-fetcher.started

	// 在途期间的刷新被合并（立即返回 false），不排队
	assert.False(t, d.Refresh(ctx))
	assert.False(t, d.Refresh(ctx))

	close(fetcher.release)
	assert.True(t, <-done)

	// 在途结束后可以再次刷新
	go func() { done <- d.Refresh(ctx) }()
	<-fetcher.started
	assert.True(t, <-done)
}

func TestDataSource_RefreshingStatusDuringFetch(t *testing.T) {
	fetcher := newBlockingFetcher()
	d := NewDataSource(fetcher, time.Minute, zap.NewNop())
	ctx := context.Background()

	// 无快照时的在途抓取呈现 loading 而非 refreshing
	done := make(chan bool, 1)
	go func() { done <- d.Refresh(ctx) }()
	<-fetcher.started
	_, st := d.Current()
	assert.True(t, st.Loading)
	assert.False(t, st.Refreshing)
	fetcher.release <- struct{}{}
	<-done

	// 已有快照时的在途抓取呈现 refreshing
	go func() { done <- d.Refresh(ctx) }()
	<-fetcher.started
	_, st = d.Current()
	assert.False(t, st.Loading)
	assert.True(t, st.Refreshing)
	fetcher.release <- struct{}{}
	<-done

	_, st = d.Current()
	assert.False(t, st.Refreshing)
}

func TestDataSource_StaleResponseDiscarded(t *testing.T) {
	d := NewDataSource(&scriptedFetcher{}, time.Minute, zap.NewNop())

	newer := snapshotWithRows(5)
	d.apply(2, newer, nil)

	// 序号更小的迟到响应被丢弃，不覆盖新数据
	d.apply(1, snapshotWithRows(99), nil)

	snapshot, _ := d.Current()
	require.NotNil(t, snapshot)
	assert.Len(t, snapshot.Rows, 5)

	// 迟到的失败同样不得污染状态
	d.apply(2, nil, errors.New("late failure"))
	_, st := d.Current()
	assert.Empty(t, st.LastError)
}

func TestDataSource_RunStopsOnContextCancel(t *testing.T) {
	fetcher := &scriptedFetcher{results: []fetchResult{{snapshot: snapshotWithRows(1)}}}
	d := NewDataSource(fetcher, 10*time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
