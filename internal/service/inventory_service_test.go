package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/inventory-queue/internal/cache"
	"github.com/andresuchdata/inventory-queue/internal/domain"
	"github.com/andresuchdata/inventory-queue/internal/forecast"
	"github.com/andresuchdata/inventory-queue/internal/ledger"
	"github.com/andresuchdata/inventory-queue/internal/repository"
	"github.com/andresuchdata/inventory-queue/internal/sizing"
)

type fakeRepository struct {
	txs       []domain.Transaction
	bad       []domain.Diagnostic
	err       error
	listCalls int
}

func (f *fakeRepository) List(ctx context.Context) ([]domain.Transaction, []domain.Diagnostic, error) {
	f.listCalls++
	if f.err != nil {
		return nil, nil, f.err
	}
	return append([]domain.Transaction(nil), f.txs...), append([]domain.Diagnostic(nil), f.bad...), nil
}

func (f *fakeRepository) LogVersion(ctx context.Context) (repository.LogVersion, error) {
	if f.err != nil {
		return repository.LogVersion{}, f.err
	}
	v := repository.LogVersion{Count: len(f.txs)}
	if len(f.txs) > 0 {
		v.LastID = f.txs[len(f.txs)-1].RequestID
	}
	return v, nil
}

type memoryLedgerCache struct {
	reports map[cache.LedgerKey]domain.LedgerReport
	getErr  error
}

func newMemoryLedgerCache() *memoryLedgerCache {
	return &memoryLedgerCache{reports: make(map[cache.LedgerKey]domain.LedgerReport)}
}

func (m *memoryLedgerCache) GetReport(ctx context.Context, key cache.LedgerKey) (*domain.LedgerReport, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	r, ok := m.reports[key]
	if !ok {
		return nil, false, nil
	}
	return &r, true, nil
}

func (m *memoryLedgerCache) SetReport(ctx context.Context, key cache.LedgerKey, report *domain.LedgerReport) error {
	m.reports[key] = *report
	return nil
}

func (m *memoryLedgerCache) InvalidateAll(ctx context.Context) (int, error) {
	n := len(m.reports)
	m.reports = make(map[cache.LedgerKey]domain.LedgerReport)
	return n, nil
}

var base = time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)

func tx(id string, rt domain.RequestType, items string, at time.Time) domain.Transaction {
	return domain.Transaction{RequestID: id, RequestType: rt, Items: items, QueueInTime: at}
}

func queued(t domain.Transaction, minutes int, station int) domain.Transaction {
	out := t.QueueInTime.Add(time.Duration(minutes) * time.Minute)
	t.QueueOutTime = &out
	t.StationNo = &station
	return t
}

// flatForecaster predicts the last observation for every future period.
var flatForecaster = forecast.Func(func(ctx context.Context, series []domain.DemandPoint, horizon int) ([]float64, error) {
	out := make([]float64, horizon)
	for i := range out {
		out[i] = series[len(series)-1].Quantity
	}
	return out, nil
})

func sampleLog() []domain.Transaction {
	return []domain.Transaction{
		tx("1", domain.RequestTypeRestock, "Widget: 10, Gadget: 2", base),
		queued(tx("2", domain.RequestTypeOrderFulfillment, "Widget: 3", base.Add(time.Hour)), 20, 1),
		queued(tx("3", domain.RequestTypeOrderFulfillment, "Gadget: 5", base.Add(2*time.Hour)), 30, 2),
		queued(tx("4", domain.RequestTypeOrderFulfillment, "Widget: 4", base.AddDate(0, 1, 0)), 10, 1),
		queued(tx("5", domain.RequestTypeRestock, "Gadget: 1", base.AddDate(0, 1, 1)), 8, 3),
	}
}

func newTestService(repo repository.TransactionRepository, c cache.LedgerCache) *InventoryService {
	svc := NewInventoryService(repo, c, flatForecaster, sizing.NewCalculator(0, 0), nil, Settings{
		TargetOrderMinutes: 15,
	})
	svc.now = func() time.Time { return base.AddDate(0, 2, 0) }
	return svc
}

func TestInventoryService_Ledger(t *testing.T) {
	repo := &fakeRepository{txs: sampleLog()}
	svc := newTestService(repo, nil)

	report, err := svc.Ledger(context.Background(), LedgerOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, report.Transactions)
	assert.Equal(t, domain.InventoryState{"Widget": 3, "Gadget": 3}, report.Summary.Remaining)
	assert.Equal(t, 3, report.Summary.OrdersReceived)
	assert.Equal(t, 2, report.Summary.OrdersFulfilled)
	assert.Equal(t, 1, report.Summary.OrdersDeclined)
	assert.NotNil(t, report.Diagnostics)
	assert.False(t, report.Cached)
}

func TestInventoryService_LedgerReportsBadRecords(t *testing.T) {
	bad := domain.NewDiagnostic("9", "", fmt.Errorf("%w: queue_in_time: empty timestamp", domain.ErrBadRecord))
	svc := newTestService(&fakeRepository{txs: sampleLog(), bad: []domain.Diagnostic{bad}}, nil)

	report, err := svc.Ledger(context.Background(), LedgerOptions{})
	require.NoError(t, err)

	assert.Equal(t, domain.InventoryState{"Widget": 3, "Gadget": 3}, report.Summary.Remaining)
	require.NotEmpty(t, report.Diagnostics)
	assert.Equal(t, bad, report.Diagnostics[0])
}

func TestInventoryService_LedgerClampPolicy(t *testing.T) {
	svc := newTestService(&fakeRepository{txs: sampleLog()}, nil)

	report, err := svc.Ledger(context.Background(), LedgerOptions{Policy: ledger.ClampToZero})
	require.NoError(t, err)

	// Gadget order of 5 against 2 on hand ships 2
	assert.Equal(t, 1, report.Summary.Remaining["Gadget"])
	assert.Equal(t, 2, report.Summary.TotalSold["Gadget"])
}

func TestInventoryService_LedgerUsesCache(t *testing.T) {
	repo := &fakeRepository{txs: sampleLog()}
	c := newMemoryLedgerCache()
	svc := newTestService(repo, c)

	first, err := svc.Ledger(context.Background(), LedgerOptions{})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, repo.listCalls)

	second, err := svc.Ledger(context.Background(), LedgerOptions{})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, first.Summary, second.Summary)

	// A new transaction changes the log version
	repo.txs = append(repo.txs, tx("6", domain.RequestTypeRestock, "Widget: 1", base.AddDate(0, 1, 2)))
	third, err := svc.Ledger(context.Background(), LedgerOptions{})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 4, third.Summary.Remaining["Widget"])
}

func TestInventoryService_LedgerCacheErrorFallsBack(t *testing.T) {
	c := newMemoryLedgerCache()
	c.getErr = errors.New("redis down")
	svc := newTestService(&fakeRepository{txs: sampleLog()}, c)

	report, err := svc.Ledger(context.Background(), LedgerOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.Remaining["Widget"])
}

func TestInventoryService_LedgerSourceUnavailable(t *testing.T) {
	repo := &fakeRepository{err: fmt.Errorf("%w: disk gone", domain.ErrSourceUnavailable)}
	svc := newTestService(repo, nil)

	report, err := svc.Ledger(context.Background(), LedgerOptions{})
	assert.Nil(t, report)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)

	_, err = svc.Ledger(context.Background(), LedgerOptions{ManualOrders: []domain.ManualOrder{
		{Lines: []domain.OrderLine{{Item: "Widget", Quantity: 1}}},
	}})
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestInventoryService_LedgerWithManualOrders(t *testing.T) {
	repo := &fakeRepository{txs: sampleLog()}
	c := newMemoryLedgerCache()
	svc := newTestService(repo, c)

	report, err := svc.Ledger(context.Background(), LedgerOptions{ManualOrders: []domain.ManualOrder{
		{Lines: []domain.OrderLine{{Item: "Widget", Quantity: 2}}},
		{Lines: []domain.OrderLine{{Item: "Widget", Quantity: 5}}},
	}})
	require.NoError(t, err)

	assert.Equal(t, 7, report.Transactions)
	assert.Equal(t, 1, report.Summary.Remaining["Widget"])
	assert.Equal(t, 5, report.Summary.OrdersReceived)
	assert.Equal(t, 2, report.Summary.OrdersDeclined)
	assert.Empty(t, c.reports, "manual replays are never cached")

	var shortfalls int
	for _, d := range report.Diagnostics {
		if d.Kind == domain.DiagnosticInsufficientStock {
			shortfalls++
		}
	}
	assert.Equal(t, 2, shortfalls)
}

func TestInventoryService_LedgerRejectsInvalidManualOrder(t *testing.T) {
	svc := newTestService(&fakeRepository{txs: sampleLog()}, nil)

	_, err := svc.Ledger(context.Background(), LedgerOptions{ManualOrders: []domain.ManualOrder{
		{Lines: []domain.OrderLine{{Item: "Widget: 2", Quantity: 1}}},
	}})
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestInventoryService_Restock(t *testing.T) {
	svc := newTestService(&fakeRepository{txs: sampleLog()}, nil)

	report, err := svc.Restock(context.Background(), RestockOptions{Horizon: 2})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Horizon)

	// Widget: 3 then 4 ordered per month, flat forecast 4+4 against 3 on hand
	widget, ok := report.Recommendations["Widget"]
	require.True(t, ok)
	assert.Equal(t, 5, widget.Quantity)
	assert.Equal(t, 3, widget.CurrentStock)

	// Gadget has a single month of demand
	_, ok = report.Recommendations["Gadget"]
	assert.False(t, ok)
	require.Len(t, report.Diagnostics, 1)
	assert.Equal(t, domain.DiagnosticInsufficientHistory, report.Diagnostics[0].Kind)
	assert.Equal(t, "Gadget", report.Diagnostics[0].Item)
}

func TestInventoryService_RestockDefaultHorizon(t *testing.T) {
	svc := newTestService(&fakeRepository{txs: sampleLog()}, nil)

	report, err := svc.Restock(context.Background(), RestockOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Horizon)
	assert.Equal(t, 9, report.Recommendations["Widget"].Quantity)
}

func TestInventoryService_StationsFromLog(t *testing.T) {
	svc := newTestService(&fakeRepository{txs: sampleLog()}, nil)

	plan, err := svc.Stations(context.Background(), StationRequest{})
	require.NoError(t, err)

	// Three distinct stations served, orders average 20 minutes against a 15 minute target
	assert.Equal(t, 3, plan.CurrentStations)
	require.Len(t, plan.Classes, 1)
	assert.Equal(t, domain.RequestTypeOrderFulfillment, plan.Classes[0].RequestType)
	assert.InDelta(t, 20.0, plan.Classes[0].CurrentTime, 1e-9)
	assert.Equal(t, 6, plan.Recommended)
	assert.Equal(t, 3, plan.Additional)
}

func TestInventoryService_StationsOverrides(t *testing.T) {
	repo := &fakeRepository{txs: sampleLog()}
	svc := newTestService(repo, nil)

	stations := 5
	current, target := 20.0, 17.0
	plan, err := svc.Stations(context.Background(), StationRequest{
		CurrentStations:       &stations,
		CurrentOrderMinutes:   &current,
		CurrentRestockMinutes: &current,
		TargetOrderMinutes:    &target,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, repo.listCalls)
	assert.Equal(t, 10, plan.Recommended)
	assert.Equal(t, 5, plan.Additional)
}

func TestInventoryService_CheckOrder(t *testing.T) {
	svc := newTestService(&fakeRepository{txs: sampleLog()}, nil)

	check, err := svc.CheckOrder(context.Background(), domain.ManualOrder{Lines: []domain.OrderLine{
		{Item: "Widget", Quantity: 2},
		{Item: "Gadget", Quantity: 4},
	}}, "")
	require.NoError(t, err)

	assert.False(t, check.Accepted)
	assert.Equal(t, map[string]int{"Gadget": 1}, check.Shortfalls)
	assert.Equal(t, map[string]int{"Widget": 3, "Gadget": 3}, check.Available)

	check, err = svc.CheckOrder(context.Background(), domain.ManualOrder{Lines: []domain.OrderLine{
		{Item: "Widget", Quantity: 3},
	}}, "")
	require.NoError(t, err)
	assert.True(t, check.Accepted)
	assert.Empty(t, check.Shortfalls)
}

func TestInventoryService_Dashboard(t *testing.T) {
	repo := &fakeRepository{txs: sampleLog()}
	svc := newTestService(repo, nil)

	dash, err := svc.Dashboard(context.Background(), DashboardOptions{})
	require.NoError(t, err)

	require.NotNil(t, dash.Ledger)
	require.NotNil(t, dash.Restock)
	require.NotNil(t, dash.Stations)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, dash.Ledger.Summary.Remaining["Widget"], dash.Restock.Recommendations["Widget"].CurrentStock)
	assert.Equal(t, 3, dash.Stations.CurrentStations)
}
