package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/inventory-queue/internal/cache"
	"github.com/andresuchdata/inventory-queue/internal/domain"
	"github.com/andresuchdata/inventory-queue/internal/forecast"
	"github.com/andresuchdata/inventory-queue/internal/ledger"
	"github.com/andresuchdata/inventory-queue/internal/metrics"
	"github.com/andresuchdata/inventory-queue/internal/repository"
	"github.com/andresuchdata/inventory-queue/internal/restock"
	"github.com/andresuchdata/inventory-queue/internal/sizing"
)

// Settings are the service-wide defaults taken from configuration
type Settings struct {
	ShortfallPolicy      ledger.ShortfallPolicy
	Horizon              int
	TargetOrderMinutes   float64
	TargetRestockMinutes float64
}

// LedgerOptions selects how the log is replayed
type LedgerOptions struct {
	Policy       ledger.ShortfallPolicy // empty uses the configured policy
	ManualOrders []domain.ManualOrder   // applied after the log, in order
}

// RestockOptions selects the ledger and forecast horizon for a recommendation
type RestockOptions struct {
	LedgerOptions
	Horizon int
}

// StationRequest overrides the values the station plan is derived from.
// Nil fields fall back to the log (current values) or configuration (targets).
type StationRequest struct {
	CurrentStations       *int
	CurrentOrderMinutes   *float64
	CurrentRestockMinutes *float64
	TargetOrderMinutes    *float64
	TargetRestockMinutes  *float64
}

// DashboardOptions combines the options of every dashboard section
type DashboardOptions struct {
	RestockOptions
	Stations StationRequest
}

type InventoryService struct {
	repo        repository.TransactionRepository
	cache       cache.LedgerCache
	recommender *restock.Recommender
	sizer       *sizing.Calculator
	metrics     *metrics.Metrics
	settings    Settings
	now         func() time.Time
}

func NewInventoryService(
	repo repository.TransactionRepository,
	cacheImpl cache.LedgerCache,
	forecaster forecast.Forecaster,
	sizer *sizing.Calculator,
	m *metrics.Metrics,
	settings Settings,
) *InventoryService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopLedgerCache()
	}
	if forecaster == nil {
		forecaster = forecast.NewHolt(0, 0)
	}
	if sizer == nil {
		sizer = sizing.NewCalculator(sizing.DefaultMaxMultiplier, 0)
	}
	if settings.ShortfallPolicy == "" {
		settings.ShortfallPolicy = ledger.DeclineWhole
	}
	if settings.Horizon <= 0 {
		settings.Horizon = restock.DefaultHorizon
	}

	return &InventoryService{
		repo:        repo,
		cache:       cacheImpl,
		recommender: restock.NewRecommender(timedForecaster(forecaster, m)),
		sizer:       sizer,
		metrics:     m,
		settings:    settings,
		now:         time.Now,
	}
}

func timedForecaster(f forecast.Forecaster, m *metrics.Metrics) forecast.Forecaster {
	return forecast.Func(func(ctx context.Context, series []domain.DemandPoint, horizon int) ([]float64, error) {
		start := time.Now()
		out, err := f.Forecast(ctx, series, horizon)
		m.RecordForecast(err == nil, time.Since(start))
		return out, err
	})
}

// Ledger replays the transaction log. Replays of the bare log are memoized per log version.
func (s *InventoryService) Ledger(ctx context.Context, opts LedgerOptions) (*domain.LedgerReport, error) {
	policy := s.policy(opts.Policy)

	if len(opts.ManualOrders) > 0 {
		report, _, err := s.replay(ctx, opts)
		return report, err
	}

	version, err := s.repo.LogVersion(ctx)
	if err != nil {
		return nil, err
	}
	key := cache.LedgerKey{Policy: string(policy), Count: version.Count, LastID: version.LastID}

	if report, ok, err := s.cache.GetReport(ctx, key); err == nil && ok {
		s.metrics.RecordCacheHit()
		report.Cached = true
		if report.Diagnostics == nil {
			report.Diagnostics = make([]domain.Diagnostic, 0)
		}
		return report, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("inventory: cache get ledger failed")
	}

	report, _, err := s.replay(ctx, opts)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetReport(ctx, key, report); err != nil {
		log.Warn().Err(err).Msg("inventory: cache set ledger failed")
	}

	return report, nil
}

// replay loads the log, replays it and applies any manual orders.
// The returned transactions include the manual orders.
func (s *InventoryService) replay(ctx context.Context, opts LedgerOptions) (*domain.LedgerReport, []domain.Transaction, error) {
	manual, err := s.manualTransactions(opts.ManualOrders)
	if err != nil {
		return nil, nil, err
	}

	txs, badRecords, err := s.repo.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	replayer := ledger.NewReplayer(s.policy(opts.Policy))
	res := replayer.Replay(txs)
	diagnostics := append(badRecords, res.Diagnostics...)

	if len(manual) > 0 {
		cont := replayer.Continue(res.Summary, manual)
		res.Summary = cont.Summary
		diagnostics = append(diagnostics, cont.Diagnostics...)
		txs = append(txs, manual...)
	}

	if diagnostics == nil {
		diagnostics = make([]domain.Diagnostic, 0)
	}

	s.metrics.RecordReplay(len(txs), res.Summary, time.Since(start))
	s.metrics.RecordDiagnostics(diagnostics)

	log.Debug().
		Int("transactions", len(txs)).
		Int("manual_orders", len(manual)).
		Int("diagnostics", len(diagnostics)).
		Str("policy", string(replayer.Policy())).
		Msg("inventory: ledger replayed")

	return &domain.LedgerReport{
		Summary:      res.Summary,
		Transactions: len(txs),
		Diagnostics:  diagnostics,
	}, txs, nil
}

// manualTransactions turns orders into Order Fulfillment transactions queued now, one second apart
// so they keep their submission order after the log.
func (s *InventoryService) manualTransactions(orders []domain.ManualOrder) ([]domain.Transaction, error) {
	if len(orders) == 0 {
		return nil, nil
	}

	now := s.now().UTC()
	txs := make([]domain.Transaction, 0, len(orders))
	for i, order := range orders {
		items, err := ledger.OrderItems(order)
		if err != nil {
			return nil, fmt.Errorf("order %d: %w", i+1, err)
		}
		txs = append(txs, domain.Transaction{
			RequestID:   uuid.NewString(),
			RequestType: domain.RequestTypeOrderFulfillment,
			Items:       ledger.FormatItems(items),
			QueueInTime: now.Add(time.Duration(i) * time.Second),
			Priority:    "Manual",
		})
	}
	return txs, nil
}

// Restock recommends quantities from the monthly demand in the log and the replayed stock.
func (s *InventoryService) Restock(ctx context.Context, opts RestockOptions) (*domain.RestockReport, error) {
	report, txs, err := s.replay(ctx, opts.LedgerOptions)
	if err != nil {
		return nil, err
	}

	return s.restock(ctx, report, txs, opts.Horizon)
}

func (s *InventoryService) restock(ctx context.Context, report *domain.LedgerReport, txs []domain.Transaction, horizon int) (*domain.RestockReport, error) {
	if horizon <= 0 {
		horizon = s.settings.Horizon
	}

	res, err := s.recommender.Recommend(ctx, ledger.MonthlyDemand(txs), report.Summary.Remaining, horizon)
	if err != nil {
		return nil, err
	}

	diagnostics := res.Diagnostics
	if diagnostics == nil {
		diagnostics = make([]domain.Diagnostic, 0)
	}
	s.metrics.RecordDiagnostics(diagnostics)

	return &domain.RestockReport{
		Horizon:         horizon,
		Recommendations: res.Recommendations,
		Diagnostics:     diagnostics,
	}, nil
}

// Stations sizes the station pool for the order and restock queue classes.
func (s *InventoryService) Stations(ctx context.Context, req StationRequest) (*domain.StationPlan, error) {
	var txs []domain.Transaction
	if req.CurrentStations == nil || req.CurrentOrderMinutes == nil || req.CurrentRestockMinutes == nil {
		var err error
		if txs, _, err = s.repo.List(ctx); err != nil {
			return nil, err
		}
	}

	return s.stations(txs, req), nil
}

func (s *InventoryService) stations(txs []domain.Transaction, req StationRequest) *domain.StationPlan {
	current := valueOr(req.CurrentStations, func() int { return sizing.ActiveStations(txs) })
	averages := sizing.AverageQueueTimes(txs)

	classes := make([]sizing.ClassTarget, 0, 2)
	for _, class := range []struct {
		rt      domain.RequestType
		current *float64
		target  *float64
		def     float64
	}{
		{domain.RequestTypeOrderFulfillment, req.CurrentOrderMinutes, req.TargetOrderMinutes, s.settings.TargetOrderMinutes},
		{domain.RequestTypeRestock, req.CurrentRestockMinutes, req.TargetRestockMinutes, s.settings.TargetRestockMinutes},
	} {
		target := valueOr(class.target, func() float64 { return class.def })
		if target <= 0 && class.target == nil {
			// No target configured for this class
			continue
		}
		classes = append(classes, sizing.ClassTarget{
			RequestType: class.rt,
			CurrentTime: valueOr(class.current, func() float64 { return averages[class.rt] }),
			TargetTime:  target,
		})
	}

	plan := s.sizer.Plan(current, classes...)
	return &plan
}

func valueOr[T any](v *T, fallback func() T) T {
	if v != nil {
		return *v
	}
	return fallback()
}

// CheckOrder reports whether order could be fulfilled from the replayed stock.
func (s *InventoryService) CheckOrder(ctx context.Context, order domain.ManualOrder, policy ledger.ShortfallPolicy) (*domain.OrderCheck, error) {
	items, err := ledger.OrderItems(order)
	if err != nil {
		return nil, err
	}

	report, err := s.Ledger(ctx, LedgerOptions{Policy: policy})
	if err != nil {
		return nil, err
	}

	check := ledger.CheckOrder(report.Summary.Remaining, items)
	return &check, nil
}

// Dashboard builds every dashboard section from a single load of the log.
func (s *InventoryService) Dashboard(ctx context.Context, opts DashboardOptions) (*domain.Dashboard, error) {
	report, txs, err := s.replay(ctx, opts.LedgerOptions)
	if err != nil {
		return nil, err
	}

	restockReport, err := s.restock(ctx, report, txs, opts.Horizon)
	if err != nil {
		return nil, err
	}

	return &domain.Dashboard{
		Ledger:   report,
		Restock:  restockReport,
		Stations: s.stations(txs, opts.Stations),
	}, nil
}

func (s *InventoryService) policy(p ledger.ShortfallPolicy) ledger.ShortfallPolicy {
	if p == "" {
		return s.settings.ShortfallPolicy
	}
	return p
}
