// Package app wires configuration into the inventory service and its collaborators.
package app

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/andresuchdata/inventory-queue/internal/cache"
	"github.com/andresuchdata/inventory-queue/internal/config"
	"github.com/andresuchdata/inventory-queue/internal/forecast"
	"github.com/andresuchdata/inventory-queue/internal/ledger"
	"github.com/andresuchdata/inventory-queue/internal/metrics"
	"github.com/andresuchdata/inventory-queue/internal/repository"
	"github.com/andresuchdata/inventory-queue/internal/service"
	"github.com/andresuchdata/inventory-queue/internal/sizing"
)

type App struct {
	DB        *repository.DB
	Metrics   *metrics.Metrics
	Inventory *service.InventoryService
}

// New opens the transaction source and builds the inventory service from cfg.
func New(cfg *config.Config) (*App, error) {
	policy, err := ledger.ParseShortfallPolicy(cfg.Ledger.ShortfallPolicy)
	if err != nil {
		return nil, err
	}

	m := metrics.New("inventory_queue")

	forecaster, err := NewForecaster(cfg.Forecast, m)
	if err != nil {
		return nil, err
	}

	db, err := repository.Open(cfg.Source)
	if err != nil {
		return nil, err
	}

	repo, err := repository.NewTransactionRepository(db, cfg.Source.Table)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ledgerCache, err := cache.NewLedgerCache(cfg.Cache)
	if err != nil {
		log.Warn().Err(err).Msg("ledger cache unavailable, continuing without cache")
		ledgerCache = cache.NewNoopLedgerCache()
	}

	inventory := service.NewInventoryService(
		repo,
		ledgerCache,
		forecaster,
		sizing.NewCalculator(cfg.Sizing.MaxMultiplier, cfg.Sizing.ReductionRate),
		m,
		service.Settings{
			ShortfallPolicy:      policy,
			Horizon:              cfg.Forecast.Horizon,
			TargetOrderMinutes:   cfg.Sizing.TargetOrderMinutes,
			TargetRestockMinutes: cfg.Sizing.TargetRestockMinutes,
		},
	)

	return &App{DB: db, Metrics: m, Inventory: inventory}, nil
}

// NewForecaster builds the configured forecaster; breaker state changes are exported as metrics.
func NewForecaster(cfg config.ForecastConfig, m *metrics.Metrics) (forecast.Forecaster, error) {
	f, err := forecast.New(forecast.Options{
		Backend: forecast.Backend(cfg.Backend),
		Alpha:   cfg.Alpha,
		Beta:    cfg.Beta,
		HTTP:    httpForecastConfig(cfg, m),
	})
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}
	return f, nil
}

func httpForecastConfig(cfg config.ForecastConfig, m *metrics.Metrics) forecast.HTTPConfig {
	return forecast.HTTPConfig{
		URL:                cfg.URL,
		Timeout:            time.Duration(cfg.TimeoutSeconds) * time.Second,
		BreakerMaxRequests: cfg.BreakerMaxRequests,
		BreakerInterval:    cfg.BreakerInterval,
		BreakerTimeout:     cfg.BreakerTimeout,
		BreakerMaxFailures: cfg.BreakerMaxFailures,
		OnBreakerStateChange: func(name string, to gobreaker.State) {
			m.SetCircuitBreakerState(name, int(to))
		},
	}
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}
