package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/andresuchdata/inventory-queue/internal/domain"
)

// HTTPConfig holds the remote forecasting service settings
type HTTPConfig struct {
	URL                  string
	Timeout              time.Duration
	BreakerMaxRequests   uint32        // requests allowed while half-open
	BreakerInterval      time.Duration // window for clearing failure counts (0 = never)
	BreakerTimeout       time.Duration // open -> half-open delay
	BreakerMaxFailures   uint32        // consecutive failures that trip the breaker
	OnBreakerStateChange func(name string, to gobreaker.State)
}

type forecastRequest struct {
	Series  []domain.DemandPoint `json:"series"`
	Horizon int                  `json:"horizon"`
}

type forecastResponse struct {
	Forecast []float64 `json:"forecast"`
}

// HTTPForecaster delegates forecasting to a remote model service
type HTTPForecaster struct {
	url    string
	client *http.Client
	cb     *gobreaker.CircuitBreaker
}

// NewHTTPForecaster creates a client for the forecast service at cfg.URL.
func NewHTTPForecaster(cfg HTTPConfig) (*HTTPForecaster, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("forecast service url must be provided")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerMaxRequests == 0 {
		cfg.BreakerMaxRequests = 1
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}

	maxFailures := cfg.BreakerMaxFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "forecast-service",
		MaxRequests: cfg.BreakerMaxRequests,
		Interval:    cfg.BreakerInterval,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("forecast: circuit breaker state changed")
			if cfg.OnBreakerStateChange != nil {
				cfg.OnBreakerStateChange(name, to)
			}
		},
	})

	return &HTTPForecaster{
		url:    strings.TrimSuffix(cfg.URL, "/"),
		client: &http.Client{Timeout: cfg.Timeout},
		cb:     cb,
	}, nil
}

// Forecast posts the series to the remote service.
func (f *HTTPForecaster) Forecast(ctx context.Context, series []domain.DemandPoint, horizon int) ([]float64, error) {
	if err := validate(series, horizon); err != nil {
		return nil, err
	}

	out, err := f.cb.Execute(func() (interface{}, error) {
		return f.call(ctx, series, horizon)
	})
	if err != nil {
		return nil, err
	}

	return out.([]float64), nil
}

func (f *HTTPForecaster) call(ctx context.Context, series []domain.DemandPoint, horizon int) ([]float64, error) {
	body, err := json.Marshal(forecastRequest{Series: series, Horizon: horizon})
	if err != nil {
		return nil, fmt.Errorf("encode forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url+"/forecast", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("forecast service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}
	if len(decoded.Forecast) != horizon {
		return nil, fmt.Errorf("forecast service returned %d points, want %d", len(decoded.Forecast), horizon)
	}

	return decoded.Forecast, nil
}
