// Package forecast provides the demand forecasting collaborators used by restock planning.
package forecast

import (
	"context"
	"fmt"
	"strings"

	"github.com/andresuchdata/inventory-queue/internal/domain"
)

// MinObservations is the shortest series any forecaster accepts
const MinObservations = 2

// Forecaster predicts one point per future period for a monthly demand series
type Forecaster interface {
	Forecast(ctx context.Context, series []domain.DemandPoint, horizon int) ([]float64, error)
}

// Func adapts a plain function to the Forecaster interface
type Func func(ctx context.Context, series []domain.DemandPoint, horizon int) ([]float64, error)

func (f Func) Forecast(ctx context.Context, series []domain.DemandPoint, horizon int) ([]float64, error) {
	return f(ctx, series, horizon)
}

// Backend names a forecaster implementation
type Backend string

const (
	BackendHolt Backend = "holt"
	BackendHTTP Backend = "http"
)

// Options configures New
type Options struct {
	Backend Backend
	Alpha   float64
	Beta    float64
	HTTP    HTTPConfig
}

// New builds the forecaster selected by opts.Backend.
func New(opts Options) (Forecaster, error) {
	switch Backend(strings.ToLower(string(opts.Backend))) {
	case "", BackendHolt:
		return NewHolt(opts.Alpha, opts.Beta), nil
	case BackendHTTP:
		return NewHTTPForecaster(opts.HTTP)
	default:
		return nil, fmt.Errorf("unknown forecast backend %q", opts.Backend)
	}
}

func validate(series []domain.DemandPoint, horizon int) error {
	if len(series) < MinObservations {
		return fmt.Errorf("%w: %d observations", domain.ErrInsufficientHistory, len(series))
	}
	if horizon <= 0 {
		return fmt.Errorf("horizon must be positive, got %d", horizon)
	}
	return nil
}
