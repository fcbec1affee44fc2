package forecast

import (
	"context"

	"github.com/andresuchdata/inventory-queue/internal/domain"
)

const (
	DefaultAlpha = 0.5
	DefaultBeta  = 0.3
)

// Holt is a double exponential smoothing (level + trend) forecaster
type Holt struct {
	alpha float64
	beta  float64
}

// NewHolt creates a Holt forecaster. Smoothing factors outside (0, 1] fall back to defaults.
func NewHolt(alpha, beta float64) *Holt {
	if alpha <= 0 || alpha > 1 {
		alpha = DefaultAlpha
	}
	if beta <= 0 || beta > 1 {
		beta = DefaultBeta
	}
	return &Holt{alpha: alpha, beta: beta}
}

// Forecast smooths the series and extrapolates the final level and trend.
func (h *Holt) Forecast(ctx context.Context, series []domain.DemandPoint, horizon int) ([]float64, error) {
	if err := validate(series, horizon); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	level := series[0].Quantity
	trend := series[1].Quantity - series[0].Quantity
	for _, p := range series[1:] {
		prev := level
		level = h.alpha*p.Quantity + (1-h.alpha)*(level+trend)
		trend = h.beta*(level-prev) + (1-h.beta)*trend
	}

	out := make([]float64, horizon)
	for i := range out {
		out[i] = level + float64(i+1)*trend
	}
	return out, nil
}
