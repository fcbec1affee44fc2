package restock

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/inventory-queue/internal/domain"
	"github.com/andresuchdata/inventory-queue/internal/forecast"
)

// DefaultHorizon is the number of monthly periods a recommendation covers
const DefaultHorizon = 3

// Result is a recommendation plus the items that could not be forecast
type Result struct {
	Recommendations domain.RestockRecommendation
	Diagnostics     []domain.Diagnostic
}

// Recommender derives restock quantities from forecast demand and current stock
type Recommender struct {
	forecaster forecast.Forecaster
}

// NewRecommender creates a new recommender backed by forecaster
func NewRecommender(forecaster forecast.Forecaster) *Recommender {
	return &Recommender{forecaster: forecaster}
}

// Recommend forecasts each item with at least two monthly observations over horizon periods and
// recommends max(0, forecast total - current stock) units. Items that cannot be forecast are
// reported as diagnostics and left out of the recommendation.
func (r *Recommender) Recommend(ctx context.Context, demand domain.MonthlyDemand, stock domain.InventoryState, horizon int) (Result, error) {
	if horizon <= 0 {
		horizon = DefaultHorizon
	}

	res := Result{Recommendations: make(domain.RestockRecommendation)}
	for _, item := range demand.Items() {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		series := demand.Series(item)
		if len(series) < forecast.MinObservations {
			err := fmt.Errorf("%w: %d monthly observation(s)", domain.ErrInsufficientHistory, len(series))
			res.Diagnostics = append(res.Diagnostics, domain.NewDiagnostic("", item, err))
			continue
		}

		points, err := r.forecaster.Forecast(ctx, series, horizon)
		if err != nil {
			log.Warn().Err(err).Str("item", item).Msg("restock: forecast failed")
			res.Diagnostics = append(res.Diagnostics, domain.NewDiagnostic("", item, fmt.Errorf("%w: %v", domain.ErrForecastFailure, err)))
			continue
		}

		res.Recommendations[item] = Line(item, len(series), points, stock[item])
	}

	return res, nil
}

// Line builds the recommendation for one item. Negative forecast points count as zero demand.
// Quantities too large for an int saturate at math.MaxInt.
func Line(item string, observations int, points []float64, currentStock int) domain.RestockLine {
	total := 0.0
	for _, p := range points {
		if p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p) {
			total += p
		}
	}

	return domain.RestockLine{
		Item:          item,
		Observations:  observations,
		Forecast:      points,
		ForecastTotal: total,
		CurrentStock:  currentStock,
		Quantity:      quantity(total - float64(currentStock)),
	}
}

func quantity(need float64) int {
	switch {
	case math.IsNaN(need) || need <= 0:
		return 0
	// float64(math.MaxInt) rounds up to 2^63, which does not fit
	case need >= float64(math.MaxInt):
		return math.MaxInt
	default:
		return int(math.Ceil(need))
	}
}
