package sizing

import (
	"fmt"
	"math"

	"github.com/andresuchdata/inventory-queue/internal/domain"
)

const (
	// DefaultMaxMultiplier caps the answer at 10x the current station count
	DefaultMaxMultiplier = 10

	// MaxStations is the largest current station count that can be sized
	MaxStations = 100_000

	tolerance = 1e-9
)

// Calculator sizes the station pool needed to meet a target average queue time
type Calculator struct {
	maxMultiplier int
	fixedRate     float64 // minutes saved per added station; 0 derives it from the inputs
}

// NewCalculator creates a new station calculator.
// maxMultiplier <= 0 falls back to DefaultMaxMultiplier, fixedRate <= 0 derives the rate per call.
func NewCalculator(maxMultiplier int, fixedRate float64) *Calculator {
	if maxMultiplier <= 0 {
		maxMultiplier = DefaultMaxMultiplier
	}
	if fixedRate < 0 || math.IsNaN(fixedRate) || math.IsInf(fixedRate, 0) {
		fixedRate = 0
	}
	return &Calculator{
		maxMultiplier: maxMultiplier,
		fixedRate:     fixedRate,
	}
}

// SizeStations returns the smallest station count n >= currentStations whose projected
// queue time currentTime - rate*(n-currentStations) is at or below targetTime.
// n may not exceed currentStations*maxMultiplier.
func (c *Calculator) SizeStations(currentTime, targetTime float64, currentStations int) (int, error) {
	if currentStations <= 0 || currentStations > MaxStations {
		return 0, fmt.Errorf("%w: current stations must be between 1 and %d, got %d",
			domain.ErrInvalidSizingInput, MaxStations, currentStations)
	}
	if !validTime(currentTime) || !validTime(targetTime) {
		return 0, fmt.Errorf("%w: queue times must be non-negative", domain.ErrInvalidSizingInput)
	}

	// 1. Reduction per added station
	rate := c.fixedRate
	if rate == 0 {
		rate = (currentTime - targetTime) / float64(currentStations)
	}

	// 2. Already on target
	if currentTime <= targetTime+tolerance {
		return currentStations, nil
	}

	// 3. Adding stations never helps
	if rate <= 0 {
		return 0, fmt.Errorf("%w: reduction rate %.4f per station", domain.ErrNonConvergent, rate)
	}

	// 4. Smallest step count that reaches the target, checked against the cap
	limit := c.limit(currentStations)
	room := limit - currentStations
	projected := func(steps int) float64 { return currentTime - rate*float64(steps) }

	estimate := math.Ceil((currentTime - targetTime - tolerance) / rate)
	if estimate > float64(room)+1 {
		return 0, fmt.Errorf("%w: target %.2f not reached within %d stations", domain.ErrNonConvergent, targetTime, limit)
	}

	// the estimate can be off by one step when the division rounds
	steps := room
	if estimate < float64(room) {
		steps = max(int(estimate), 0)
	}
	for steps > 0 && projected(steps-1) <= targetTime+tolerance {
		steps--
	}
	for projected(steps) > targetTime+tolerance {
		if steps == room {
			return 0, fmt.Errorf("%w: target %.2f not reached within %d stations", domain.ErrNonConvergent, targetTime, limit)
		}
		steps++
	}

	return currentStations + steps, nil
}

// limit is currentStations*maxMultiplier, saturated at math.MaxInt.
func (c *Calculator) limit(currentStations int) int {
	if currentStations > math.MaxInt/c.maxMultiplier {
		return math.MaxInt
	}
	return currentStations * c.maxMultiplier
}

func validTime(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Combine returns the largest station count so that one shared pool meets every target.
func Combine(counts ...int) int {
	best := 0
	for _, n := range counts {
		if n > best {
			best = n
		}
	}
	return best
}

// ClassTarget is the current and target average queue time of one queue class, in minutes
type ClassTarget struct {
	RequestType domain.RequestType
	CurrentTime float64
	TargetTime  float64
}

// Plan sizes every class and combines them. Classes that cannot be sized keep their error
// in the plan and do not contribute to the recommendation.
func (c *Calculator) Plan(currentStations int, classes ...ClassTarget) domain.StationPlan {
	plan := domain.StationPlan{
		CurrentStations: currentStations,
		Classes:         make([]domain.QueueClassPlan, 0, len(classes)),
	}

	counts := make([]int, 0, len(classes))
	for _, class := range classes {
		cp := domain.QueueClassPlan{
			RequestType: class.RequestType,
			CurrentTime: class.CurrentTime,
			TargetTime:  class.TargetTime,
		}

		n, err := c.SizeStations(class.CurrentTime, class.TargetTime, currentStations)
		if err != nil {
			cp.Error = err.Error()
		} else {
			cp.Stations = n
			counts = append(counts, n)
		}
		plan.Classes = append(plan.Classes, cp)
	}

	plan.Recommended = Combine(counts...)
	if plan.Recommended < currentStations {
		plan.Recommended = currentStations
	}
	plan.Additional = plan.Recommended - currentStations

	return plan
}
