package domain

import (
	"fmt"
	"sort"
	"time"
)

// InventoryState maps item name to remaining units. Values are never negative.
type InventoryState map[string]int

// Clone returns an independent copy of the state.
func (s InventoryState) Clone() InventoryState {
	c := make(InventoryState, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Total returns the sum of all remaining units.
func (s InventoryState) Total() int {
	total := 0
	for _, v := range s {
		total += v
	}
	return total
}

// Items returns the item names in sorted order.
func (s InventoryState) Items() []string {
	items := make([]string, 0, len(s))
	for k := range s {
		items = append(items, k)
	}
	sort.Strings(items)
	return items
}

// LedgerSummary is the derived snapshot of a replayed transaction log
type LedgerSummary struct {
	Remaining       InventoryState `json:"remaining"`
	TotalSold       InventoryState `json:"total_sold"`
	TotalRestocked  InventoryState `json:"total_restocked"`
	OrdersReceived  int            `json:"orders_received"`
	OrdersFulfilled int            `json:"orders_fulfilled"`
	OrdersDeclined  int            `json:"orders_declined"`
}

// NewLedgerSummary returns an empty summary with initialized maps.
func NewLedgerSummary() LedgerSummary {
	return LedgerSummary{
		Remaining:      InventoryState{},
		TotalSold:      InventoryState{},
		TotalRestocked: InventoryState{},
	}
}

// Clone returns a deep copy of the summary.
func (l LedgerSummary) Clone() LedgerSummary {
	c := l
	c.Remaining = l.Remaining.Clone()
	c.TotalSold = l.TotalSold.Clone()
	c.TotalRestocked = l.TotalRestocked.Clone()
	return c
}

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the UTC calendar month of t.
func MonthOf(t time.Time) Month {
	u := t.UTC()
	return Month{Year: u.Year(), Month: u.Month()}
}

// Before reports whether m is earlier than other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

// Next returns the month after m.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// MarshalText renders the month as YYYY-MM so it can key JSON objects.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a YYYY-MM month.
func (m *Month) UnmarshalText(b []byte) error {
	t, err := time.Parse("2006-01", string(b))
	if err != nil {
		return fmt.Errorf("invalid month %q: %w", string(b), err)
	}
	*m = MonthOf(t)
	return nil
}

// MonthlyDemand maps item -> month -> units ordered that month
type MonthlyDemand map[string]map[Month]int

// Add accumulates qty for item in month.
func (d MonthlyDemand) Add(item string, month Month, qty int) {
	byMonth, ok := d[item]
	if !ok {
		byMonth = make(map[Month]int)
		d[item] = byMonth
	}
	byMonth[month] += qty
}

// Series returns the observations for item ordered by month.
func (d MonthlyDemand) Series(item string) []DemandPoint {
	byMonth := d[item]
	points := make([]DemandPoint, 0, len(byMonth))
	for m, q := range byMonth {
		points = append(points, DemandPoint{Period: m, Quantity: float64(q)})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Period.Before(points[j].Period) })
	return points
}

// Items returns the item names in sorted order.
func (d MonthlyDemand) Items() []string {
	items := make([]string, 0, len(d))
	for k := range d {
		items = append(items, k)
	}
	sort.Strings(items)
	return items
}

// DemandPoint is one observation of a demand time series
type DemandPoint struct {
	Period   Month   `json:"period"`
	Quantity float64 `json:"quantity"`
}

// RestockLine is the recommendation for a single item
type RestockLine struct {
	Item          string    `json:"item"`
	Observations  int       `json:"observations"`
	Forecast      []float64 `json:"forecast"`
	ForecastTotal float64   `json:"forecast_total"`
	CurrentStock  int       `json:"current_stock"`
	Quantity      int       `json:"quantity"` // never negative
}

// RestockRecommendation maps item -> recommendation
type RestockRecommendation map[string]RestockLine

// Quantities flattens the recommendation to item -> units.
func (r RestockRecommendation) Quantities() map[string]int {
	out := make(map[string]int, len(r))
	for item, line := range r {
		out[item] = line.Quantity
	}
	return out
}
