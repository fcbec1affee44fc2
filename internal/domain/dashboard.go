package domain

// LedgerReport is the replayed ledger plus the diagnostics produced while replaying
type LedgerReport struct {
	Summary      LedgerSummary `json:"summary"`
	Transactions int           `json:"transactions"`
	Diagnostics  []Diagnostic  `json:"diagnostics"`
	Cached       bool          `json:"cached"`
}

// RestockReport is the restock recommendation for the current ledger state
type RestockReport struct {
	Horizon         int                   `json:"horizon"`
	Recommendations RestockRecommendation `json:"recommendations"`
	Diagnostics     []Diagnostic          `json:"diagnostics"`
}

// QueueClassPlan is the sizing result for one queue class
type QueueClassPlan struct {
	RequestType RequestType `json:"request_type"`
	CurrentTime float64     `json:"current_time"` // minutes
	TargetTime  float64     `json:"target_time"`  // minutes
	Stations    int         `json:"stations"`
	Error       string      `json:"error,omitempty"`
}

// StationPlan combines the per-class sizing results into a single station count
type StationPlan struct {
	CurrentStations int              `json:"current_stations"`
	Classes         []QueueClassPlan `json:"classes"`
	Recommended     int              `json:"recommended"`
	Additional      int              `json:"additional"`
}

// Dashboard aggregates all dashboard data
type Dashboard struct {
	Ledger   *LedgerReport  `json:"ledger"`
	Restock  *RestockReport `json:"restock"`
	Stations *StationPlan   `json:"stations,omitempty"`
}
