package domain

import "time"

// Transaction represents a single queue event read from the transaction log
type Transaction struct {
	RequestID    string      `json:"request_id" db:"request_id"`
	RequestType  RequestType `json:"request_type" db:"request_type"`
	Items        string      `json:"items" db:"items"` // "name: qty, name: qty"
	QueueInTime  time.Time   `json:"queue_in_time" db:"queue_in_time"`
	QueueOutTime *time.Time  `json:"queue_out_time,omitempty" db:"queue_out_time"`
	Priority     string      `json:"priority,omitempty" db:"priority"`
	StationNo    *int        `json:"station_no,omitempty" db:"station_no"`
}

// QueueDuration returns the time the transaction spent in the queue.
// ok is false when the transaction has not left the queue yet.
func (t Transaction) QueueDuration() (time.Duration, bool) {
	if t.QueueOutTime == nil || t.QueueOutTime.Before(t.QueueInTime) {
		return 0, false
	}

	return t.QueueOutTime.Sub(t.QueueInTime), true
}

// OrderLine represents one item of a manually entered order
type OrderLine struct {
	Item     string `json:"item" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

// ManualOrder represents an order captured by the presentation layer
type ManualOrder struct {
	Lines []OrderLine `json:"lines" binding:"required,min=1,dive"`
}

// OrderCheck is the availability verdict for a manual order
type OrderCheck struct {
	Accepted   bool           `json:"accepted"`
	Shortfalls map[string]int `json:"shortfalls,omitempty"` // item -> missing units
	Available  map[string]int `json:"available"`
}
