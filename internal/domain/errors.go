package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrParse is returned when an item entry cannot be parsed
	ErrParse = errors.New("malformed item entry")

	// ErrInsufficientStock is returned when an order cannot be fully satisfied
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrInsufficientHistory is returned when an item has fewer than two monthly observations
	ErrInsufficientHistory = errors.New("insufficient demand history to forecast")

	// ErrForecastFailure is returned when the forecasting collaborator fails for an item
	ErrForecastFailure = errors.New("forecast failed")

	// ErrSourceUnavailable is returned when the transaction source cannot be read
	ErrSourceUnavailable = errors.New("transaction source unavailable")

	// ErrNonConvergent is returned when station sizing cannot reach the target
	ErrNonConvergent = errors.New("station sizing did not converge")

	// ErrInvalidOrder is returned when a manually entered order is unusable
	ErrInvalidOrder = errors.New("invalid order")

	// ErrQuantityOverflow is returned when a running stock total would not fit in an int
	ErrQuantityOverflow = errors.New("quantity overflow")

	// ErrBadRecord is returned for a log row that cannot be turned into a transaction
	ErrBadRecord = errors.New("unreadable transaction record")

	// ErrInvalidSizingInput is returned for station counts or queue times that cannot be sized
	ErrInvalidSizingInput = errors.New("invalid sizing input")
)

// ParseError describes a single item entry that was dropped by the parser
type ParseError struct {
	Entry  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrParse.Error(), e.Entry, e.Reason)
}

func (e *ParseError) Unwrap() error {
	return ErrParse
}

// DiagnosticKind classifies a non-fatal problem found while building a report.
type DiagnosticKind string

const (
	DiagnosticParse               DiagnosticKind = "parse_error"
	DiagnosticInsufficientStock   DiagnosticKind = "insufficient_stock"
	DiagnosticInsufficientHistory DiagnosticKind = "insufficient_history"
	DiagnosticForecastFailure     DiagnosticKind = "forecast_failure"
	DiagnosticQuantityOverflow    DiagnosticKind = "quantity_overflow"
	DiagnosticBadRecord           DiagnosticKind = "bad_record"
	DiagnosticOther               DiagnosticKind = "other"
)

// Diagnostic is a recoverable per-transaction or per-item problem reported next to partial results
type Diagnostic struct {
	Kind      DiagnosticKind `json:"kind"`
	RequestID string         `json:"request_id,omitempty"`
	Item      string         `json:"item,omitempty"`
	Message   string         `json:"message"`
}

// NewDiagnostic classifies err and wraps it as a diagnostic.
func NewDiagnostic(requestID, item string, err error) Diagnostic {
	return Diagnostic{
		Kind:      diagnosticKind(err),
		RequestID: requestID,
		Item:      item,
		Message:   err.Error(),
	}
}

func diagnosticKind(err error) DiagnosticKind {
	switch {
	case errors.Is(err, ErrParse):
		return DiagnosticParse
	case errors.Is(err, ErrInsufficientStock):
		return DiagnosticInsufficientStock
	case errors.Is(err, ErrInsufficientHistory):
		return DiagnosticInsufficientHistory
	case errors.Is(err, ErrForecastFailure):
		return DiagnosticForecastFailure
	case errors.Is(err, ErrQuantityOverflow):
		return DiagnosticQuantityOverflow
	case errors.Is(err, ErrBadRecord):
		return DiagnosticBadRecord
	default:
		return DiagnosticOther
	}
}
