package domain

import "strings"

// RequestType is the kind of a queue transaction.
type RequestType string

const (
	RequestTypeRestock          RequestType = "Restock"
	RequestTypeOrderFulfillment RequestType = "Order Fulfillment"
)

var requestTypes = map[string]RequestType{
	"restock":           RequestTypeRestock,
	"order fulfillment": RequestTypeOrderFulfillment,
	"order_fulfillment": RequestTypeOrderFulfillment,
	"orderfulfillment":  RequestTypeOrderFulfillment,
}

// ParseRequestType returns the request type for a given label (case-insensitive).
// Unknown labels are returned verbatim with ok=false so the ledger can ignore them.
func ParseRequestType(label string) (RequestType, bool) {
	rt, ok := requestTypes[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return RequestType(label), false
	}

	return rt, true
}

// Known reports whether the request type affects the ledger.
func (rt RequestType) Known() bool {
	return rt == RequestTypeRestock || rt == RequestTypeOrderFulfillment
}
