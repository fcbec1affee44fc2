package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/andresuchdata/inventory-queue/internal/domain"
)

// ShortfallPolicy decides what an order that cannot be fully satisfied does to stock.
type ShortfallPolicy string

const (
	// DeclineWhole leaves stock untouched when any item of the order is short.
	DeclineWhole ShortfallPolicy = "decline_whole"
	// ClampToZero ships whatever is on hand for each item, driving short items to zero.
	ClampToZero ShortfallPolicy = "clamp_to_zero"
)

// ParseShortfallPolicy returns the policy for a given label (case-insensitive).
func ParseShortfallPolicy(label string) (ShortfallPolicy, error) {
	switch ShortfallPolicy(strings.ToLower(strings.TrimSpace(label))) {
	case DeclineWhole, "decline", "strict":
		return DeclineWhole, nil
	case ClampToZero, "clamp", "lenient":
		return ClampToZero, nil
	default:
		return "", fmt.Errorf("unknown shortfall policy %q", label)
	}
}

// Result is the outcome of a replay
type Result struct {
	Summary     domain.LedgerSummary
	Diagnostics []domain.Diagnostic
}

// Replayer folds ordered transactions into a ledger summary
type Replayer struct {
	policy ShortfallPolicy
}

// NewReplayer creates a replayer with the given shortfall policy.
// An empty policy defaults to DeclineWhole.
func NewReplayer(policy ShortfallPolicy) *Replayer {
	if policy == "" {
		policy = DeclineWhole
	}
	return &Replayer{policy: policy}
}

// Policy returns the shortfall policy applied to declined orders.
func (r *Replayer) Policy() ShortfallPolicy {
	return r.policy
}

// Replay rebuilds the ledger from scratch.
func (r *Replayer) Replay(txs []domain.Transaction) Result {
	return r.Continue(domain.NewLedgerSummary(), txs)
}

// Continue applies txs on top of an existing summary. The input summary is not modified.
func (r *Replayer) Continue(base domain.LedgerSummary, txs []domain.Transaction) Result {
	res := Result{Summary: base.Clone()}

	for _, tx := range Order(txs) {
		res.Diagnostics = append(res.Diagnostics, r.apply(&res.Summary, tx)...)
	}

	return res
}

func (r *Replayer) apply(s *domain.LedgerSummary, tx domain.Transaction) []domain.Diagnostic {
	rt, known := domain.ParseRequestType(string(tx.RequestType))
	if !known {
		return nil
	}

	items, parseErrs := ParseItems(tx.Items)
	diags := make([]domain.Diagnostic, 0, len(parseErrs))
	for _, err := range parseErrs {
		diags = append(diags, domain.NewDiagnostic(tx.RequestID, "", err))
	}

	switch rt {
	case domain.RequestTypeRestock:
		for _, item := range sortedKeys(items) {
			qty := items[item]
			remaining, ok := addQuantity(s.Remaining[item], qty)
			restocked, ok2 := addQuantity(s.TotalRestocked[item], qty)
			if !ok || !ok2 {
				err := fmt.Errorf("%w: restock of %d on top of %d", domain.ErrQuantityOverflow, qty, s.Remaining[item])
				diags = append(diags, domain.NewDiagnostic(tx.RequestID, item, err))
				continue
			}
			s.Remaining[item] = remaining
			s.TotalRestocked[item] = restocked
		}

	case domain.RequestTypeOrderFulfillment:
		s.OrdersReceived++

		if len(items) == 0 && len(parseErrs) == 0 {
			diags = append(diags, domain.NewDiagnostic(tx.RequestID, "",
				&domain.ParseError{Entry: tx.Items, Reason: "order has no items"}))
		}

		// an order we could not fully read is never shipped
		if len(diags) > 0 {
			s.OrdersDeclined++
			return diags
		}

		shortfalls := Shortfalls(s.Remaining, items)
		if len(shortfalls) == 0 {
			for item, qty := range items {
				s.Remaining[item] -= qty
				s.TotalSold[item] += qty
			}
			s.OrdersFulfilled++
			return diags
		}

		s.OrdersDeclined++
		for _, item := range sortedKeys(shortfalls) {
			err := fmt.Errorf("%w: requested %d, available %d",
				domain.ErrInsufficientStock, items[item], s.Remaining[item])
			diags = append(diags, domain.NewDiagnostic(tx.RequestID, item, err))
		}

		if r.policy == ClampToZero {
			for item, qty := range items {
				shipped := min(qty, s.Remaining[item])
				if shipped <= 0 {
					continue
				}
				s.Remaining[item] -= shipped
				s.TotalSold[item] += shipped
			}
		}
	}

	return diags
}

// Shortfalls returns item -> missing units for every item the stock cannot cover.
func Shortfalls(stock domain.InventoryState, items map[string]int) map[string]int {
	var short map[string]int
	for item, qty := range items {
		if have := stock[item]; have < qty {
			if short == nil {
				short = make(map[string]int)
			}
			short[item] = qty - have
		}
	}
	return short
}

// Order returns a copy of txs sorted by queue-in time, ties broken by request id.
func Order(txs []domain.Transaction) []domain.Transaction {
	ordered := make([]domain.Transaction, len(txs))
	copy(ordered, txs)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.QueueInTime.Equal(b.QueueInTime) {
			return a.QueueInTime.Before(b.QueueInTime)
		}
		return requestIDLess(a.RequestID, b.RequestID)
	})

	return ordered
}

// requestIDLess orders integer ids numerically, ahead of every other id, and the rest lexically.
func requestIDLess(a, b string) bool {
	ai, aErr := strconv.ParseInt(a, 10, 64)
	bi, bErr := strconv.ParseInt(b, 10, 64)
	switch {
	case aErr == nil && bErr == nil:
		return ai < bi
	case aErr == nil:
		return true
	case bErr == nil:
		return false
	default:
		return a < b
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
