package ledger

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/inventory-queue/internal/domain"
)

var base = time.Date(2024, time.January, 10, 9, 0, 0, 0, time.UTC)

func tx(id string, rt domain.RequestType, items string, offset time.Duration) domain.Transaction {
	return domain.Transaction{
		RequestID:   id,
		RequestType: rt,
		Items:       items,
		QueueInTime: base.Add(offset),
	}
}

func restock(id, items string, offset time.Duration) domain.Transaction {
	return tx(id, domain.RequestTypeRestock, items, offset)
}

func order(id, items string, offset time.Duration) domain.Transaction {
	return tx(id, domain.RequestTypeOrderFulfillment, items, offset)
}

func TestReplay_RestockAndFulfill(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "Apple: 10, Pear: 4", 0),
		order("2", "Apple: 3", time.Minute),
		order("3", "Apple: 2, Pear: 4", 2*time.Minute),
	}

	res := NewReplayer(DeclineWhole).Replay(txs)

	assert.Empty(t, res.Diagnostics)
	assert.Equal(t, domain.InventoryState{"Apple": 5, "Pear": 0}, res.Summary.Remaining)
	assert.Equal(t, domain.InventoryState{"Apple": 5, "Pear": 4}, res.Summary.TotalSold)
	assert.Equal(t, domain.InventoryState{"Apple": 10, "Pear": 4}, res.Summary.TotalRestocked)
	assert.Equal(t, 2, res.Summary.OrdersReceived)
	assert.Equal(t, 2, res.Summary.OrdersFulfilled)
	assert.Equal(t, 0, res.Summary.OrdersDeclined)
}

func TestReplay_DeclineWholeLeavesStock(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "Apple: 5, Pear: 1", 0),
		order("2", "Apple: 2, Pear: 3", time.Minute),
	}

	res := NewReplayer(DeclineWhole).Replay(txs)

	assert.Equal(t, domain.InventoryState{"Apple": 5, "Pear": 1}, res.Summary.Remaining)
	assert.Empty(t, res.Summary.TotalSold)
	assert.Equal(t, 1, res.Summary.OrdersDeclined)
	assert.Equal(t, 0, res.Summary.OrdersFulfilled)

	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, domain.DiagnosticInsufficientStock, res.Diagnostics[0].Kind)
	assert.Equal(t, "Pear", res.Diagnostics[0].Item)
	assert.Equal(t, "2", res.Diagnostics[0].RequestID)
}

func TestReplay_ClampToZeroShipsWhatIsOnHand(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "Apple: 5, Pear: 1", 0),
		order("2", "Apple: 2, Pear: 3", time.Minute),
	}

	res := NewReplayer(ClampToZero).Replay(txs)

	assert.Equal(t, domain.InventoryState{"Apple": 3, "Pear": 0}, res.Summary.Remaining)
	assert.Equal(t, domain.InventoryState{"Apple": 2, "Pear": 1}, res.Summary.TotalSold)
	assert.Equal(t, 1, res.Summary.OrdersDeclined)
	assert.Equal(t, 0, res.Summary.OrdersFulfilled)
}

func TestReplay_UnknownItemIsShort(t *testing.T) {
	res := NewReplayer(ClampToZero).Replay([]domain.Transaction{order("1", "Ghost: 1", 0)})

	assert.Equal(t, 1, res.Summary.OrdersDeclined)
	assert.Empty(t, res.Summary.TotalSold)
	for _, v := range res.Summary.Remaining {
		assert.GreaterOrEqual(t, v, 0)
	}
}

func TestReplay_MalformedOrderIsDeclined(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "Apple: 5", 0),
		order("2", "Apple: two", time.Minute),
	}

	res := NewReplayer(DeclineWhole).Replay(txs)

	assert.Equal(t, 1, res.Summary.OrdersReceived)
	assert.Equal(t, 1, res.Summary.OrdersDeclined)
	assert.Equal(t, domain.InventoryState{"Apple": 5}, res.Summary.Remaining)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, domain.DiagnosticParse, res.Diagnostics[0].Kind)
}

func TestReplay_MalformedRestockAppliesGoodEntries(t *testing.T) {
	res := NewReplayer(DeclineWhole).Replay([]domain.Transaction{restock("1", "Apple: 5, Pear: ?", 0)})

	assert.Equal(t, domain.InventoryState{"Apple": 5}, res.Summary.Remaining)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, domain.DiagnosticParse, res.Diagnostics[0].Kind)
}

func TestReplay_IgnoresUnknownRequestTypes(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "Apple: 5", 0),
		tx("2", domain.RequestType("Audit"), "Apple: 5", time.Minute),
	}

	res := NewReplayer(DeclineWhole).Replay(txs)

	assert.Equal(t, domain.InventoryState{"Apple": 5}, res.Summary.Remaining)
	assert.Equal(t, 0, res.Summary.OrdersReceived)
	assert.Empty(t, res.Diagnostics)
}

func TestReplay_SortsByQueueInTime(t *testing.T) {
	txs := []domain.Transaction{
		order("2", "Apple: 3", time.Minute),
		restock("1", "Apple: 3", 0),
	}

	res := NewReplayer(DeclineWhole).Replay(txs)

	assert.Equal(t, 1, res.Summary.OrdersFulfilled)
	assert.Equal(t, 0, res.Summary.Remaining["Apple"])
}

func TestReplay_TieBrokenByRequestID(t *testing.T) {
	// same queue-in time: request 9 (restock) must run before request 10 (order)
	sameItem := []domain.Transaction{
		order("10", "Apple: 3", 0),
		restock("9", "Apple: 3", 0),
	}
	res := NewReplayer(DeclineWhole).Replay(sameItem)
	assert.Equal(t, 1, res.Summary.OrdersFulfilled)

	// swapping ids flips the outcome because both touch Apple
	swapped := []domain.Transaction{
		order("9", "Apple: 3", 0),
		restock("10", "Apple: 3", 0),
	}
	res = NewReplayer(DeclineWhole).Replay(swapped)
	assert.Equal(t, 1, res.Summary.OrdersDeclined)

	// different items: id order does not matter
	a := NewReplayer(DeclineWhole).Replay([]domain.Transaction{
		restock("1", "Apple: 3", 0), restock("2", "Pear: 1", 0), order("3", "Pear: 1", 0), order("4", "Apple: 1", 0),
	})
	b := NewReplayer(DeclineWhole).Replay([]domain.Transaction{
		restock("1", "Apple: 3", 0), restock("2", "Pear: 1", 0), order("4", "Pear: 1", 0), order("3", "Apple: 1", 0),
	})
	assert.Equal(t, a.Summary, b.Summary)
}

func TestReplay_Deterministic(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "Apple: 10, Pear: 2", 0),
		order("2", "Apple: 4, Pear: 3", time.Minute),
		order("3", "Apple: 4", time.Minute),
		order("4", "Apple: 4", 2*time.Minute),
	}

	for _, policy := range []ShortfallPolicy{DeclineWhole, ClampToZero} {
		r := NewReplayer(policy)
		assert.Equal(t, r.Replay(txs), r.Replay(txs), string(policy))
	}
}

func TestReplay_Invariants(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "Apple: 10, Pear: 2", 0),
		order("2", "Apple: 4, Pear: 3", time.Minute),
		order("3", "Apple: 4", 2*time.Minute),
		restock("4", "Pear: 5", 3*time.Minute),
		order("5", "Apple: 4, Pear: 1", 4*time.Minute),
		order("6", "Apple: x", 5*time.Minute),
		order("7", "Pear: 2", 6*time.Minute),
	}

	for _, policy := range []ShortfallPolicy{DeclineWhole, ClampToZero} {
		s := NewReplayer(policy).Replay(txs).Summary

		assert.Equal(t, s.OrdersReceived, s.OrdersFulfilled+s.OrdersDeclined, string(policy))
		assert.Equal(t, s.TotalRestocked.Total()-s.TotalSold.Total(), s.Remaining.Total(), string(policy))
		for item, v := range s.Remaining {
			assert.GreaterOrEqual(t, v, 0, "%s: %s", policy, item)
		}
	}
}

func TestReplay_ConservationWithoutDeclines(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "A: 3, B: 9", 0),
		order("2", "A: 1, B: 2", time.Minute),
		order("3", "B: 7", 2*time.Minute),
		restock("4", "C: 1", 3*time.Minute),
	}

	s := NewReplayer(DeclineWhole).Replay(txs).Summary

	require.Zero(t, s.OrdersDeclined)
	assert.Equal(t, s.TotalRestocked.Total()-s.TotalSold.Total(), s.Remaining.Total())
}

func TestContinue_DoesNotMutateBase(t *testing.T) {
	r := NewReplayer(DeclineWhole)
	first := r.Replay([]domain.Transaction{restock("1", "Apple: 5", 0)})

	next := r.Continue(first.Summary, []domain.Transaction{order("manual-1", "Apple: 2", time.Hour)})

	assert.Equal(t, 5, first.Summary.Remaining["Apple"])
	assert.Equal(t, 0, first.Summary.OrdersReceived)
	assert.Equal(t, 3, next.Summary.Remaining["Apple"])
	assert.Equal(t, 1, next.Summary.OrdersFulfilled)
}

func TestReplay_AcceptsLowercaseRequestTypes(t *testing.T) {
	txs := []domain.Transaction{
		tx("1", domain.RequestType("restock"), "A: 2", 0),
		tx("2", domain.RequestType("order fulfillment"), "A: 1", time.Minute),
	}

	s := NewReplayer(DeclineWhole).Replay(txs).Summary

	assert.Equal(t, 1, s.Remaining["A"])
	assert.Equal(t, 1, s.OrdersFulfilled)
}

func TestParseShortfallPolicy(t *testing.T) {
	p, err := ParseShortfallPolicy("Clamp_To_Zero")
	require.NoError(t, err)
	assert.Equal(t, ClampToZero, p)

	p, err = ParseShortfallPolicy("strict")
	require.NoError(t, err)
	assert.Equal(t, DeclineWhole, p)

	_, err = ParseShortfallPolicy("maybe")
	assert.Error(t, err)
}

func TestReplay_DiagnosticWrapsInsufficientStock(t *testing.T) {
	res := NewReplayer(DeclineWhole).Replay([]domain.Transaction{order("1", "A: 1", 0)})
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0].Message, domain.ErrInsufficientStock.Error())
}

func TestReplay_RestockOverflowIsReported(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "A: 1000000000", 0),
	}
	// running totals near the int limit come from many large restocks
	start := domain.NewLedgerSummary()
	start.Remaining["A"] = math.MaxInt - 5
	start.TotalRestocked["A"] = math.MaxInt - 5

	res := NewReplayer(DeclineWhole).Continue(start, txs)

	assert.Equal(t, math.MaxInt-5, res.Summary.Remaining["A"])
	assert.Equal(t, math.MaxInt-5, res.Summary.TotalRestocked["A"])
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, domain.DiagnosticQuantityOverflow, res.Diagnostics[0].Kind)
	assert.Equal(t, "A", res.Diagnostics[0].Item)
}

func TestReplay_HugeRestockQuantityIsRejected(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "A: 9223372036854775807", 0),
		restock("2", "A: 1", time.Minute),
	}

	res := NewReplayer(DeclineWhole).Replay(txs)

	assert.Equal(t, domain.InventoryState{"A": 1}, res.Summary.Remaining)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, domain.DiagnosticParse, res.Diagnostics[0].Kind)
	for _, v := range res.Summary.Remaining {
		assert.GreaterOrEqual(t, v, 0)
	}
}

func TestReplay_EmptyOrderIsDeclined(t *testing.T) {
	txs := []domain.Transaction{
		restock("1", "Apple: 5", 0),
		order("2", "", time.Minute),
		order("3", "  ", 2*time.Minute),
	}

	res := NewReplayer(DeclineWhole).Replay(txs)

	assert.Equal(t, 2, res.Summary.OrdersReceived)
	assert.Equal(t, 0, res.Summary.OrdersFulfilled)
	assert.Equal(t, 2, res.Summary.OrdersDeclined)
	require.Len(t, res.Diagnostics, 2)
	assert.Equal(t, domain.DiagnosticParse, res.Diagnostics[0].Kind)
	assert.Equal(t, "2", res.Diagnostics[0].RequestID)
}

func TestOrder_MixedRequestIDsAreTotallyOrdered(t *testing.T) {
	ids := []string{"5x", "10", "9", "abc", "2", "10a"}
	txs := make([]domain.Transaction, 0, len(ids))
	for _, id := range ids {
		txs = append(txs, restock(id, "A: 1", 0))
	}

	got := make([]string, 0, len(ids))
	for _, tx := range Order(txs) {
		got = append(got, tx.RequestID)
	}
	assert.Equal(t, []string{"2", "9", "10", "10a", "5x", "abc"}, got)

	// the cycle 9 < 10 < 5x < 9 is impossible
	assert.True(t, requestIDLess("9", "10"))
	assert.True(t, requestIDLess("10", "5x"))
	assert.False(t, requestIDLess("5x", "9"))
}
