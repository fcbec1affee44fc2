package ledger

import (
	"github.com/andresuchdata/inventory-queue/internal/domain"
)

// MonthlyDemand sums the ordered quantity per item and calendar month of queue-in time.
// Every Order Fulfillment counts as demand, declined or not; malformed entries are skipped.
func MonthlyDemand(txs []domain.Transaction) domain.MonthlyDemand {
	demand := make(domain.MonthlyDemand)
	for _, tx := range txs {
		if rt, _ := domain.ParseRequestType(string(tx.RequestType)); rt != domain.RequestTypeOrderFulfillment {
			continue
		}

		items, _ := ParseItems(tx.Items)
		month := domain.MonthOf(tx.QueueInTime)
		for item, qty := range items {
			demand.Add(item, month, qty)
		}
	}
	return demand
}

// CheckOrder reports whether an order for items could be fulfilled from stock.
func CheckOrder(stock domain.InventoryState, items map[string]int) domain.OrderCheck {
	available := make(map[string]int, len(items))
	for item := range items {
		available[item] = stock[item]
	}

	shortfalls := Shortfalls(stock, items)
	return domain.OrderCheck{
		Accepted:   len(shortfalls) == 0,
		Shortfalls: shortfalls,
		Available:  available,
	}
}
