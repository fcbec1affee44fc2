package sizing

import (
	"github.com/andresuchdata/inventory-queue/internal/domain"
)

// AverageQueueTimes returns the mean queue time in minutes per request type, using only
// transactions that have left the queue.
func AverageQueueTimes(txs []domain.Transaction) map[domain.RequestType]float64 {
	sums := make(map[domain.RequestType]float64)
	counts := make(map[domain.RequestType]int)

	for _, tx := range txs {
		rt, known := domain.ParseRequestType(string(tx.RequestType))
		if !known {
			continue
		}
		d, ok := tx.QueueDuration()
		if !ok {
			continue
		}
		sums[rt] += d.Minutes()
		counts[rt]++
	}

	avg := make(map[domain.RequestType]float64, len(sums))
	for rt, sum := range sums {
		avg[rt] = sum / float64(counts[rt])
	}
	return avg
}

// ActiveStations counts the distinct stations that served at least one transaction.
func ActiveStations(txs []domain.Transaction) int {
	seen := make(map[int]struct{})
	for _, tx := range txs {
		if tx.StationNo == nil {
			continue
		}
		seen[*tx.StationNo] = struct{}{}
	}
	return len(seen)
}
