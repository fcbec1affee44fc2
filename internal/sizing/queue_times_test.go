package sizing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/inventory-queue/internal/domain"
)

func TestAverageQueueTimes(t *testing.T) {
	in := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	out := func(m int) *time.Time {
		v := in.Add(time.Duration(m) * time.Minute)
		return &v
	}
	station := func(n int) *int { return &n }

	txs := []domain.Transaction{
		{RequestID: "1", RequestType: domain.RequestTypeOrderFulfillment, QueueInTime: in, QueueOutTime: out(10), StationNo: station(1)},
		{RequestID: "2", RequestType: domain.RequestTypeOrderFulfillment, QueueInTime: in, QueueOutTime: out(20), StationNo: station(2)},
		{RequestID: "3", RequestType: domain.RequestTypeRestock, QueueInTime: in, QueueOutTime: out(6), StationNo: station(2)},
		{RequestID: "4", RequestType: domain.RequestTypeRestock, QueueInTime: in},
		{RequestID: "5", RequestType: domain.RequestType("Audit"), QueueInTime: in, QueueOutTime: out(90), StationNo: station(3)},
	}

	avg := AverageQueueTimes(txs)
	assert.InDelta(t, 15.0, avg[domain.RequestTypeOrderFulfillment], 1e-9)
	assert.InDelta(t, 6.0, avg[domain.RequestTypeRestock], 1e-9)
	assert.Len(t, avg, 2)

	assert.Equal(t, 3, ActiveStations(txs))
}
