package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/andresuchdata/inventory-queue/internal/domain"
)

var reportHeader = []string{"item", "remaining", "total_restocked", "total_sold", "forecast_total", "restock_quantity"}

// writeReportCSV writes one row per item with its ledger totals and restock recommendation.
// Items without a recommendation leave the forecast columns empty.
func writeReportCSV(w io.Writer, ledgerReport *domain.LedgerReport, restockReport *domain.RestockReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(reportHeader); err != nil {
		return fmt.Errorf("write report header: %w", err)
	}

	s := ledgerReport.Summary
	for _, item := range itemsOf(s) {
		row := []string{
			item,
			strconv.Itoa(s.Remaining[item]),
			strconv.Itoa(s.TotalRestocked[item]),
			strconv.Itoa(s.TotalSold[item]),
			"",
			"",
		}
		if line, ok := restockReport.Recommendations[item]; ok {
			row[4] = strconv.FormatFloat(line.ForecastTotal, 'f', 2, 64)
			row[5] = strconv.Itoa(line.Quantity)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write report row %s: %w", item, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
