package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/inventory-queue/internal/domain"
	"github.com/andresuchdata/inventory-queue/internal/service"
	"github.com/andresuchdata/inventory-queue/internal/storage"
)

func stationFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "stations", Usage: "Current station count (default: distinct stations in the log)"},
		&cli.Float64Flag{Name: "current-order-minutes", Usage: "Current average order queue time"},
		&cli.Float64Flag{Name: "current-restock-minutes", Usage: "Current average restock queue time"},
		&cli.Float64Flag{Name: "target-order-minutes", Usage: "Target average order queue time"},
		&cli.Float64Flag{Name: "target-restock-minutes", Usage: "Target average restock queue time"},
	}
}

func stationRequest(c *cli.Context) service.StationRequest {
	var req service.StationRequest
	if c.IsSet("stations") {
		n := c.Int("stations")
		req.CurrentStations = &n
	}

	optional := func(name string) *float64 {
		if !c.IsSet(name) {
			return nil
		}
		v := c.Float64(name)
		return &v
	}
	req.CurrentOrderMinutes = optional("current-order-minutes")
	req.CurrentRestockMinutes = optional("current-restock-minutes")
	req.TargetOrderMinutes = optional("target-order-minutes")
	req.TargetRestockMinutes = optional("target-restock-minutes")
	return req
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printDiagnostics(w io.Writer, diagnostics []domain.Diagnostic) {
	if len(diagnostics) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%d diagnostic(s):\n", len(diagnostics))
	for _, d := range diagnostics {
		fmt.Fprintf(w, "  [%s] request=%s item=%s %s\n", d.Kind, d.RequestID, d.Item, d.Message)
	}
}

func runInventory(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}

	report, err := a.Inventory.Ledger(c.Context, service.LedgerOptions{})
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(os.Stdout, report)
	}
	writeLedgerTable(os.Stdout, report)
	return nil
}

func writeLedgerTable(out io.Writer, report *domain.LedgerReport) {
	s := report.Summary
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tREMAINING\tRESTOCKED\tSOLD")
	for _, item := range itemsOf(s) {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", item, s.Remaining[item], s.TotalRestocked[item], s.TotalSold[item])
	}
	_ = tw.Flush()

	fmt.Fprintf(out, "\ntransactions: %d  orders received: %d  fulfilled: %d  declined: %d\n",
		report.Transactions, s.OrdersReceived, s.OrdersFulfilled, s.OrdersDeclined)
	printDiagnostics(out, report.Diagnostics)
}

// itemsOf returns every item that was ever restocked or sold, sorted.
func itemsOf(s domain.LedgerSummary) []string {
	all := s.Remaining.Clone()
	for item := range s.TotalRestocked {
		all[item] += 0
	}
	for item := range s.TotalSold {
		all[item] += 0
	}
	return all.Items()
}

func runRestock(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}

	report, err := a.Inventory.Restock(c.Context, service.RestockOptions{Horizon: c.Int("horizon")})
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(os.Stdout, report)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ITEM\tMONTHS\tFORECAST (%d)\tSTOCK\tRESTOCK\n", report.Horizon)
	for _, item := range sortedRecommendations(report.Recommendations) {
		line := report.Recommendations[item]
		fmt.Fprintf(tw, "%s\t%d\t%.1f\t%d\t%d\n", item, line.Observations, line.ForecastTotal, line.CurrentStock, line.Quantity)
	}
	_ = tw.Flush()
	printDiagnostics(os.Stdout, report.Diagnostics)
	return nil
}

func sortedRecommendations(r domain.RestockRecommendation) []string {
	return domain.InventoryState(r.Quantities()).Items()
}

func runStations(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}

	plan, err := a.Inventory.Stations(c.Context, stationRequest(c))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(os.Stdout, plan)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "QUEUE\tCURRENT MIN\tTARGET MIN\tSTATIONS")
	for _, class := range plan.Classes {
		stations := strconv.Itoa(class.Stations)
		if class.Error != "" {
			stations = "error: " + class.Error
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%s\n", class.RequestType, class.CurrentTime, class.TargetTime, stations)
	}
	_ = tw.Flush()

	fmt.Printf("\ncurrent stations: %d  recommended: %d  additional: %d\n",
		plan.CurrentStations, plan.Recommended, plan.Additional)
	return nil
}

func runSnapshotFetch(c *cli.Context) error {
	client, cfg, err := newStorageClient()
	if err != nil {
		return err
	}

	dest := c.String("dest")
	if dest == "" {
		dest = cfg.DownloadDir
	}

	downloader, err := storage.NewSnapshotDownloader(client, dest)
	if err != nil {
		return err
	}

	paths, err := downloader.Download(c.Context, c.String("prefix"), c.String("key"))
	if err != nil {
		return err
	}

	for _, p := range paths {
		fmt.Println(p)
	}
	log.Info().Str("latest", storage.Latest(paths)).Msg("use --db with the latest snapshot to replay it")
	return nil
}

func runReportUpload(c *cli.Context) error {
	a, err := appFrom(c)
	if err != nil {
		return err
	}

	ledgerReport, err := a.Inventory.Ledger(c.Context, service.LedgerOptions{})
	if err != nil {
		return err
	}
	restockReport, err := a.Inventory.Restock(c.Context, service.RestockOptions{Horizon: c.Int("horizon")})
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := writeReportCSV(&buf, ledgerReport, restockReport); err != nil {
		return err
	}

	if out := c.String("out"); out != "" {
		if err := os.WriteFile(out, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("failed writing %s: %w", out, err)
		}
	}

	client, _, err := newStorageClient()
	if err != nil {
		return err
	}

	key := c.String("key")
	if key == "" {
		key = fmt.Sprintf("inventory-%s.csv", time.Now().UTC().Format("2006-01-02"))
	}
	objectKey := storage.ResolveObjectKey(c.String("prefix"), key)
	if err := client.UploadObject(c.Context, objectKey, buf.Bytes()); err != nil {
		return err
	}

	log.Info().Str("key", objectKey).Int("bytes", buf.Len()).Msg("report uploaded")
	return nil
}
