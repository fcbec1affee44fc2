package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/inventory-queue/internal/cache"
	"github.com/andresuchdata/inventory-queue/internal/config"
)

func runCacheClear(c *cli.Context) error {
	cfg := config.Load().Cache
	if !cfg.Enabled {
		return fmt.Errorf("ledger cache is disabled, set CACHE_ENABLED=true")
	}

	ledgerCache, err := cache.NewLedgerCache(cfg)
	if err != nil {
		return fmt.Errorf("connect ledger cache: %w", err)
	}

	return clearLedgerCache(c.Context, ledgerCache, os.Stdout)
}

func clearLedgerCache(ctx context.Context, ledgerCache cache.LedgerCache, out io.Writer) error {
	removed, err := ledgerCache.InvalidateAll(ctx)
	if err != nil {
		return fmt.Errorf("clear ledger cache: %w", err)
	}

	log.Info().Int("removed", removed).Msg("ledger cache cleared")
	fmt.Fprintf(out, "removed %d cached ledger report(s)\n", removed)
	return nil
}
