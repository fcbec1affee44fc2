package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andresuchdata/inventory-queue/internal/config"
	"github.com/andresuchdata/inventory-queue/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	ledgerReportKeyPrefix = "ledger:report"
	ledgerScanBatchSize   = 100
)

// LedgerKey identifies a replay of one version of the transaction log under one shortfall policy.
type LedgerKey struct {
	Policy string
	Count  int
	LastID string
}

type LedgerCache interface {
	GetReport(ctx context.Context, key LedgerKey) (*domain.LedgerReport, bool, error)
	SetReport(ctx context.Context, key LedgerKey, report *domain.LedgerReport) error
	// InvalidateAll drops every cached report and returns how many were removed.
	InvalidateAll(ctx context.Context) (int, error)
}

type redisLedgerCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopLedgerCache struct{}

func NewLedgerCache(cfg config.CacheConfig) (LedgerCache, error) {
	if !cfg.Enabled {
		return &noopLedgerCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisLedgerCache{
		client: client,
		ttl:    ttl,
	}, nil
}

func NewNoopLedgerCache() LedgerCache {
	return &noopLedgerCache{}
}

func (c *redisLedgerCache) GetReport(ctx context.Context, key LedgerKey) (*domain.LedgerReport, bool, error) {
	payload, err := c.client.Get(ctx, buildLedgerReportKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.LedgerReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode ledger report cache: %w", err)
	}

	return &report, true, nil
}

func (c *redisLedgerCache) SetReport(ctx context.Context, key LedgerKey, report *domain.LedgerReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode ledger report cache: %w", err)
	}

	if err := c.client.Set(ctx, buildLedgerReportKey(key), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}

	return nil
}

func (c *redisLedgerCache) InvalidateAll(ctx context.Context) (int, error) {
	return unlinkMatching(ctx, c.client, ledgerReportKeyPrefix+":", ledgerScanBatchSize)
}

func (n *noopLedgerCache) GetReport(ctx context.Context, key LedgerKey) (*domain.LedgerReport, bool, error) {
	return nil, false, nil
}

func (n *noopLedgerCache) SetReport(ctx context.Context, key LedgerKey, report *domain.LedgerReport) error {
	return nil
}

func (n *noopLedgerCache) InvalidateAll(ctx context.Context) (int, error) {
	return 0, nil
}

func buildLedgerReportKey(key LedgerKey) string {
	policy := key.Policy
	if policy == "" {
		policy = "default"
	}

	// Request ids come from the source verbatim
	hash := sha1.Sum([]byte(key.LastID))
	return fmt.Sprintf("%s:%s:%d:%s", ledgerReportKeyPrefix, policy, key.Count, hex.EncodeToString(hash[:8]))
}
