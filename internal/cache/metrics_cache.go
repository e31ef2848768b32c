// Package cache keeps computed dashboard metrics in Redis so repeated
// dashboard loads skip the full transaction scan
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/banking/fraud-monitor/internal/config"
	"github.com/banking/fraud-monitor/internal/domain"
)

// MetricsCache stores dashboard metrics per actor. Entries for one actor
// are invalidated together whenever that actor's transactions change
type MetricsCache interface {
	Get(ctx context.Context, actor string, baseline *float64) (Entry, error)
	// Set stores m only while the actor's generation still equals the one
	// returned by the Get that preceded the computation
	Set(ctx context.Context, actor string, baseline *float64, generation int64, m domain.DashboardMetrics) error
	Invalidate(ctx context.Context, actor string) error
}

// Entry is the result of a cache lookup. Metrics is nil on a miss
type Entry struct {
	Metrics    *domain.DashboardMetrics
	Generation int64
}

// errStaleGeneration aborts a Set that lost the race with Invalidate
var errStaleGeneration = errors.New("metrics cache generation changed")

// NewRedisClient builds a go-redis client from cfg
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// RedisMetricsCache is a MetricsCache backed by one Redis hash per actor
type RedisMetricsCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ MetricsCache = (*RedisMetricsCache)(nil)

// NewRedisMetricsCache creates a cache whose entries expire after ttl
func NewRedisMetricsCache(client redis.UniversalClient, ttl time.Duration) *RedisMetricsCache {
	return &RedisMetricsCache{client: client, ttl: ttl}
}

func actorKey(actor string) string {
	return "fraud-monitor:metrics:" + actor
}

func generationKey(actor string) string {
	return "fraud-monitor:metrics-gen:" + actor
}

func baselineField(baseline *float64) string {
	if baseline == nil {
		return "none"
	}
	return strconv.FormatFloat(*baseline, 'f', -1, 64)
}

func (c *RedisMetricsCache) Get(ctx context.Context, actor string, baseline *float64) (Entry, error) {
	var (
		genCmd *redis.StringCmd
		valCmd *redis.StringCmd
	)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		genCmd = pipe.Get(ctx, generationKey(actor))
		valCmd = pipe.HGet(ctx, actorKey(actor), baselineField(baseline))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return Entry{}, fmt.Errorf("metrics cache get: %w", err)
	}

	generation, err := readGeneration(genCmd)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{Generation: generation}

	value, err := valCmd.Result()
	if errors.Is(err, redis.Nil) {
		return entry, nil
	}
	if err != nil {
		return Entry{}, fmt.Errorf("metrics cache get: %w", err)
	}

	var m domain.DashboardMetrics
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		return Entry{}, fmt.Errorf("metrics cache decode: %w", err)
	}
	entry.Metrics = &m
	return entry, nil
}

// Set watches the generation key so an Invalidate landing between the
// check and the write aborts the transaction
func (c *RedisMetricsCache) Set(ctx context.Context, actor string, baseline *float64, generation int64, m domain.DashboardMetrics) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("metrics cache encode: %w", err)
	}

	key := actorKey(actor)
	genKey := generationKey(actor)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(tx.Get(ctx, genKey))
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, baselineField(baseline), payload)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, genKey)

	switch {
	case err == nil, errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		return nil
	default:
		return fmt.Errorf("metrics cache set: %w", err)
	}
}

// Invalidate bumps the actor's generation and drops the cached entries
func (c *RedisMetricsCache) Invalidate(ctx context.Context, actor string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(actor))
		pipe.Del(ctx, actorKey(actor))
		return nil
	})
	if err != nil {
		return fmt.Errorf("metrics cache invalidate: %w", err)
	}
	return nil
}

func readGeneration(cmd *redis.StringCmd) (int64, error) {
	generation, err := cmd.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("metrics cache generation: %w", err)
	}
	return generation, nil
}

// NoopMetricsCache never stores anything
type NoopMetricsCache struct{}

var _ MetricsCache = NoopMetricsCache{}

func (NoopMetricsCache) Get(context.Context, string, *float64) (Entry, error) {
	return Entry{}, nil
}

func (NoopMetricsCache) Set(context.Context, string, *float64, int64, domain.DashboardMetrics) error {
	return nil
}

func (NoopMetricsCache) Invalidate(context.Context, string) error {
	return nil
}
