package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis repository.
type RedisConfig struct {
	// Prefix is prepended to every key.
	Prefix string
	// TTL expires records; 0 keeps them forever.
	TTL time.Duration
	// Timeout bounds each operation.
	Timeout time.Duration
}

// DefaultRedisConfig returns the settings used by OpenRedis.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		Prefix:  "patientflow:comparisons:",
		Timeout: 5 * time.Second,
	}
}

// RedisRepository stores JSON records under prefixed keys with a sorted-set
// index scored by creation time.
type RedisRepository struct {
	cfg    RedisConfig
	client *redis.Client
}

// OpenRedis connects to the Redis server named by a redis:// URL.
func OpenRedis(ctx context.Context, rawURL string) (*RedisRepository, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	cfg := DefaultRedisConfig()
	opts.ReadTimeout = cfg.Timeout
	opts.WriteTimeout = cfg.Timeout
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisRepository(client, cfg), nil
}

// NewRedisRepository wraps an existing client.
func NewRedisRepository(client *redis.Client, cfg RedisConfig) *RedisRepository {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultRedisConfig().Timeout
	}
	return &RedisRepository{cfg: cfg, client: client}
}

func (r *RedisRepository) key(id string) string {
	return r.cfg.Prefix + id
}

func (r *RedisRepository) indexKey() string {
	return r.cfg.Prefix + "index"
}

func (r *RedisRepository) Save(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.key(rec.ID), data, r.cfg.TTL)
	pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(rec.CreatedAt.UnixNano()), Member: rec.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save record to Redis: %w", err)
	}
	return nil
}

func (r *RedisRepository) Get(ctx context.Context, id string) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load record from Redis: %w", err)
	}
	return decodeRecord(data)
}

// List walks the index newest first. Index entries whose record expired
// are dropped from the index as they are found.
func (r *RedisRepository) List(ctx context.Context, limit int) ([]*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read Redis index: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load records from Redis: %w", err)
	}

	out := make([]*Record, 0, len(values))
	var expired []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		rec, err := decodeRecord([]byte(s))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if len(expired) > 0 {
		r.client.ZRem(ctx, r.indexKey(), expired...)
	}
	return out, nil
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}
