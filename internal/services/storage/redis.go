package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis backend
type RedisConfig struct {
	// Address is the Redis server address (e.g., "localhost:6379")
	Address  string
	Password string
	Database int

	// Prefix is prepended to all keys (e.g., "drishti:")
	Prefix string

	// Timeout for Redis operations
	Timeout time.Duration
}

// RedisStore keeps documents as plain string keys and records first-write
// order in a sorted set so List can return insertion order.
type RedisStore struct {
	cfg    RedisConfig
	client *redis.Client
}

var createScript = redis.NewScript(`
	if redis.call("exists", KEYS[1]) == 1 then
		return 0
	end
	redis.call("set", KEYS[1], ARGV[1])
	local seq = redis.call("incr", KEYS[2])
	redis.call("zadd", KEYS[3], seq, ARGV[2])
	return 1
`)

var putScript = redis.NewScript(`
	redis.call("set", KEYS[1], ARGV[1])
	if redis.call("zscore", KEYS[3], ARGV[2]) == false then
		local seq = redis.call("incr", KEYS[2])
		redis.call("zadd", KEYS[3], seq, ARGV[2])
	end
	return 1
`)

var casScript = redis.NewScript(`
	local cur = redis.call("get", KEYS[1])
	if cur == false or cur ~= ARGV[1] then
		return 0
	end
	redis.call("set", KEYS[1], ARGV[2])
	return 1
`)

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.Database,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{cfg: cfg, client: client}, nil
}

func (r *RedisStore) key(k string) string { return r.cfg.Prefix + "doc:" + k }
func (r *RedisStore) seqKey() string      { return r.cfg.Prefix + "seq" }
func (r *RedisStore) orderKey() string    { return r.cfg.Prefix + "order" }

func (r *RedisStore) Create(ctx context.Context, key string, value []byte) (bool, error) {
	n, err := createScript.Run(ctx, r.client, []string{r.key(key), r.seqKey(), r.orderKey()}, value, key).Int()
	if err != nil {
		return false, fmt.Errorf("redis create %s: %w", key, err)
	}
	return n == 1, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := putScript.Run(ctx, r.client, []string{r.key(key), r.seqKey(), r.orderKey()}, value, key).Err(); err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return data, nil
}

func (r *RedisStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	all, err := r.client.ZRange(ctx, r.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list %s: %w", prefix, err)
	}

	var keys []string
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, nil
	}

	docKeys := make([]string, len(keys))
	for i, k := range keys {
		docKeys[i] = r.key(k)
	}
	values, err := r.client.MGet(ctx, docKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget %s: %w", prefix, err)
	}

	out := make([]Entry, 0, len(keys))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, Entry{Key: keys[i], Value: []byte(s)})
	}
	return out, nil
}

func (r *RedisStore) CompareAndSwap(ctx context.Context, key string, old, new []byte) (bool, error) {
	n, err := casScript.Run(ctx, r.client, []string{r.key(key)}, old, new).Int()
	if err != nil {
		return false, fmt.Errorf("redis cas %s: %w", key, err)
	}
	return n == 1, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
