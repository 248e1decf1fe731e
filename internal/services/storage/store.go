// Package storage provides the persistent key/value store shared by the agents.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key does not exist
var ErrNotFound = errors.New("storage: key not found")

// Key prefixes of the shared collections
const (
	PrefixDetections   = "detections/"
	PrefixSummaries    = "summaries/"
	PrefixSummaryIndex = "summary_index/"
	PrefixUnits        = "field_units/"
	PrefixInstructions = "dispatch_instructions/"
	PrefixRejections   = "dispatch_rejections/"
	PrefixEscalations  = "escalations/"
	PrefixClaims       = "dispatch_claims/"
)

// Entry is a stored key/value pair
type Entry struct {
	Key   string
	Value []byte
}

// Store is a durable keyed document store. Single-key operations are atomic;
// List returns entries in the order their keys were first written.
type Store interface {
	// Create writes value only if key is absent and reports whether it did.
	Create(ctx context.Context, key string, value []byte) (bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]Entry, error)
	// CompareAndSwap replaces the value of key only if it currently equals old.
	CompareAndSwap(ctx context.Context, key string, old, new []byte) (bool, error)
	Close() error
}

// CreateJSON encodes v and creates it under key if absent
func CreateJSON(ctx context.Context, s Store, key string, v any) (bool, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Create(ctx, key, data)
}

// PutJSON encodes v and writes it under key
func PutJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.Put(ctx, key, data)
}

// GetJSON reads key and decodes it into v
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", key, err)
	}
	return nil
}

// ListJSON decodes every entry under prefix, in insertion order
func ListJSON[T any](ctx context.Context, s Store, prefix string) ([]T, error) {
	entries, err := s.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		var v T
		if err := json.Unmarshal(e.Value, &v); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", e.Key, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// Config selects and configures a backend
type Config struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	SQLitePath    string
}

// Open builds the configured backend
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "redis":
		return NewRedisStore(ctx, RedisConfig{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			Database: cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
