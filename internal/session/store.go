// Package session persists the Active Job Set: the ids of jobs submitted
// from one session that have not yet reached a terminal state.
package session

import (
	"context"
	"fmt"
	"strings"

	"doc2txt/internal/config"
)

// KV is the small key/value surface the job set needs from a backend.
type KV interface {
	// Get returns nil, nil when key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg config.SessionConfig) (KV, error) {
	ttl := cfg.TTL()
	cfg.Backend = strings.ToLower(cfg.Backend)
	switch cfg.Backend {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite", "postgres":
		dsn := cfg.DSN
		if cfg.Backend == "sqlite" && cfg.Path != "" {
			dsn = cfg.Path
		}
		s, err := OpenSQL(ctx, cfg.Backend, dsn, ttl)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := OpenRedis(ctx, cfg.RedisURL, ttl)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported session backend: %s", cfg.Backend)
	}
}
