// Package store provides key-value storage with per-key expiry.
package store

import (
	"context"
	"fmt"
	"time"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendS3     = "s3"
)

// Store is a key-value store where a key can expire.
// An expired key reads as absent, it is not an error.
type Store interface {
	// Get returns the value stored under key, and false if the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set replaces the value stored under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes the key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Config holds the store configuration.
type Config struct {
	Backend    string
	SQLitePath string
	S3Bucket   string
	S3Prefix   string
}

// New creates a store for the configured backend.
// The returned function releases the store resources.
func New(ctx context.Context, cfg Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemory(), noop, nil

	case BackendSQLite:
		s, err := NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		return s, s.Close, nil

	case BackendS3:
		s, err := NewS3(ctx, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, nil, err
		}

		return s, noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}

func expiresAt(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}

	return now.Add(ttl)
}

func expired(now, exp time.Time) bool {
	return !exp.IsZero() && now.After(exp)
}
