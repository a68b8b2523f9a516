// Package cache provides the lookup cache that fronts every engine read.
//
// A Store holds encoded value snapshots keyed by string. Entries are never
// mutated in place: a write replaces the whole snapshot, so concurrent readers
// observe either the previous or the next generation of a value.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mlmcommerce/supplychain/internal/obs"
)

// Cache events reported to observers.
const (
	EventHit        = "hit"
	EventMiss       = "miss"
	EventSet        = "set"
	EventEviction   = "eviction"
	EventExpiration = "expiration"
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
	Stats() Stats
}

type Stats struct {
	Backend     string        `json:"backend"`
	Hits        int64         `json:"hits"`
	Misses      int64         `json:"misses"`
	Sets        int64         `json:"sets"`
	Evictions   int64         `json:"evictions"`
	Expirations int64         `json:"expirations"`
	Size        int           `json:"size"`
	Capacity    int           `json:"capacity"`
	TTL         time.Duration `json:"ttl"`
}

// HitRate is hits / (hits + misses), or 0 before any read.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Fetch reads key from s and decodes it into T. On a miss it calls load and,
// when load finds a value, stores it. A nil store always loads.
// Cache failures are logged and fall through to load.
func Fetch[T any](ctx context.Context, s Store, key string, load func(context.Context) (T, bool, error)) (T, bool, error) {
	var zero T
	if s != nil {
		raw, ok, err := s.Get(ctx, key)
		switch {
		case err != nil:
			obs.Warn(ctx, "cache.get_failed", map[string]any{"key": key, "err": err})
		case ok:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, true, nil
			}
			_ = s.Delete(ctx, key)
		}
	}
	v, found, err := load(ctx)
	if err != nil || !found {
		return zero, found, err
	}
	if s != nil {
		if err := Put(ctx, s, key, v); err != nil {
			obs.Warn(ctx, "cache.set_failed", map[string]any{"key": key, "err": err})
		}
	}
	return v, true, nil
}

// Put encodes v and stores it under key.
func Put[T any](ctx context.Context, s Store, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, raw)
}
