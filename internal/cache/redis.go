package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis is a Store backed by a shared redis instance. Keys are namespaced by
// prefix and expire through redis TTLs, so expiry stays absolute from insertion.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	hits, misses, sets atomic.Int64
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		r.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	r.hits.Add(1)
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, val []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, val, r.ttl).Err(); err != nil {
		return err
	}
	r.sets.Add(1)
	return nil
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.prefix + k
	}
	return r.client.Del(ctx, full...).Err()
}

// Clear removes every key under the prefix.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 500).Iterator()
	batch := make([]string, 0, 500)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

// Stats reports process-local counters; size is not tracked for a shared instance.
func (r *Redis) Stats() Stats {
	return Stats{
		Backend: "redis",
		Hits:    r.hits.Load(),
		Misses:  r.misses.Load(),
		Sets:    r.sets.Load(),
		TTL:     r.ttl,
	}
}
