package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/MACHINE-IT/qbuydot-backend/internal/domain/cart"
)

const keyPrefix = "cart:"

var _ CartCache = (*RedisCache)(nil)

// RedisCache is a CartCache on Redis. Calls go through a circuit breaker so
// an unavailable Redis fails fast instead of adding latency to every read.
type RedisCache struct {
	client  redis.UniversalClient
	baseTTL time.Duration
	cb      *gobreaker.CircuitBreaker[[]byte]
}

// NewRedisCache returns a RedisCache whose entries live for ttl plus up to a
// fifth of ttl of random jitter.
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "cart-cache",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
	})
	return &RedisCache{client: client, baseTTL: ttl, cb: cb}
}

func (r *RedisCache) Get(ctx context.Context, email string) (*cart.Cart, error) {
	data, err := r.cb.Execute(func() ([]byte, error) {
		data, err := r.client.Get(ctx, cacheKey(email)).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return data, err
	})
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, ErrCacheMiss
		}
		return nil, errors.Wrap(err, "redis get")
	}

	var c cart.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "unmarshal cart")
	}
	return &c, nil
}

func (r *RedisCache) Set(ctx context.Context, c *cart.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal cart")
	}

	ttl := r.baseTTL
	if jitter := r.baseTTL / 5; jitter > 0 {
		ttl += rand.N(jitter)
	}
	_, err = r.cb.Execute(func() ([]byte, error) {
		return nil, r.client.Set(ctx, cacheKey(c.Email), data, ttl).Err()
	})
	if err != nil {
		return errors.Wrap(err, "redis set")
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, email string) error {
	_, err := r.cb.Execute(func() ([]byte, error) {
		return nil, r.client.Del(ctx, cacheKey(email)).Err()
	})
	if err != nil {
		return errors.Wrap(err, "redis delete")
	}
	return nil
}

// State reports the circuit breaker state for health reporting.
func (r *RedisCache) State() gobreaker.State {
	return r.cb.State()
}

func cacheKey(email string) string {
	return fmt.Sprintf("%s%s", keyPrefix, email)
}
