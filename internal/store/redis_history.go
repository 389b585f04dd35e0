package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	valueReserved   = "reserved"
	valueDispatched = "dispatched"
)

// releaseScript deletes a key only while it still holds a reservation.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisHistory shares alert history between watcher instances. Reservations
// expire after reservationTTL so a crashed instance cannot block a key
// forever.
type RedisHistory struct {
	client         redis.UniversalClient
	prefix         string
	reservationTTL time.Duration
}

// NewRedisHistory creates a history on client. Keys are namespaced by prefix.
func NewRedisHistory(client redis.UniversalClient, prefix string, reservationTTL time.Duration) *RedisHistory {
	if reservationTTL <= 0 {
		reservationTTL = 5 * time.Minute
	}

	return &RedisHistory{client: client, prefix: prefix, reservationTTL: reservationTTL}
}

// DialRedisHistory connects to addr and pings it before returning.
func DialRedisHistory(ctx context.Context, addr, password string, db int, prefix string, reservationTTL time.Duration) (*RedisHistory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("%w: ping redis %s: %w", ErrStore, addr, err)
	}

	return NewRedisHistory(client, prefix, reservationTTL), nil
}

// Close closes the underlying client.
func (h *RedisHistory) Close() error {
	return h.client.Close()
}

func (h *RedisHistory) keyFor(key string) string {
	return h.prefix + "alert:" + key
}

func (h *RedisHistory) setKey() string {
	return h.prefix + "history"
}

// Has reports whether key was recorded.
func (h *RedisHistory) Has(ctx context.Context, key string) (bool, error) {
	v, err := h.client.Get(ctx, h.keyFor(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("%w: get %s: %w", ErrStore, key, err)
	}

	return v == valueDispatched, nil
}

// Reserve claims key with SET NX.
func (h *RedisHistory) Reserve(ctx context.Context, key string) (bool, error) {
	ok, err := h.client.SetNX(ctx, h.keyFor(key), valueReserved, h.reservationTTL).Result()
	if err != nil {
		return false, fmt.Errorf("%w: reserve %s: %w", ErrStore, key, err)
	}

	return ok, nil
}

// Record marks key as dispatched without expiry.
func (h *RedisHistory) Record(ctx context.Context, key string) error {
	_, err := h.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, h.keyFor(key), valueDispatched, 0)
		pipe.SAdd(ctx, h.setKey(), key)

		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: record %s: %w", ErrStore, key, err)
	}

	return nil
}

// Release drops a reservation that was not recorded.
func (h *RedisHistory) Release(ctx context.Context, key string) error {
	if err := releaseScript.Run(ctx, h.client, []string{h.keyFor(key)}, valueReserved).Err(); err != nil {
		return fmt.Errorf("%w: release %s: %w", ErrStore, key, err)
	}

	return nil
}

// Size returns the number of recorded keys.
func (h *RedisHistory) Size(ctx context.Context) (int, error) {
	n, err := h.client.SCard(ctx, h.setKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: size: %w", ErrStore, err)
	}

	return int(n), nil
}
