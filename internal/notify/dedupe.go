package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper guards against notifying the same recipient twice about the same
// restock. Claim returns false when the key was already claimed; Release
// drops a claim whose message was not delivered.
type Deduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// NoopDeduper lets every message through.
type NoopDeduper struct{}

func (NoopDeduper) Claim(context.Context, string) (bool, error) { return true, nil }
func (NoopDeduper) Release(context.Context, string) error { return nil }

// DedupeKey identifies one notification about one restock.
func DedupeKey(channel, recipient, target, checkID string) string {
	return strings.Join([]string{channel, strings.ToLower(recipient), target, checkID}, ":")
}

// RedisDeduper claims keys with SETNX so that overlapping runs inside the
// detection window send each notification once.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisDeduper(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisDeduper, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", addr, err)
	}
	return &RedisDeduper{client: client, ttl: ttl, prefix: "matcha-stock:notified:"}, nil
}

func (d *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, d.prefix+key, time.Now().Unix(), d.ttl).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	return d.client.Del(ctx, d.prefix+key).Err()
}

func (d *RedisDeduper) Close() error {
	return d.client.Close()
}
