// Package redis wires the redis client and the logout token denylist.
// The app degrades gracefully without redis: sessions simply cannot be
// revoked before they expire.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"crm-backend/internal/logging"
)

// NewClient connects to redis, returning nil when it is unreachable.
func NewClient(addr string, log logging.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		log.Warn(context.Background(), "redis not available, running without it", "addr", addr, "error", err)
		return nil
	}

	log.Info(context.Background(), "redis connected")
	return client
}

// TokenDenylist records revoked token ids until their natural expiry.
type TokenDenylist struct {
	client *redis.Client
	log    logging.Logger
}

func NewTokenDenylist(client *redis.Client, log logging.Logger) *TokenDenylist {
	return &TokenDenylist{client: client, log: log}
}

func (d *TokenDenylist) key(jti string) string {
	return "denylist:" + jti
}

// Revoke marks the token id revoked for ttl.
func (d *TokenDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if d.client == nil {
		d.log.Warn(ctx, "token revocation skipped, redis unavailable", "jti", jti)
		return nil
	}
	return d.client.Set(ctx, d.key(jti), "1", ttl).Err()
}

// IsRevoked reports whether the token id was revoked. A redis failure
// counts as not revoked.
func (d *TokenDenylist) IsRevoked(ctx context.Context, jti string) bool {
	if d.client == nil {
		return false
	}
	exists, err := d.client.Exists(ctx, d.key(jti)).Result()
	if err != nil {
		d.log.Warn(ctx, "denylist lookup failed", "error", err)
		return false
	}
	return exists > 0
}
