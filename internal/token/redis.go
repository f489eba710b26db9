package token

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const reservationPrefix = "invoicevault:token:"

// RedisReserver reserves tokens with SET NX so the claim is atomic across instances.
type RedisReserver struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReserver returns a reserver whose claims expire after ttl.
func NewRedisReserver(client *redis.Client, ttl time.Duration) *RedisReserver {
	return &RedisReserver{client: client, ttl: ttl}
}

// Reserve returns false when another submission already holds token.
func (r *RedisReserver) Reserve(ctx context.Context, token string) (bool, error) {
	return r.client.SetNX(ctx, reservationPrefix+token, 1, r.ttl).Result()
}

// Release drops a reservation once the record is committed or abandoned.
func (r *RedisReserver) Release(ctx context.Context, token string) error {
	return r.client.Del(ctx, reservationPrefix+token).Err()
}
