package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

type sentValue struct {
	GatewayMessageID string    `json:"gatewayMessageId"`
	SentAt           time.Time `json:"sentAt"`
}

func (c *RedisCache) StoreSent(ctx context.Context, id, gatewayMessageID string, sentAt time.Time) error {
	val := sentValue{
		GatewayMessageID: gatewayMessageID,
		SentAt:           sentAt.UTC(),
	}

	b, err := json.Marshal(val)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, "msg:"+id, b, c.ttl).Err()
}
