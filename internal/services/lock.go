package services

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisGenerationLock implements GenerationLock with SET NX. The TTL is a
// safety net for a crashed holder; the coordinator releases on every exit.
type RedisGenerationLock struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGenerationLock(client *redis.Client, ttl time.Duration) *RedisGenerationLock {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisGenerationLock{client: client, ttl: ttl}
}

func (l *RedisGenerationLock) Acquire(ctx context.Context, key string) (bool, error) {
	return l.client.SetNX(ctx, key, "1", l.ttl).Result()
}

// Release uses a background context so the lock is freed even when the
// caller's request context is already cancelled.
func (l *RedisGenerationLock) Release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := l.client.Del(ctx, key).Err(); err != nil {
		log.Printf("failed to release lock %s: %v", key, err)
	}
}
