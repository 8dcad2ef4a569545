package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ChargeLocker serializes charge recomputations across processes with a redis
// mutex. The database row lock is the primary guard; this keeps the HTTP
// server and the worker from even entering conflicting transactions.
type ChargeLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewChargeLocker builds a locker. ttl bounds how long a crashed holder can
// keep the key.
func NewChargeLocker(client *redis.Client, ttl time.Duration) *ChargeLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &ChargeLocker{client: client, ttl: ttl}
}

// Acquire takes the mutex for key or fails with ErrConcurrencyConflict when
// another holder has it. The returned release function only deletes the key
// if this call still owns it.
func (l *ChargeLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("billing: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: charge is being recomputed by another request", ErrConcurrencyConflict)
	}
	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		current, err := l.client.Get(releaseCtx, key).Result()
		if err != nil || current != token {
			return
		}
		_ = l.client.Del(releaseCtx, key).Err()
	}
	return release, nil
}
