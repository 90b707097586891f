package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/rail-seat-booking/internal/adapters/redis"
)

// LockTTL bounds how long an in-flight request keeps its key reserved.
const LockTTL = 30 * time.Second

type store interface {
	Get(ctx context.Context, key string) (*redisadapter.IdempResponse, error)
	Set(ctx context.Context, key string, resp redisadapter.IdempResponse, ttl time.Duration) error
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// Idempotency replays the stored response of a request that already
// completed under the same key and scope.
type Idempotency struct {
	redis store
	ttl   time.Duration
}

func NewIdempotency(redis store, ttl time.Duration) *Idempotency {
	return &Idempotency{redis: redis, ttl: ttl}
}

type Response struct {
	Status      int
	ContentType string
	Result      []byte
}

func scoped(scope, key string) string {
	return scope + ":" + key
}

func (i *Idempotency) Get(ctx context.Context, scope, key string) (*Response, error) {
	stored, err := i.redis.Get(ctx, scoped(scope, key))
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, ContentType: stored.ContentType, Result: stored.Result}, nil
}

// Begin reserves the key. False means the same request is still running.
func (i *Idempotency) Begin(ctx context.Context, scope, key string) (bool, error) {
	return i.redis.Lock(ctx, scoped(scope, key), LockTTL)
}

// Complete stores resp for replay and releases the reservation.
func (i *Idempotency) Complete(ctx context.Context, scope, key string, resp Response) error {
	err := i.redis.Set(ctx, scoped(scope, key), redisadapter.IdempResponse{
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Result:      resp.Result,
	}, i.ttl)
	if err != nil {
		return err
	}
	return i.redis.Unlock(ctx, scoped(scope, key))
}

// Abort releases the reservation without storing anything so the client can retry.
func (i *Idempotency) Abort(ctx context.Context, scope, key string) error {
	return i.redis.Unlock(ctx, scoped(scope, key))
}
