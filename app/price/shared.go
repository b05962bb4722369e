package price

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "custody:price:"

// Shared is a cache tier visible to every replica.
type Shared interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

type Redis struct {
	client redis.UniversalClient
}

func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// DialRedis connects to addr and pings it.
func DialRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return NewRedis(client), nil
}

func (r *Redis) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "failed to get %s from redis", key)
	}
	if err = json.Unmarshal(raw, dest); err != nil {
		return false, errors.Wrapf(err, "failed to decode %s from redis", key)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "failed to encode a cache value")
	}
	return errors.Wrapf(r.client.Set(ctx, keyPrefix+key, raw, ttl).Err(), "failed to set %s in redis", key)
}

func (r *Redis) Ping(ctx context.Context) error {
	return errors.Wrap(r.client.Ping(ctx).Err(), "redis ping")
}

func (r *Redis) Close() error {
	return r.client.Close()
}
