package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// Redis is a Cache backed by a Redis server. Keys are prefixed so several
// deployments can share one database.
type Redis struct {
	inner  *redis.Client
	prefix string
}

// RedisOptions configures NewRedis.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis connects to the server described by opts and pings it.
func NewRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "cache: ping redis at %s", opts.Addr)
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "modernblog:"
	}
	return &Redis{inner: client, prefix: prefix}, nil
}

func (r *Redis) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	data, err := r.inner.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "cache: redis get")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, errors.Wrap(err, "cache: decode")
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "cache: encode")
	}
	return errors.Wrap(r.inner.Set(ctx, r.prefix+key, data, ttl).Err(), "cache: redis set")
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return errors.Wrap(r.inner.Del(ctx, r.prefix+key).Err(), "cache: redis del")
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.inner.Close()
}
