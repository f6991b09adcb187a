// Package settings provides the read-only key/value lookups injected into the
// order factory.
package settings

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"
)

// Store looks up a setting. A missing key reports false without an error.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
}

// Static is an in-memory Store.
type Static map[string]string

// Get implements Store.
func (s Static) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s[key]
	return v, ok, nil
}

// cmdable is the part of the go-redis client used by Redis.
type cmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Redis is a Store backed by Redis string keys named "<namespace>:<key>".
type Redis struct {
	client    cmdable
	namespace string
}

// NewRedis creates a Redis store. client is usually a *redis.Client.
func NewRedis(client cmdable, namespace string) *Redis {
	return &Redis{client: client, namespace: namespace}
}

// Key returns the Redis key of a setting.
func (r *Redis) Key(key string) string {
	if r.namespace == "" {
		return key
	}
	return r.namespace + ":" + key
}

// Get implements Store.
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.Key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get setting %s", key)
	}
	return v, true, nil
}

// Set stores a setting without expiry.
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.Key(key), value, 0).Err(); err != nil {
		return errors.Wrapf(err, "set setting %s", key)
	}
	return nil
}

// Ping checks the connection.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// WithDefaults returns a Store that falls back to defaults for keys missing
// from s. Errors from s are returned as is.
func WithDefaults(s Store, defaults Static) Store {
	return fallback{primary: s, defaults: defaults}
}

type fallback struct {
	primary  Store
	defaults Static
}

func (f fallback) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := f.primary.Get(ctx, key)
	if err != nil || ok {
		return v, ok, err
	}
	return f.defaults.Get(ctx, key)
}
