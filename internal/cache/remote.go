package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by a Remote when the key is absent.
var ErrMiss = errors.New("cache miss")

// Remote is the shared second cache level behind the in-process one.
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RedisRemote stores entries in Redis.
type RedisRemote struct {
	client redis.UniversalClient
}

func NewRedisRemote(client redis.UniversalClient) *RedisRemote {
	return &RedisRemote{client: client}
}

func (r *RedisRemote) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return b, err
}

func (r *RedisRemote) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisRemote) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// MemcacheRemote stores entries in Memcached. The client has no context support, so ctx is ignored.
type MemcacheRemote struct {
	client *memcache.Client
}

func NewMemcacheRemote(addrs ...string) *MemcacheRemote {
	return &MemcacheRemote{client: memcache.New(addrs...)}
}

func (m *MemcacheRemote) Get(_ context.Context, key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (m *MemcacheRemote) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return m.client.Set(&memcache.Item{Key: key, Value: value, Expiration: int32(ttl / time.Second)})
}

func (m *MemcacheRemote) Delete(_ context.Context, key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
