package document

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

type redisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisCache stores documents in redis under "<prefix>:<key>". A zero ttl
// keeps entries until they are evicted.
func NewRedisCache(client redis.UniversalClient, prefix string, ttl time.Duration) Cache {
	return &redisCache{client: client, prefix: prefix, ttl: ttl}
}

// NewRedisUniversalClient parses a redis:// URL into a client.
func NewRedisUniversalClient(redisAddr string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(redisAddr)
	if err != nil {
		return nil, errors.Wrap(err, "can't parse redis url")
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{opts.Addr},
		DB:       opts.DB,
		Username: opts.Username,
		Password: opts.Password,
	}), nil
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	body, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrapf(err, "redis get %s", key)
	}
	return body, nil
}

func (r *redisCache) Put(ctx context.Context, key string, body []byte) error {
	return errors.Wrapf(r.client.Set(ctx, r.key(key), body, r.ttl).Err(), "redis set %s", key)
}

func (r *redisCache) key(key string) string {
	return r.prefix + ":" + key
}
