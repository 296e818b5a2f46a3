package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kitbuilder587/finanalyst/internal/cache"
)

const DefaultPrefix = "finanalyst:"

// Cache - общий кеш для нескольких процессов (server + bot)
type Cache struct {
	client *goredis.Client
	prefix string
}

// Connect принимает redis:// URL или голый host:port
func Connect(ctx context.Context, redisURL string) (*goredis.Client, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("%w: empty redis url", cache.ErrUnavailable)
	}

	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		opt = &goredis.Options{Addr: redisURL}
	}

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return client, nil
}

func New(client *goredis.Client, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: get %s: %v", cache.ErrUnavailable, key, err)
	}
	return raw, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %v", cache.ErrUnavailable, key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %v", cache.ErrUnavailable, key, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

var _ cache.Cache = (*Cache)(nil)
