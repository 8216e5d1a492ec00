package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint passed to SCAN during pattern deletes.
const scanBatch = 500

// RedisBackend implements Backend on a go-redis client.
type RedisBackend struct {
	client *redis.Client

	mu          sync.Mutex
	onReconnect func()
}

// NewRedisBackend builds a backend from a redis:// URL. The client dials
// lazily; Service.Connect performs the first ping.
func NewRedisBackend(url string) (*RedisBackend, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	b := &RedisBackend{}
	// OnConnect runs for every new pool connection. The first one after
	// the service has degraded is the reconnect event.
	opts.OnConnect = func(context.Context, *redis.Conn) error {
		b.mu.Lock()
		fn := b.onReconnect
		b.mu.Unlock()
		if fn != nil {
			fn()
		}
		return nil
	}
	b.client = redis.NewClient(opts)
	return b, nil
}

// SetReconnectHandler implements ReconnectNotifier.
func (b *RedisBackend) SetReconnectHandler(fn func()) {
	b.mu.Lock()
	b.onReconnect = fn
	b.mu.Unlock()
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	return data, err
}

func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *RedisBackend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return b.client.Del(ctx, keys...).Err()
}

// DeletePattern walks the keyspace with SCAN rather than KEYS so a large
// cache does not block the server.
func (b *RedisBackend) DeletePattern(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := b.client.Scan(ctx, cursor, pattern, scanBatch).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := b.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += int(n)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}
