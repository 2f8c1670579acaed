package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a crashed holder can keep a key.
const DefaultTTL = 5 * time.Minute

// retryInterval is the polling period while a key is held elsewhere.
const retryInterval = 100 * time.Millisecond

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript pushes the expiry forward only while the key holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisClient is the subset of go-redis used by Redis.
// *redis.Client, *redis.Ring and *redis.ClusterClient satisfy it.
type RedisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// Redis is a Locker backed by SET NX PX with a per-acquisition token.
// While a key is held its expiry is extended every ttl/3, so a run may
// outlast the ttl; the ttl only bounds how long a crashed holder blocks.
type Redis struct {
	client RedisClient
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

var _ Locker = (*Redis)(nil)

// NewRedis creates a Redis locker. A non-positive ttl uses DefaultTTL.
func NewRedis(client RedisClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		prefix: "badgify:lock:",
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for lock diagnostics.
func (r *Redis) WithLogger(l *slog.Logger) *Redis {
	r.logger = l
	return r
}

// Connect parses a redis:// URL, creates a client and pings it.
func Connect(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Debug("redis lock backend connected", "addr", opts.Addr, "db", opts.DB)
	return client, nil
}

// Acquire implements Locker. It polls until the key is free or ctx is done.
func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	fullKey := r.prefix + key
	token := uuid.Must(uuid.NewV7()).String()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		ok, err := r.client.SetNX(ctx, fullKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go r.keepAlive(fullKey, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			r.release(fullKey, token)
		})
	}, nil
}

// keepAlive extends the key until stop closes or the token is gone.
func (r *Redis) keepAlive(fullKey, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := r.ttl / 3
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := extendScript.Run(ctx, r.client, []string{fullKey}, token, r.ttl.Milliseconds()).Int64()
		cancel()
		if err != nil {
			r.logger.Warn("failed to extend lock", "key", fullKey, "error", err)
			continue
		}
		if n == 0 {
			r.logger.Warn("lock lost while held", "key", fullKey, "ttl", r.ttl)
			return
		}
	}
}

// release runs on a fresh context so a cancelled run still frees the key.
func (r *Redis) release(fullKey, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	n, err := releaseScript.Run(ctx, r.client, []string{fullKey}, token).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Warn("failed to release lock", "key", fullKey, "error", err)
		return
	}
	if n == 0 {
		r.logger.Warn("lock expired before release", "key", fullKey, "ttl", r.ttl)
	}
}
