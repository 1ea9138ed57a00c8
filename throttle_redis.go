package auth

import (
	"context"
	"strconv"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// DefaultThrottleKeyPrefix namespaces failed login counters in redis
const DefaultThrottleKeyPrefix = "auth:login:failures:"

// the hash keeps the failure count and the window start in milliseconds.
// Every failure pushes the TTL out by the window, a failure past the window
// start restarts the count.
var recordFailureScript = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_ms = tonumber(ARGV[2])

	local start = tonumber(redis.call('HGET', key, 'start'))
	if start == nil or now - start >= window_ms then
		redis.call('HSET', key, 'count', 0, 'start', ARGV[1])
		start = now
	end

	local count = redis.call('HINCRBY', key, 'count', 1)
	redis.call('PEXPIRE', key, window_ms)
	return {count, start}
`)

// RedisThrottle keeps failed login counters in redis so every instance
// sees the same counts.
type RedisThrottle struct {
	client redis.UniversalClient
	prefix string
	opts   throttleOptions
}

var _ LoginThrottle = (*RedisThrottle)(nil)

// NewRedisThrottle creates a redis backed throttle. The client is owned by
// the caller.
func NewRedisThrottle(client redis.UniversalClient, prefix string, opts ...ThrottleOption) *RedisThrottle {
	if prefix == "" {
		prefix = DefaultThrottleKeyPrefix
	}
	return &RedisThrottle{
		client: client,
		prefix: prefix,
		opts:   newThrottleOptions(opts),
	}
}

// RecordFailure counts a failed login for email and returns
// ErrTooManyAttempts once the count goes over the limit inside the window.
func (r *RedisThrottle) RecordFailure(ctx context.Context, email string) error {
	now := r.opts.now()

	result, err := recordFailureScript.Run(ctx, r.client, []string{r.key(email)},
		now.UnixMilli(),
		r.opts.window.Milliseconds(),
	).Slice()
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to record login failure")
	}

	if len(result) < 2 {
		return errors.New("unexpected throttle script result length: "+strconv.Itoa(len(result)), errors.CategoryInternal)
	}

	count, ok := result[0].(int64)
	if !ok {
		return errors.New("unexpected throttle count type", errors.CategoryInternal)
	}
	if _, ok := result[1].(int64); !ok {
		return errors.New("unexpected throttle window type", errors.CategoryInternal)
	}

	if int(count) > r.opts.maxFailures {
		r.opts.logger.Warn("login throttled", "email", throttleKey(email), "failures", count)
		return ErrTooManyAttempts
	}

	return nil
}

// Reset clears the counter for email
func (r *RedisThrottle) Reset(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, r.key(email)).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to reset login failures")
	}
	return nil
}

func (r *RedisThrottle) key(email string) string {
	return r.prefix + throttleKey(email)
}
