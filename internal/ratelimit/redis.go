package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrScript bumps the counter and starts the window on the first hit.
// It returns the count and the remaining window in milliseconds.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {n, ttl}
`)

// RedisCounter shares counters across instances through redis.
type RedisCounter struct {
	Client *redis.Client
	Prefix string
}

func NewRedisCounter(opt *redis.Options) *RedisCounter {
	return &RedisCounter{Client: redis.NewClient(opt), Prefix: "ratelimit:"}
}

func (c *RedisCounter) Increment(ctx context.Context, key string, window time.Duration, now time.Time) (int64, time.Time, error) {
	res, err := incrScript.Run(ctx, c.Client, []string{c.Prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(res) != 2 {
		return 0, time.Time{}, fmt.Errorf("unexpected rate limit script reply: %v", res)
	}
	return res[0], now.Add(time.Duration(res[1]) * time.Millisecond), nil
}

func (c *RedisCounter) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
