package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"event-ticket-ledger/internal/clock"

	"github.com/redis/go-redis/v9"
)

// Decision 一次限流判斷的結果
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

type RateLimiter interface {
	// 取用：從 key 對應的桶取一個 token (使用Lua腳本確保原子性)
	Allow(ctx context.Context, key string) (Decision, error)
}

type TokenBucketConfig struct {
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

type RedisTokenBucket struct {
	client *redis.Client
	cfg    TokenBucketConfig
	clock  clock.Clock
}

func NewRedisTokenBucket(client *redis.Client, cfg TokenBucketConfig, clk clock.Clock) *RedisTokenBucket {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 60
	}
	if cfg.RefillTokens <= 0 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Duration(cfg.Capacity/cfg.RefillTokens+1) * cfg.RefillInterval
		if cfg.TTL < time.Minute {
			cfg.TTL = time.Minute
		}
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "rl"
	}
	return &RedisTokenBucket{client: client, cfg: cfg, clock: clk}
}

func (b *RedisTokenBucket) key(key string) string {
	return fmt.Sprintf("%s:%s", b.cfg.Prefix, key)
}

/*
*

	取用 token (使用Lua腳本確保原子性)
	1. 讀取桶狀態，不存在時視為滿桶
	2. 依經過的整數個間隔補充 token
	3. 有 token 則扣一，否則回傳距下次補充的毫秒數
*/
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local refill_tokens = tonumber(ARGV[3])
	local interval_ms = tonumber(ARGV[4])
	local ttl_seconds = tonumber(ARGV[5])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	local elapsed = math.max(0, now_ms - last_refill)
	local intervals = math.floor(elapsed / interval_ms)
	if intervals > 0 then
		tokens = math.min(capacity, tokens + (intervals * refill_tokens))
		last_refill = last_refill + (intervals * interval_ms)
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

func (b *RedisTokenBucket) Allow(ctx context.Context, key string) (Decision, error) {
	args := []interface{}{
		b.clock.Now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL / time.Second),
	}

	vals, err := tokenBucketScript.Run(ctx, b.client, []string{b.key(key)}, args...).Slice()
	if err != nil {
		return Decision{}, err
	}
	if len(vals) != 3 {
		return Decision{}, fmt.Errorf("unexpected script result: %v", vals)
	}

	return Decision{
		Allowed:    asInt64(vals[0]) == 1,
		Remaining:  asInt64(vals[1]),
		RetryAfter: time.Duration(asInt64(vals[2])) * time.Millisecond,
	}, nil
}

func (b *RedisTokenBucket) Capacity() int {
	return b.cfg.Capacity
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

var _ RateLimiter = (*RedisTokenBucket)(nil)
