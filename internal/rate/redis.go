package rate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ARGV: now_ms, member, prune_bound, ttl_ms, then (lower_bound, limit) per window.
// Returns {violated_index (1-based, 0 = none), count_1, oldest_1, ...}.
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
redis.call('ZREMRANGEBYSCORE', key, '-inf', ARGV[3])

local n = (#ARGV - 4) / 2
local out = {0}
local violated = 0
for i = 1, n do
  local lower = ARGV[3 + 2 * i]
  local limit = tonumber(ARGV[4 + 2 * i])
  local count = redis.call('ZCOUNT', key, lower, '+inf')
  local oldest = ''
  if count > 0 then
    local first = redis.call('ZRANGEBYSCORE', key, lower, '+inf', 'WITHSCORES', 'LIMIT', 0, 1)
    oldest = first[2]
  end
  if violated == 0 and count >= limit then
    violated = i
  end
  table.insert(out, count)
  table.insert(out, oldest)
end
out[1] = violated

if violated == 0 then
  redis.call('ZADD', key, ARGV[1], ARGV[2])
  redis.call('PEXPIRE', key, ARGV[4])
end
return out
`)

// RedisStore keeps one sorted set per key, scored by hit time in milliseconds.
type RedisStore struct {
	redis redis.UniversalClient
}

// NewRedisStore creates a [RedisStore] on the given client.
func NewRedisStore(redisClient redis.UniversalClient) *RedisStore {
	return &RedisStore{redis: redisClient}
}

// Hit implements [Store].
func (s *RedisStore) Hit(ctx context.Context, key string, now time.Time, windows []Window) (Outcome, error) {
	nowMS := now.UnixMilli()
	longest := maxWindow(windows)

	args := make([]interface{}, 0, 4+2*len(windows))
	args = append(args,
		nowMS,
		uuid.NewString(),
		nowMS-longest.Milliseconds(),
		longest.Milliseconds(),
	)
	for _, w := range windows {
		args = append(args, "("+strconv.FormatInt(nowMS-w.Size.Milliseconds(), 10), w.Limit)
	}

	raw, err := slidingWindowScript.Run(ctx, s.redis, []string{key}, args...).Result()
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return parseScriptReply(raw, len(windows))
}

func parseScriptReply(raw interface{}, windows int) (Outcome, error) {
	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 1+2*windows {
		return Outcome{}, fmt.Errorf("%w: unexpected script reply %T", ErrStoreUnavailable, raw)
	}

	violated, ok := vals[0].(int64)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unexpected violated field %T", ErrStoreUnavailable, vals[0])
	}

	out := Outcome{
		Allowed:  violated == 0,
		Violated: int(violated) - 1,
		Windows:  make([]WindowState, windows),
	}
	for i := 0; i < windows; i++ {
		count, ok := vals[1+2*i].(int64)
		if !ok {
			return Outcome{}, fmt.Errorf("%w: unexpected count field %T", ErrStoreUnavailable, vals[1+2*i])
		}
		st := WindowState{Count: int(count)}
		if s, _ := vals[2+2*i].(string); s != "" {
			score, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return Outcome{}, fmt.Errorf("%w: bad score %q", ErrStoreUnavailable, s)
			}
			st.Oldest = time.UnixMilli(int64(score))
		}
		out.Windows[i] = st
	}
	return out, nil
}
