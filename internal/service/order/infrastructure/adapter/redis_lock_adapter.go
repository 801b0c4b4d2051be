// internal/service/order/infrastructure/adapter/redis_lock_adapter.go
package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/redis"
)

const releaseLockScriptName = "release_order_lock"

// RedisLockAdapter 是 port.DistributedLocker 的 Redis 实现。
// 抢锁是一条 SET NX PX：键不存在才写入，并带自动过期。
// 写入的值是本次持有者的随机令牌，释放时由 Lua 脚本比对令牌后删除。
// 适配器自身不记录任何持有状态：令牌交给调用方保管，
// 释放时原样传回，过期的旧持有者因此删不掉后继者的锁，
// 哪怕两个持有者在同一个进程里。
type RedisLockAdapter struct {
	redisClient *redis.Client
}

// NewRedisLockAdapter 创建适配器并注册释放脚本。
func NewRedisLockAdapter(redisClient *redis.Client) (*RedisLockAdapter, error) {
	if err := redisClient.LoadScriptFromContent(releaseLockScriptName, releaseLockScript); err != nil {
		return nil, err
	}
	return &RedisLockAdapter{redisClient: redisClient}, nil
}

// Acquire 做单次非阻塞抢锁，成功时返回本次持有的令牌。
// Redis 不可达时按普通竞争失败处理返回 ("", false)，
// 由上层的重试预算决定最终超时，而不是在这里崩溃。
func (a *RedisLockAdapter) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool) {
	token := uuid.New().String()
	ok, err := a.redisClient.GetClient().SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("lock_key", key).Msg("lock acquire attempt failed, treating as contention")
		return "", false
	}
	if !ok {
		return "", false
	}
	return token, true
}

// Release 用抢锁时拿到的令牌做比较删除。
// 令牌不再匹配说明锁已过期易主，脚本会原样保留后继者的锁。
func (a *RedisLockAdapter) Release(ctx context.Context, key string, token string) {
	if token == "" {
		return
	}
	if _, err := a.redisClient.RunScript(ctx, releaseLockScriptName, []string{key}, token); err != nil {
		// 释放失败最坏情况是等 TTL 自然过期
		logger.Ctx(ctx).Warn().Err(err).Str("lock_key", key).Msg("failed to release lock, relying on TTL expiry")
	}
}

var releaseLockScript = `
-- KEYS[1]: 锁的键
-- ARGV[1]: 本持有者在抢锁时写入的随机令牌

-- 只有令牌仍然匹配才删除，避免删掉后继持有者的锁
if redis.call('get', KEYS[1]) == ARGV[1] then
    return redis.call('del', KEYS[1])
else
    return 0
end
`
