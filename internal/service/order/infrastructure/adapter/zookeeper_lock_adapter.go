// internal/service/order/infrastructure/adapter/zookeeper_lock_adapter.go
package adapter

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/zookeeper"
)

// ZookeeperLockAdapter 是 port.DistributedLocker 的 ZooKeeper 实现。
// 由配置选择启用，与 Redis 实现遵守同一契约：
// 令牌随调用方流动，适配器不按键记录持有状态。
type ZookeeperLockAdapter struct {
	lock *zookeeper.TryLock
}

func NewZookeeperLockAdapter(conn *zookeeper.Conn) (*ZookeeperLockAdapter, error) {
	lock, err := zookeeper.NewTryLock(conn)
	if err != nil {
		return nil, err
	}
	return &ZookeeperLockAdapter{lock: lock}, nil
}

// Acquire 做单次非阻塞抢锁，成功时返回本次持有的令牌。
// ttl 在这里没有直接对应物：临时节点随会话过期，兜底语义一致。
func (a *ZookeeperLockAdapter) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool) {
	token := uuid.New().String()
	ok, err := a.lock.TryAcquire(key, token)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("lock_key", key).Msg("lock acquire attempt failed, treating as contention")
		return "", false
	}
	if !ok {
		return "", false
	}
	return token, true
}

// Release 只在节点仍记录着传回的令牌时删除它。
func (a *ZookeeperLockAdapter) Release(ctx context.Context, key string, token string) {
	if token == "" {
		return
	}
	if err := a.lock.ReleaseIfOwner(key, token); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("lock_key", key).Msg("failed to release lock, relying on session expiry")
	}
}
