// internal/service/order/domain/port/locker.go
package port

import (
	"context"
	"time"
)

// DistributedLocker 抽象了跨实例的互斥原语。
// 多个服务进程之间没有共享内存，正确性只能依赖外部协调存储，
// 因此它必须提供原子的 "不存在才写入且带过期" 语义。
type DistributedLocker interface {
	// Acquire 对 key 做单次非阻塞的抢锁尝试。
	// 成功时返回本次持有的随机令牌和 true；锁在 ttl 后自动过期，
	// 作为持有者崩溃时的兜底。
	// 令牌由调用方持有并在释放时原样传回，而不是由实现按键记录：
	// 同一进程里临界区超过 TTL 的旧持有者和它的后继者各拿各的令牌，
	// 旧持有者的延迟释放删不掉后继者的锁。
	// 协调存储不可达时返回 ("", false) 而不是错误，
	// 让调用方把故障当作普通竞争处理（重试直至超时），而不是崩溃。
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool)

	// Release 只在 key 仍由 token 对应的持有者占有时删除锁，
	// 绝不能无条件删除。
	Release(ctx context.Context, key string, token string)
}
