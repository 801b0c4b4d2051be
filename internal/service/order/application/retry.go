// internal/service/order/application/retry.go
package application

import (
	"context"
	"time"
)

// RetryPolicy 描述抢锁阶段的重试策略：
// 每次失败后固定休眠 Interval，总等待时间不超过 Budget。
// 固定间隔轮询是刻意的简化，前提是临界区短且有界；
// 正确性契约只要求在 Budget 内反复尝试并最终放弃。
type RetryPolicy struct {
	Interval time.Duration // 两次尝试之间的休眠时间
	Budget   time.Duration // 抢锁阶段的总时间预算
}

// DefaultRetryPolicy 返回配置缺省时使用的重试策略。
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Interval: 50 * time.Millisecond,
		Budget:   3 * time.Second,
	}
}

// sleep 等待一个重试间隔，上下文取消时提前返回 false。
func (p RetryPolicy) sleep(ctx context.Context) bool {
	timer := time.NewTimer(p.Interval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
