// internal/service/order/domain/port/policy.go
package port

import "context"

// PurchasePolicy 在抢锁之前评估一次下单请求是否被运营规则放行。
// 拒绝发生在任何副作用之前，因此天然是安全的。
type PurchasePolicy interface {
	// Allow 返回 nil 表示放行；返回错误表示该请求被规则拒绝。
	Allow(ctx context.Context, userID string, productIDs []string) error
}
