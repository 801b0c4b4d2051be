// internal/service/order/domain/port/notification.go
package port

import (
	"context"

	"bazaar/internal/service/order/domain"
)

// OrderPlacedProducer 把下单成功事件发布给下游消费者。
// 只在本地事务提交之后调用；发布失败不回滚订单。
type OrderPlacedProducer interface {
	Publish(ctx context.Context, event *domain.OrderPlaced) error
}
