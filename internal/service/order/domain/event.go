// internal/service/order/domain/event.go
package domain

import "time"

// OrderPlaced 是订单成功提交（本地事务已提交）之后发布的事件。
// 下游的缓存失效、热度统计等协作方消费它；本核心只负责在提交后发布。
type OrderPlaced struct {
	OrderID       string    `json:"orderId"`
	CorrelationID string    `json:"correlationId"`
	UserID        string    `json:"userId"`
	ProductIDs    []string  `json:"productIds"`
	TotalPrice    int64     `json:"totalPrice"`
	PlacedAt      time.Time `json:"placedAt"`
}
