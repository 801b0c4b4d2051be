// internal/service/order/domain/order.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Order 是订单聚合的根实体。
// 在本核心中订单创建后不可变：不存在任何更新操作，
// 后续的支付状态流转属于外部支付子系统。
type Order struct {
	ID            string
	UserID        string
	CorrelationID string // 全局唯一关联标识，供外部支付系统对账使用
	TotalPrice    int64  // 单位为分，等于所有订单行快照价格之和
	CreatedAt     time.Time
	Lines         []OrderLine
}

// OrderLine 是订单行值对象，每行固定购买一件商品。
// Price 是下单扣减时刻的商品价格快照，与之后的目录调价无关。
type OrderLine struct {
	OrderID   string
	ProductID string
	Price     int64
}

// 工厂函数: NewOrder 基于已捕获的行价格快照组装订单聚合。
// 订单总价在这里由各行快照价格精确求和得出，而不是由调用方传入。
func NewOrder(userID string, lines []OrderLine, now time.Time) (*Order, error) {
	if userID == "" || len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	orderID := uuid.New().String()
	var total int64
	for i := range lines {
		lines[i].OrderID = orderID
		total += lines[i].Price
	}

	return &Order{
		ID:            orderID,
		UserID:        userID,
		CorrelationID: uuid.New().String(),
		TotalPrice:    total,
		CreatedAt:     now,
		Lines:         lines,
	}, nil
}
