// internal/service/order/application/dto.go
package application

import (
	"time"

	"bazaar/internal/service/order/domain"
)

// PlaceOrderRequest 是接口层传入的下单命令。
// 买家身份和商品 ID 由上游请求层完成校验，这里假定输入已合法。
type PlaceOrderRequest struct {
	UserID     string   `json:"userId"`
	ProductIDs []string `json:"productIds"`
}

// OrderLineView 是订单行的对外表示。
type OrderLineView struct {
	ProductID string `json:"productId"`
	Price     int64  `json:"price"`
}

// PlaceOrderResponse 是下单成功后的对外表示。
type PlaceOrderResponse struct {
	OrderID       string          `json:"orderId"`
	CorrelationID string          `json:"correlationId"`
	CreatedAt     time.Time       `json:"createdAt"`
	TotalPrice    int64           `json:"totalPrice"`
	Lines         []OrderLineView `json:"lines"`
}

// UpsertStockRequest 创建或覆盖一个库存条目。
// Quantity 缺省（null）表示无限库存。
type UpsertStockRequest struct {
	ProductID string `json:"productId"`
	Price     int64  `json:"price"`
	Quantity  *int64 `json:"quantity,omitempty"`
}

// toPlaceOrderResponse 把领域聚合转换为应用层 DTO。
func toPlaceOrderResponse(order *domain.Order) *PlaceOrderResponse {
	lines := make([]OrderLineView, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, OrderLineView{ProductID: l.ProductID, Price: l.Price})
	}
	return &PlaceOrderResponse{
		OrderID:       order.ID,
		CorrelationID: order.CorrelationID,
		CreatedAt:     order.CreatedAt,
		TotalPrice:    order.TotalPrice,
		Lines:         lines,
	}
}
