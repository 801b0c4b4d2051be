// internal/service/order/infrastructure/mapper.go
package infrastructure

import "bazaar/internal/service/order/domain"

// ToOrderModel 把订单聚合转换为数据库模型（含订单行）。
func ToOrderModel(order *domain.Order) *OrderModel {
	lines := make([]OrderLineModel, 0, len(order.Lines))
	for _, l := range order.Lines {
		lines = append(lines, OrderLineModel{
			OrderID:   l.OrderID,
			ProductID: l.ProductID,
			Price:     l.Price,
		})
	}
	return &OrderModel{
		ID:            order.ID,
		UserID:        order.UserID,
		CorrelationID: order.CorrelationID,
		TotalPrice:    order.TotalPrice,
		CreatedAt:     order.CreatedAt,
		Lines:         lines,
	}
}

// ToDomainOrder 把数据库模型转换回订单聚合。
func ToDomainOrder(model *OrderModel) *domain.Order {
	lines := make([]domain.OrderLine, 0, len(model.Lines))
	for _, l := range model.Lines {
		lines = append(lines, domain.OrderLine{
			OrderID:   l.OrderID,
			ProductID: l.ProductID,
			Price:     l.Price,
		})
	}
	return &domain.Order{
		ID:            model.ID,
		UserID:        model.UserID,
		CorrelationID: model.CorrelationID,
		TotalPrice:    model.TotalPrice,
		CreatedAt:     model.CreatedAt,
		Lines:         lines,
	}
}

// ToStockItemModel 把库存条目转换为数据库模型。
func ToStockItemModel(item *domain.StockItem) *StockItemModel {
	return &StockItemModel{
		ProductID:     item.ProductID,
		Price:         item.Price,
		StockQuantity: copyQuantity(item.Quantity),
	}
}

// ToDomainStockItem 把数据库模型转换回库存条目。
func ToDomainStockItem(model *StockItemModel) *domain.StockItem {
	return &domain.StockItem{
		ProductID: model.ProductID,
		Price:     model.Price,
		Quantity:  copyQuantity(model.StockQuantity),
	}
}

// copyQuantity 复制库存数量指针，避免领域对象和模型共享可变状态。
func copyQuantity(q *int64) *int64 {
	if q == nil {
		return nil
	}
	v := *q
	return &v
}
