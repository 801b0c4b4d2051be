// internal/service/order/domain/stock.go
package domain

// StockItem 表示目录中一件可售商品的当前价格与库存。
// 目录本身由外部系统维护，本核心只在下单事务中扣减它的库存。
type StockItem struct {
	ProductID string
	Price     int64  // 当前售价，单位为分
	Quantity  *int64 // nil 表示无限库存哨兵，扣减对其永远是空操作
}

// Unlimited 判断该商品是否为无限库存。
func (s *StockItem) Unlimited() bool {
	return s.Quantity == nil
}

// Decrement 扣减一件库存。
// 无限库存直接返回 nil；有限库存在余量不足时返回 ErrInsufficientStock，
// 保证库存量在任何可观察时刻都不会为负。
func (s *StockItem) Decrement() error {
	if s.Unlimited() {
		return nil
	}
	remaining := *s.Quantity - 1
	if remaining < 0 {
		return ErrInsufficientStock
	}
	*s.Quantity = remaining
	return nil
}
