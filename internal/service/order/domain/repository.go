// internal/service/order/domain/repository.go
package domain

import "context"

// InventoryLedger 定义了临界区内执行的原子下单操作。
// 它位于领域层，由基础设施层以单个本地事务实现：
// 校验并扣减所有请求商品的库存，然后和订单、订单行一起持久化，
// 任何一步失败都不会留下部分写入。
type InventoryLedger interface {
	// PlaceOrder 为 userID 创建一张订单，productIDs 中每个 ID 购买一件。
	// 重复的 ID 不做去重，每次出现都会扣减一件库存。
	PlaceOrder(ctx context.Context, userID string, productIDs []string) (*Order, error)
}

// OrderRepository 定义了订单聚合的查询接口。
type OrderRepository interface {
	// FindByID 根据 ID 查找一个订单聚合（含订单行）。
	FindByID(ctx context.Context, id string) (*Order, error)
}

// StockRepository 定义了库存条目的管理接口（运营/测试用）。
type StockRepository interface {
	// Save 创建或覆盖一个库存条目。
	Save(ctx context.Context, item *StockItem) error

	// FindByProductID 根据商品 ID 查找库存条目。
	FindByProductID(ctx context.Context, productID string) (*StockItem, error)
}
