// internal/service/order/infrastructure/gorm_model.go
package infrastructure

import "time"

// OrderModel 是订单表的数据库模型。
// correlation_id 上的唯一索引保证对账标识全局唯一。
type OrderModel struct {
	ID            string    `gorm:"primaryKey;size:36"`
	UserID        string    `gorm:"size:64;index;not null"`
	CorrelationID string    `gorm:"size:36;uniqueIndex;not null"`
	TotalPrice    int64     `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`

	Lines []OrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

func (OrderModel) TableName() string { return "orders" }

// OrderLineModel 是订单行表的数据库模型，每行固定一件。
type OrderLineModel struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	OrderID   string `gorm:"size:36;index;not null"`
	ProductID string `gorm:"size:64;not null"`
	Price     int64  `gorm:"not null"` // 下单时刻的价格快照
}

func (OrderLineModel) TableName() string { return "order_lines" }

// StockItemModel 是库存表的数据库模型。
// stock_quantity 为 NULL 表示无限库存哨兵。
type StockItemModel struct {
	ProductID     string `gorm:"primaryKey;size:64"`
	Price         int64  `gorm:"not null"`
	StockQuantity *int64
}

func (StockItemModel) TableName() string { return "stock_items" }
