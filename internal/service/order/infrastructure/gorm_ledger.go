// internal/service/order/infrastructure/gorm_ledger.go
package infrastructure

import (
	"context"
	"errors"
	"time"

	gosqlmysql "github.com/go-sql-driver/mysql"
	pkgerrors "github.com/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bazaar/internal/service/order/domain"
)

const mysqlErrDuplicateEntry = 1062

// GormInventoryLedger 是 domain.InventoryLedger 的 GORM/MySQL 实现。
// 整个下单操作在一个本地事务里完成：逐个商品校验并扣减库存，
// 然后把订单、订单行和更新后的库存行一起提交。
// 调用方保证同一商品集合的请求已被分布式锁串行化。
type GormInventoryLedger struct {
	db     *gorm.DB
	tracer trace.Tracer
}

func NewGormInventoryLedger(db *gorm.DB, tracer trace.Tracer) *GormInventoryLedger {
	return &GormInventoryLedger{db: db, tracer: tracer}
}

// PlaceOrder 实现原子的 校验-扣减-落单。
// 任何一件商品缺货或缺失都会让整个事务回滚，不留部分写入。
func (l *GormInventoryLedger) PlaceOrder(ctx context.Context, userID string, productIDs []string) (*domain.Order, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.PlaceOrder")
	defer span.End()

	var created *domain.Order
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lines := make([]domain.OrderLine, 0, len(productIDs))

		// 1. 逐个商品读取当前库存和价格并扣减。
		// 重复出现的 ID 不去重，每次出现扣一件；
		// 同一事务内的重读能看到自己刚写回的余量。
		for _, productID := range productIDs {
			var model StockItemModel
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("product_id = ?", productID).
				First(&model).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrProductNotFound
			}
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to read stock for product %s", productID)
			}

			item := ToDomainStockItem(&model)
			if err := item.Decrement(); err != nil {
				return err // ErrInsufficientStock，整单回滚
			}

			// 2. 无限库存哨兵不写回，有限库存把余量写回。
			if !item.Unlimited() {
				err := tx.Model(&StockItemModel{}).
					Where("product_id = ?", productID).
					Update("stock_quantity", *item.Quantity).Error
				if err != nil {
					return pkgerrors.Wrapf(err, "failed to decrement stock for product %s", productID)
				}
			}

			lines = append(lines, domain.OrderLine{
				ProductID: productID,
				Price:     model.Price, // 扣减时刻的价格快照
			})
		}

		// 3. 组装订单聚合并与库存变更一起持久化。
		order, err := domain.NewOrder(userID, lines, time.Now())
		if err != nil {
			return err
		}
		if err := tx.Create(ToOrderModel(order)).Error; err != nil {
			var mysqlErr *gosqlmysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry {
				return pkgerrors.Wrap(err, "correlation id collision while persisting order")
			}
			return pkgerrors.Wrap(err, "failed to persist order")
		}

		created = order
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return created, nil
}
