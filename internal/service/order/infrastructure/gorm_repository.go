// internal/service/order/infrastructure/gorm_repository.go
package infrastructure

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bazaar/internal/service/order/domain"
)

// GormOrderRepository 是 domain.OrderRepository 的 GORM 实现。
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID 查找订单聚合，订单行一并预加载。
func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).Preload("Lines").Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to load order %s", id)
	}
	return ToDomainOrder(&model), nil
}

// GormStockRepository 是 domain.StockRepository 的 GORM 实现。
type GormStockRepository struct {
	db *gorm.DB
}

func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// Save 创建或整行覆盖一个库存条目。
func (r *GormStockRepository) Save(ctx context.Context, item *domain.StockItem) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(ToStockItemModel(item)).Error
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to save stock item %s", item.ProductID)
	}
	return nil
}

// FindByProductID 查找一个库存条目。
func (r *GormStockRepository) FindByProductID(ctx context.Context, productID string) (*domain.StockItem, error) {
	var model StockItemModel
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to load stock item %s", productID)
	}
	return ToDomainStockItem(&model), nil
}
