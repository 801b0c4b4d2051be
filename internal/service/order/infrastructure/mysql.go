// internal/service/order/infrastructure/mysql.go
package infrastructure

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bazaar/internal/pkg/logger"
)

// NewMysqlDB 建立 MySQL 连接并迁移订单核心的表结构。
func NewMysqlDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&StockItemModel{}, &OrderModel{}, &OrderLineModel{}); err != nil {
		return nil, err
	}

	logger.Logger.Info().Msg("mysql connected and schema migrated")
	return db, nil
}
