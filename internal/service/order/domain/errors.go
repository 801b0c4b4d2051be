// internal/service/order/domain/errors.go
package domain

import "errors"

// 领域错误分类。调用方依赖 errors.Is 区分
// "稍后重试" (ErrLockTimeout) 和 "已售罄，不要重试" (ErrInsufficientStock)。
var (
	// ErrLockTimeout 表示在等待预算内没有抢到下单锁。
	// 此时还没有发生任何副作用，调用方可以安全重试。
	ErrLockTimeout = errors.New("timed out waiting for order placement lock")

	// ErrInsufficientStock 表示请求中至少有一件商品库存不足。
	// 扣减是整单原子的：任何一件不足，整个事务回滚。
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrProductNotFound 表示请求引用了目录中不存在的商品。
	ErrProductNotFound = errors.New("product not found")

	// ErrEmptyOrder 表示请求缺少买家或商品列表为空。
	ErrEmptyOrder = errors.New("order requires a buyer and at least one product")

	// ErrOrderNotFound 表示按 ID 查询不到订单。
	ErrOrderNotFound = errors.New("order not found")
)
