// internal/service/order/application/service.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/service/order/domain"
	"bazaar/internal/service/order/domain/port"
)

// OrderApplicationService 负责下单流程的编排：
// 推导规范锁键 -> 限时重试抢锁 -> 在临界区内调用库存账本 -> 保证释放锁。
// 它自己不做任何库存或订单的读写，那些属于 InventoryLedger。
type OrderApplicationService struct {
	ledger    domain.InventoryLedger
	orderRepo domain.OrderRepository
	stockRepo domain.StockRepository
	locker    port.DistributedLocker
	policy    port.PurchasePolicy
	notifier  port.OrderPlacedProducer

	lockTTL time.Duration
	retry   RetryPolicy
	tracer  trace.Tracer
}

func NewOrderApplicationService(
	ledger domain.InventoryLedger,
	orderRepo domain.OrderRepository,
	stockRepo domain.StockRepository,
	locker port.DistributedLocker,
	policy port.PurchasePolicy,
	notifier port.OrderPlacedProducer,
	lockTTL time.Duration,
	retry RetryPolicy,
	tracer trace.Tracer,
) *OrderApplicationService {
	return &OrderApplicationService{
		ledger: ledger, orderRepo: orderRepo, stockRepo: stockRepo,
		locker: locker, policy: policy, notifier: notifier,
		lockTTL: lockTTL, retry: retry, tracer: tracer,
	}
}

// PlaceOrder 是下单用例的入口。
// 并发契约：对同一个规范锁键，整个服务集群同一时刻最多只有一个执行
// 处于临界区内；商品集合不相交的请求完全并行，互不影响。
func (s *OrderApplicationService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.PlaceOrder")
	defer span.End()

	if req.UserID == "" || len(req.ProductIDs) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	span.SetAttributes(
		attribute.String("user.id", req.UserID),
		attribute.Int("order.product_count", len(req.ProductIDs)),
	)

	// 1. 规则校验。在抢锁之前完成，拒绝不产生任何副作用。
	if s.policy != nil {
		if err := s.policy.Allow(ctx, req.UserID, req.ProductIDs); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rejected by purchase policy")
			return nil, err
		}
	}

	// 2. 推导规范锁键并在时间预算内抢锁。
	key := LockKeyForProducts(req.ProductIDs)
	span.SetAttributes(attribute.String("lock.key", key))

	token, err := s.acquireLock(ctx, key)
	if err != nil {
		// 到这里还没有发生任何副作用，超时放弃是安全的。
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to acquire placement lock")
		return nil, err
	}
	// 3. 保证释放：无论账本成功还是失败，锁都恰好释放一次。
	// 释放时传回本次抢锁拿到的令牌；若临界区超过 TTL、锁已经易主，
	// 这次释放就是空操作，不会删掉后继持有者的锁。
	defer s.locker.Release(ctx, key, token)

	span.AddEvent("placement lock acquired")

	// 4. 临界区：校验库存、扣减、落订单，单个本地事务完成。
	// 一旦进入临界区就运行到底，不再响应上游取消。
	order, err := s.ledger.PlaceOrder(context.WithoutCancel(ctx), req.UserID, req.ProductIDs)
	if err != nil {
		// 账本错误原样向上传播，事务已整体回滚。
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger rejected placement")
		return nil, err
	}

	// 5. 提交之后发布事件。发布失败只记录，不影响已提交的订单。
	s.publishOrderPlaced(ctx, order, req.ProductIDs)

	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("user_id", order.UserID).
		Int64("total_price", order.TotalPrice).
		Msg("order placed")

	return toPlaceOrderResponse(order), nil
}

// acquireLock 循环调用单次非阻塞的 Acquire，直到成功或预算耗尽。
// 成功时返回本次持有的令牌。失败路径只区分两种结果：
// 上下文取消返回 ctx.Err()，预算耗尽返回 domain.ErrLockTimeout。
func (s *OrderApplicationService) acquireLock(ctx context.Context, key string) (string, error) {
	deadline := time.Now().Add(s.retry.Budget)
	for {
		if token, ok := s.locker.Acquire(ctx, key, s.lockTTL); ok {
			return token, nil
		}
		if !time.Now().Add(s.retry.Interval).Before(deadline) {
			return "", domain.ErrLockTimeout
		}
		if !s.retry.sleep(ctx) {
			return "", ctx.Err()
		}
	}
}

// publishOrderPlaced 发布下单成功事件。
func (s *OrderApplicationService) publishOrderPlaced(ctx context.Context, order *domain.Order, productIDs []string) {
	if s.notifier == nil {
		return
	}
	event := &domain.OrderPlaced{
		OrderID:       order.ID,
		CorrelationID: order.CorrelationID,
		UserID:        order.UserID,
		ProductIDs:    productIDs,
		TotalPrice:    order.TotalPrice,
		PlacedAt:      order.CreatedAt,
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		// 订单已经提交，这里绝不能因为事件发布失败而报错给调用方。
		logger.Ctx(ctx).Error().Err(err).
			Str("order_id", order.ID).
			Msg("failed to publish OrderPlaced event")
	}
}

// GetOrder 按 ID 查询订单。
func (s *OrderApplicationService) GetOrder(ctx context.Context, id string) (*PlaceOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "app.GetOrder")
	defer span.End()

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return toPlaceOrderResponse(order), nil
}

// UpsertStock (运营和测试用) 创建或覆盖一个库存条目。
func (s *OrderApplicationService) UpsertStock(ctx context.Context, req *UpsertStockRequest) error {
	ctx, span := s.tracer.Start(ctx, "app.UpsertStock")
	defer span.End()

	item := &domain.StockItem{
		ProductID: req.ProductID,
		Price:     req.Price,
		Quantity:  req.Quantity,
	}
	if err := s.stockRepo.Save(ctx, item); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to save stock item")
		return err
	}
	return nil
}
