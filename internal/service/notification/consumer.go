// internal/service/notification/consumer.go
package notification

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/mq"
	"bazaar/internal/service/order/domain"
)

// Consumer 监听 OrderPlaced 主题并触达下游协作方。
// 缓存失效、热度统计等真正的消费逻辑属于外部系统，
// 这个服务只负责把事件接下来并记录，是一个驱动适配器。
type Consumer struct {
	reader *kafka.Reader
	wg     sync.WaitGroup
	// Stop 和消费循环跑在不同的 goroutine 上，停止标记必须是原子的
	stopped atomic.Bool
}

func NewConsumer(reader *kafka.Reader) *Consumer {
	return &Consumer{reader: reader}
}

// Start 开始监听 Kafka 主题。这是一个长期运行的方法。
func (c *Consumer) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Logger.Info().Str("topic", c.reader.Config().Topic).Msg("✅ order placed consumer started")
		for {
			if c.stopped.Load() {
				return
			}
			// 用 FetchMessage 而不是 ReadMessage，以便自己控制提交时机
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Logger.Info().Msg("order placed consumer shutting down")
					return
				}
				logger.Logger.Error().Err(err).Msg("could not read message, retrying...")
				time.Sleep(1 * time.Second) // 避免快速失败循环
				continue
			}

			c.processMessage(ctx, msg)

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Logger.Error().Err(err).Msg("failed to commit messages")
			}
		}
	}()
}

// Stop 优雅地停止消费者。
func (c *Consumer) Stop() {
	c.stopped.Store(true)
	c.reader.Close()
	c.wg.Wait()
	logger.Logger.Info().Msg("✅ order placed consumer stopped")
}

// processMessage 重建追踪上下文，反序列化事件并处理。
func (c *Consumer) processMessage(parentCtx context.Context, msg kafka.Message) {
	propagator := otel.GetTextMapPropagator()
	headerCarrier := mq.KafkaHeaderCarrier(msg.Headers)
	ctx := propagator.Extract(parentCtx, &headerCarrier)

	tracer := otel.Tracer("notification-service")
	ctx, span := tracer.Start(ctx, "notification.HandleOrderPlaced", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event domain.OrderPlaced
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to unmarshal OrderPlaced event, message skipped")
		return
	}

	span.SetAttributes(
		attribute.String("order.id", event.OrderID),
		attribute.Int("order.product_count", len(event.ProductIDs)),
	)

	logger.Ctx(ctx).Info().
		Str("order_id", event.OrderID).
		Str("user_id", event.UserID).
		Strs("product_ids", event.ProductIDs).
		Int64("total_price", event.TotalPrice).
		Msg("order placed event received")
}
