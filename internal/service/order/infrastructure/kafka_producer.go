// internal/service/order/infrastructure/kafka_producer.go
package infrastructure

import (
	"context"
	"encoding/json"

	pkgerrors "github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"bazaar/internal/pkg/mq"
	"bazaar/internal/service/order/domain"
)

// OrderPlacedProducerAdapter 把 OrderPlaced 事件写入 Kafka。
// 以订单 ID 为分区键，同一订单的事件落在同一分区。
type OrderPlacedProducerAdapter struct {
	writer *kafka.Writer
}

func NewOrderPlacedProducerAdapter(writer *kafka.Writer) *OrderPlacedProducerAdapter {
	return &OrderPlacedProducerAdapter{writer: writer}
}

func (p *OrderPlacedProducerAdapter) Publish(ctx context.Context, event *domain.OrderPlaced) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return pkgerrors.Wrap(err, "failed to marshal OrderPlaced event")
	}
	if err := mq.ProduceMessage(ctx, p.writer, []byte(event.OrderID), eventBytes); err != nil {
		return pkgerrors.Wrap(err, "failed to produce OrderPlaced message")
	}
	return nil
}
