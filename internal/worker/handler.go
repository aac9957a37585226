// Package worker runs the order pipeline for orders delivered over Kafka.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/joao-fontenele/wooacry-bridge/internal/apperr"
	"github.com/joao-fontenele/wooacry-bridge/internal/domain"
	"github.com/joao-fontenele/wooacry-bridge/internal/messaging"
	"github.com/joao-fontenele/wooacry-bridge/internal/pipeline"
)

type OrderProcessor interface {
	Process(ctx context.Context, order domain.InboundOrder) (pipeline.Result, error)
}

type OrderHandler struct {
	processor OrderProcessor
	logger    *slog.Logger
}

func NewOrderHandler(processor OrderProcessor, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		processor: processor,
		logger:    logger,
	}
}

// Handle returns nil for every terminal outcome, including orders the partner rejected,
// so the offset is committed and the partition keeps moving. Retryable failures are
// returned and stop the consumer before the commit.
func (h *OrderHandler) Handle(ctx context.Context, msg messaging.Message) error {
	logger := h.logger.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "key", msg.Key, "event_type", msg.EventType)

	var order domain.InboundOrder
	if err := json.Unmarshal(msg.Value, &order); err != nil {
		logger.ErrorContext(ctx, "dropping undecodable order message", "error", err)
		return nil
	}

	logger.InfoContext(ctx, "processing order message", "order_id", order.ID.String())

	res, err := h.processor.Process(ctx, order)
	if err != nil {
		if !apperr.Retryable(err) {
			switch kind := apperr.Kind(err); kind {
			case "no_quotes", "upstream_business":
				logger.ErrorContext(ctx, "order rejected by partner, committing", "error", err, "kind", kind)
			default:
				logger.WarnContext(ctx, "order rejected", "error", err, "kind", kind)
			}
			return nil
		}
		logger.ErrorContext(ctx, "order processing failed, will be redelivered", "error", err, "kind", apperr.Kind(err))
		return err
	}

	logger.InfoContext(ctx, "order processing complete",
		"order_id", res.OrderID,
		"outcome", res.Outcome,
		"wooacry_order_sn", res.OrderSN,
	)
	return nil
}
