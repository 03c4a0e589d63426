package events

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lojinha-labs/service-catalog/internal/pkg/kafka"
)

const eventSource = "service-catalog"

// Publisher emits catalog events. Publishing is best-effort: a broker failure
// is logged and never fails the originating request.
type Publisher struct {
	producer *kafka.Producer
	logger   *zap.Logger
}

// NewPublisher creates a catalog event publisher.
func NewPublisher(producer *kafka.Producer, logger *zap.Logger) *Publisher {
	return &Publisher{producer: producer, logger: logger}
}

func (p *Publisher) publish(ctx context.Context, eventType string, key uuid.UUID, payload any) {
	ce, err := kafka.NewCloudEvent(eventSource, eventType, payload)
	if err != nil {
		p.logger.Error("failed to build event", zap.String("type", eventType), zap.Error(err))
		return
	}
	// Publish errors are already logged by the producer.
	_ = p.producer.Publish(ctx, TopicCatalogEvents, key.String(), ce)
}

// ProductCreated emits a catalog.product.created event keyed by product id.
func (p *Publisher) ProductCreated(ctx context.Context, evt ProductCreatedEvent) {
	p.publish(ctx, CatalogProductCreated, evt.ProductID, evt)
}

// CouponCreated emits a catalog.coupon.created event keyed by coupon id.
func (p *Publisher) CouponCreated(ctx context.Context, evt CouponCreatedEvent) {
	p.publish(ctx, CatalogCouponCreated, evt.CouponID, evt)
}

// DiscountApplied emits a catalog.discount.applied event keyed by product id.
func (p *Publisher) DiscountApplied(ctx context.Context, evt DiscountAppliedEvent) {
	p.publish(ctx, CatalogDiscountApplied, evt.ProductID, evt)
}

// DiscountRemoved emits a catalog.discount.removed event keyed by product id.
func (p *Publisher) DiscountRemoved(ctx context.Context, evt DiscountRemovedEvent) {
	p.publish(ctx, CatalogDiscountRemoved, evt.ProductID, evt)
}
