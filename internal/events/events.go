package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TopicCatalogEvents carries every catalog mutation event.
const TopicCatalogEvents = "catalog.events"

// Event types on the catalog topic.
const (
	CatalogProductCreated  = "catalog.product.created"
	CatalogCouponCreated   = "catalog.coupon.created"
	CatalogDiscountApplied = "catalog.discount.applied"
	CatalogDiscountRemoved = "catalog.discount.removed"
)

// ProductCreatedEvent is published after a product is persisted.
type ProductCreatedEvent struct {
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// CouponCreatedEvent is published after a coupon is persisted. System-generated
// single-use coupons are flagged so consumers can skip them.
type CouponCreatedEvent struct {
	CouponID   uuid.UUID       `json:"coupon_id"`
	Code       string          `json:"code"`
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	System     bool            `json:"system"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// DiscountAppliedEvent is published after an application row is committed.
type DiscountAppliedEvent struct {
	ProductID  uuid.UUID       `json:"product_id"`
	CouponID   uuid.UUID       `json:"coupon_id"`
	CouponCode string          `json:"coupon_code"`
	FinalPrice decimal.Decimal `json:"final_price"`
	AppliedAt  time.Time       `json:"applied_at"`
}

// DiscountRemovedEvent is published after an active application is stamped
// with removed_at.
type DiscountRemovedEvent struct {
	ProductID uuid.UUID `json:"product_id"`
	CouponID  uuid.UUID `json:"coupon_id"`
	RemovedAt time.Time `json:"removed_at"`
}
