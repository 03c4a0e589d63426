package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	couponDomain "github.com/lojinha-labs/service-catalog/internal/domain/coupon"
	"github.com/lojinha-labs/service-catalog/internal/domain/errs"
	productDomain "github.com/lojinha-labs/service-catalog/internal/domain/product"
	"github.com/lojinha-labs/service-catalog/internal/events"
)

// ApplyCouponRequest names the coupon to apply to a product.
type ApplyCouponRequest struct {
	Code string `json:"code" binding:"required"`
}

// ApplyPercentRequest carries a direct percent discount.
type ApplyPercentRequest struct {
	Percentage float64 `json:"percentage" binding:"required"`
}

// DiscountService handles applying and removing discounts on products.
type DiscountService struct {
	products productDomain.Repository
	coupons  couponDomain.Repository
	events   EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewDiscountService creates a new DiscountService.
func NewDiscountService(products productDomain.Repository, coupons couponDomain.Repository, events EventPublisher, logger *zap.Logger) *DiscountService {
	return &DiscountService{
		products: products,
		coupons:  coupons,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ApplyCoupon applies a coupon, by code, to a product. The checks run in a
// fixed order so the same bad request always reports the same failure:
// product exists, no active discount, coupon exists, coupon usable, one-shot
// history, price floor. The final insert-and-increment is transactional and
// re-checks the first-writer-wins invariants under concurrency.
func (s *DiscountService) ApplyCoupon(ctx context.Context, productID uuid.UUID, req ApplyCouponRequest) (*ProductDTO, error) {
	wd, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if wd.HasCouponApplied() {
		return nil, errs.NewConflictError("product already has an active discount")
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	c, err := s.coupons.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !c.CanBeUsedAt(now) {
		return nil, errs.NewInvalidStateError("coupon is not valid or has expired")
	}

	if c.OneShot() {
		used, err := s.products.HasApplication(ctx, productID, c.ID())
		if err != nil {
			return nil, err
		}
		if used {
			return nil, errs.NewConflictError("this coupon has already been used for this product")
		}
	}

	finalPrice := couponDomain.FinalPrice(wd.Product.Price(), c.Type(), c.Value())
	if err := couponDomain.ValidateFinalPrice(finalPrice); err != nil {
		return nil, err
	}

	app, err := s.products.ApplyCoupon(ctx, productID, c.ID(), now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("discount applied",
		zap.String("product_id", productID.String()),
		zap.String("coupon_code", c.Code()),
	)
	s.events.DiscountApplied(ctx, events.DiscountAppliedEvent{
		ProductID:  productID,
		CouponID:   c.ID(),
		CouponCode: c.Code(),
		FinalPrice: finalPrice.Round(2),
		AppliedAt:  app.AppliedAt,
	})

	return s.reload(ctx, productID)
}

// ApplyPercent applies a direct percent discount by synthesizing a private
// single-use coupon. The percentage bounds are checked before any lookup so an
// out-of-range value never reports a missing product.
func (s *DiscountService) ApplyPercent(ctx context.Context, productID uuid.UUID, req ApplyPercentRequest) (*ProductDTO, error) {
	percentage := decimal.NewFromFloat(req.Percentage)
	if err := couponDomain.ValidatePercentage(percentage); err != nil {
		return nil, err
	}

	wd, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if wd.HasCouponApplied() {
		return nil, errs.NewConflictError("product already has an active discount")
	}

	finalPrice := couponDomain.FinalPrice(wd.Product.Price(), couponDomain.TypePercent, percentage)
	if err := couponDomain.ValidateFinalPrice(finalPrice); err != nil {
		return nil, err
	}

	now := s.now()
	c, err := couponDomain.NewSingleUsePercent(percentage, now)
	if err != nil {
		return nil, err
	}

	app, err := s.products.ApplySystemCoupon(ctx, productID, c, now)
	if err != nil {
		return nil, err
	}

	s.logger.Info("percent discount applied",
		zap.String("product_id", productID.String()),
		zap.String("coupon_code", c.Code()),
	)
	s.events.CouponCreated(ctx, events.CouponCreatedEvent{
		CouponID:   c.ID(),
		Code:       c.Code(),
		Type:       string(c.Type()),
		Value:      c.Value(),
		System:     true,
		OccurredAt: c.CreatedAt(),
	})
	s.events.DiscountApplied(ctx, events.DiscountAppliedEvent{
		ProductID:  productID,
		CouponID:   c.ID(),
		CouponCode: c.Code(),
		FinalPrice: finalPrice.Round(2),
		AppliedAt:  app.AppliedAt,
	})

	return s.reload(ctx, productID)
}

// Remove ends the product's active discount. The application row is kept with
// a removed_at stamp; the coupon's usage count is not given back.
func (s *DiscountService) Remove(ctx context.Context, productID uuid.UUID) error {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return err
	}

	app, err := s.products.FindActiveApplication(ctx, productID)
	if err != nil {
		return err
	}
	if app == nil {
		return errs.NewNotFoundError("active discount for product", productID.String())
	}

	now := s.now()
	if err := s.products.RemoveApplication(ctx, app.ID, now); err != nil {
		return err
	}

	s.logger.Info("discount removed",
		zap.String("product_id", productID.String()),
		zap.String("coupon_id", app.CouponID.String()),
	)
	s.events.DiscountRemoved(ctx, events.DiscountRemovedEvent{
		ProductID: productID,
		CouponID:  app.CouponID,
		RemovedAt: now,
	})
	return nil
}

func (s *DiscountService) reload(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	wd, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	dto := toProductDTO(*wd)
	return &dto, nil
}
