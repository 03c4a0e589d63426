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
	"github.com/lojinha-labs/service-catalog/internal/events"
)

// CreateCouponRequest holds data to create a coupon. Dates are RFC3339.
type CreateCouponRequest struct {
	Code       string  `json:"code" binding:"required"`
	Type       string  `json:"type" binding:"required,oneof=percent fixed"`
	Value      float64 `json:"value" binding:"required,gt=0"`
	OneShot    bool    `json:"one_shot"`
	MaxUses    int     `json:"max_uses" binding:"omitempty,min=0"`
	ValidFrom  string  `json:"valid_from" binding:"required"`
	ValidUntil string  `json:"valid_until" binding:"required"`
}

// UpdateCouponRequest holds a partial coupon update. The code is immutable.
type UpdateCouponRequest struct {
	Type       *string  `json:"type" binding:"omitempty,oneof=percent fixed"`
	Value      *float64 `json:"value" binding:"omitempty,gt=0"`
	OneShot    *bool    `json:"one_shot"`
	MaxUses    *int     `json:"max_uses" binding:"omitempty,min=0"`
	ValidFrom  *string  `json:"valid_from"`
	ValidUntil *string  `json:"valid_until"`
}

// CouponDTO is the API representation of a coupon with its derived validity
// state.
type CouponDTO struct {
	ID                 uuid.UUID       `json:"id"`
	Code               string          `json:"code"`
	Type               string          `json:"type"`
	Value              decimal.Decimal `json:"value"`
	OneShot            bool            `json:"one_shot"`
	MaxUses            int             `json:"max_uses"`
	UsesCount          int             `json:"uses_count"`
	RemainingUses      int             `json:"remaining_uses"`
	ActiveApplications int64           `json:"active_applications"`
	IsValid            bool            `json:"is_valid"`
	CanBeUsed          bool            `json:"can_be_used"`
	ValidFrom          time.Time       `json:"valid_from"`
	ValidUntil         time.Time       `json:"valid_until"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          *time.Time      `json:"deleted_at,omitempty"`
}

// CouponUsageDTO describes one product the coupon is actively applied to.
type CouponUsageDTO struct {
	ProductID     uuid.UUID       `json:"product_id"`
	ProductName   string          `json:"product_name"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	AppliedAt     time.Time       `json:"applied_at"`
}

// CouponStatsDTO aggregates a coupon's usage figures.
type CouponStatsDTO struct {
	Coupon             CouponDTO        `json:"coupon"`
	TotalApplications  int64            `json:"total_applications"`
	ActiveApplications int64            `json:"active_applications"`
	ActiveUsages       []CouponUsageDTO `json:"active_usages"`
}

// CouponService handles coupon CRUD and reporting use cases.
type CouponService struct {
	repo   couponDomain.Repository
	events EventPublisher
	logger *zap.Logger
}

// NewCouponService creates a new CouponService.
func NewCouponService(repo couponDomain.Repository, events EventPublisher, logger *zap.Logger) *CouponService {
	return &CouponService{repo: repo, events: events, logger: logger}
}

// Create persists a new coupon. Format, reserved-code, value and window rules
// run before the duplicate check so a bad payload never reports a conflict.
func (s *CouponService) Create(ctx context.Context, req CreateCouponRequest) (*CouponDTO, error) {
	validFrom, err := parseDate(req.ValidFrom, "valid_from")
	if err != nil {
		return nil, err
	}
	validUntil, err := parseDate(req.ValidUntil, "valid_until")
	if err != nil {
		return nil, err
	}
	value, err := parseMoney(req.Value, "value")
	if err != nil {
		return nil, err
	}

	c, err := couponDomain.New(req.Code, couponDomain.Type(req.Type), value, req.OneShot, req.MaxUses, validFrom, validUntil)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.ExistsByCode(ctx, c.Code())
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errs.NewConflictError("coupon code already exists")
	}

	if err := s.repo.Save(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info("coupon created",
		zap.String("coupon_id", c.ID().String()),
		zap.String("code", c.Code()),
	)
	s.events.CouponCreated(ctx, events.CouponCreatedEvent{
		CouponID:   c.ID(),
		Code:       c.Code(),
		Type:       string(c.Type()),
		Value:      c.Value(),
		System:     false,
		OccurredAt: c.CreatedAt(),
	})

	dto := toCouponDTO(c, time.Now().UTC())
	return &dto, nil
}

// List returns all live coupons with their active application counts.
func (s *CouponService) List(ctx context.Context) ([]CouponDTO, error) {
	coupons, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dtos := make([]CouponDTO, len(coupons))
	for i, c := range coupons {
		active, _, err := s.repo.CountApplications(ctx, c.ID())
		if err != nil {
			return nil, err
		}
		dtos[i] = toCouponDTO(c, now)
		dtos[i].ActiveApplications = active
	}
	return dtos, nil
}

// Get returns a live coupon by id.
func (s *CouponService) Get(ctx context.Context, id uuid.UUID) (*CouponDTO, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toCouponDTO(c, time.Now().UTC())
	return &dto, nil
}

// GetByCode returns a live coupon by its code, case-insensitively.
func (s *CouponService) GetByCode(ctx context.Context, code string) (*CouponDTO, error) {
	c, err := s.repo.FindByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	dto := toCouponDTO(c, time.Now().UTC())
	return &dto, nil
}

// Update applies a partial update. When only one end of the window changes,
// the merged pair is re-validated against the ordering and cap rules.
func (s *CouponService) Update(ctx context.Context, id uuid.UUID, req UpdateCouponRequest) (*CouponDTO, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ValidFrom != nil || req.ValidUntil != nil {
		validFrom := c.ValidFrom()
		validUntil := c.ValidUntil()
		if req.ValidFrom != nil {
			if validFrom, err = parseDate(*req.ValidFrom, "valid_from"); err != nil {
				return nil, err
			}
		}
		if req.ValidUntil != nil {
			if validUntil, err = parseDate(*req.ValidUntil, "valid_until"); err != nil {
				return nil, err
			}
		}
		if err := c.SetSchedule(validFrom, validUntil); err != nil {
			return nil, err
		}
	}

	if req.Type != nil || req.Value != nil {
		typ := c.Type()
		value := c.Value()
		if req.Type != nil {
			typ = couponDomain.Type(*req.Type)
		}
		if req.Value != nil {
			if value, err = parseMoney(*req.Value, "value"); err != nil {
				return nil, err
			}
		}
		if err := c.SetValue(typ, value); err != nil {
			return nil, err
		}
	}

	if req.OneShot != nil {
		c.SetOneShot(*req.OneShot)
	}
	if req.MaxUses != nil {
		if err := c.SetMaxUses(*req.MaxUses); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	dto := toCouponDTO(c, time.Now().UTC())
	return &dto, nil
}

// Delete soft-deletes a coupon. Coupons with active applications cannot be
// deleted; the discounts must be removed first.
func (s *CouponService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}

	active, _, err := s.repo.CountApplications(ctx, id)
	if err != nil {
		return err
	}
	if active > 0 {
		return errs.NewConflictError("coupon has active applications and cannot be deleted")
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("coupon deleted", zap.String("coupon_id", id.String()))
	return nil
}

// Restore clears a coupon's tombstone and returns it.
func (s *CouponService) Restore(ctx context.Context, id uuid.UUID) (*CouponDTO, error) {
	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("coupon restored", zap.String("coupon_id", id.String()))
	return s.Get(ctx, id)
}

// Stats returns usage figures and the products the coupon is currently
// discounting.
func (s *CouponService) Stats(ctx context.Context, id uuid.UUID) (*CouponStatsDTO, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	active, total, err := s.repo.CountApplications(ctx, id)
	if err != nil {
		return nil, err
	}

	usages, err := s.repo.ListActiveUsages(ctx, id)
	if err != nil {
		return nil, err
	}

	usageDTOs := make([]CouponUsageDTO, len(usages))
	for i, u := range usages {
		usageDTOs[i] = CouponUsageDTO{
			ProductID:     u.ProductID,
			ProductName:   u.ProductName,
			OriginalPrice: u.OriginalPrice,
			FinalPrice:    couponDomain.FinalPrice(u.OriginalPrice, c.Type(), c.Value()).Round(2),
			AppliedAt:     u.AppliedAt,
		}
	}

	couponDTO := toCouponDTO(c, time.Now().UTC())
	couponDTO.ActiveApplications = active

	return &CouponStatsDTO{
		Coupon:             couponDTO,
		TotalApplications:  total,
		ActiveApplications: active,
		ActiveUsages:       usageDTOs,
	}, nil
}

// parseDate parses an RFC3339 timestamp from a request body.
func parseDate(value, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, errs.NewInvalidInputError(field + " must be a valid RFC3339 timestamp")
	}
	return t.UTC(), nil
}

func toCouponDTO(c *couponDomain.Coupon, now time.Time) CouponDTO {
	return CouponDTO{
		ID:            c.ID(),
		Code:          c.Code(),
		Type:          string(c.Type()),
		Value:         c.Value(),
		OneShot:       c.OneShot(),
		MaxUses:       c.MaxUses(),
		UsesCount:     c.UsesCount(),
		RemainingUses: c.RemainingUses(),
		IsValid:       c.IsValidAt(now),
		CanBeUsed:     c.CanBeUsedAt(now),
		ValidFrom:     c.ValidFrom(),
		ValidUntil:    c.ValidUntil(),
		CreatedAt:     c.CreatedAt(),
		UpdatedAt:     c.UpdatedAt(),
		DeletedAt:     c.DeletedAt(),
	}
}
