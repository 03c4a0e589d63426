package coupon

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActiveUsage describes a product currently discounted by a coupon, for the
// coupon stats view.
type ActiveUsage struct {
	ProductID     uuid.UUID
	ProductName   string
	OriginalPrice decimal.Decimal
	AppliedAt     time.Time
}

// Repository defines persistence operations for coupons.
type Repository interface {
	Save(ctx context.Context, c *Coupon) error
	Update(ctx context.Context, c *Coupon) error

	// FindByID excludes soft-deleted rows.
	FindByID(ctx context.Context, id uuid.UUID) (*Coupon, error)

	// FindByCode matches the exact (already uppercased) code, excluding
	// soft-deleted rows.
	FindByCode(ctx context.Context, code string) (*Coupon, error)

	// ExistsByCode spans soft-deleted rows; a deleted coupon still owns its code.
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// List returns all live coupons, newest first.
	List(ctx context.Context) ([]*Coupon, error)

	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error

	// CountApplications returns active (removed_at IS NULL) and total
	// application rows referencing the coupon.
	CountApplications(ctx context.Context, couponID uuid.UUID) (active, total int64, err error)

	// ListActiveUsages returns the products the coupon is currently applied to.
	ListActiveUsages(ctx context.Context, couponID uuid.UUID) ([]ActiveUsage, error)
}
