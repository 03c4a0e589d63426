package product

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lojinha-labs/service-catalog/internal/domain/coupon"
)

// Repository defines persistence operations for products and their coupon
// applications. The apply operations are transactional: the application insert
// and the usage increment commit or roll back together.
type Repository interface {
	Save(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error

	// FindByID excludes soft-deleted rows and loads the active discount state.
	FindByID(ctx context.Context, id uuid.UUID) (*WithDiscount, error)

	// ExistsByName checks normalized-name uniqueness across soft-deleted rows,
	// ignoring the row with excludeID (uuid.Nil to exclude nothing).
	ExistsByName(ctx context.Context, normalizedName string, excludeID uuid.UUID) (bool, error)

	// List runs the catalog query pipeline over a normalized ListQuery and
	// returns one page plus the total match count.
	List(ctx context.Context, q ListQuery) ([]WithDiscount, int64, error)

	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error

	// FindActiveApplication returns the product's active application, or
	// (nil, nil) when there is none.
	FindActiveApplication(ctx context.Context, productID uuid.UUID) (*Application, error)

	// HasApplication reports whether any application row, active or
	// historical, links the product and coupon.
	HasApplication(ctx context.Context, productID, couponID uuid.UUID) (bool, error)

	// ApplyCoupon atomically inserts an active application and increments the
	// coupon's uses_count under its max_uses guard. A concurrent active
	// application surfaces as a conflict; a concurrently exhausted coupon as
	// an invalid state.
	ApplyCoupon(ctx context.Context, productID, couponID uuid.UUID, now time.Time) (*Application, error)

	// ApplySystemCoupon atomically persists a synthesized single-use coupon
	// and its active application. No usage increment: the coupon is born for
	// this one application.
	ApplySystemCoupon(ctx context.Context, productID uuid.UUID, c *coupon.Coupon, now time.Time) (*Application, error)

	// RemoveApplication stamps removed_at on an application row.
	RemoveApplication(ctx context.Context, applicationID uuid.UUID, now time.Time) error
}
