package product

import (
	"time"

	"github.com/google/uuid"
)

// Application is one product-coupon link at a point in time. Rows are
// append-only history: removal sets RemovedAt, never deletes. A product has at
// most one application with RemovedAt == nil.
type Application struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	CouponID  uuid.UUID
	AppliedAt time.Time
	RemovedAt *time.Time
}

// NewApplication creates an active application record.
func NewApplication(productID, couponID uuid.UUID, now time.Time) *Application {
	return &Application{
		ID:        uuid.New(),
		ProductID: productID,
		CouponID:  couponID,
		AppliedAt: now.UTC(),
	}
}

// IsActive reports whether the application has not been removed.
func (a *Application) IsActive() bool { return a.RemovedAt == nil }
