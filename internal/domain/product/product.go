package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-labs/service-catalog/internal/domain/coupon"
	"github.com/lojinha-labs/service-catalog/internal/domain/errs"
)

// Product is the aggregate root for catalog products. The name is stored in
// its normalized form; uniqueness is checked against that form, including
// soft-deleted rows.
type Product struct {
	id          uuid.UUID
	name        string
	description string
	price       decimal.Decimal
	stock       int
	createdAt   time.Time
	updatedAt   time.Time
	deletedAt   *time.Time
}

// New creates a product with a normalized name.
func New(name, description string, price decimal.Decimal, stock int) (*Product, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, errs.NewInvalidInputError("product name is required")
	}
	if !price.IsPositive() {
		return nil, errs.NewInvalidInputError("price must be positive")
	}
	if stock < 0 {
		return nil, errs.NewInvalidInputError("stock cannot be negative")
	}

	now := time.Now().UTC()
	return &Product{
		id:          uuid.New(),
		name:        normalized,
		description: description,
		price:       price,
		stock:       stock,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstruct rebuilds a Product from persistence.
func Reconstruct(id uuid.UUID, name, description string, price decimal.Decimal, stock int, createdAt, updatedAt time.Time, deletedAt *time.Time) *Product {
	return &Product{
		id: id, name: name, description: description,
		price: price, stock: stock,
		createdAt: createdAt, updatedAt: updatedAt, deletedAt: deletedAt,
	}
}

// Rename replaces the name with its normalized form. The caller re-checks
// uniqueness before persisting.
func (p *Product) Rename(name string) error {
	normalized := NormalizeName(name)
	if normalized == "" {
		return errs.NewInvalidInputError("product name is required")
	}
	p.name = normalized
	p.updatedAt = time.Now().UTC()
	return nil
}

// SetDescription replaces the description.
func (p *Product) SetDescription(description string) {
	p.description = description
	p.updatedAt = time.Now().UTC()
}

// SetPrice replaces the price.
func (p *Product) SetPrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return errs.NewInvalidInputError("price must be positive")
	}
	p.price = price
	p.updatedAt = time.Now().UTC()
	return nil
}

// SetStock replaces the stock level.
func (p *Product) SetStock(stock int) error {
	if stock < 0 {
		return errs.NewInvalidInputError("stock cannot be negative")
	}
	p.stock = stock
	p.updatedAt = time.Now().UTC()
	return nil
}

// IsOutOfStock reports whether the product has no stock left.
func (p *Product) IsOutOfStock() bool { return p.stock == 0 }

// Getters.
func (p *Product) ID() uuid.UUID          { return p.id }
func (p *Product) Name() string           { return p.name }
func (p *Product) Description() string    { return p.description }
func (p *Product) Price() decimal.Decimal { return p.price }
func (p *Product) Stock() int             { return p.stock }
func (p *Product) CreatedAt() time.Time   { return p.createdAt }
func (p *Product) UpdatedAt() time.Time   { return p.updatedAt }
func (p *Product) DeletedAt() *time.Time  { return p.deletedAt }

// AppliedDiscount pairs an active application with the coupon it references.
type AppliedDiscount struct {
	Application *Application
	Coupon      *coupon.Coupon
}

// WithDiscount is the read model for a product plus its current discount
// state. Discount is nil when no application is active.
type WithDiscount struct {
	Product  *Product
	Discount *AppliedDiscount
}

// FinalPrice returns the effective price: the discounted price when an
// application is active, the base price otherwise.
func (w WithDiscount) FinalPrice() decimal.Decimal {
	if w.Discount == nil {
		return w.Product.Price()
	}
	c := w.Discount.Coupon
	return coupon.FinalPrice(w.Product.Price(), c.Type(), c.Value())
}

// HasCouponApplied reports whether an application is currently active.
func (w WithDiscount) HasCouponApplied() bool { return w.Discount != nil }
