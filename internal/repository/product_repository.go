package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	couponDomain "github.com/lojinha-labs/service-catalog/internal/domain/coupon"
	"github.com/lojinha-labs/service-catalog/internal/domain/errs"
	productDomain "github.com/lojinha-labs/service-catalog/internal/domain/product"
)

// ProductModel is the GORM model for the products table.
type ProductModel struct {
	ID           uuid.UUID          `gorm:"type:uuid;primaryKey"`
	Name         string             `gorm:"type:varchar(100);uniqueIndex;not null"`
	Description  string             `gorm:"type:varchar(300)"`
	Price        decimal.Decimal    `gorm:"type:decimal(10,2);not null"`
	Stock        int                `gorm:"not null;default:0"`
	CreatedAt    time.Time          `gorm:"not null"`
	UpdatedAt    time.Time          `gorm:"not null"`
	DeletedAt    gorm.DeletedAt     `gorm:"index"`
	Applications []ApplicationModel `gorm:"foreignKey:ProductID"`
}

// TableName sets the table name.
func (ProductModel) TableName() string { return "products" }

// ApplicationModel is the GORM model for the product_coupon_applications
// table. The partial unique index enforces at most one active application per
// product at the storage layer.
type ApplicationModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ProductID uuid.UUID  `gorm:"type:uuid;not null;index:idx_one_active_application,unique,where:removed_at IS NULL"`
	CouponID  uuid.UUID  `gorm:"type:uuid;not null;index"`
	AppliedAt time.Time  `gorm:"not null"`
	RemovedAt *time.Time `gorm:"type:timestamptz"`

	Coupon CouponModel `gorm:"foreignKey:CouponID"`
}

// TableName sets the table name.
func (ApplicationModel) TableName() string { return "product_coupon_applications" }

// GormProductRepository implements product.Repository using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository.
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// Save persists a new product.
func (r *GormProductRepository) Save(ctx context.Context, p *productDomain.Product) error {
	model := toProductModel(p)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflictError("product name already exists")
		}
		return err
	}
	return nil
}

// Update persists changes to an existing product.
func (r *GormProductRepository) Update(ctx context.Context, p *productDomain.Product) error {
	model := toProductModel(p)
	err := r.db.WithContext(ctx).Model(&ProductModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"name":        model.Name,
			"description": model.Description,
			"price":       model.Price,
			"stock":       model.Stock,
			"updated_at":  model.UpdatedAt,
		}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.NewConflictError("product name already exists")
	}
	return err
}

// FindByID returns a live product with its active discount state.
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*productDomain.WithDiscount, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).
		Preload("Applications", "removed_at IS NULL").
		Preload("Applications.Coupon").
		First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFoundError("product", id.String())
		}
		return nil, err
	}

	wd := toProductWithDiscount(&model)
	return &wd, nil
}

// ExistsByName checks normalized-name uniqueness, spanning soft-deleted rows.
func (r *GormProductRepository) ExistsByName(ctx context.Context, normalizedName string, excludeID uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Unscoped().Model(&ProductModel{}).Where("name = ?", normalizedName)
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// activeApplicationExists matches products that currently have an active
// application, as an EXISTS predicate so pagination counts stay correct.
const activeApplicationExists = "EXISTS (SELECT 1 FROM product_coupon_applications a WHERE a.product_id = products.id AND a.removed_at IS NULL)"

// listScopes translates the filter spec into independent GORM scopes.
func listScopes(q productDomain.ListQuery) []func(*gorm.DB) *gorm.DB {
	scopes := make([]func(*gorm.DB) *gorm.DB, 0, 7)

	if q.IncludeDeleted {
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Unscoped() })
	}
	if q.Search != "" {
		term := "%" + q.Search + "%"
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			return db.Where("(name ILIKE ? OR description ILIKE ?)", term, term)
		})
	}
	if q.MinPrice != nil {
		minPrice := *q.MinPrice
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("price >= ?", minPrice) })
	}
	if q.MaxPrice != nil {
		maxPrice := *q.MaxPrice
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("price <= ?", maxPrice) })
	}
	if q.OnlyOutOfStock {
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where("stock = 0") })
	}
	if q.WithCouponApplied {
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB { return db.Where(activeApplicationExists) })
	}
	if q.HasDiscount != nil {
		hasDiscount := *q.HasDiscount
		scopes = append(scopes, func(db *gorm.DB) *gorm.DB {
			if hasDiscount {
				return db.Where(activeApplicationExists)
			}
			return db.Where("NOT " + activeApplicationExists)
		})
	}
	return scopes
}

// List runs the catalog query pipeline and returns one page plus the total
// match count.
func (r *GormProductRepository) List(ctx context.Context, q productDomain.ListQuery) ([]productDomain.WithDiscount, int64, error) {
	q = q.Normalize()
	scopes := listScopes(q)

	var total int64
	if err := r.db.WithContext(ctx).Model(&ProductModel{}).Scopes(scopes...).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []ProductModel
	err := r.db.WithContext(ctx).Model(&ProductModel{}).Scopes(scopes...).
		Preload("Applications", "removed_at IS NULL").
		Preload("Applications.Coupon").
		Order(fmt.Sprintf("%s %s", q.SortBy, q.SortOrder)).
		Offset(q.Offset()).
		Limit(q.Limit).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	items := make([]productDomain.WithDiscount, len(models))
	for i := range models {
		items[i] = toProductWithDiscount(&models[i])
	}
	return items, total, nil
}

// SoftDelete stamps the tombstone.
func (r *GormProductRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&ProductModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFoundError("product", id.String())
	}
	return nil
}

// Restore clears the tombstone.
func (r *GormProductRepository) Restore(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Unscoped().Model(&ProductModel{}).
		Where("id = ?", id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFoundError("product", id.String())
	}
	return nil
}

// FindActiveApplication returns the product's active application, or nil when
// there is none.
func (r *GormProductRepository) FindActiveApplication(ctx context.Context, productID uuid.UUID) (*productDomain.Application, error) {
	var model ApplicationModel
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND removed_at IS NULL", productID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return toApplication(&model), nil
}

// HasApplication reports whether any row, active or historical, links the
// product and coupon.
func (r *GormProductRepository) HasApplication(ctx context.Context, productID, couponID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&ApplicationModel{}).
		Where("product_id = ? AND coupon_id = ?", productID, couponID).
		Count(&count).Error
	return count > 0, err
}

// ApplyCoupon inserts the application row and increments uses_count in one
// transaction. The partial unique index rejects a concurrent second active
// application; the guarded UPDATE rejects a concurrently exhausted coupon.
// Either failure rolls back the whole mutation.
func (r *GormProductRepository) ApplyCoupon(ctx context.Context, productID, couponID uuid.UUID, now time.Time) (*productDomain.Application, error) {
	app := productDomain.NewApplication(productID, couponID, now)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ApplicationModel{
			ID:        app.ID,
			ProductID: app.ProductID,
			CouponID:  app.CouponID,
			AppliedAt: app.AppliedAt,
		}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.NewConflictError("product already has an active discount")
			}
			return err
		}

		result := tx.Model(&CouponModel{}).
			Where("id = ? AND (max_uses = 0 OR uses_count < max_uses)", couponID).
			UpdateColumns(map[string]any{
				"uses_count": gorm.Expr("uses_count + 1"),
				"updated_at": now.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errs.NewInvalidStateError("coupon is not valid or has expired")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// ApplySystemCoupon persists a synthesized single-use coupon together with its
// active application. The coupon starts at uses_count 0 and is immediately
// bound to its only application, so no increment happens here.
func (r *GormProductRepository) ApplySystemCoupon(ctx context.Context, productID uuid.UUID, c *couponDomain.Coupon, now time.Time) (*productDomain.Application, error) {
	app := productDomain.NewApplication(productID, c.ID(), now)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		couponModel := toCouponModel(c)
		if err := tx.Create(&couponModel).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.NewConflictError("coupon code already exists")
			}
			return err
		}

		if err := tx.Create(&ApplicationModel{
			ID:        app.ID,
			ProductID: app.ProductID,
			CouponID:  app.CouponID,
			AppliedAt: app.AppliedAt,
		}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.NewConflictError("product already has an active discount")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return app, nil
}

// RemoveApplication stamps removed_at on an active application row.
func (r *GormProductRepository) RemoveApplication(ctx context.Context, applicationID uuid.UUID, now time.Time) error {
	result := r.db.WithContext(ctx).Model(&ApplicationModel{}).
		Where("id = ? AND removed_at IS NULL", applicationID).
		Update("removed_at", now.UTC())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFoundError("application", applicationID.String())
	}
	return nil
}

func toProductModel(p *productDomain.Product) ProductModel {
	return ProductModel{
		ID:          p.ID(),
		Name:        p.Name(),
		Description: p.Description(),
		Price:       p.Price(),
		Stock:       p.Stock(),
		CreatedAt:   p.CreatedAt(),
		UpdatedAt:   p.UpdatedAt(),
	}
}

func toProductDomain(m *ProductModel) *productDomain.Product {
	var deletedAt *time.Time
	if m.DeletedAt.Valid {
		t := m.DeletedAt.Time
		deletedAt = &t
	}
	return productDomain.Reconstruct(
		m.ID, m.Name, m.Description, m.Price, m.Stock,
		m.CreatedAt, m.UpdatedAt, deletedAt,
	)
}

func toApplication(m *ApplicationModel) *productDomain.Application {
	return &productDomain.Application{
		ID:        m.ID,
		ProductID: m.ProductID,
		CouponID:  m.CouponID,
		AppliedAt: m.AppliedAt,
		RemovedAt: m.RemovedAt,
	}
}

// toProductWithDiscount expects Applications preloaded with the active-only
// condition; at most one row can match.
func toProductWithDiscount(m *ProductModel) productDomain.WithDiscount {
	wd := productDomain.WithDiscount{Product: toProductDomain(m)}
	for i := range m.Applications {
		appModel := &m.Applications[i]
		if appModel.RemovedAt != nil {
			continue
		}
		wd.Discount = &productDomain.AppliedDiscount{
			Application: toApplication(appModel),
			Coupon:      toCouponDomain(&appModel.Coupon),
		}
		break
	}
	return wd
}
