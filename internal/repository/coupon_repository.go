package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	couponDomain "github.com/lojinha-labs/service-catalog/internal/domain/coupon"
	"github.com/lojinha-labs/service-catalog/internal/domain/errs"
)

// CouponModel is the GORM model for the coupons table.
type CouponModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Code       string          `gorm:"type:varchar(20);uniqueIndex;not null"`
	Type       string          `gorm:"type:varchar(10);not null"`
	Value      decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	OneShot    bool            `gorm:"not null;default:false"`
	MaxUses    int             `gorm:"not null;default:0"`
	UsesCount  int             `gorm:"not null;default:0"`
	ValidFrom  time.Time       `gorm:"not null"`
	ValidUntil time.Time       `gorm:"not null"`
	CreatedAt  time.Time       `gorm:"not null"`
	UpdatedAt  time.Time       `gorm:"not null"`
	DeletedAt  gorm.DeletedAt  `gorm:"index"`
}

// TableName sets the table name.
func (CouponModel) TableName() string { return "coupons" }

// GormCouponRepository implements coupon.Repository using GORM.
type GormCouponRepository struct {
	db *gorm.DB
}

// NewGormCouponRepository creates a new GormCouponRepository.
func NewGormCouponRepository(db *gorm.DB) *GormCouponRepository {
	return &GormCouponRepository{db: db}
}

// Save persists a new coupon.
func (r *GormCouponRepository) Save(ctx context.Context, c *couponDomain.Coupon) error {
	model := toCouponModel(c)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errs.NewConflictError("coupon code already exists")
		}
		return err
	}
	return nil
}

// Update persists changes to an existing coupon. The code column is never
// touched and uses_count is owned by the apply transaction.
func (r *GormCouponRepository) Update(ctx context.Context, c *couponDomain.Coupon) error {
	return r.db.WithContext(ctx).Model(&CouponModel{}).
		Where("id = ?", c.ID()).
		Updates(map[string]any{
			"type":        string(c.Type()),
			"value":       c.Value(),
			"one_shot":    c.OneShot(),
			"max_uses":    c.MaxUses(),
			"valid_from":  c.ValidFrom(),
			"valid_until": c.ValidUntil(),
			"updated_at":  c.UpdatedAt(),
		}).Error
}

// FindByID returns a live coupon by id.
func (r *GormCouponRepository) FindByID(ctx context.Context, id uuid.UUID) (*couponDomain.Coupon, error) {
	var model CouponModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFoundError("coupon", id.String())
		}
		return nil, err
	}
	return toCouponDomain(&model), nil
}

// FindByCode returns a live coupon by its exact code.
func (r *GormCouponRepository) FindByCode(ctx context.Context, code string) (*couponDomain.Coupon, error) {
	var model CouponModel
	if err := r.db.WithContext(ctx).First(&model, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewNotFoundError("coupon", code)
		}
		return nil, err
	}
	return toCouponDomain(&model), nil
}

// ExistsByCode spans soft-deleted rows.
func (r *GormCouponRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Unscoped().Model(&CouponModel{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// List returns all live coupons, newest first.
func (r *GormCouponRepository) List(ctx context.Context) ([]*couponDomain.Coupon, error) {
	var models []CouponModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	coupons := make([]*couponDomain.Coupon, len(models))
	for i := range models {
		coupons[i] = toCouponDomain(&models[i])
	}
	return coupons, nil
}

// SoftDelete stamps the tombstone.
func (r *GormCouponRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&CouponModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFoundError("coupon", id.String())
	}
	return nil
}

// Restore clears the tombstone.
func (r *GormCouponRepository) Restore(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Unscoped().Model(&CouponModel{}).
		Where("id = ?", id).
		Update("deleted_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewNotFoundError("coupon", id.String())
	}
	return nil
}

// CountApplications returns active and total application rows for the coupon.
func (r *GormCouponRepository) CountApplications(ctx context.Context, couponID uuid.UUID) (int64, int64, error) {
	var active, total int64

	if err := r.db.WithContext(ctx).Model(&ApplicationModel{}).
		Where("coupon_id = ?", couponID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}

	if err := r.db.WithContext(ctx).Model(&ApplicationModel{}).
		Where("coupon_id = ? AND removed_at IS NULL", couponID).
		Count(&active).Error; err != nil {
		return 0, 0, err
	}

	return active, total, nil
}

// ListActiveUsages returns the products the coupon is currently applied to.
func (r *GormCouponRepository) ListActiveUsages(ctx context.Context, couponID uuid.UUID) ([]couponDomain.ActiveUsage, error) {
	type usageRow struct {
		ProductID     uuid.UUID
		ProductName   string
		OriginalPrice decimal.Decimal
		AppliedAt     time.Time
	}

	var rows []usageRow
	err := r.db.WithContext(ctx).
		Table("product_coupon_applications AS a").
		Select("p.id AS product_id, p.name AS product_name, p.price AS original_price, a.applied_at").
		Joins("JOIN products p ON p.id = a.product_id").
		Where("a.coupon_id = ? AND a.removed_at IS NULL", couponID).
		Order("a.applied_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	usages := make([]couponDomain.ActiveUsage, len(rows))
	for i, row := range rows {
		usages[i] = couponDomain.ActiveUsage{
			ProductID:     row.ProductID,
			ProductName:   row.ProductName,
			OriginalPrice: row.OriginalPrice,
			AppliedAt:     row.AppliedAt,
		}
	}
	return usages, nil
}

func toCouponModel(c *couponDomain.Coupon) CouponModel {
	return CouponModel{
		ID:         c.ID(),
		Code:       c.Code(),
		Type:       string(c.Type()),
		Value:      c.Value(),
		OneShot:    c.OneShot(),
		MaxUses:    c.MaxUses(),
		UsesCount:  c.UsesCount(),
		ValidFrom:  c.ValidFrom(),
		ValidUntil: c.ValidUntil(),
		CreatedAt:  c.CreatedAt(),
		UpdatedAt:  c.UpdatedAt(),
	}
}

func toCouponDomain(m *CouponModel) *couponDomain.Coupon {
	var deletedAt *time.Time
	if m.DeletedAt.Valid {
		t := m.DeletedAt.Time
		deletedAt = &t
	}
	return couponDomain.Reconstruct(
		m.ID, m.Code, couponDomain.Type(m.Type), m.Value,
		m.OneShot, m.MaxUses, m.UsesCount,
		m.ValidFrom, m.ValidUntil,
		m.CreatedAt, m.UpdatedAt, deletedAt,
	)
}
