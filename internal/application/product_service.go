package application

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/lojinha-labs/service-catalog/internal/domain/errs"
	productDomain "github.com/lojinha-labs/service-catalog/internal/domain/product"
	"github.com/lojinha-labs/service-catalog/internal/events"
)

// EventPublisher is the outbound port for catalog events. Publishing is
// best-effort and never fails a request.
type EventPublisher interface {
	ProductCreated(ctx context.Context, evt events.ProductCreatedEvent)
	CouponCreated(ctx context.Context, evt events.CouponCreatedEvent)
	DiscountApplied(ctx context.Context, evt events.DiscountAppliedEvent)
	DiscountRemoved(ctx context.Context, evt events.DiscountRemovedEvent)
}

// CreateProductRequest holds data to create a product.
type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required,min=3,max=100"`
	Description string  `json:"description" binding:"omitempty,max=300"`
	Price       float64 `json:"price" binding:"required,gt=0,lte=1000000"`
	Stock       int     `json:"stock" binding:"min=0,max=999999"`
}

// UpdateProductRequest holds a partial product update.
type UpdateProductRequest struct {
	Name        *string  `json:"name" binding:"omitempty,min=3,max=100"`
	Description *string  `json:"description" binding:"omitempty,max=300"`
	Price       *float64 `json:"price" binding:"omitempty,gt=0,lte=1000000"`
	Stock       *int     `json:"stock" binding:"omitempty,min=0,max=999999"`
}

// ListProductsQuery holds the catalog listing parameters as bound from the
// query string. Defaults and clamping happen in the domain filter spec.
type ListProductsQuery struct {
	Page              int      `form:"page"`
	Limit             int      `form:"limit"`
	Search            string   `form:"search"`
	MinPrice          *float64 `form:"minPrice" binding:"omitempty,gte=0"`
	MaxPrice          *float64 `form:"maxPrice" binding:"omitempty,gte=0"`
	HasDiscount       *bool    `form:"hasDiscount"`
	OnlyOutOfStock    bool     `form:"onlyOutOfStock"`
	WithCouponApplied bool     `form:"withCouponApplied"`
	IncludeDeleted    bool     `form:"includeDeleted"`
	SortBy            string   `form:"sortBy"`
	SortOrder         string   `form:"sortOrder"`
}

func (q ListProductsQuery) toDomain() productDomain.ListQuery {
	dq := productDomain.ListQuery{
		Page:              q.Page,
		Limit:             q.Limit,
		Search:            q.Search,
		HasDiscount:       q.HasDiscount,
		OnlyOutOfStock:    q.OnlyOutOfStock,
		WithCouponApplied: q.WithCouponApplied,
		IncludeDeleted:    q.IncludeDeleted,
		SortBy:            q.SortBy,
		SortOrder:         q.SortOrder,
	}
	if q.MinPrice != nil {
		d := decimal.NewFromFloat(*q.MinPrice)
		dq.MinPrice = &d
	}
	if q.MaxPrice != nil {
		d := decimal.NewFromFloat(*q.MaxPrice)
		dq.MaxPrice = &d
	}
	return dq
}

// DiscountInfo describes the active discount on a product.
type DiscountInfo struct {
	Type      string          `json:"type"`
	Value     decimal.Decimal `json:"value"`
	AppliedAt time.Time       `json:"applied_at"`
}

// ProductDTO is the API representation of a product with its derived discount
// state.
type ProductDTO struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description,omitempty"`
	Price            decimal.Decimal `json:"price"`
	FinalPrice       decimal.Decimal `json:"final_price"`
	Stock            int             `json:"stock"`
	IsOutOfStock     bool            `json:"is_out_of_stock"`
	HasCouponApplied bool            `json:"has_coupon_applied"`
	Discount         *DiscountInfo   `json:"discount,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
}

// PaginatedProductsDTO is the listing envelope.
type PaginatedProductsDTO struct {
	Data []ProductDTO           `json:"data"`
	Meta productDomain.PageMeta `json:"meta"`
}

// Letters and digits (any script, so accented names survive normalization
// checks), whitespace and basic punctuation.
var productNamePattern = regexp.MustCompile(`^[\p{L}\p{N}\s\-_,.]+$`)

// ProductService handles product CRUD use cases.
type ProductService struct {
	repo   productDomain.Repository
	events EventPublisher
	logger *zap.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(repo productDomain.Repository, events EventPublisher, logger *zap.Logger) *ProductService {
	return &ProductService{repo: repo, events: events, logger: logger}
}

// Create persists a new product after normalizing the name and checking
// uniqueness across soft-deleted rows.
func (s *ProductService) Create(ctx context.Context, req CreateProductRequest) (*ProductDTO, error) {
	if !productNamePattern.MatchString(req.Name) {
		return nil, errs.NewInvalidInputError("name must contain only letters, numbers, spaces, hyphens, underscores, commas and dots")
	}
	price, err := parseMoney(req.Price, "price")
	if err != nil {
		return nil, err
	}

	normalized := productDomain.NormalizeName(req.Name)
	taken, err := s.repo.ExistsByName(ctx, normalized, uuid.Nil)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errs.NewConflictError("product name already exists")
	}

	p, err := productDomain.New(req.Name, req.Description, price, req.Stock)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("product created",
		zap.String("product_id", p.ID().String()),
		zap.String("name", p.Name()),
	)
	s.events.ProductCreated(ctx, events.ProductCreatedEvent{
		ProductID:  p.ID(),
		Name:       p.Name(),
		Price:      p.Price(),
		Stock:      p.Stock(),
		OccurredAt: p.CreatedAt(),
	})

	dto := toProductDTO(productDomain.WithDiscount{Product: p})
	return &dto, nil
}

// List runs the catalog query pipeline.
func (s *ProductService) List(ctx context.Context, query ListProductsQuery) (*PaginatedProductsDTO, error) {
	dq := query.toDomain().Normalize()

	items, total, err := s.repo.List(ctx, dq)
	if err != nil {
		return nil, err
	}

	dtos := make([]ProductDTO, len(items))
	for i, item := range items {
		dtos[i] = toProductDTO(item)
	}
	return &PaginatedProductsDTO{
		Data: dtos,
		Meta: productDomain.NewPageMeta(dq.Page, dq.Limit, total),
	}, nil
}

// Get returns a live product with its discount state.
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	wd, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toProductDTO(*wd)
	return &dto, nil
}

// Update applies a partial update. A name change is re-normalized and
// re-checked for uniqueness, excluding the product itself.
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error) {
	wd, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p := wd.Product

	if req.Name != nil {
		if !productNamePattern.MatchString(*req.Name) {
			return nil, errs.NewInvalidInputError("name must contain only letters, numbers, spaces, hyphens, underscores, commas and dots")
		}
		normalized := productDomain.NormalizeName(*req.Name)
		if normalized != p.Name() {
			taken, err := s.repo.ExistsByName(ctx, normalized, id)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, errs.NewConflictError("product name already exists")
			}
		}
		if err := p.Rename(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		p.SetDescription(*req.Description)
	}
	if req.Price != nil {
		price, err := parseMoney(*req.Price, "price")
		if err != nil {
			return nil, err
		}
		if err := p.SetPrice(price); err != nil {
			return nil, err
		}
	}
	if req.Stock != nil {
		if err := p.SetStock(*req.Stock); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete soft-deletes a product.
func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id.String()))
	return nil
}

// Restore clears a product's tombstone and returns it.
func (s *ProductService) Restore(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	if err := s.repo.Restore(ctx, id); err != nil {
		return nil, err
	}
	s.logger.Info("product restored", zap.String("product_id", id.String()))
	return s.Get(ctx, id)
}

// parseMoney converts a bound float into a 2-decimal currency amount.
func parseMoney(v float64, field string) (decimal.Decimal, error) {
	d := decimal.NewFromFloat(v)
	if !d.Equal(d.Round(2)) {
		return decimal.Decimal{}, errs.NewInvalidInputError(field + " must have at most 2 decimal places")
	}
	return d, nil
}

// toProductDTO maps the read model into the API shape, recomputing the
// derived fields on every call.
func toProductDTO(wd productDomain.WithDiscount) ProductDTO {
	p := wd.Product
	dto := ProductDTO{
		ID:               p.ID(),
		Name:             p.Name(),
		Description:      p.Description(),
		Price:            p.Price(),
		FinalPrice:       wd.FinalPrice().Round(2),
		Stock:            p.Stock(),
		IsOutOfStock:     p.IsOutOfStock(),
		HasCouponApplied: wd.HasCouponApplied(),
		CreatedAt:        p.CreatedAt(),
		UpdatedAt:        p.UpdatedAt(),
		DeletedAt:        p.DeletedAt(),
	}
	if wd.Discount != nil {
		dto.Discount = &DiscountInfo{
			Type:      string(wd.Discount.Coupon.Type()),
			Value:     wd.Discount.Coupon.Value(),
			AppliedAt: wd.Discount.Application.AppliedAt,
		}
	}
	return dto
}
