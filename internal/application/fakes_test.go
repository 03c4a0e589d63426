package application

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	couponDomain "github.com/lojinha-labs/service-catalog/internal/domain/coupon"
	"github.com/lojinha-labs/service-catalog/internal/domain/errs"
	productDomain "github.com/lojinha-labs/service-catalog/internal/domain/product"
	"github.com/lojinha-labs/service-catalog/internal/events"
)

// memStore is a shared in-memory backing store for the repository fakes. It
// mirrors the persistence semantics the services rely on: soft deletes,
// code/name uniqueness spanning tombstones, one active application per product
// and the guarded usage increment.
type memStore struct {
	products map[uuid.UUID]*productDomain.Product
	coupons  map[uuid.UUID]*couponDomain.Coupon
	apps     []*productDomain.Application

	deletedProducts map[uuid.UUID]bool
	deletedCoupons  map[uuid.UUID]bool
}

func newMemStore() *memStore {
	return &memStore{
		products:        map[uuid.UUID]*productDomain.Product{},
		coupons:         map[uuid.UUID]*couponDomain.Coupon{},
		deletedProducts: map[uuid.UUID]bool{},
		deletedCoupons:  map[uuid.UUID]bool{},
	}
}

func (s *memStore) activeApp(productID uuid.UUID) *productDomain.Application {
	for _, a := range s.apps {
		if a.ProductID == productID && a.IsActive() {
			return a
		}
	}
	return nil
}

// fakeProductRepo implements product.Repository over the memStore.
type fakeProductRepo struct{ store *memStore }

func (r *fakeProductRepo) Save(_ context.Context, p *productDomain.Product) error {
	r.store.products[p.ID()] = p
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, p *productDomain.Product) error {
	r.store.products[p.ID()] = p
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*productDomain.WithDiscount, error) {
	p, ok := r.store.products[id]
	if !ok || r.store.deletedProducts[id] {
		return nil, errs.NewNotFoundError("product", id.String())
	}
	wd := &productDomain.WithDiscount{Product: p}
	if app := r.store.activeApp(id); app != nil {
		wd.Discount = &productDomain.AppliedDiscount{
			Application: app,
			Coupon:      r.store.coupons[app.CouponID],
		}
	}
	return wd, nil
}

func (r *fakeProductRepo) ExistsByName(_ context.Context, normalizedName string, excludeID uuid.UUID) (bool, error) {
	for id, p := range r.store.products {
		if id != excludeID && p.Name() == normalizedName {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProductRepo) List(_ context.Context, q productDomain.ListQuery) ([]productDomain.WithDiscount, int64, error) {
	var ids []uuid.UUID
	for id := range r.store.products {
		if r.store.deletedProducts[id] && !q.IncludeDeleted {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.store.products[ids[i]].CreatedAt().Before(r.store.products[ids[j]].CreatedAt())
	})

	total := int64(len(ids))
	start := q.Offset()
	if start > len(ids) {
		start = len(ids)
	}
	end := start + q.Limit
	if end > len(ids) {
		end = len(ids)
	}

	page := make([]productDomain.WithDiscount, 0, end-start)
	for _, id := range ids[start:end] {
		wd, _ := r.FindByID(context.Background(), id)
		if wd == nil {
			wd = &productDomain.WithDiscount{Product: r.store.products[id]}
		}
		page = append(page, *wd)
	}
	return page, total, nil
}

func (r *fakeProductRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store.products[id]; !ok || r.store.deletedProducts[id] {
		return errs.NewNotFoundError("product", id.String())
	}
	r.store.deletedProducts[id] = true
	return nil
}

func (r *fakeProductRepo) Restore(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store.products[id]; !ok {
		return errs.NewNotFoundError("product", id.String())
	}
	delete(r.store.deletedProducts, id)
	return nil
}

func (r *fakeProductRepo) FindActiveApplication(_ context.Context, productID uuid.UUID) (*productDomain.Application, error) {
	return r.store.activeApp(productID), nil
}

func (r *fakeProductRepo) HasApplication(_ context.Context, productID, couponID uuid.UUID) (bool, error) {
	for _, a := range r.store.apps {
		if a.ProductID == productID && a.CouponID == couponID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeProductRepo) ApplyCoupon(_ context.Context, productID, couponID uuid.UUID, now time.Time) (*productDomain.Application, error) {
	if r.store.activeApp(productID) != nil {
		return nil, errs.NewConflictError("product already has an active discount")
	}
	c := r.store.coupons[couponID]
	if c.MaxUses() != 0 && c.UsesCount() >= c.MaxUses() {
		return nil, errs.NewInvalidStateError("coupon is not valid or has expired")
	}
	r.store.coupons[couponID] = couponDomain.Reconstruct(
		c.ID(), c.Code(), c.Type(), c.Value(),
		c.OneShot(), c.MaxUses(), c.UsesCount()+1,
		c.ValidFrom(), c.ValidUntil(), c.CreatedAt(), now, c.DeletedAt(),
	)
	app := productDomain.NewApplication(productID, couponID, now)
	r.store.apps = append(r.store.apps, app)
	return app, nil
}

func (r *fakeProductRepo) ApplySystemCoupon(_ context.Context, productID uuid.UUID, c *couponDomain.Coupon, now time.Time) (*productDomain.Application, error) {
	if r.store.activeApp(productID) != nil {
		return nil, errs.NewConflictError("product already has an active discount")
	}
	r.store.coupons[c.ID()] = c
	app := productDomain.NewApplication(productID, c.ID(), now)
	r.store.apps = append(r.store.apps, app)
	return app, nil
}

func (r *fakeProductRepo) RemoveApplication(_ context.Context, applicationID uuid.UUID, now time.Time) error {
	for _, a := range r.store.apps {
		if a.ID == applicationID && a.IsActive() {
			t := now
			a.RemovedAt = &t
			return nil
		}
	}
	return errs.NewNotFoundError("application", applicationID.String())
}

// fakeCouponRepo implements coupon.Repository over the memStore.
type fakeCouponRepo struct{ store *memStore }

func (r *fakeCouponRepo) Save(_ context.Context, c *couponDomain.Coupon) error {
	r.store.coupons[c.ID()] = c
	return nil
}

func (r *fakeCouponRepo) Update(_ context.Context, c *couponDomain.Coupon) error {
	r.store.coupons[c.ID()] = c
	return nil
}

func (r *fakeCouponRepo) FindByID(_ context.Context, id uuid.UUID) (*couponDomain.Coupon, error) {
	c, ok := r.store.coupons[id]
	if !ok || r.store.deletedCoupons[id] {
		return nil, errs.NewNotFoundError("coupon", id.String())
	}
	return c, nil
}

func (r *fakeCouponRepo) FindByCode(_ context.Context, code string) (*couponDomain.Coupon, error) {
	for id, c := range r.store.coupons {
		if c.Code() == code && !r.store.deletedCoupons[id] {
			return c, nil
		}
	}
	return nil, errs.NewNotFoundError("coupon", code)
}

func (r *fakeCouponRepo) ExistsByCode(_ context.Context, code string) (bool, error) {
	for _, c := range r.store.coupons {
		if c.Code() == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCouponRepo) List(_ context.Context) ([]*couponDomain.Coupon, error) {
	var out []*couponDomain.Coupon
	for id, c := range r.store.coupons {
		if !r.store.deletedCoupons[id] {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, nil
}

func (r *fakeCouponRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store.coupons[id]; !ok || r.store.deletedCoupons[id] {
		return errs.NewNotFoundError("coupon", id.String())
	}
	r.store.deletedCoupons[id] = true
	return nil
}

func (r *fakeCouponRepo) Restore(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store.coupons[id]; !ok {
		return errs.NewNotFoundError("coupon", id.String())
	}
	delete(r.store.deletedCoupons, id)
	return nil
}

func (r *fakeCouponRepo) CountApplications(_ context.Context, couponID uuid.UUID) (int64, int64, error) {
	var active, total int64
	for _, a := range r.store.apps {
		if a.CouponID != couponID {
			continue
		}
		total++
		if a.IsActive() {
			active++
		}
	}
	return active, total, nil
}

func (r *fakeCouponRepo) ListActiveUsages(_ context.Context, couponID uuid.UUID) ([]couponDomain.ActiveUsage, error) {
	var usages []couponDomain.ActiveUsage
	for _, a := range r.store.apps {
		if a.CouponID != couponID || !a.IsActive() {
			continue
		}
		p := r.store.products[a.ProductID]
		usages = append(usages, couponDomain.ActiveUsage{
			ProductID:     p.ID(),
			ProductName:   p.Name(),
			OriginalPrice: p.Price(),
			AppliedAt:     a.AppliedAt,
		})
	}
	return usages, nil
}

// recordingPublisher captures emitted events for assertions.
type recordingPublisher struct {
	productCreated  []events.ProductCreatedEvent
	couponCreated   []events.CouponCreatedEvent
	discountApplied []events.DiscountAppliedEvent
	discountRemoved []events.DiscountRemovedEvent
}

func (p *recordingPublisher) ProductCreated(_ context.Context, evt events.ProductCreatedEvent) {
	p.productCreated = append(p.productCreated, evt)
}

func (p *recordingPublisher) CouponCreated(_ context.Context, evt events.CouponCreatedEvent) {
	p.couponCreated = append(p.couponCreated, evt)
}

func (p *recordingPublisher) DiscountApplied(_ context.Context, evt events.DiscountAppliedEvent) {
	p.discountApplied = append(p.discountApplied, evt)
}

func (p *recordingPublisher) DiscountRemoved(_ context.Context, evt events.DiscountRemovedEvent) {
	p.discountRemoved = append(p.discountRemoved, evt)
}
