package product

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Pagination and sorting bounds for catalog listings.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 50

	DefaultSortBy    = "created_at"
	DefaultSortOrder = "desc"
)

// sortFields is the allow-list of sortable columns.
var sortFields = map[string]struct{}{
	"name": {}, "price": {}, "created_at": {}, "stock": {},
}

// ListQuery is the filter spec for the catalog query pipeline. All predicates
// are optional and AND-composed; each is an independent, order-insensitive
// filter.
type ListQuery struct {
	Page  int
	Limit int

	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal

	HasDiscount       *bool
	OnlyOutOfStock    bool
	WithCouponApplied bool
	IncludeDeleted    bool

	SortBy    string
	SortOrder string
}

// Normalize returns a copy with defaults applied and out-of-range values
// clamped: page >= 1, limit in [1, 50], sort field and direction restricted to
// the allow-lists.
func (q ListQuery) Normalize() ListQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if _, ok := sortFields[q.SortBy]; !ok {
		q.SortBy = DefaultSortBy
	}
	switch strings.ToLower(q.SortOrder) {
	case "asc":
		q.SortOrder = "asc"
	case "desc":
		q.SortOrder = "desc"
	default:
		q.SortOrder = DefaultSortOrder
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

// Offset converts the 1-indexed page into a row offset.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

// PageMeta is the pagination envelope returned with every listing.
type PageMeta struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int64 `json:"totalPages"`
}

// NewPageMeta computes totalPages as ceil(totalItems/limit).
func NewPageMeta(page, limit int, totalItems int64) PageMeta {
	totalPages := totalItems / int64(limit)
	if totalItems%int64(limit) != 0 {
		totalPages++
	}
	return PageMeta{Page: page, Limit: limit, TotalItems: totalItems, TotalPages: totalPages}
}
