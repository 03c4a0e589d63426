package coupon

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lojinha-labs/service-catalog/internal/domain/errs"
)

// Type represents the kind of discount a coupon grants.
type Type string

const (
	TypePercent Type = "percent"
	TypeFixed   Type = "fixed"
)

// MaxWindowYears bounds the validity window measured from valid_from.
const MaxWindowYears = 5

var (
	codePattern = regexp.MustCompile(`^[A-Z0-9]{4,20}$`)

	// reservedCodes can never be claimed by a user-created coupon.
	reservedCodes = map[string]struct{}{
		"ADMIN": {}, "AUTH": {}, "NULL": {}, "UNDEFINED": {}, "TEST": {}, "SYSTEM": {},
	}

	maxFixedValue = decimal.NewFromInt(1_000_000)
	minPercent    = decimal.NewFromInt(1)
	maxPercent    = decimal.NewFromInt(80)
)

// Coupon is the aggregate root for discount coupons.
type Coupon struct {
	id         uuid.UUID
	code       string
	typ        Type
	value      decimal.Decimal
	oneShot    bool
	maxUses    int
	usesCount  int
	validFrom  time.Time
	validUntil time.Time
	createdAt  time.Time
	updatedAt  time.Time
	deletedAt  *time.Time
}

// New creates a user-defined coupon, enforcing the cross-field creation rules:
// reserved codes, value bounds per type, date ordering and the window cap.
func New(code string, typ Type, value decimal.Decimal, oneShot bool, maxUses int, validFrom, validUntil time.Time) (*Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return nil, errs.NewInvalidInputError("coupon code must be 4-20 uppercase alphanumeric characters")
	}
	if _, reserved := reservedCodes[code]; reserved {
		return nil, errs.NewInvalidInputError("this coupon code is reserved and cannot be used")
	}
	if err := validateValue(typ, value); err != nil {
		return nil, err
	}
	if maxUses < 0 {
		return nil, errs.NewInvalidInputError("max_uses cannot be negative")
	}
	if err := ValidateWindow(validFrom, validUntil); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Coupon{
		id:         uuid.New(),
		code:       code,
		typ:        typ,
		value:      value,
		oneShot:    oneShot,
		maxUses:    maxUses,
		usesCount:  0,
		validFrom:  validFrom,
		validUntil: validUntil,
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// NewSingleUsePercent creates the private coupon backing a direct percent
// discount: a synthesized SYSTEM-prefixed code, max_uses of 1 and a one-year
// window starting now. The code stays within the 20-char alphanumeric format.
func NewSingleUsePercent(percentage decimal.Decimal, now time.Time) (*Coupon, error) {
	if err := ValidatePercentage(percentage); err != nil {
		return nil, err
	}

	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	code := "SYSTEM" + suffix[:14]

	now = now.UTC()
	return &Coupon{
		id:         uuid.New(),
		code:       code,
		typ:        TypePercent,
		value:      percentage,
		oneShot:    false,
		maxUses:    1,
		usesCount:  0,
		validFrom:  now,
		validUntil: now.AddDate(1, 0, 0),
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// Reconstruct rebuilds a Coupon from persistence.
func Reconstruct(id uuid.UUID, code string, typ Type, value decimal.Decimal, oneShot bool, maxUses, usesCount int, validFrom, validUntil, createdAt, updatedAt time.Time, deletedAt *time.Time) *Coupon {
	return &Coupon{
		id: id, code: code, typ: typ, value: value,
		oneShot: oneShot, maxUses: maxUses, usesCount: usesCount,
		validFrom: validFrom, validUntil: validUntil,
		createdAt: createdAt, updatedAt: updatedAt, deletedAt: deletedAt,
	}
}

// IsValidAt reports whether now falls inside the validity window. Recomputed on
// every read; never cached.
func (c *Coupon) IsValidAt(now time.Time) bool {
	return !now.Before(c.validFrom) && !now.After(c.validUntil)
}

// CanBeUsedAt reports whether the coupon is valid and still under its usage cap.
func (c *Coupon) CanBeUsedAt(now time.Time) bool {
	if !c.IsValidAt(now) {
		return false
	}
	return c.maxUses == 0 || c.usesCount < c.maxUses
}

// RemainingUses returns the uses left, or -1 when unlimited.
func (c *Coupon) RemainingUses() int {
	if c.maxUses == 0 {
		return -1
	}
	return c.maxUses - c.usesCount
}

// SetSchedule replaces the validity window. Both ends must be the effective
// merged values when only one side changes; the same ordering and cap rules as
// creation apply.
func (c *Coupon) SetSchedule(validFrom, validUntil time.Time) error {
	if err := ValidateWindow(validFrom, validUntil); err != nil {
		return err
	}
	c.validFrom = validFrom
	c.validUntil = validUntil
	c.updatedAt = time.Now().UTC()
	return nil
}

// SetValue replaces the discount type and value pair.
func (c *Coupon) SetValue(typ Type, value decimal.Decimal) error {
	if err := validateValue(typ, value); err != nil {
		return err
	}
	c.typ = typ
	c.value = value
	c.updatedAt = time.Now().UTC()
	return nil
}

// SetOneShot toggles the per-product single-application flag.
func (c *Coupon) SetOneShot(oneShot bool) {
	c.oneShot = oneShot
	c.updatedAt = time.Now().UTC()
}

// SetMaxUses replaces the usage cap (0 = unlimited).
func (c *Coupon) SetMaxUses(maxUses int) error {
	if maxUses < 0 {
		return errs.NewInvalidInputError("max_uses cannot be negative")
	}
	c.maxUses = maxUses
	c.updatedAt = time.Now().UTC()
	return nil
}

// ValidateWindow enforces valid_until > valid_from and the window cap.
func ValidateWindow(validFrom, validUntil time.Time) error {
	if !validUntil.After(validFrom) {
		return errs.NewInvalidInputError("valid_until must be after valid_from")
	}
	if validUntil.After(validFrom.AddDate(MaxWindowYears, 0, 0)) {
		return errs.NewInvalidInputError(fmt.Sprintf("coupon validity cannot exceed %d years from valid_from", MaxWindowYears))
	}
	return nil
}

func validateValue(typ Type, value decimal.Decimal) error {
	switch typ {
	case TypePercent:
		return ValidatePercentage(value)
	case TypeFixed:
		if value.LessThan(MinimumPrice) {
			return errs.NewInvalidInputError("fixed value must be at least 0.01")
		}
		if value.GreaterThan(maxFixedValue) {
			return errs.NewInvalidInputError("fixed value cannot exceed 1,000,000")
		}
		return nil
	default:
		return errs.NewInvalidInputError(fmt.Sprintf("invalid coupon type: %s", typ))
	}
}

// Getters.
func (c *Coupon) ID() uuid.UUID          { return c.id }
func (c *Coupon) Code() string           { return c.code }
func (c *Coupon) Type() Type             { return c.typ }
func (c *Coupon) Value() decimal.Decimal { return c.value }
func (c *Coupon) OneShot() bool          { return c.oneShot }
func (c *Coupon) MaxUses() int           { return c.maxUses }
func (c *Coupon) UsesCount() int         { return c.usesCount }
func (c *Coupon) ValidFrom() time.Time   { return c.validFrom }
func (c *Coupon) ValidUntil() time.Time  { return c.validUntil }
func (c *Coupon) CreatedAt() time.Time   { return c.createdAt }
func (c *Coupon) UpdatedAt() time.Time   { return c.updatedAt }
func (c *Coupon) DeletedAt() *time.Time  { return c.deletedAt }
