package coupon

import (
	"github.com/shopspring/decimal"

	"github.com/lojinha-labs/service-catalog/internal/domain/errs"
)

// MinimumPrice is the lowest post-discount price a product may reach.
var MinimumPrice = decimal.RequireFromString("0.01")

var hundred = decimal.NewFromInt(100)

// FinalPrice computes the price after applying a discount of the given type
// and value. Percent discounts scale the price; fixed discounts subtract and
// clamp at the minimum price so the result never goes to zero or below.
func FinalPrice(price decimal.Decimal, typ Type, value decimal.Decimal) decimal.Decimal {
	if typ == TypePercent {
		return price.Mul(hundred.Sub(value)).Div(hundred)
	}
	discounted := price.Sub(value)
	if discounted.LessThan(MinimumPrice) {
		return MinimumPrice
	}
	return discounted
}

// ValidateFinalPrice rejects a simulated post-discount price below the floor.
// It runs before any application row is committed.
func ValidateFinalPrice(finalPrice decimal.Decimal) error {
	if finalPrice.LessThan(MinimumPrice) {
		return errs.NewUnprocessableError("discount would make product price below minimum (0.01)")
	}
	return nil
}

// ValidatePercentage enforces the 1-80 percent discount range.
func ValidatePercentage(percentage decimal.Decimal) error {
	if percentage.LessThan(minPercent) || percentage.GreaterThan(maxPercent) {
		return errs.NewInvalidInputError("percentage discount must be between 1% and 80%")
	}
	return nil
}
