package coupon_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lojinha-labs/service-catalog/internal/domain/coupon"
	"github.com/lojinha-labs/service-catalog/internal/domain/errs"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func window() (time.Time, time.Time) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 6, 0)
}

func TestNew(t *testing.T) {
	from, until := window()

	t.Run("valid percent coupon", func(t *testing.T) {
		c, err := coupon.New("SAVE10", coupon.TypePercent, dec("10"), false, 0, from, until)
		require.NoError(t, err)
		assert.Equal(t, "SAVE10", c.Code())
		assert.Equal(t, coupon.TypePercent, c.Type())
		assert.Equal(t, 0, c.UsesCount())
	})

	t.Run("code is trimmed and uppercased", func(t *testing.T) {
		c, err := coupon.New("  save10  ", coupon.TypePercent, dec("10"), false, 0, from, until)
		require.NoError(t, err)
		assert.Equal(t, "SAVE10", c.Code())
	})

	t.Run("rejects malformed codes", func(t *testing.T) {
		for _, code := range []string{"AB", "SAVE-10", "save 10!", strings.Repeat("A", 21), ""} {
			_, err := coupon.New(code, coupon.TypePercent, dec("10"), false, 0, from, until)
			assert.ErrorIs(t, err, errs.ErrInvalidInput, "code %q", code)
		}
	})

	t.Run("rejects reserved codes case-insensitively", func(t *testing.T) {
		for _, code := range []string{"ADMIN", "auth", "Null", "UNDEFINED", "test", "SYSTEM"} {
			_, err := coupon.New(code, coupon.TypePercent, dec("10"), false, 0, from, until)
			assert.ErrorIs(t, err, errs.ErrInvalidInput, "code %q", code)
		}
	})

	t.Run("percent value bounds", func(t *testing.T) {
		for _, v := range []string{"1", "80", "42.5"} {
			_, err := coupon.New("SAVE10", coupon.TypePercent, dec(v), false, 0, from, until)
			assert.NoError(t, err, "value %s", v)
		}
		for _, v := range []string{"0", "0.99", "80.01", "100"} {
			_, err := coupon.New("SAVE10", coupon.TypePercent, dec(v), false, 0, from, until)
			assert.ErrorIs(t, err, errs.ErrInvalidInput, "value %s", v)
		}
	})

	t.Run("fixed value bounds", func(t *testing.T) {
		for _, v := range []string{"0.01", "999999.99", "1000000"} {
			_, err := coupon.New("TAKE5", coupon.TypeFixed, dec(v), false, 0, from, until)
			assert.NoError(t, err, "value %s", v)
		}
		for _, v := range []string{"0", "0.005", "1000000.01"} {
			_, err := coupon.New("TAKE5", coupon.TypeFixed, dec(v), false, 0, from, until)
			assert.ErrorIs(t, err, errs.ErrInvalidInput, "value %s", v)
		}
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := coupon.New("SAVE10", coupon.Type("bogus"), dec("10"), false, 0, from, until)
		assert.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("rejects negative max uses", func(t *testing.T) {
		_, err := coupon.New("SAVE10", coupon.TypePercent, dec("10"), false, -1, from, until)
		assert.ErrorIs(t, err, errs.ErrInvalidInput)
	})
}

func TestValidateWindow(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("until must follow from", func(t *testing.T) {
		assert.ErrorIs(t, coupon.ValidateWindow(from, from), errs.ErrInvalidInput)
		assert.ErrorIs(t, coupon.ValidateWindow(from, from.Add(-time.Hour)), errs.ErrInvalidInput)
	})

	t.Run("window capped at five years from valid_from", func(t *testing.T) {
		assert.NoError(t, coupon.ValidateWindow(from, from.AddDate(5, 0, 0)))
		assert.ErrorIs(t, coupon.ValidateWindow(from, from.AddDate(5, 0, 1)), errs.ErrInvalidInput)
		assert.ErrorIs(t, coupon.ValidateWindow(from, from.AddDate(6, 0, 0)), errs.ErrInvalidInput)
	})

	t.Run("far future from is fine when the window itself is short", func(t *testing.T) {
		farFrom := from.AddDate(10, 0, 0)
		assert.NoError(t, coupon.ValidateWindow(farFrom, farFrom.AddDate(1, 0, 0)))
	})
}

func TestNewSingleUsePercent(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	c, err := coupon.NewSingleUsePercent(dec("25"), now)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(c.Code(), "SYSTEM"))
	assert.Len(t, c.Code(), 20)
	assert.Equal(t, coupon.TypePercent, c.Type())
	assert.True(t, c.Value().Equal(dec("25")))
	assert.Equal(t, 1, c.MaxUses())
	assert.False(t, c.OneShot())
	assert.Equal(t, now, c.ValidFrom())
	assert.Equal(t, now.AddDate(1, 0, 0), c.ValidUntil())

	t.Run("codes are unique", func(t *testing.T) {
		other, err := coupon.NewSingleUsePercent(dec("25"), now)
		require.NoError(t, err)
		assert.NotEqual(t, c.Code(), other.Code())
	})

	t.Run("percentage bounds still apply", func(t *testing.T) {
		_, err := coupon.NewSingleUsePercent(dec("81"), now)
		assert.ErrorIs(t, err, errs.ErrInvalidInput)
	})
}

func TestValidityAndUsage(t *testing.T) {
	from, until := window()
	c, err := coupon.New("SAVE10", coupon.TypePercent, dec("10"), false, 0, from, until)
	require.NoError(t, err)

	t.Run("window boundaries are inclusive", func(t *testing.T) {
		assert.True(t, c.IsValidAt(from))
		assert.True(t, c.IsValidAt(until))
		assert.False(t, c.IsValidAt(from.Add(-time.Second)))
		assert.False(t, c.IsValidAt(until.Add(time.Second)))
	})

	t.Run("unlimited when max uses is zero", func(t *testing.T) {
		assert.True(t, c.CanBeUsedAt(from))
		assert.Equal(t, -1, c.RemainingUses())
	})

	t.Run("exhausted coupon cannot be used inside its window", func(t *testing.T) {
		exhausted := reconstructWithUses(t, 3, 3)
		assert.True(t, exhausted.IsValidAt(from))
		assert.False(t, exhausted.CanBeUsedAt(from))
		assert.Equal(t, 0, exhausted.RemainingUses())
	})

	t.Run("remaining uses under the cap", func(t *testing.T) {
		partial := reconstructWithUses(t, 5, 2)
		assert.True(t, partial.CanBeUsedAt(from))
		assert.Equal(t, 3, partial.RemainingUses())
	})
}

func TestSetters(t *testing.T) {
	from, until := window()
	c, err := coupon.New("SAVE10", coupon.TypePercent, dec("10"), false, 0, from, until)
	require.NoError(t, err)

	t.Run("schedule re-validates the merged window", func(t *testing.T) {
		assert.ErrorIs(t, c.SetSchedule(until, from), errs.ErrInvalidInput)
		assert.NoError(t, c.SetSchedule(from, from.AddDate(1, 0, 0)))
		assert.Equal(t, from.AddDate(1, 0, 0), c.ValidUntil())
	})

	t.Run("value re-validates against the new type", func(t *testing.T) {
		assert.ErrorIs(t, c.SetValue(coupon.TypePercent, dec("90")), errs.ErrInvalidInput)
		assert.NoError(t, c.SetValue(coupon.TypeFixed, dec("90")))
		assert.Equal(t, coupon.TypeFixed, c.Type())
	})

	t.Run("max uses cannot go negative", func(t *testing.T) {
		assert.ErrorIs(t, c.SetMaxUses(-1), errs.ErrInvalidInput)
		assert.NoError(t, c.SetMaxUses(10))
	})
}

func reconstructWithUses(t *testing.T, maxUses, usesCount int) *coupon.Coupon {
	t.Helper()
	from, until := window()
	base, err := coupon.New("SAVE10", coupon.TypePercent, dec("10"), false, maxUses, from, until)
	require.NoError(t, err)
	return coupon.Reconstruct(
		base.ID(), base.Code(), base.Type(), base.Value(),
		base.OneShot(), maxUses, usesCount,
		from, until, base.CreatedAt(), base.UpdatedAt(), nil,
	)
}
