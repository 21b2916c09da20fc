package service

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddCouponUppercasesAndRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	coupon, err := env.pricing.AddCoupon(ctx, CouponInput{Code: " glow10 ", DiscountType: models.DiscountPercentage, Value: 10})
	require.NoError(t, err)
	assert.Equal(t, "GLOW10", coupon.Code)

	_, err = env.pricing.AddCoupon(ctx, CouponInput{Code: "Glow10", DiscountType: models.DiscountFixed, Value: 50})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Len(t, env.pricing.GetCoupons(ctx), 1)
}

func TestAddCouponValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	negative := -1.0

	bad := []CouponInput{
		{Code: "", DiscountType: models.DiscountFixed, Value: 10},
		{Code: "X", DiscountType: "bogus", Value: 10},
		{Code: "X", DiscountType: models.DiscountPercentage, Value: 120},
		{Code: "X", DiscountType: models.DiscountFixed, Value: 0},
		{Code: "X", DiscountType: models.DiscountFixed, Value: 5, MinSpend: &negative},
		{Code: "X", DiscountType: models.DiscountFixed, Value: 5, ExpiryDate: "tomorrow"},
	}
	for _, in := range bad {
		_, err := env.pricing.AddCoupon(ctx, in)
		assert.ErrorIs(t, err, ErrValidation, "input %+v", in)
	}
}

func TestUpdateCouponAllowsOwnCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.pricing.AddCoupon(ctx, CouponInput{Code: "SAVE", DiscountType: models.DiscountFixed, Value: 20})
	require.NoError(t, err)
	_, err = env.pricing.AddCoupon(ctx, CouponInput{Code: "OTHER", DiscountType: models.DiscountFixed, Value: 20})
	require.NoError(t, err)

	updated, err := env.pricing.UpdateCoupon(ctx, c.ID, CouponInput{Code: "save", DiscountType: models.DiscountFixed, Value: 30})
	require.NoError(t, err)
	assert.Equal(t, 30.0, updated.Value)

	_, err = env.pricing.UpdateCoupon(ctx, c.ID, CouponInput{Code: "other", DiscountType: models.DiscountFixed, Value: 30})
	assert.ErrorIs(t, err, ErrConflict)

	require.NoError(t, env.pricing.DeleteCoupon(ctx, c.ID))
	assert.ErrorIs(t, env.pricing.DeleteCoupon(ctx, c.ID), ErrNotFound)
}

func TestValidateCoupon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.pricing.now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	minSpend := 500.0

	_, err := env.pricing.AddCoupon(ctx, CouponInput{Code: "OLD", DiscountType: models.DiscountFixed, Value: 10, ExpiryDate: "2024-06-14"})
	require.NoError(t, err)
	_, err = env.pricing.AddCoupon(ctx, CouponInput{Code: "TODAY", DiscountType: models.DiscountFixed, Value: 10, ExpiryDate: "2024-06-15"})
	require.NoError(t, err)
	_, err = env.pricing.AddCoupon(ctx, CouponInput{Code: "BIG", DiscountType: models.DiscountPercentage, Value: 10, MinSpend: &minSpend})
	require.NoError(t, err)

	_, err = env.pricing.ValidateCoupon(ctx, "old", 100)
	assert.ErrorIs(t, err, ErrValidation)

	c, err := env.pricing.ValidateCoupon(ctx, "today", 100)
	require.NoError(t, err)
	assert.Equal(t, "TODAY", c.Code)

	_, err = env.pricing.ValidateCoupon(ctx, "BIG", 499)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.pricing.ValidateCoupon(ctx, "BIG", 500)
	assert.NoError(t, err)

	_, err = env.pricing.ValidateCoupon(ctx, "NOPE", 1000)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGlobalDiscountBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.pricing.UpdateGlobalDiscountPercentage(ctx, 150)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.pricing.UpdateGlobalDiscountPercentage(ctx, -5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.pricing.UpdateGlobalDiscountPercentage(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 50.0, env.pricing.GetGlobalDiscountPercentage(ctx))
}

func TestTaxAndShippingBounds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	assert.Equal(t, float64(models.DefaultTaxRate), env.pricing.GetTaxRate(ctx))
	_, err := env.pricing.UpdateTaxRate(ctx, 101)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = env.pricing.UpdateTaxRate(ctx, 12)
	require.NoError(t, err)
	assert.Equal(t, 12.0, env.pricing.GetTaxRate(ctx))

	_, err = env.pricing.UpdateShippingSettings(ctx, -1, 100)
	assert.ErrorIs(t, err, ErrValidation)
	settings, err := env.pricing.UpdateShippingSettings(ctx, 40, 0)
	require.NoError(t, err)
	assert.Equal(t, models.ShippingSettings{Rate: 40, Threshold: 0}, *settings)
}

func TestCouponDiscountIsCapped(t *testing.T) {
	fixed := models.Coupon{DiscountType: models.DiscountFixed, Value: 300}
	assert.Equal(t, 200.0, CouponDiscount(fixed, 200))

	pct := models.Coupon{DiscountType: models.DiscountPercentage, Value: 15}
	assert.InDelta(t, 30.0, CouponDiscount(pct, 200), 1e-9)
}
