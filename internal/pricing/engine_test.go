package pricing_test

import (
	"testing"

	"foodorder/internal/apperr"
	"foodorder/internal/config"
	"foodorder/internal/models"
	"foodorder/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rate(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func usd(s string) models.Money { return models.MustMoney(s, "USD") }

func item(id, price string, qty int) models.LineItem {
	return models.LineItem{ItemID: id, Name: id, UnitPrice: usd(price), Quantity: qty, RestaurantID: "r1"}
}

func TestComputeBreakdown_BurgerAndFries(t *testing.T) {
	items := []models.LineItem{item("burger", "5.00", 2), item("fries", "2.50", 1)}

	pb, err := pricing.ComputeBreakdown(items, rate("0.10"), usd("2.99"), nil)
	require.NoError(t, err)

	assert.Equal(t, "12.50", pb.Subtotal.Amount.StringFixed(2))
	assert.Equal(t, "1.25", pb.Tax.Amount.StringFixed(2))
	assert.Equal(t, "2.99", pb.DeliveryFee.Amount.StringFixed(2))
	assert.Equal(t, "16.74", pb.Total.Amount.StringFixed(2))
	assert.Nil(t, pb.Discount)
	assert.True(t, pricing.Verify(pb, items))
}

func TestComputeBreakdown_RoundsOnceAtTheEnd(t *testing.T) {
	// Three lines of 0.333 round to 0.33 each, but the exact sum 0.999 rounds to 1.00.
	items := []models.LineItem{item("a", "0.333", 1), item("b", "0.333", 1), item("c", "0.333", 1)}

	pb, err := pricing.ComputeBreakdown(items, rate("0"), usd("0"), nil)
	require.NoError(t, err)
	assert.Equal(t, "1.00", pb.Subtotal.Amount.StringFixed(2))
}

func TestComputeBreakdown_TaxRoundsHalfUp(t *testing.T) {
	// 0.25 * 0.10 = 0.025 -> 0.03
	pb, err := pricing.ComputeBreakdown([]models.LineItem{item("gum", "0.25", 1)}, rate("0.10"), usd("0"), nil)
	require.NoError(t, err)
	assert.Equal(t, "0.03", pb.Tax.Amount.StringFixed(2))
	assert.Equal(t, "0.28", pb.Total.Amount.StringFixed(2))
}

func TestComputeBreakdown_Discounts(t *testing.T) {
	items := []models.LineItem{item("burger", "5.00", 2)}

	t.Run("partial discount", func(t *testing.T) {
		d := usd("3.00")
		pb, err := pricing.ComputeBreakdown(items, rate("0.10"), usd("2.00"), &d)
		require.NoError(t, err)
		// 10.00 + 1.00 + 2.00 - 3.00
		assert.Equal(t, "10.00", pb.Total.Amount.StringFixed(2))
		require.NotNil(t, pb.Discount)
		assert.True(t, pricing.Verify(pb, items))
	})

	t.Run("discount exceeds total", func(t *testing.T) {
		d := usd("100.00")
		pb, err := pricing.ComputeBreakdown(items, rate("0.10"), usd("2.00"), &d)
		require.NoError(t, err)
		assert.True(t, pb.Total.Amount.IsZero())
		assert.True(t, pricing.Verify(pb, items))
	})
}

func TestComputeBreakdown_FailsClosedWithoutTaxRate(t *testing.T) {
	_, err := pricing.ComputeBreakdown([]models.LineItem{item("x", "1.00", 1)}, decimal.NullDecimal{}, usd("1.00"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrMissingTaxRate)
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
}

func TestComputeBreakdown_RejectsBadItems(t *testing.T) {
	cases := map[string]models.LineItem{
		"zero quantity":  item("x", "1.00", 0),
		"negative price": item("x", "-1.00", 1),
		"other currency": {ItemID: "x", UnitPrice: models.MustMoney("1.00", "EUR"), Quantity: 1},
	}
	for name, li := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := pricing.ComputeBreakdown([]models.LineItem{li}, rate("0.1"), usd("0"), nil)
			assert.True(t, apperr.Is(err, apperr.KindValidation))
		})
	}
}

func TestEngine_PriceCart(t *testing.T) {
	e := pricing.NewEngine(config.PricingConfig{TaxRate: rate("0.10"), DeliveryFee: decimal.RequireFromString("2.99"), Currency: "USD"})

	pb, err := e.PriceCart(&models.Cart{})
	require.NoError(t, err)
	assert.True(t, pb.Total.Amount.IsZero(), "empty cart is free")

	pb, err = e.PriceCart(&models.Cart{Items: []models.LineItem{item("burger", "5.00", 2), item("fries", "2.50", 1)}})
	require.NoError(t, err)
	assert.Equal(t, "16.74", pb.Total.Amount.StringFixed(2))
}

func TestVerify_DetectsTampering(t *testing.T) {
	items := []models.LineItem{item("burger", "5.00", 2)}
	pb, err := pricing.ComputeBreakdown(items, rate("0.10"), usd("2.99"), nil)
	require.NoError(t, err)

	pb.Total = usd("1.00")
	assert.False(t, pricing.Verify(pb, items))
}
