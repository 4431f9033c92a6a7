// Package pricing computes order totals. Every function here is pure and safe for
// concurrent use.
package pricing

import (
	"foodorder/internal/apperr"
	"foodorder/internal/config"
	"foodorder/internal/models"

	"github.com/shopspring/decimal"
)

// ComputeBreakdown prices items. The subtotal is summed exactly and rounded once,
// tax is charged on the rounded subtotal, and the total never drops below zero.
func ComputeBreakdown(items []models.LineItem, taxRate decimal.NullDecimal, deliveryFee models.Money, discount *models.Money) (models.PriceBreakdown, error) {
	if !taxRate.Valid {
		return models.PriceBreakdown{}, apperr.ErrMissingTaxRate
	}
	if taxRate.Decimal.IsNegative() {
		return models.PriceBreakdown{}, apperr.Configuration("tax rate must not be negative")
	}
	currency := deliveryFee.Currency
	if deliveryFee.IsNegative() {
		return models.PriceBreakdown{}, apperr.Configuration("delivery fee must not be negative")
	}

	subtotal := models.Zero(currency)
	for _, item := range items {
		if item.Quantity < 1 {
			return models.PriceBreakdown{}, apperr.Validation("item %s: quantity must be at least 1", item.ItemID)
		}
		if item.UnitPrice.IsNegative() {
			return models.PriceBreakdown{}, apperr.Validation("item %s: unit price must not be negative", item.ItemID)
		}
		if item.UnitPrice.Currency != currency {
			return models.PriceBreakdown{}, apperr.Validation("item %s: currency %s does not match %s", item.ItemID, item.UnitPrice.Currency, currency)
		}
		subtotal = subtotal.Add(item.UnitPrice.Times(item.Quantity))
	}
	subtotal = subtotal.Round2()

	tax := models.Money{Amount: subtotal.Amount.Mul(taxRate.Decimal), Currency: currency}.Round2()
	fee := deliveryFee.Round2()

	total := subtotal.Add(tax).Add(fee)
	var disc *models.Money
	if discount != nil {
		if discount.Currency != currency {
			return models.PriceBreakdown{}, apperr.Validation("discount currency %s does not match %s", discount.Currency, currency)
		}
		d := discount.Round2()
		d.Amount = d.Amount.Abs()
		disc = &d
		total = total.Sub(d)
	}
	if total.IsNegative() {
		total = models.Zero(currency)
	}

	return models.PriceBreakdown{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		Discount:    disc,
		Total:       total,
	}, nil
}

// Engine applies the configured tax rate and delivery fee.
type Engine struct {
	taxRate     decimal.NullDecimal
	deliveryFee models.Money
	currency    string
}

// NewEngine builds an Engine from pricing configuration. The configuration is copied.
func NewEngine(cfg config.PricingConfig) *Engine {
	return &Engine{
		taxRate:     cfg.TaxRate,
		deliveryFee: models.Money{Amount: cfg.DeliveryFee, Currency: cfg.Currency},
		currency:    cfg.Currency,
	}
}

// Currency is the currency every price must be quoted in.
func (e *Engine) Currency() string { return e.currency }

// Price computes the breakdown for a non-empty set of items.
func (e *Engine) Price(items []models.LineItem, discount *models.Money) (models.PriceBreakdown, error) {
	return ComputeBreakdown(items, e.taxRate, e.deliveryFee, discount)
}

// PriceCart prices a cart for display. An empty cart costs nothing, delivery included.
func (e *Engine) PriceCart(cart *models.Cart) (models.PriceBreakdown, error) {
	if cart == nil || cart.IsEmpty() {
		if !e.taxRate.Valid {
			return models.PriceBreakdown{}, apperr.ErrMissingTaxRate
		}
		zero := models.Zero(e.currency)
		return models.PriceBreakdown{Subtotal: zero, Tax: zero, DeliveryFee: zero, Total: zero}, nil
	}
	return e.Price(cart.Items, nil)
}

// Verify recomputes the breakdown for items and reports whether it equals pb.
// Orders store the recomputed value only after this check passes.
func Verify(pb models.PriceBreakdown, items []models.LineItem) bool {
	sum := models.Zero(pb.Subtotal.Currency)
	for _, item := range items {
		sum = sum.Add(item.UnitPrice.Times(item.Quantity))
	}
	if !sum.Round2().Equal(pb.Subtotal) {
		return false
	}
	want := pb.Subtotal.Add(pb.Tax).Add(pb.DeliveryFee)
	if pb.Discount != nil {
		want = want.Sub(*pb.Discount)
	}
	if want.IsNegative() {
		want = models.Zero(want.Currency)
	}
	return want.Equal(pb.Total)
}
