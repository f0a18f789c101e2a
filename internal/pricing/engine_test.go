package pricing_test

import (
	"testing"

	"bazaar/internal/models"
	"bazaar/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var defaultCharges = pricing.ChargeConfig{
	Delivery:       20,
	Handling:       5,
	Platform:       2,
	GSTRate:        0.05,
	MinOrderAmount: 10,
}

func unitItem(id string, price interface{}) models.CatalogItem {
	return models.CatalogItem{
		ProductID:       id,
		Name:            "Item " + id,
		DiscountedPrice: price,
		Images:          []string{"https://img.example.com/" + id + ".png"},
		QuantityFormat:  models.QuantityFormat{Type: models.QuantityTypeUnit},
	}
}

func TestComputeOrderTotals_EndToEndUnitItem(t *testing.T) {
	cart := []models.CartLine{{ProductID: "P1", Quantity: 2}}
	catalog := []models.CatalogItem{unitItem("P1", 25.0)}

	totals, err := pricing.ComputeOrderTotals(cart, catalog, defaultCharges)
	require.NoError(t, err)

	assert.Equal(t, 50.0, totals.Subtotal)
	assert.Equal(t, 2.5, totals.Charges.GST)
	assert.Equal(t, 20.0, totals.Charges.Delivery)
	assert.Equal(t, 5.0, totals.Charges.Handling)
	assert.Equal(t, 2.0, totals.Charges.Platform)
	assert.Zero(t, totals.Charges.Tip)
	assert.Zero(t, totals.Charges.Discount)
	assert.Equal(t, 79.5, totals.FinalAmount)

	require.Len(t, totals.Items, 1)
	item := totals.Items[0]
	assert.Equal(t, "P1", item.ProductID)
	assert.Equal(t, 25.0, item.UnitPrice)
	assert.Equal(t, 50.0, item.LineTotal)
	assert.Equal(t, models.QuantityTypeUnit, item.QuantityType)
	assert.Equal(t, "2 piece", item.QuantityLabel)
	assert.Equal(t, "https://img.example.com/P1.png", item.ImageURL)
}

func TestComputeOrderTotals_IsDeterministic(t *testing.T) {
	cart := []models.CartLine{{ProductID: "P1", Quantity: 3}, {ProductID: "P2", Quantity: 750}}
	catalog := []models.CatalogItem{
		unitItem("P1", "19.99"),
		{ProductID: "P2", Name: "Rice", DiscountedPrice: 64.5, QuantityFormat: models.QuantityFormat{Type: models.QuantityTypeWeight, Qty: 250}},
	}

	first, err := pricing.ComputeOrderTotals(cart, catalog, defaultCharges)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := pricing.ComputeOrderTotals(cart, catalog, defaultCharges)
		require.NoError(t, err)
		assert.Equal(t, first.FinalAmount, again.FinalAmount)
		assert.Equal(t, first, again)
	}
}

func TestComputeOrderTotals_WeightNormalization(t *testing.T) {
	cart := []models.CartLine{{ProductID: "W1", Quantity: 500}}
	catalog := []models.CatalogItem{{
		ProductID:       "W1",
		Name:            "Tomatoes",
		DiscountedPrice: 100.0,
		QuantityFormat:  models.QuantityFormat{Type: models.QuantityTypeWeight},
	}}

	totals, err := pricing.ComputeOrderTotals(cart, catalog, defaultCharges)
	require.NoError(t, err)
	assert.Equal(t, 50.0, totals.Items[0].LineTotal)
	assert.Equal(t, "500gm", totals.Items[0].QuantityLabel)
	assert.Equal(t, models.QuantityTypeWeight, totals.Items[0].QuantityType)
}

func TestComputeOrderTotals_MinimumEnforcement(t *testing.T) {
	catalog := []models.CatalogItem{unitItem("A", 9.99), unitItem("B", 10.0)}

	_, err := pricing.ComputeOrderTotals([]models.CartLine{{ProductID: "A", Quantity: 1}}, catalog, defaultCharges)
	assert.ErrorIs(t, err, pricing.ErrBelowMinimum)

	totals, err := pricing.ComputeOrderTotals([]models.CartLine{{ProductID: "B", Quantity: 1}}, catalog, defaultCharges)
	require.NoError(t, err)
	assert.Equal(t, 10.0, totals.Subtotal)
}

func TestComputeOrderTotals_UnknownProduct(t *testing.T) {
	cart := []models.CartLine{{ProductID: "P1", Quantity: 1}, {ProductID: "ghost", Quantity: 1}}
	_, err := pricing.ComputeOrderTotals(cart, []models.CatalogItem{unitItem("P1", 50.0)}, defaultCharges)

	assert.ErrorIs(t, err, pricing.ErrProductUnavailable)
	assert.Contains(t, err.Error(), "ghost")
}

func TestComputeOrderTotals_InvalidPrice(t *testing.T) {
	for name, price := range map[string]interface{}{
		"missing":  nil,
		"negative": -4.0,
		"garbage":  "abc",
		"bool":     true,
	} {
		t.Run(name, func(t *testing.T) {
			cart := []models.CartLine{{ProductID: "P1", Quantity: 1}}
			_, err := pricing.ComputeOrderTotals(cart, []models.CatalogItem{unitItem("P1", price)}, defaultCharges)
			assert.ErrorIs(t, err, pricing.ErrInvalidPrice)
		})
	}
}

func TestComputeOrderTotals_InvalidQuantity(t *testing.T) {
	for _, qty := range []float64{0, -2} {
		cart := []models.CartLine{{ProductID: "P1", Quantity: qty}}
		_, err := pricing.ComputeOrderTotals(cart, []models.CatalogItem{unitItem("P1", 50.0)}, defaultCharges)
		assert.ErrorIs(t, err, pricing.ErrInvalidQuantity)
	}
}

func TestComputeOrderTotals_RoundsGST(t *testing.T) {
	cart := []models.CartLine{{ProductID: "P1", Quantity: 1}}
	totals, err := pricing.ComputeOrderTotals(cart, []models.CatalogItem{unitItem("P1", 33.33)}, defaultCharges)
	require.NoError(t, err)

	// 33.33 * 0.05 = 1.6665
	assert.Equal(t, 1.67, totals.Charges.GST)
	assert.Equal(t, 62.0, totals.FinalAmount)
}

func TestQuantityLabel(t *testing.T) {
	q := decimal.NewFromInt(500)
	assert.Equal(t, "250-500gm", pricing.QuantityLabel(models.QuantityTypeWeight, q, 250))
	assert.Equal(t, "500gm", pricing.QuantityLabel(models.QuantityTypeWeight, q, 0))
	assert.Equal(t, "6 pieces x 2", pricing.QuantityLabel(models.QuantityTypeUnit, decimal.NewFromInt(2), 6))
	assert.Equal(t, "2 piece", pricing.QuantityLabel(models.QuantityTypeUnit, decimal.NewFromInt(2), 0))
}
