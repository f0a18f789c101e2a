// Package pricing turns an untrusted cart plus authoritative catalog data into
// priced line items and an order total. It has no side effects.
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"bazaar/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrProductUnavailable = errors.New("product not available")
	ErrInvalidPrice       = errors.New("invalid price")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrBelowMinimum       = errors.New("order amount below minimum")
)

const moneyPlaces = 2

var gramsPerKilogram = decimal.NewFromInt(1000)

// ChargeConfig holds the fixed charges and thresholds applied to every order.
type ChargeConfig struct {
	Delivery       float64
	Handling       float64
	Platform       float64
	GSTRate        float64
	MinOrderAmount float64
}

// Totals is the result of pricing a cart.
type Totals struct {
	Items       []models.ValidatedLineItem
	Subtotal    float64
	Charges     models.ChargeBreakdown
	FinalAmount float64
}

// ComputeOrderTotals validates every cart line against the catalog and derives
// the subtotal, the charge breakdown and the final amount.
func ComputeOrderTotals(cart []models.CartLine, catalog []models.CatalogItem, cfg ChargeConfig) (*Totals, error) {
	byID := make(map[string]models.CatalogItem, len(catalog))
	for _, item := range catalog {
		byID[item.ProductID] = item
	}

	items := make([]models.ValidatedLineItem, 0, len(cart))
	subtotal := decimal.Zero
	for _, line := range cart {
		product, ok := byID[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrProductUnavailable, line.ProductID)
		}

		item, lineTotal, err := priceLine(line, product)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		subtotal = subtotal.Add(lineTotal).Round(moneyPlaces)
	}

	minimum := decimal.NewFromFloat(cfg.MinOrderAmount)
	if subtotal.LessThan(minimum) {
		return nil, fmt.Errorf("%w: subtotal %s is less than %s", ErrBelowMinimum, subtotal.StringFixed(moneyPlaces), minimum.StringFixed(moneyPlaces))
	}

	delivery := money(cfg.Delivery)
	handling := money(cfg.Handling)
	platform := money(cfg.Platform)
	gst := subtotal.Mul(decimal.NewFromFloat(cfg.GSTRate)).Round(moneyPlaces)
	tip := decimal.Zero
	discount := decimal.Zero

	final := subtotal.Add(delivery).Add(handling).Add(gst).Add(platform).Add(tip).Sub(discount).Round(moneyPlaces)

	return &Totals{
		Items:    items,
		Subtotal: subtotal.InexactFloat64(),
		Charges: models.ChargeBreakdown{
			Delivery: delivery.InexactFloat64(),
			Handling: handling.InexactFloat64(),
			GST:      gst.InexactFloat64(),
			Platform: platform.InexactFloat64(),
			Tip:      tip.InexactFloat64(),
			Discount: discount.InexactFloat64(),
		},
		FinalAmount: final.InexactFloat64(),
	}, nil
}

func priceLine(line models.CartLine, product models.CatalogItem) (models.ValidatedLineItem, decimal.Decimal, error) {
	unitPrice, err := parsePrice(product.DiscountedPrice)
	if err != nil {
		return models.ValidatedLineItem{}, decimal.Zero, fmt.Errorf("%w for product %s (%s): %v", ErrInvalidPrice, product.ProductID, product.Name, err)
	}

	if math.IsNaN(line.Quantity) || math.IsInf(line.Quantity, 0) || line.Quantity <= 0 {
		return models.ValidatedLineItem{}, decimal.Zero, fmt.Errorf("%w for product %s: %v", ErrInvalidQuantity, line.ProductID, line.Quantity)
	}
	quantity := decimal.NewFromFloat(line.Quantity)

	quantityType := product.QuantityFormat.Type
	if quantityType != models.QuantityTypeWeight {
		quantityType = models.QuantityTypeUnit
	}

	normalized := quantity
	if quantityType == models.QuantityTypeWeight {
		normalized = quantity.Div(gramsPerKilogram)
	}
	lineTotal := unitPrice.Mul(normalized).Round(moneyPlaces)

	var image string
	if len(product.Images) > 0 {
		image = product.Images[0]
	}

	return models.ValidatedLineItem{
		ProductID:     product.ProductID,
		Name:          product.Name,
		ImageURL:      image,
		UnitPrice:     unitPrice.InexactFloat64(),
		Quantity:      line.Quantity,
		LineTotal:     lineTotal.InexactFloat64(),
		QuantityType:  quantityType,
		QuantityLabel: QuantityLabel(quantityType, quantity, product.QuantityFormat.Qty),
	}, lineTotal, nil
}

// QuantityLabel renders the human readable quantity shown on receipts,
// e.g. "250-500gm", "500gm", "6 pieces x 2" or "2 piece".
func QuantityLabel(quantityType string, quantity decimal.Decimal, step float64) string {
	hasStep := step > 0
	stepQty := decimal.NewFromFloat(step)
	if quantityType == models.QuantityTypeWeight {
		if hasStep {
			return fmt.Sprintf("%s-%sgm", quantity.Sub(stepQty).String(), quantity.String())
		}
		return fmt.Sprintf("%sgm", quantity.String())
	}
	if hasStep {
		return fmt.Sprintf("%s pieces x %s", stepQty.String(), quantity.String())
	}
	return fmt.Sprintf("%s piece", quantity.String())
}

func parsePrice(raw interface{}) (decimal.Decimal, error) {
	var price decimal.Decimal
	switch v := raw.(type) {
	case nil:
		return decimal.Zero, errors.New("missing discounted_price")
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, fmt.Errorf("not a number: %v", v)
		}
		price = decimal.NewFromFloat(v)
	case int:
		price = decimal.NewFromInt(int64(v))
	case int64:
		price = decimal.NewFromInt(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("not a number: %q", v.String())
		}
		price = d
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, fmt.Errorf("not a number: %q", v)
		}
		price = d
	default:
		return decimal.Zero, fmt.Errorf("unsupported price type %T", raw)
	}
	if price.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative price %s", price.String())
	}
	return price, nil
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(moneyPlaces)
}
