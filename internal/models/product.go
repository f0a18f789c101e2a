package models

// Quantity format types reported by the catalog.
const (
	QuantityTypeUnit   = "unit"
	QuantityTypeWeight = "weight"
)

// QuantityFormat describes how a catalog item is measured.
// Qty is the step quantity: pieces per pack for units, grams per step for weight.
type QuantityFormat struct {
	Type string  `json:"type"`
	Qty  float64 `json:"qty"`
}

// CatalogItem is a product as reported by the catalog service for one pincode.
// DiscountedPrice is kept loose because the catalog sends it as a number or a string.
type CatalogItem struct {
	ProductID       string         `json:"_id"`
	Name            string         `json:"name"`
	DiscountedPrice interface{}    `json:"discounted_price"`
	Images          []string       `json:"images"`
	QuantityFormat  QuantityFormat `json:"quantity_format"`
}

// CartLine is one untrusted line of a customer's cart.
// Quantity is a unit count or grams, depending on the catalog item.
type CartLine struct {
	ProductID string  `json:"productId" validate:"required"`
	Quantity  float64 `json:"quantity"`
}
