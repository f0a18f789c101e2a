package repositories

import (
	"context"
	"errors"

	"bazaar/internal/models"
)

var (
	ErrNoProducts         = errors.New("no products available for this pincode")
	ErrCatalogUnavailable = errors.New("catalog service unavailable")
)

// ProductRepository is the catalog gateway: it resolves product ids to
// authoritative price and availability data for one pincode.
type ProductRepository interface {
	FetchProducts(ctx context.Context, pincode string, productIDs []string) ([]models.CatalogItem, error)
}
