package repositories

import (
	"context"
	"sync"

	"bazaar/internal/models"
)

// MockProductRepository is an in-memory catalog keyed by pincode.
type MockProductRepository struct {
	products map[string]map[string]models.CatalogItem
	mu       sync.RWMutex
	// Err, when set, is returned by every FetchProducts call.
	Err error
}

// NewMockProductRepository creates an empty in-memory catalog.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]map[string]models.CatalogItem),
	}
}

// Add makes item available at pincode.
func (r *MockProductRepository) Add(pincode string, item models.CatalogItem) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.products[pincode] == nil {
		r.products[pincode] = make(map[string]models.CatalogItem)
	}
	r.products[pincode][item.ProductID] = item
}

// FetchProducts returns the requested items stocked at pincode.
func (r *MockProductRepository) FetchProducts(_ context.Context, pincode string, productIDs []string) ([]models.CatalogItem, error) {
	if r.Err != nil {
		return nil, r.Err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stocked := r.products[pincode]
	items := make([]models.CatalogItem, 0, len(productIDs))
	for _, id := range productIDs {
		if item, ok := stocked[id]; ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, ErrNoProducts
	}
	return items, nil
}
