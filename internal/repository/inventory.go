// backend-go/internal/repository/inventory.go
package repository

import (
	"context"
	"time"

	"github.com/stockpilot/backend-go/internal/domain"
)

// ProductFilter narrows product enumeration for an analysis run.
type ProductFilter struct {
	CategoryID string
	SupplierID string
	ProductID  string
}

// ProductStore exposes the slice of the catalog the reorder core reads.
type ProductStore interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]*domain.Product, error)
	// CountProducts returns the number of products matching the filter
	// without materializing them.
	CountProducts(ctx context.Context, filter ProductFilter) (int, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)
}

// OrderHistoryStore provides completed order records for demand estimation.
type OrderHistoryStore interface {
	// GetCompletedOrders returns completed order lines for a product since
	// the given time, oldest first.
	GetCompletedOrders(ctx context.Context, productID string, since time.Time) ([]domain.OrderRecord, error)
}
