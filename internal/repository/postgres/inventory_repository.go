// backend-go/internal/repository/postgres/inventory_repository.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stockpilot/backend-go/internal/domain"
	"github.com/stockpilot/backend-go/internal/repository"
)

type inventoryRepository struct {
	db *DB
}

// NewInventoryRepository exposes the catalog slice the reorder core reads.
func NewInventoryRepository(db *DB) *inventoryRepository {
	return &inventoryRepository{db: db}
}

var _ repository.ProductStore = (*inventoryRepository)(nil)
var _ repository.OrderHistoryStore = (*inventoryRepository)(nil)

const productColumns = `
	p.id, p.sku, p.name, p.category_id, COALESCE(c.name, '') AS category_name,
	p.supplier_id, p.current_stock, p.low_stock_threshold, p.unit_price, p.updated_at
`

func (r *inventoryRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1
	`

	var product domain.Product
	if err := r.db.GetContext(ctx, &product, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundErrorf("product %s not found", id)
		}
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	return &product, nil
}

func (r *inventoryRepository) ListProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE 1=1
	`
	args := make([]interface{}, 0, 3)

	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		query += fmt.Sprintf(" AND p.id = $%d", len(args))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(" AND p.category_id = $%d", len(args))
	}
	if filter.SupplierID != "" {
		args = append(args, filter.SupplierID)
		query += fmt.Sprintf(" AND p.supplier_id = $%d", len(args))
	}
	query += " ORDER BY p.sku"

	products := make([]*domain.Product, 0)
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (r *inventoryRepository) CountProducts(ctx context.Context, filter repository.ProductFilter) (int, error) {
	query := `SELECT COUNT(*) FROM products p WHERE 1=1`
	args := make([]interface{}, 0, 3)

	if filter.ProductID != "" {
		args = append(args, filter.ProductID)
		query += fmt.Sprintf(" AND p.id = $%d", len(args))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		query += fmt.Sprintf(" AND p.category_id = $%d", len(args))
	}
	if filter.SupplierID != "" {
		args = append(args, filter.SupplierID)
		query += fmt.Sprintf(" AND p.supplier_id = $%d", len(args))
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

func (r *inventoryRepository) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	query := `
		SELECT id, name, lead_time_days, reliability_score, active_promotion
		FROM suppliers
		WHERE id = $1
	`

	var supplier domain.Supplier
	if err := r.db.GetContext(ctx, &supplier, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFoundErrorf("supplier %s not found", id)
		}
		return nil, fmt.Errorf("failed to load supplier %s: %w", id, err)
	}
	return &supplier, nil
}

func (r *inventoryRepository) GetCompletedOrders(ctx context.Context, productID string, since time.Time) ([]domain.OrderRecord, error) {
	query := `
		SELECT oi.product_id, oi.quantity, o.completed_at AS ordered_at
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.product_id = $1
		  AND o.status = 'completed'
		  AND o.completed_at >= $2
		ORDER BY o.completed_at
	`

	orders := make([]domain.OrderRecord, 0)
	if err := r.db.SelectContext(ctx, &orders, query, productID, since); err != nil {
		return nil, fmt.Errorf("failed to load completed orders for %s: %w", productID, err)
	}
	return orders, nil
}
