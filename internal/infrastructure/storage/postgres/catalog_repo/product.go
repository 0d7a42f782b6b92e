package catalog_repo

import (
	"context"

	"stockd/internal/core/id"
	"stockd/internal/domain/catalogs/product"
	"stockd/internal/infrastructure/storage/postgres"
)

// ProductRepo implements product.Repository.
type ProductRepo struct {
	baseRepo[product.Product]
}

// NewProductRepo creates a product catalog repository bound to txm.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		baseRepo: newBaseRepo[product.Product](txm, "cat_products", "product"),
	}
}

// GetByID returns the product or NotFound.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.getByID(ctx, productID)
}

// GetByCode returns the product by its unique code.
func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	return r.getByCode(ctx, code)
}

// Create inserts a product (seeding and master-data maintenance).
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.create(ctx, p)
}

// Ensure interface compliance.
var _ product.Repository = (*ProductRepo)(nil)
