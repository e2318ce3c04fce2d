package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/segyhp/layaway-engine/internal/domain"
)

type catalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository reads customers and products from the tables the
// point-of-sale catalog owns.
func NewCatalogRepository(db *sqlx.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	query := r.db.Rebind(`SELECT id, name, phone, active FROM customers WHERE id = ?`)

	var customer domain.Customer
	if err := r.db.GetContext(ctx, &customer, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &customer, nil
}

func (r *catalogRepository) GetProduct(ctx context.Context, ref string) (*domain.Product, error) {
	query := r.db.Rebind(`SELECT ref, name, price, active FROM products WHERE ref = ?`)

	var product domain.Product
	if err := r.db.GetContext(ctx, &product, query, ref); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &product, nil
}
