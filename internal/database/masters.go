package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Master-data reads. Customers and products are managed elsewhere; the
// order flow only consumes them as lookups.

const getActiveCustomer = `
SELECT id, name, business_id, is_active
FROM customers
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetActiveCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	row := q.db.QueryRow(ctx, getActiveCustomer, id)
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.BusinessID, &c.IsActive)
	return c, err
}

const getCustomerByName = `
SELECT id, name, business_id, is_active
FROM customers
WHERE name = $1 AND is_active = true
`

func (q *Queries) GetCustomerByName(ctx context.Context, name string) (Customer, error) {
	row := q.db.QueryRow(ctx, getCustomerByName, name)
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.BusinessID, &c.IsActive)
	return c, err
}

const listActiveCustomers = `
SELECT id, name, business_id, is_active
FROM customers
WHERE is_active = true
  AND ($1::text IS NULL OR name ILIKE '%' || $1 || '%')
ORDER BY name
`

func (q *Queries) ListActiveCustomers(ctx context.Context, search pgtype.Text) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listActiveCustomers, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.BusinessID, &c.IsActive); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const getProductForOrder = `
SELECT id, name, sku, production_facility, is_active
FROM products
WHERE id = $1 AND is_active = true
`

type GetProductForOrderRow struct {
	ID                 uuid.UUID
	Name               string
	Sku                string
	ProductionFacility pgtype.Text
	IsActive           bool
}

func (q *Queries) GetProductForOrder(ctx context.Context, id uuid.UUID) (GetProductForOrderRow, error) {
	row := q.db.QueryRow(ctx, getProductForOrder, id)
	var p GetProductForOrderRow
	err := row.Scan(&p.ID, &p.Name, &p.Sku, &p.ProductionFacility, &p.IsActive)
	return p, err
}

const listActiveProducts = `
SELECT id, name, sku, unit_price, sort_order, production_facility, is_active
FROM products
WHERE is_active = true
  AND ($1::text IS NULL OR name ILIKE '%' || $1 || '%' OR sku = $1)
ORDER BY sort_order, name
`

func (q *Queries) ListActiveProducts(ctx context.Context, search pgtype.Text) ([]Product, error) {
	rows, err := q.db.Query(ctx, listActiveProducts, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Sku, &p.UnitPrice, &p.SortOrder, &p.ProductionFacility, &p.IsActive); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
