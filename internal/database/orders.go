package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrderHeader = `
INSERT INTO order_headers (customer_id, requested_delivery_date, memo, created_by, production_facility)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, customer_id, requested_delivery_date, memo, created_by, created_at, production_facility
`

type CreateOrderHeaderParams struct {
	CustomerID            uuid.UUID
	RequestedDeliveryDate time.Time
	Memo                  pgtype.Text
	CreatedBy             uuid.UUID
	ProductionFacility    string
}

func (q *Queries) CreateOrderHeader(ctx context.Context, arg CreateOrderHeaderParams) (OrderHeader, error) {
	row := q.db.QueryRow(ctx, createOrderHeader,
		arg.CustomerID, arg.RequestedDeliveryDate, arg.Memo, arg.CreatedBy, arg.ProductionFacility)
	var h OrderHeader
	err := row.Scan(&h.ID, &h.CustomerID, &h.RequestedDeliveryDate, &h.Memo, &h.CreatedBy, &h.CreatedAt, &h.ProductionFacility)
	return h, err
}

const createOrderLine = `
INSERT INTO order_lines (header_id, product_id, production_facility, requested_quantity)
VALUES ($1, $2, $3, $4)
RETURNING id, header_id, product_id, production_facility, requested_quantity, fulfilled_quantity, status
`

type CreateOrderLineParams struct {
	HeaderID           uuid.UUID
	ProductID          uuid.UUID
	ProductionFacility string
	RequestedQuantity  int32
}

func (q *Queries) CreateOrderLine(ctx context.Context, arg CreateOrderLineParams) (OrderLine, error) {
	row := q.db.QueryRow(ctx, createOrderLine,
		arg.HeaderID, arg.ProductID, arg.ProductionFacility, arg.RequestedQuantity)
	var l OrderLine
	err := row.Scan(&l.ID, &l.HeaderID, &l.ProductID, &l.ProductionFacility, &l.RequestedQuantity, &l.FulfilledQuantity, &l.Status)
	return l, err
}

const getOrderHeader = `
SELECT id, customer_id, requested_delivery_date, memo, created_by, created_at, production_facility
FROM order_headers
WHERE id = $1
`

func (q *Queries) GetOrderHeader(ctx context.Context, id uuid.UUID) (OrderHeader, error) {
	row := q.db.QueryRow(ctx, getOrderHeader, id)
	var h OrderHeader
	err := row.Scan(&h.ID, &h.CustomerID, &h.RequestedDeliveryDate, &h.Memo, &h.CreatedBy, &h.CreatedAt, &h.ProductionFacility)
	return h, err
}

const getOrderHeaderForUpdate = `
SELECT id, customer_id, requested_delivery_date, memo, created_by, created_at, production_facility
FROM order_headers
WHERE id = $1
FOR UPDATE
`

// GetOrderHeaderForUpdate row-locks the header so concurrent mutations of
// the same order serialize instead of racing last-write-wins.
func (q *Queries) GetOrderHeaderForUpdate(ctx context.Context, id uuid.UUID) (OrderHeader, error) {
	row := q.db.QueryRow(ctx, getOrderHeaderForUpdate, id)
	var h OrderHeader
	err := row.Scan(&h.ID, &h.CustomerID, &h.RequestedDeliveryDate, &h.Memo, &h.CreatedBy, &h.CreatedAt, &h.ProductionFacility)
	return h, err
}

const listOrderLinesByHeader = `
SELECT id, header_id, product_id, production_facility, requested_quantity, fulfilled_quantity, status
FROM order_lines
WHERE header_id = $1
ORDER BY id
`

func (q *Queries) ListOrderLinesByHeader(ctx context.Context, headerID uuid.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLinesByHeader, headerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.HeaderID, &l.ProductID, &l.ProductionFacility, &l.RequestedQuantity, &l.FulfilledQuantity, &l.Status); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const listOrderLinesByIDs = `
SELECT id, header_id, product_id, production_facility, requested_quantity, fulfilled_quantity, status
FROM order_lines
WHERE id = ANY($1::uuid[])
ORDER BY header_id, id
`

func (q *Queries) ListOrderLinesByIDs(ctx context.Context, ids []uuid.UUID) ([]OrderLine, error) {
	rows, err := q.db.Query(ctx, listOrderLinesByIDs, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderLine
	for rows.Next() {
		var l OrderLine
		if err := rows.Scan(&l.ID, &l.HeaderID, &l.ProductID, &l.ProductionFacility, &l.RequestedQuantity, &l.FulfilledQuantity, &l.Status); err != nil {
			return nil, err
		}
		items = append(items, l)
	}
	return items, rows.Err()
}

const getOrderLine = `
SELECT id, header_id, product_id, production_facility, requested_quantity, fulfilled_quantity, status
FROM order_lines
WHERE id = $1
`

func (q *Queries) GetOrderLine(ctx context.Context, id uuid.UUID) (OrderLine, error) {
	row := q.db.QueryRow(ctx, getOrderLine, id)
	var l OrderLine
	err := row.Scan(&l.ID, &l.HeaderID, &l.ProductID, &l.ProductionFacility, &l.RequestedQuantity, &l.FulfilledQuantity, &l.Status)
	return l, err
}

const updateLineRequestedQuantity = `
UPDATE order_lines SET requested_quantity = $2 WHERE id = $1
`

type UpdateLineRequestedQuantityParams struct {
	ID                uuid.UUID
	RequestedQuantity int32
}

func (q *Queries) UpdateLineRequestedQuantity(ctx context.Context, arg UpdateLineRequestedQuantityParams) error {
	_, err := q.db.Exec(ctx, updateLineRequestedQuantity, arg.ID, arg.RequestedQuantity)
	return err
}

const updateLineFulfilled = `
UPDATE order_lines SET fulfilled_quantity = $2, status = $3 WHERE id = $1
`

type UpdateLineFulfilledParams struct {
	ID                uuid.UUID
	FulfilledQuantity int32
	Status            string
}

func (q *Queries) UpdateLineFulfilled(ctx context.Context, arg UpdateLineFulfilledParams) error {
	_, err := q.db.Exec(ctx, updateLineFulfilled, arg.ID, arg.FulfilledQuantity, arg.Status)
	return err
}

const updateLineFulfilledQuantity = `
UPDATE order_lines SET fulfilled_quantity = $2 WHERE id = $1
`

type UpdateLineFulfilledQuantityParams struct {
	ID                uuid.UUID
	FulfilledQuantity int32
}

func (q *Queries) UpdateLineFulfilledQuantity(ctx context.Context, arg UpdateLineFulfilledQuantityParams) error {
	_, err := q.db.Exec(ctx, updateLineFulfilledQuantity, arg.ID, arg.FulfilledQuantity)
	return err
}

const updateLineFacility = `
UPDATE order_lines SET production_facility = $2 WHERE id = $1
`

type UpdateLineFacilityParams struct {
	ID                 uuid.UUID
	ProductionFacility string
}

func (q *Queries) UpdateLineFacility(ctx context.Context, arg UpdateLineFacilityParams) error {
	_, err := q.db.Exec(ctx, updateLineFacility, arg.ID, arg.ProductionFacility)
	return err
}

const updateLinesFacilityByIDs = `
UPDATE order_lines SET production_facility = $2 WHERE id = ANY($1::uuid[])
`

type UpdateLinesFacilityByIDsParams struct {
	IDs                []uuid.UUID
	ProductionFacility string
}

func (q *Queries) UpdateLinesFacilityByIDs(ctx context.Context, arg UpdateLinesFacilityByIDsParams) error {
	_, err := q.db.Exec(ctx, updateLinesFacilityByIDs, arg.IDs, arg.ProductionFacility)
	return err
}

const moveLinesToHeader = `
UPDATE order_lines SET header_id = $2, production_facility = $3 WHERE id = ANY($1::uuid[])
`

type MoveLinesToHeaderParams struct {
	IDs                []uuid.UUID
	HeaderID           uuid.UUID
	ProductionFacility string
}

// MoveLinesToHeader reattaches lines to a new header created by a resplit.
// The facility is set in the same statement so the moved lines immediately
// satisfy the one-facility-per-header invariant.
func (q *Queries) MoveLinesToHeader(ctx context.Context, arg MoveLinesToHeaderParams) error {
	_, err := q.db.Exec(ctx, moveLinesToHeader, arg.IDs, arg.HeaderID, arg.ProductionFacility)
	return err
}

const updateHeaderDeliveryDate = `
UPDATE order_headers SET requested_delivery_date = $2 WHERE id = $1
`

type UpdateHeaderDeliveryDateParams struct {
	ID                    uuid.UUID
	RequestedDeliveryDate time.Time
}

func (q *Queries) UpdateHeaderDeliveryDate(ctx context.Context, arg UpdateHeaderDeliveryDateParams) error {
	_, err := q.db.Exec(ctx, updateHeaderDeliveryDate, arg.ID, arg.RequestedDeliveryDate)
	return err
}

const updateHeaderFacility = `
UPDATE order_headers SET production_facility = $2 WHERE id = $1
`

type UpdateHeaderFacilityParams struct {
	ID                 uuid.UUID
	ProductionFacility string
}

func (q *Queries) UpdateHeaderFacility(ctx context.Context, arg UpdateHeaderFacilityParams) error {
	_, err := q.db.Exec(ctx, updateHeaderFacility, arg.ID, arg.ProductionFacility)
	return err
}

const updateHeaderMemo = `
UPDATE order_headers SET memo = $2 WHERE id = $1
`

type UpdateHeaderMemoParams struct {
	ID   uuid.UUID
	Memo pgtype.Text
}

func (q *Queries) UpdateHeaderMemo(ctx context.Context, arg UpdateHeaderMemoParams) error {
	_, err := q.db.Exec(ctx, updateHeaderMemo, arg.ID, arg.Memo)
	return err
}

const deleteOrderHeader = `
DELETE FROM order_headers WHERE id = $1
`

// DeleteOrderHeader removes a header; lines and their logs cascade.
func (q *Queries) DeleteOrderHeader(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, deleteOrderHeader, id)
	return err
}

const createOrderLog = `
INSERT INTO order_logs (line_id, editor_id, change_type, description)
VALUES ($1, $2, $3, $4)
RETURNING id, line_id, editor_id, change_type, description, created_at
`

type CreateOrderLogParams struct {
	LineID      uuid.UUID
	EditorID    pgtype.UUID
	ChangeType  string
	Description string
}

func (q *Queries) CreateOrderLog(ctx context.Context, arg CreateOrderLogParams) (OrderLog, error) {
	row := q.db.QueryRow(ctx, createOrderLog, arg.LineID, arg.EditorID, arg.ChangeType, arg.Description)
	var l OrderLog
	err := row.Scan(&l.ID, &l.LineID, &l.EditorID, &l.ChangeType, &l.Description, &l.CreatedAt)
	return l, err
}

const listOrderLogsByLine = `
SELECT ol.id, ol.line_id, ol.editor_id, u.username, ol.change_type, ol.description, ol.created_at
FROM order_logs ol
LEFT JOIN users u ON u.id = ol.editor_id
WHERE ol.line_id = $1
ORDER BY ol.created_at DESC
`

type ListOrderLogsByLineRow struct {
	ID          uuid.UUID
	LineID      uuid.UUID
	EditorID    pgtype.UUID
	EditorName  pgtype.Text
	ChangeType  string
	Description string
	CreatedAt   time.Time
}

func (q *Queries) ListOrderLogsByLine(ctx context.Context, lineID uuid.UUID) ([]ListOrderLogsByLineRow, error) {
	rows, err := q.db.Query(ctx, listOrderLogsByLine, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderLogsByLineRow
	for rows.Next() {
		var r ListOrderLogsByLineRow
		if err := rows.Scan(&r.ID, &r.LineID, &r.EditorID, &r.EditorName, &r.ChangeType, &r.Description, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listOrderHeadersByCreator = `
SELECT h.id, h.customer_id, c.name, h.requested_delivery_date, h.memo, h.created_by, h.created_at, h.production_facility
FROM order_headers h
JOIN customers c ON c.id = h.customer_id
WHERE h.created_by = $1
  AND ($2::text IS NULL OR c.name ILIKE '%' || $2 || '%')
ORDER BY h.created_at DESC
LIMIT $3 OFFSET $4
`

type ListOrderHeadersByCreatorParams struct {
	CreatedBy uuid.UUID
	Search    pgtype.Text
	Limit     int32
	Offset    int32
}

type ListOrderHeadersByCreatorRow struct {
	ID                    uuid.UUID
	CustomerID            uuid.UUID
	CustomerName          string
	RequestedDeliveryDate time.Time
	Memo                  pgtype.Text
	CreatedBy             uuid.UUID
	CreatedAt             time.Time
	ProductionFacility    string
}

func (q *Queries) ListOrderHeadersByCreator(ctx context.Context, arg ListOrderHeadersByCreatorParams) ([]ListOrderHeadersByCreatorRow, error) {
	rows, err := q.db.Query(ctx, listOrderHeadersByCreator, arg.CreatedBy, arg.Search, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListOrderHeadersByCreatorRow
	for rows.Next() {
		var r ListOrderHeadersByCreatorRow
		if err := rows.Scan(&r.ID, &r.CustomerID, &r.CustomerName, &r.RequestedDeliveryDate, &r.Memo, &r.CreatedBy, &r.CreatedAt, &r.ProductionFacility); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listProductionLines = `
SELECT ol.id, ol.header_id, ol.product_id, ol.production_facility, ol.requested_quantity, ol.fulfilled_quantity, ol.status,
       h.customer_id, c.name, h.requested_delivery_date, h.memo, h.created_at,
       h.created_by, u.username, u.full_name,
       p.name, p.sku, p.unit_price
FROM order_lines ol
JOIN order_headers h ON h.id = ol.header_id
JOIN customers c ON c.id = h.customer_id
JOIN users u ON u.id = h.created_by
JOIN products p ON p.id = ol.product_id
WHERE ($1::text IS NULL OR c.name ILIKE '%' || $1 || '%'
       OR u.username ILIKE '%' || $1 || '%'
       OR u.full_name ILIKE '%' || $1 || '%'
       OR p.name ILIKE '%' || $1 || '%')
  AND ($2::date IS NULL OR h.requested_delivery_date = $2)
  AND ($3::text IS NULL OR ol.production_facility LIKE $3 || '%')
  AND (NOT $4::bool OR ol.status = 'COMPLETED')
  AND (NOT $5::bool OR ol.status <> 'COMPLETED')
`

type ListProductionLinesParams struct {
	Search         pgtype.Text
	DeliveryDate   pgtype.Date
	FacilityPrefix pgtype.Text
	OnlyCompleted  bool
	OnlyIncomplete bool
}

// ProductionLineRow is a line joined with the header, customer, creator and
// product it belongs to, as needed by the production board.
type ProductionLineRow struct {
	ID                    uuid.UUID
	HeaderID              uuid.UUID
	ProductID             uuid.UUID
	ProductionFacility    string
	RequestedQuantity     int32
	FulfilledQuantity     int32
	Status                string
	CustomerID            uuid.UUID
	CustomerName          string
	RequestedDeliveryDate time.Time
	Memo                  pgtype.Text
	OrderedAt             time.Time
	CreatedBy             uuid.UUID
	CreatorUsername       string
	CreatorFullName       string
	ProductName           string
	ProductSku            string
	UnitPrice             pgtype.Numeric
}

func (q *Queries) ListProductionLines(ctx context.Context, arg ListProductionLinesParams) ([]ProductionLineRow, error) {
	rows, err := q.db.Query(ctx, listProductionLines,
		arg.Search, arg.DeliveryDate, arg.FacilityPrefix, arg.OnlyCompleted, arg.OnlyIncomplete)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProductionLineRow
	for rows.Next() {
		var r ProductionLineRow
		if err := rows.Scan(
			&r.ID, &r.HeaderID, &r.ProductID, &r.ProductionFacility, &r.RequestedQuantity, &r.FulfilledQuantity, &r.Status,
			&r.CustomerID, &r.CustomerName, &r.RequestedDeliveryDate, &r.Memo, &r.OrderedAt,
			&r.CreatedBy, &r.CreatorUsername, &r.CreatorFullName,
			&r.ProductName, &r.ProductSku, &r.UnitPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const listPendingLines = `
SELECT ol.id, ol.product_id, p.name, p.sku, ol.production_facility, ol.requested_quantity,
       h.requested_delivery_date
FROM order_lines ol
JOIN order_headers h ON h.id = ol.header_id
JOIN products p ON p.id = ol.product_id
WHERE ol.status <> 'COMPLETED'
  AND ($1::date IS NULL OR h.requested_delivery_date = $1)
  AND ($2::date IS NULL OR h.requested_delivery_date >= $2)
  AND ($3::date IS NULL OR h.requested_delivery_date <= $3)
  AND ($4::text IS NULL OR ol.production_facility = $4)
`

type ListPendingLinesParams struct {
	DeliveryDate pgtype.Date
	DateFrom     pgtype.Date
	DateTo       pgtype.Date
	Facility     pgtype.Text
}

type PendingLineRow struct {
	ID                    uuid.UUID
	ProductID             uuid.UUID
	ProductName           string
	ProductSku            string
	ProductionFacility    string
	RequestedQuantity     int32
	RequestedDeliveryDate time.Time
}

func (q *Queries) ListPendingLines(ctx context.Context, arg ListPendingLinesParams) ([]PendingLineRow, error) {
	rows, err := q.db.Query(ctx, listPendingLines, arg.DeliveryDate, arg.DateFrom, arg.DateTo, arg.Facility)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PendingLineRow
	for rows.Next() {
		var r PendingLineRow
		if err := rows.Scan(&r.ID, &r.ProductID, &r.ProductName, &r.ProductSku, &r.ProductionFacility, &r.RequestedQuantity, &r.RequestedDeliveryDate); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
