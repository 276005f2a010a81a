package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/suju-order/api/internal/database"
	"github.com/suju-order/api/internal/enum"
)

const dateLayout = "2006-01-02"

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to submit orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetActiveCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	GetCustomerByName(ctx context.Context, name string) (database.Customer, error)
	GetProductForOrder(ctx context.Context, id uuid.UUID) (database.GetProductForOrderRow, error)
	CreateOrderHeader(ctx context.Context, arg database.CreateOrderHeaderParams) (database.OrderHeader, error)
	CreateOrderLine(ctx context.Context, arg database.CreateOrderLineParams) (database.OrderLine, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// SubmitOrderRequest is the validated input for submitting an order.
type SubmitOrderRequest struct {
	CustomerID   string
	DeliveryDate string // YYYY-MM-DD
	Memo         string
	Items        []SubmitOrderItem
}

// SubmitOrderItem is a single (product, quantity) entry.
type SubmitOrderItem struct {
	ProductID string
	Quantity  int32
}

// SubmitSalesOrderRequest is the internal-sales submission input. The
// customer is the well-known internal sales record, never caller-supplied.
type SubmitSalesOrderRequest struct {
	DeliveryDate string
	Memo         string
	Items        []SubmitOrderItem
}

// SubmitOrderResult reports the headers created by one submission. A
// submission spanning N distinct facilities creates exactly N headers.
type SubmitOrderResult struct {
	HeadersCreated int
	Headers        []CreatedHeader
}

// CreatedHeader is one persisted header with its lines.
type CreatedHeader struct {
	Header database.OrderHeader
	Lines  []database.OrderLine
}

// OrderService implements the order submission flow: cutoff validation,
// facility resolution and the facility-splitting algorithm.
type OrderService struct {
	pool       TxBeginner
	newStore   NewOrderStore
	audit      Auditor
	cutoffHour int

	// now is swapped out in tests to pin the cutoff clock.
	now func() time.Time
}

// NewOrderService creates a new OrderService. cutoffHour is the local
// hour (24h) at or after which next-day delivery is rejected for users
// without the admin exemption.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, audit Auditor, cutoffHour int) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, audit: audit, cutoffHour: cutoffHour, now: time.Now}
}

// resolvedItem is an item with its facility resolved from the product master.
type resolvedItem struct {
	productID uuid.UUID
	quantity  int32
	facility  string
}

// SubmitOrder validates the request, resolves each product's production
// facility and creates one header per facility, all in one transaction.
// Zero-quantity items are processed as given; negative quantities fail the
// whole request.
func (s *OrderService) SubmitOrder(ctx context.Context, actor Actor, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	deliveryDate, err := s.validateDeliveryDate(actor, req.DeliveryDate)
	if err != nil {
		return nil, err
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Quantity < 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		return nil, ErrCustomerNotFound
	}

	return s.submitTx(ctx, actor, deliveryDate, req.Memo, req.Items, func(ctx context.Context, store OrderStore) (database.Customer, error) {
		c, err := store.GetActiveCustomer(ctx, customerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Customer{}, ErrCustomerNotFound
		}
		return c, err
	})
}

// SubmitSalesOrder is the internal-sales path: items with non-positive
// quantities are silently dropped, and the order is placed against the
// well-known internal sales customer. A missing customer record is a
// configuration error, never auto-created.
func (s *OrderService) SubmitSalesOrder(ctx context.Context, actor Actor, req SubmitSalesOrderRequest) (*SubmitOrderResult, error) {
	deliveryDate, err := s.validateDeliveryDate(actor, req.DeliveryDate)
	if err != nil {
		return nil, err
	}

	var items []SubmitOrderItem
	for _, item := range req.Items {
		if item.Quantity > 0 {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, ErrEmptyItems
	}

	return s.submitTx(ctx, actor, deliveryDate, req.Memo, items, func(ctx context.Context, store OrderStore) (database.Customer, error) {
		c, err := store.GetCustomerByName(ctx, enum.InternalSalesCustomer)
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Customer{}, ErrInternalCustomerMissing
		}
		return c, err
	})
}

// validateDeliveryDate parses the date and applies the past-date and
// cutoff rules. Admins are exempt from the cutoff, not from parsing.
func (s *OrderService) validateDeliveryDate(actor Actor, raw string) (time.Time, error) {
	deliveryDate, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if deliveryDate.Before(today) {
		return time.Time{}, ErrPastDate
	}

	if !actor.Has(enum.RoleAdmin) && now.Hour() >= s.cutoffHour {
		tomorrow := today.AddDate(0, 0, 1)
		if !deliveryDate.After(tomorrow) {
			return time.Time{}, ErrCutoffViolation
		}
	}
	return deliveryDate, nil
}

// submitTx runs the facility-splitting submission in one transaction.
// Any failure rolls back every header and line of the submission.
func (s *OrderService) submitTx(
	ctx context.Context,
	actor Actor,
	deliveryDate time.Time,
	memo string,
	items []SubmitOrderItem,
	resolveCustomer func(ctx context.Context, store OrderStore) (database.Customer, error),
) (*SubmitOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	customer, err := resolveCustomer(ctx, store)
	if err != nil {
		return nil, err
	}

	// Resolve every product's facility via the product master. Products
	// without an assignment group under the UNASSIGNED sentinel.
	resolved := make([]resolvedItem, 0, len(items))
	for i, item := range items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrProductNotFound)
		}
		product, err := store.GetProductForOrder(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get product: %w", i, err)
		}

		facility := enum.FacilityUnassigned
		if product.ProductionFacility.Valid && product.ProductionFacility.String != "" {
			facility = product.ProductionFacility.String
		}
		resolved = append(resolved, resolvedItem{
			productID: productID,
			quantity:  item.Quantity,
			facility:  facility,
		})
	}

	// Partition by facility, first-seen order. One header per facility;
	// every line inherits its header's facility.
	var facilities []string
	byFacility := make(map[string][]resolvedItem)
	for _, item := range resolved {
		if _, seen := byFacility[item.facility]; !seen {
			facilities = append(facilities, item.facility)
		}
		byFacility[item.facility] = append(byFacility[item.facility], item)
	}

	memoText := pgtype.Text{}
	if memo != "" {
		memoText = pgtype.Text{String: memo, Valid: true}
	}

	result := &SubmitOrderResult{}
	for _, facility := range facilities {
		header, err := store.CreateOrderHeader(ctx, database.CreateOrderHeaderParams{
			CustomerID:            customer.ID,
			RequestedDeliveryDate: deliveryDate,
			Memo:                  memoText,
			CreatedBy:             actor.ID,
			ProductionFacility:    facility,
		})
		if err != nil {
			return nil, fmt.Errorf("create order header: %w", err)
		}

		created := CreatedHeader{Header: header}
		for _, item := range byFacility[facility] {
			line, err := store.CreateOrderLine(ctx, database.CreateOrderLineParams{
				HeaderID:           header.ID,
				ProductID:          item.productID,
				ProductionFacility: facility,
				RequestedQuantity:  item.quantity,
			})
			if err != nil {
				return nil, fmt.Errorf("create order line: %w", err)
			}
			created.Lines = append(created.Lines, line)
		}
		result.Headers = append(result.Headers, created)
	}
	result.HeadersCreated = len(result.Headers)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	for _, created := range result.Headers {
		s.audit.Record(ctx, actor.ID, enum.AuditCreate, "OrderHeader", created.Header.ID)
	}
	return result, nil
}
