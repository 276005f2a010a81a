package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/suju-order/api/internal/database"
	"github.com/suju-order/api/internal/enum"
)

// FulfillmentStore defines the DB methods needed to complete lines.
type FulfillmentStore interface {
	GetOrderLine(ctx context.Context, id uuid.UUID) (database.OrderLine, error)
	UpdateLineFulfilled(ctx context.Context, arg database.UpdateLineFulfilledParams) error
	CreateOrderLog(ctx context.Context, arg database.CreateOrderLogParams) (database.OrderLog, error)
}

// NewFulfillmentStore creates a FulfillmentStore from a DBTX (pool or tx).
type NewFulfillmentStore func(db database.DBTX) FulfillmentStore

// FulfillmentService records completed quantities against lines. Every
// operation requires the production capability.
type FulfillmentService struct {
	pool     TxBeginner
	newStore NewFulfillmentStore
	audit    Auditor
}

func NewFulfillmentService(pool TxBeginner, newStore NewFulfillmentStore, audit Auditor) *FulfillmentService {
	return &FulfillmentService{pool: pool, newStore: newStore, audit: audit}
}

// CompleteLine marks one line COMPLETED with the given fulfilled quantity,
// defaulting to the requested quantity when the caller supplies none. An
// already-completed line is re-completed without error, appending another
// log entry.
func (s *FulfillmentService) CompleteLine(ctx context.Context, actor Actor, lineIDRaw string, quantity *int32) error {
	if !actor.Has(enum.RoleProduction) {
		return ErrForbidden
	}
	lineID, err := uuid.Parse(lineIDRaw)
	if err != nil {
		return ErrLineNotFound
	}
	if quantity != nil && *quantity < 0 {
		return ErrInvalidQuantity
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	line, err := store.GetOrderLine(ctx, lineID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLineNotFound
	} else if err != nil {
		return fmt.Errorf("get order line: %w", err)
	}

	finalQty := line.RequestedQuantity
	if quantity != nil {
		finalQty = *quantity
	}

	if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
		LineID:      line.ID,
		EditorID:    pgtype.UUID{Bytes: actor.ID, Valid: true},
		ChangeType:  enum.ChangeComplete,
		Description: fmt.Sprintf("completed with quantity %d", finalQty),
	}); err != nil {
		return fmt.Errorf("create order log: %w", err)
	}
	if err := store.UpdateLineFulfilled(ctx, database.UpdateLineFulfilledParams{
		ID:                line.ID,
		FulfilledQuantity: finalQty,
		Status:            enum.LineStatusCompleted,
	}); err != nil {
		return fmt.Errorf("update line fulfilled: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.audit.Record(ctx, actor.ID, enum.AuditFulfill, "OrderLine", line.ID)
	return nil
}

// BulkCompleteResult reports how many lines ended up completed.
type BulkCompleteResult struct {
	CompletedCount int
}

// BulkCompleteLines sets fulfilled = requested and status = COMPLETED for
// each given line. Lines are processed independently, each in its own
// transaction: a failure on one line is logged and skipped, the rest still
// complete. Unknown line IDs are skipped the same way.
func (s *FulfillmentService) BulkCompleteLines(ctx context.Context, actor Actor, lineIDs []string) (*BulkCompleteResult, error) {
	if !actor.Has(enum.RoleProduction) {
		return nil, ErrForbidden
	}
	if len(lineIDs) == 0 {
		return nil, ErrNoLinesSelected
	}

	result := &BulkCompleteResult{}
	for _, raw := range lineIDs {
		lineID, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		if err := s.completeOne(ctx, actor, lineID); err != nil {
			log.Printf("ERROR: bulk complete line %s: %v", lineID, err)
			continue
		}
		result.CompletedCount++
	}
	return result, nil
}

func (s *FulfillmentService) completeOne(ctx context.Context, actor Actor, lineID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	line, err := store.GetOrderLine(ctx, lineID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrLineNotFound
	} else if err != nil {
		return fmt.Errorf("get order line: %w", err)
	}

	if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
		LineID:      line.ID,
		EditorID:    pgtype.UUID{Bytes: actor.ID, Valid: true},
		ChangeType:  enum.ChangeBulkComplete,
		Description: fmt.Sprintf("completed with requested quantity %d", line.RequestedQuantity),
	}); err != nil {
		return fmt.Errorf("create order log: %w", err)
	}
	if err := store.UpdateLineFulfilled(ctx, database.UpdateLineFulfilledParams{
		ID:                line.ID,
		FulfilledQuantity: line.RequestedQuantity,
		Status:            enum.LineStatusCompleted,
	}); err != nil {
		return fmt.Errorf("update line fulfilled: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.audit.Record(ctx, actor.ID, enum.AuditFulfill, "OrderLine", line.ID)
	return nil
}
