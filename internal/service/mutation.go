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

// MutationStore defines the DB methods needed to edit pending orders.
type MutationStore interface {
	GetOrderHeaderForUpdate(ctx context.Context, id uuid.UUID) (database.OrderHeader, error)
	ListOrderLinesByHeader(ctx context.Context, headerID uuid.UUID) ([]database.OrderLine, error)
	ListOrderLinesByIDs(ctx context.Context, ids []uuid.UUID) ([]database.OrderLine, error)
	GetOrderLine(ctx context.Context, id uuid.UUID) (database.OrderLine, error)
	UpdateLineRequestedQuantity(ctx context.Context, arg database.UpdateLineRequestedQuantityParams) error
	UpdateLineFulfilledQuantity(ctx context.Context, arg database.UpdateLineFulfilledQuantityParams) error
	UpdateLineFacility(ctx context.Context, arg database.UpdateLineFacilityParams) error
	UpdateLinesFacilityByIDs(ctx context.Context, arg database.UpdateLinesFacilityByIDsParams) error
	MoveLinesToHeader(ctx context.Context, arg database.MoveLinesToHeaderParams) error
	UpdateHeaderDeliveryDate(ctx context.Context, arg database.UpdateHeaderDeliveryDateParams) error
	UpdateHeaderFacility(ctx context.Context, arg database.UpdateHeaderFacilityParams) error
	UpdateHeaderMemo(ctx context.Context, arg database.UpdateHeaderMemoParams) error
	CreateOrderHeader(ctx context.Context, arg database.CreateOrderHeaderParams) (database.OrderHeader, error)
	DeleteOrderHeader(ctx context.Context, id uuid.UUID) error
	CreateOrderLog(ctx context.Context, arg database.CreateOrderLogParams) (database.OrderLog, error)
}

// NewMutationStore creates a MutationStore from a DBTX (pool or tx).
type NewMutationStore func(db database.DBTX) MutationStore

// MutationService edits pending orders: quantity changes, memo changes,
// and the facility-aware delivery-date resplit.
type MutationService struct {
	pool     TxBeginner
	newStore NewMutationStore
	audit    Auditor
}

func NewMutationService(pool TxBeginner, newStore NewMutationStore, audit Auditor) *MutationService {
	return &MutationService{pool: pool, newStore: newStore, audit: audit}
}

// LineQuantity targets one line with a new requested quantity.
type LineQuantity struct {
	LineID   string
	Quantity int32
}

// UpdateOrderRequest is the owner-facing edit of a pending order. Nil
// pointers mean "leave unchanged".
type UpdateOrderRequest struct {
	HeaderID       string
	DeliveryDate   *string
	Memo           *string
	LineQuantities []LineQuantity
}

// UpdateOrderResult reports whether anything was actually written.
type UpdateOrderResult struct {
	Updated bool
}

// UpdateOrder applies quantity, delivery-date and memo changes to a header
// still in PENDING aggregate status, owned by the actor. A negative new
// quantity skips that line without failing the request. A date change
// touching only a subset of the header's lines moves that subset to a new
// header so every header keeps a single facility.
func (s *MutationService) UpdateOrder(ctx context.Context, actor Actor, req UpdateOrderRequest) (*UpdateOrderResult, error) {
	headerID, err := uuid.Parse(req.HeaderID)
	if err != nil {
		return nil, ErrOrderNotFound
	}

	var newDate time.Time
	if req.DeliveryDate != nil {
		newDate, err = time.ParseInLocation(dateLayout, *req.DeliveryDate, time.Local)
		if err != nil {
			return nil, ErrInvalidDate
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	header, err := store.GetOrderHeaderForUpdate(ctx, headerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	} else if err != nil {
		return nil, fmt.Errorf("get order header: %w", err)
	}

	if header.CreatedBy != actor.ID && !actor.Has(enum.RoleAdmin) {
		return nil, ErrNotEditable
	}

	lines, err := store.ListOrderLinesByHeader(ctx, header.ID)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	if DeriveHeaderStatus(lines) != enum.HeaderStatusPending {
		return nil, ErrNotEditable
	}

	editor := pgtype.UUID{Bytes: actor.ID, Valid: true}
	updated := false

	lineByID := make(map[uuid.UUID]database.OrderLine, len(lines))
	for _, l := range lines {
		lineByID[l.ID] = l
	}

	var targeted []database.OrderLine
	seen := make(map[uuid.UUID]bool, len(req.LineQuantities))
	for _, lq := range req.LineQuantities {
		lineID, err := uuid.Parse(lq.LineID)
		if err != nil {
			return nil, ErrLineNotFound
		}
		line, ok := lineByID[lineID]
		if !ok {
			return nil, ErrLineNotFound
		}
		// Duplicate entries for one line count it once when deciding
		// whether a date change targets the whole header.
		if !seen[lineID] {
			seen[lineID] = true
			targeted = append(targeted, line)
		}

		// Negative quantities skip the line silently; the rest of the
		// request still applies.
		if lq.Quantity < 0 || lq.Quantity == line.RequestedQuantity {
			continue
		}
		if err := store.UpdateLineRequestedQuantity(ctx, database.UpdateLineRequestedQuantityParams{
			ID:                line.ID,
			RequestedQuantity: lq.Quantity,
		}); err != nil {
			return nil, fmt.Errorf("update line quantity: %w", err)
		}
		if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
			LineID:      line.ID,
			EditorID:    editor,
			ChangeType:  enum.ChangeQuantity,
			Description: fmt.Sprintf("%d → %d", line.RequestedQuantity, lq.Quantity),
		}); err != nil {
			return nil, fmt.Errorf("create order log: %w", err)
		}
		// Keep the snapshot current so a later entry for the same line
		// diffs against the value just written.
		line.RequestedQuantity = lq.Quantity
		lineByID[lineID] = line
		updated = true
	}

	if req.DeliveryDate != nil && !sameDate(header.RequestedDeliveryDate, newDate) {
		// A request without explicit line targets changes the whole header.
		dateTargets := targeted
		if len(dateTargets) == 0 {
			dateTargets = lines
		}

		for _, line := range dateTargets {
			if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
				LineID:      line.ID,
				EditorID:    editor,
				ChangeType:  enum.ChangeDeliveryDate,
				Description: fmt.Sprintf("%s → %s", header.RequestedDeliveryDate.Format(dateLayout), newDate.Format(dateLayout)),
			}); err != nil {
				return nil, fmt.Errorf("create order log: %w", err)
			}
		}

		if len(dateTargets) == len(lines) {
			if err := store.UpdateHeaderDeliveryDate(ctx, database.UpdateHeaderDeliveryDateParams{
				ID:                    header.ID,
				RequestedDeliveryDate: newDate,
			}); err != nil {
				return nil, fmt.Errorf("update header date: %w", err)
			}
		} else {
			newHeader, err := store.CreateOrderHeader(ctx, database.CreateOrderHeaderParams{
				CustomerID:            header.CustomerID,
				RequestedDeliveryDate: newDate,
				Memo:                  header.Memo,
				CreatedBy:             header.CreatedBy,
				ProductionFacility:    header.ProductionFacility,
			})
			if err != nil {
				return nil, fmt.Errorf("create resplit header: %w", err)
			}
			ids := make([]uuid.UUID, len(dateTargets))
			for i, line := range dateTargets {
				ids[i] = line.ID
			}
			if err := store.MoveLinesToHeader(ctx, database.MoveLinesToHeaderParams{
				IDs:                ids,
				HeaderID:           newHeader.ID,
				ProductionFacility: newHeader.ProductionFacility,
			}); err != nil {
				return nil, fmt.Errorf("move lines to resplit header: %w", err)
			}
		}
		updated = true
	}

	if req.Memo != nil && *req.Memo != header.Memo.String {
		memo := pgtype.Text{}
		if *req.Memo != "" {
			memo = pgtype.Text{String: *req.Memo, Valid: true}
		}
		if err := store.UpdateHeaderMemo(ctx, database.UpdateHeaderMemoParams{ID: header.ID, Memo: memo}); err != nil {
			return nil, fmt.Errorf("update header memo: %w", err)
		}
		// Memo is header-level; the log is attached through each line so
		// the change shows up in every line's history.
		for _, line := range lines {
			if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
				LineID:      line.ID,
				EditorID:    editor,
				ChangeType:  enum.ChangeMemo,
				Description: "memo changed",
			}); err != nil {
				return nil, fmt.Errorf("create order log: %w", err)
			}
		}
		updated = true
	}

	if !updated {
		// Nothing differed; commit is pointless but harmless.
		return &UpdateOrderResult{Updated: false}, tx.Commit(ctx)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	s.audit.Record(ctx, actor.ID, enum.AuditUpdate, "OrderHeader", header.ID)
	return &UpdateOrderResult{Updated: true}, nil
}

// CancelOrder deletes a header still in PENDING aggregate status, owned by
// the actor. Lines and their logs cascade.
func (s *MutationService) CancelOrder(ctx context.Context, actor Actor, headerIDRaw string) error {
	headerID, err := uuid.Parse(headerIDRaw)
	if err != nil {
		return ErrOrderNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	header, err := store.GetOrderHeaderForUpdate(ctx, headerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrOrderNotFound
	} else if err != nil {
		return fmt.Errorf("get order header: %w", err)
	}

	if header.CreatedBy != actor.ID && !actor.Has(enum.RoleAdmin) {
		return ErrNotEditable
	}

	lines, err := store.ListOrderLinesByHeader(ctx, header.ID)
	if err != nil {
		return fmt.Errorf("list order lines: %w", err)
	}
	if DeriveHeaderStatus(lines) != enum.HeaderStatusPending {
		return ErrNotEditable
	}

	if err := store.DeleteOrderHeader(ctx, header.ID); err != nil {
		return fmt.Errorf("delete order header: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.audit.Record(ctx, actor.ID, enum.AuditDelete, "OrderHeader", header.ID)
	return nil
}

// UpdateLineRequest is the production-side edit of one line. Nil pointers
// mean "leave unchanged".
type UpdateLineRequest struct {
	LineID            string
	FulfilledQuantity *int32
	Memo              *string
	Facility          *string
	DeliveryDate      *string
}

// UpdateLine applies production-side corrections to one line: fulfilled
// quantity, facility, header memo, or delivery date. A date change on a
// multi-line header moves the line to a new header; on a single-line
// header the header is updated in place. Requires the production
// capability.
func (s *MutationService) UpdateLine(ctx context.Context, actor Actor, req UpdateLineRequest) error {
	if !actor.Has(enum.RoleProduction) {
		return ErrForbidden
	}
	lineID, err := uuid.Parse(req.LineID)
	if err != nil {
		return ErrLineNotFound
	}

	var newDate time.Time
	if req.DeliveryDate != nil {
		newDate, err = time.ParseInLocation(dateLayout, *req.DeliveryDate, time.Local)
		if err != nil {
			return ErrInvalidDate
		}
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

	header, err := store.GetOrderHeaderForUpdate(ctx, line.HeaderID)
	if err != nil {
		return fmt.Errorf("get order header: %w", err)
	}
	siblings, err := store.ListOrderLinesByHeader(ctx, header.ID)
	if err != nil {
		return fmt.Errorf("list order lines: %w", err)
	}

	editor := pgtype.UUID{Bytes: actor.ID, Valid: true}

	if req.DeliveryDate != nil && !sameDate(header.RequestedDeliveryDate, newDate) {
		if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
			LineID:      line.ID,
			EditorID:    editor,
			ChangeType:  enum.ChangeDeliveryDate,
			Description: fmt.Sprintf("%s → %s", header.RequestedDeliveryDate.Format(dateLayout), newDate.Format(dateLayout)),
		}); err != nil {
			return fmt.Errorf("create order log: %w", err)
		}

		if len(siblings) == 1 {
			if err := store.UpdateHeaderDeliveryDate(ctx, database.UpdateHeaderDeliveryDateParams{
				ID:                    header.ID,
				RequestedDeliveryDate: newDate,
			}); err != nil {
				return fmt.Errorf("update header date: %w", err)
			}
		} else {
			facility := header.ProductionFacility
			if req.Facility != nil && *req.Facility != "" {
				facility = *req.Facility
			}
			newHeader, err := store.CreateOrderHeader(ctx, database.CreateOrderHeaderParams{
				CustomerID:            header.CustomerID,
				RequestedDeliveryDate: newDate,
				Memo:                  header.Memo,
				CreatedBy:             header.CreatedBy,
				ProductionFacility:    facility,
			})
			if err != nil {
				return fmt.Errorf("create resplit header: %w", err)
			}
			if err := store.MoveLinesToHeader(ctx, database.MoveLinesToHeaderParams{
				IDs:                []uuid.UUID{line.ID},
				HeaderID:           newHeader.ID,
				ProductionFacility: facility,
			}); err != nil {
				return fmt.Errorf("move line to resplit header: %w", err)
			}
			// The line now lives alone on the new header.
			header = newHeader
			line.HeaderID = newHeader.ID
			line.ProductionFacility = facility
			siblings = []database.OrderLine{line}
		}
	}

	if req.FulfilledQuantity != nil && *req.FulfilledQuantity != line.FulfilledQuantity {
		if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
			LineID:      line.ID,
			EditorID:    editor,
			ChangeType:  enum.ChangeQuantity,
			Description: fmt.Sprintf("%d → %d", line.FulfilledQuantity, *req.FulfilledQuantity),
		}); err != nil {
			return fmt.Errorf("create order log: %w", err)
		}
		if err := store.UpdateLineFulfilledQuantity(ctx, database.UpdateLineFulfilledQuantityParams{
			ID:                line.ID,
			FulfilledQuantity: *req.FulfilledQuantity,
		}); err != nil {
			return fmt.Errorf("update fulfilled quantity: %w", err)
		}
	}

	if req.Memo != nil && *req.Memo != header.Memo.String {
		memo := pgtype.Text{}
		if *req.Memo != "" {
			memo = pgtype.Text{String: *req.Memo, Valid: true}
		}
		if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
			LineID:      line.ID,
			EditorID:    editor,
			ChangeType:  enum.ChangeMemo,
			Description: "memo changed",
		}); err != nil {
			return fmt.Errorf("create order log: %w", err)
		}
		if err := store.UpdateHeaderMemo(ctx, database.UpdateHeaderMemoParams{ID: header.ID, Memo: memo}); err != nil {
			return fmt.Errorf("update header memo: %w", err)
		}
	}

	if req.Facility != nil && *req.Facility != "" && *req.Facility != line.ProductionFacility {
		if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
			LineID:      line.ID,
			EditorID:    editor,
			ChangeType:  enum.ChangeFacility,
			Description: fmt.Sprintf("%s → %s", line.ProductionFacility, *req.Facility),
		}); err != nil {
			return fmt.Errorf("create order log: %w", err)
		}
		if err := store.UpdateLineFacility(ctx, database.UpdateLineFacilityParams{
			ID:                 line.ID,
			ProductionFacility: *req.Facility,
		}); err != nil {
			return fmt.Errorf("update line facility: %w", err)
		}
		// On a single-line header there is nothing else to conflict with;
		// pull the header along instead of resplitting.
		if len(siblings) == 1 && header.ProductionFacility != *req.Facility {
			if err := store.UpdateHeaderFacility(ctx, database.UpdateHeaderFacilityParams{
				ID:                 header.ID,
				ProductionFacility: *req.Facility,
			}); err != nil {
				return fmt.Errorf("update header facility: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	s.audit.Record(ctx, actor.ID, enum.AuditUpdate, "OrderLine", line.ID)
	return nil
}

// BulkUpdateRequest changes delivery date and/or facility across a batch
// of lines that may span multiple headers.
type BulkUpdateRequest struct {
	LineIDs      []string
	DeliveryDate *string
	Facility     *string
}

// BulkUpdateResult reports how many of the selected lines were processed.
type BulkUpdateResult struct {
	UpdatedCount int
}

// BulkUpdateLines applies a date and/or facility change to a batch of
// lines in one transaction. Lines are grouped by header and each group is
// resplit independently: a group covering all of its header's lines
// updates the header in place, a partial group moves to a new header.
// Requires the production capability.
func (s *MutationService) BulkUpdateLines(ctx context.Context, actor Actor, req BulkUpdateRequest) (*BulkUpdateResult, error) {
	if !actor.Has(enum.RoleProduction) {
		return nil, ErrForbidden
	}
	if len(req.LineIDs) == 0 {
		return nil, ErrNoLinesSelected
	}
	if req.DeliveryDate == nil && req.Facility == nil {
		return nil, ErrNoChanges
	}

	var newDate time.Time
	if req.DeliveryDate != nil {
		var err error
		newDate, err = time.ParseInLocation(dateLayout, *req.DeliveryDate, time.Local)
		if err != nil {
			return nil, ErrInvalidDate
		}
	}

	ids := make([]uuid.UUID, 0, len(req.LineIDs))
	for _, raw := range req.LineIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, ErrLineNotFound
		}
		ids = append(ids, id)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	selected, err := store.ListOrderLinesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	if len(selected) == 0 {
		return nil, ErrNoLinesSelected
	}

	byHeader := make(map[uuid.UUID][]database.OrderLine)
	var headerOrder []uuid.UUID
	for _, line := range selected {
		if _, seen := byHeader[line.HeaderID]; !seen {
			headerOrder = append(headerOrder, line.HeaderID)
		}
		byHeader[line.HeaderID] = append(byHeader[line.HeaderID], line)
	}

	editor := pgtype.UUID{Bytes: actor.ID, Valid: true}

	for _, headerID := range headerOrder {
		group := byHeader[headerID]

		header, err := store.GetOrderHeaderForUpdate(ctx, headerID)
		if err != nil {
			return nil, fmt.Errorf("get order header: %w", err)
		}
		siblings, err := store.ListOrderLinesByHeader(ctx, headerID)
		if err != nil {
			return nil, fmt.Errorf("list order lines: %w", err)
		}
		wholeSet := len(group) == len(siblings)

		facilityChanged := req.Facility != nil && *req.Facility != ""
		dateChanged := req.DeliveryDate != nil && !sameDate(header.RequestedDeliveryDate, newDate)

		if facilityChanged {
			for _, line := range group {
				if line.ProductionFacility == *req.Facility {
					continue
				}
				if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
					LineID:      line.ID,
					EditorID:    editor,
					ChangeType:  enum.ChangeBulkFacility,
					Description: fmt.Sprintf("%s → %s", line.ProductionFacility, *req.Facility),
				}); err != nil {
					return nil, fmt.Errorf("create order log: %w", err)
				}
			}
		}

		if dateChanged {
			for _, line := range group {
				if _, err := store.CreateOrderLog(ctx, database.CreateOrderLogParams{
					LineID:      line.ID,
					EditorID:    editor,
					ChangeType:  enum.ChangeBulkDate,
					Description: fmt.Sprintf("%s → %s", header.RequestedDeliveryDate.Format(dateLayout), newDate.Format(dateLayout)),
				}); err != nil {
					return nil, fmt.Errorf("create order log: %w", err)
				}
			}
		}

		targetFacility := header.ProductionFacility
		if facilityChanged {
			targetFacility = *req.Facility
		}

		needsMove := (dateChanged || (facilityChanged && targetFacility != header.ProductionFacility)) && !wholeSet

		switch {
		case needsMove:
			// Partial selection: move the group to a fresh header so both
			// the old and new headers stay facility-homogeneous.
			date := header.RequestedDeliveryDate
			if dateChanged {
				date = newDate
			}
			newHeader, err := store.CreateOrderHeader(ctx, database.CreateOrderHeaderParams{
				CustomerID:            header.CustomerID,
				RequestedDeliveryDate: date,
				Memo:                  header.Memo,
				CreatedBy:             header.CreatedBy,
				ProductionFacility:    targetFacility,
			})
			if err != nil {
				return nil, fmt.Errorf("create resplit header: %w", err)
			}
			groupIDs := make([]uuid.UUID, len(group))
			for i, line := range group {
				groupIDs[i] = line.ID
			}
			if err := store.MoveLinesToHeader(ctx, database.MoveLinesToHeaderParams{
				IDs:                groupIDs,
				HeaderID:           newHeader.ID,
				ProductionFacility: targetFacility,
			}); err != nil {
				return nil, fmt.Errorf("move lines to resplit header: %w", err)
			}
		default:
			if dateChanged {
				if err := store.UpdateHeaderDeliveryDate(ctx, database.UpdateHeaderDeliveryDateParams{
					ID:                    header.ID,
					RequestedDeliveryDate: newDate,
				}); err != nil {
					return nil, fmt.Errorf("update header date: %w", err)
				}
			}
			if facilityChanged {
				groupIDs := make([]uuid.UUID, len(group))
				for i, line := range group {
					groupIDs[i] = line.ID
				}
				if err := store.UpdateLinesFacilityByIDs(ctx, database.UpdateLinesFacilityByIDsParams{
					IDs:                groupIDs,
					ProductionFacility: *req.Facility,
				}); err != nil {
					return nil, fmt.Errorf("update lines facility: %w", err)
				}
				if header.ProductionFacility != *req.Facility {
					if err := store.UpdateHeaderFacility(ctx, database.UpdateHeaderFacilityParams{
						ID:                 header.ID,
						ProductionFacility: *req.Facility,
					}); err != nil {
						return nil, fmt.Errorf("update header facility: %w", err)
					}
				}
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	for _, headerID := range headerOrder {
		s.audit.Record(ctx, actor.ID, enum.AuditUpdate, "OrderHeader", headerID)
	}
	return &BulkUpdateResult{UpdatedCount: len(selected)}, nil
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
