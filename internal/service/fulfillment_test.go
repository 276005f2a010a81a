package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/suju-order/api/internal/database"
	"github.com/suju-order/api/internal/enum"
)

// mockFulfillmentStore implements FulfillmentStore with configurable
// behavior and call recording.
type mockFulfillmentStore struct {
	getOrderLineFn        func(ctx context.Context, id uuid.UUID) (database.OrderLine, error)
	updateLineFulfilledFn func(ctx context.Context, arg database.UpdateLineFulfilledParams) error

	logs    []database.CreateOrderLogParams
	updates []database.UpdateLineFulfilledParams
}

func (m *mockFulfillmentStore) GetOrderLine(ctx context.Context, id uuid.UUID) (database.OrderLine, error) {
	return m.getOrderLineFn(ctx, id)
}

func (m *mockFulfillmentStore) UpdateLineFulfilled(ctx context.Context, arg database.UpdateLineFulfilledParams) error {
	m.updates = append(m.updates, arg)
	if m.updateLineFulfilledFn != nil {
		return m.updateLineFulfilledFn(ctx, arg)
	}
	return nil
}

func (m *mockFulfillmentStore) CreateOrderLog(ctx context.Context, arg database.CreateOrderLogParams) (database.OrderLog, error) {
	m.logs = append(m.logs, arg)
	return database.OrderLog{ID: uuid.New(), LineID: arg.LineID}, nil
}

// fulfillmentStoreWith knows the given lines and records all writes.
func fulfillmentStoreWith(lines ...database.OrderLine) *mockFulfillmentStore {
	byID := make(map[uuid.UUID]database.OrderLine, len(lines))
	for _, l := range lines {
		byID[l.ID] = l
	}
	return &mockFulfillmentStore{
		getOrderLineFn: func(ctx context.Context, id uuid.UUID) (database.OrderLine, error) {
			if l, ok := byID[id]; ok {
				return l, nil
			}
			return database.OrderLine{}, pgx.ErrNoRows
		},
	}
}

func newTestFulfillmentService(store *mockFulfillmentStore) *FulfillmentService {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) FulfillmentStore { return store }
	return NewFulfillmentService(pool, newStore, NopAuditor{})
}

func pendingLine(qty int32) database.OrderLine {
	return database.OrderLine{
		ID:                 uuid.New(),
		HeaderID:           uuid.New(),
		ProductID:          uuid.New(),
		ProductionFacility: "A동",
		RequestedQuantity:  qty,
		Status:             enum.LineStatusPending,
	}
}

func TestCompleteLine_RequiresProductionRole(t *testing.T) {
	svc := newTestFulfillmentService(fulfillmentStoreWith())

	err := svc.CompleteLine(context.Background(), Actor{ID: uuid.New(), Roles: []string{enum.RoleSales}}, uuid.New().String(), nil)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got: %v", err)
	}
}

func TestCompleteLine_NotFound(t *testing.T) {
	svc := newTestFulfillmentService(fulfillmentStoreWith())

	err := svc.CompleteLine(context.Background(), productionActor(), uuid.New().String(), nil)
	if !errors.Is(err, ErrLineNotFound) {
		t.Fatalf("expected ErrLineNotFound, got: %v", err)
	}
}

func TestCompleteLine_DefaultsToRequestedQuantity(t *testing.T) {
	line := pendingLine(12)
	store := fulfillmentStoreWith(line)
	svc := newTestFulfillmentService(store)

	if err := svc.CompleteLine(context.Background(), productionActor(), line.ID.String(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(store.updates))
	}
	update := store.updates[0]
	if update.FulfilledQuantity != 12 {
		t.Fatalf("expected fulfilled = requested (12), got %d", update.FulfilledQuantity)
	}
	if update.Status != enum.LineStatusCompleted {
		t.Fatalf("expected status COMPLETED, got %s", update.Status)
	}
	if len(store.logs) != 1 || store.logs[0].ChangeType != enum.ChangeComplete {
		t.Fatal("expected one completion log entry")
	}
}

func TestCompleteLine_ExplicitQuantity(t *testing.T) {
	line := pendingLine(12)
	store := fulfillmentStoreWith(line)
	svc := newTestFulfillmentService(store)

	qty := int32(9)
	if err := svc.CompleteLine(context.Background(), productionActor(), line.ID.String(), &qty); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.updates[0].FulfilledQuantity != 9 {
		t.Fatalf("expected fulfilled 9, got %d", store.updates[0].FulfilledQuantity)
	}
}

func TestCompleteLine_NegativeQuantity(t *testing.T) {
	line := pendingLine(12)
	svc := newTestFulfillmentService(fulfillmentStoreWith(line))

	qty := int32(-1)
	err := svc.CompleteLine(context.Background(), productionActor(), line.ID.String(), &qty)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

// Re-completing a completed line is allowed and appends another log entry.
func TestCompleteLine_IdempotentRecompletion(t *testing.T) {
	line := pendingLine(7)
	line.Status = enum.LineStatusCompleted
	line.FulfilledQuantity = 7
	store := fulfillmentStoreWith(line)
	svc := newTestFulfillmentService(store)

	if err := svc.CompleteLine(context.Background(), productionActor(), line.ID.String(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.CompleteLine(context.Background(), productionActor(), line.ID.String(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.logs) != 2 {
		t.Fatalf("expected the log to grow to 2 entries, got %d", len(store.logs))
	}
}

func TestBulkCompleteLines_EmptySelection(t *testing.T) {
	svc := newTestFulfillmentService(fulfillmentStoreWith())

	_, err := svc.BulkCompleteLines(context.Background(), productionActor(), nil)
	if !errors.Is(err, ErrNoLinesSelected) {
		t.Fatalf("expected ErrNoLinesSelected, got: %v", err)
	}
}

func TestBulkCompleteLines_SetsFulfilledToRequested(t *testing.T) {
	l1 := pendingLine(5)
	l2 := pendingLine(8)
	store := fulfillmentStoreWith(l1, l2)
	svc := newTestFulfillmentService(store)

	result, err := svc.BulkCompleteLines(context.Background(), productionActor(), []string{l1.ID.String(), l2.ID.String()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CompletedCount != 2 {
		t.Fatalf("expected 2 completed, got %d", result.CompletedCount)
	}
	for i, want := range []int32{5, 8} {
		if store.updates[i].FulfilledQuantity != want {
			t.Errorf("update %d: expected fulfilled %d, got %d", i, want, store.updates[i].FulfilledQuantity)
		}
		if store.updates[i].Status != enum.LineStatusCompleted {
			t.Errorf("update %d: expected COMPLETED, got %s", i, store.updates[i].Status)
		}
	}
}

// A missing line must not block the rest of the batch.
func TestBulkCompleteLines_SkipsFailures(t *testing.T) {
	l1 := pendingLine(5)
	store := fulfillmentStoreWith(l1)
	svc := newTestFulfillmentService(store)

	result, err := svc.BulkCompleteLines(context.Background(), productionActor(), []string{
		uuid.New().String(), // unknown
		l1.ID.String(),
		"not-a-uuid",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CompletedCount != 1 {
		t.Fatalf("expected 1 completed, got %d", result.CompletedCount)
	}
	if len(store.updates) != 1 {
		t.Fatalf("expected 1 update, got %d", len(store.updates))
	}
}

func TestBulkCompleteLines_RequiresProductionRole(t *testing.T) {
	svc := newTestFulfillmentService(fulfillmentStoreWith())

	_, err := svc.BulkCompleteLines(context.Background(), Actor{ID: uuid.New()}, []string{uuid.New().String()})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got: %v", err)
	}
}
