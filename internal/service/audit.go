package service

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/suju-order/api/internal/database"
)

// Auditor records who did what to which entity. Calls are fire-and-forget:
// the order flow never fails or waits on the audit trail.
type Auditor interface {
	Record(ctx context.Context, actorID uuid.UUID, action, entityType string, entityID uuid.UUID)
}

// AuditStore defines the DB methods needed by the audit recorder.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) error
}

// AuditRecorder writes audit rows outside the caller's transaction. The
// acting user arrives as an explicit argument at every mutation site;
// there is no ambient current-user state.
type AuditRecorder struct {
	store AuditStore
}

func NewAuditRecorder(store AuditStore) *AuditRecorder {
	return &AuditRecorder{store: store}
}

func (a *AuditRecorder) Record(ctx context.Context, actorID uuid.UUID, action, entityType string, entityID uuid.UUID) {
	userID := pgtype.UUID{}
	if actorID != uuid.Nil {
		userID = pgtype.UUID{Bytes: actorID, Valid: true}
	}
	err := a.store.CreateAuditLog(ctx, database.CreateAuditLogParams{
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	})
	if err != nil {
		log.Printf("ERROR: audit record %s %s %s: %v", action, entityType, entityID, err)
	}
}

// NopAuditor discards audit records; used in tests.
type NopAuditor struct{}

func (NopAuditor) Record(context.Context, uuid.UUID, string, string, uuid.UUID) {}
