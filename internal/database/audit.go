package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createAuditLog = `
INSERT INTO audit_logs (user_id, action, entity_type, entity_id, details)
VALUES ($1, $2, $3, $4, $5)
`

type CreateAuditLogParams struct {
	UserID     pgtype.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Details    []byte
}

func (q *Queries) CreateAuditLog(ctx context.Context, arg CreateAuditLogParams) error {
	_, err := q.db.Exec(ctx, createAuditLog, arg.UserID, arg.Action, arg.EntityType, arg.EntityID, arg.Details)
	return err
}
