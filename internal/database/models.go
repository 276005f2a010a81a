package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Username       string
	FullName       string
	HashedPassword string
	Roles          []string
	IsActive       bool
	CreatedAt      time.Time
}

type Customer struct {
	ID         uuid.UUID
	Name       string
	BusinessID pgtype.Text
	IsActive   bool
}

type Product struct {
	ID                 uuid.UUID
	Name               string
	Sku                string
	UnitPrice          pgtype.Numeric
	SortOrder          int32
	ProductionFacility pgtype.Text
	IsActive           bool
}

// OrderHeader is one order request: one customer, one delivery date, one
// production facility. Headers never hold lines from multiple facilities
// once a submission or resplit completes.
type OrderHeader struct {
	ID                    uuid.UUID
	CustomerID            uuid.UUID
	RequestedDeliveryDate time.Time
	Memo                  pgtype.Text
	CreatedBy             uuid.UUID
	CreatedAt             time.Time
	ProductionFacility    string
}

type OrderLine struct {
	ID                 uuid.UUID
	HeaderID           uuid.UUID
	ProductID          uuid.UUID
	ProductionFacility string
	RequestedQuantity  int32
	FulfilledQuantity  int32
	Status             string
}

// OrderLog is an append-only change record for a single line. Rows are
// never updated or deleted.
type OrderLog struct {
	ID          uuid.UUID
	LineID      uuid.UUID
	EditorID    pgtype.UUID
	ChangeType  string
	Description string
	CreatedAt   time.Time
}

type AuditLog struct {
	ID         uuid.UUID
	UserID     pgtype.UUID
	Action     string
	EntityType string
	EntityID   uuid.UUID
	Details    []byte
	CreatedAt  time.Time
}
