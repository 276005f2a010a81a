package enum

// ── Line state machine (CHECK constrained in DB) ──
//
// IN_PROGRESS is a reachable state but nothing in the API sets it; the
// production flow moves lines straight from PENDING to COMPLETED.

const (
	LineStatusPending    = "PENDING"
	LineStatusInProgress = "IN_PROGRESS"
	LineStatusCompleted  = "COMPLETED"
)

// Derived header status, computed from the line set on every read.
const (
	HeaderStatusPending  = "PENDING"
	HeaderStatusPartial  = "PARTIAL"
	HeaderStatusComplete = "COMPLETE"
)

// Group status on the production board. PERFECT means every line in the
// group is completed and the fulfilled sum matches the requested sum.
const (
	GroupStatusPending   = "PENDING"
	GroupStatusPartial   = "PARTIAL"
	GroupStatusPerfect   = "PERFECT"
	GroupStatusImperfect = "IMPERFECT"
)

// ── Change-log kinds (closed set; free text lives in the description) ──

const (
	ChangeQuantity     = "QUANTITY"
	ChangeFacility     = "FACILITY"
	ChangeBulkFacility = "BULK_FACILITY"
	ChangeDeliveryDate = "DELIVERY_DATE"
	ChangeBulkDate     = "BULK_DELIVERY_DATE"
	ChangeMemo         = "MEMO"
	ChangeComplete     = "COMPLETE"
	ChangeBulkComplete = "BULK_COMPLETE"
)

// ── Capabilities (CHECK constrained in DB) ──

const (
	RoleAdmin      = "ADMIN"
	RoleSales      = "SALES"
	RoleProduction = "PRODUCTION"
	RoleMaterials  = "MATERIALS"
)

// ── Audit actions ──

const (
	AuditCreate  = "CREATE"
	AuditUpdate  = "UPDATE"
	AuditDelete  = "DELETE"
	AuditFulfill = "FULFILL"
)

// FacilityUnassigned groups lines whose product has no facility assignment.
const FacilityUnassigned = "UNASSIGNED"

// FacilityList is the set of production facilities shown in UIs. Facility
// values on lines and headers are plain strings; this list is display data,
// not a constraint.
var FacilityList = []string{"A동", "B동", "C동", "관리동", "구운란동", "외부가공"}

// InternalSalesCustomer is the well-known customer record used by the
// internal sales submission path. It must exist in master data; the
// submission fails if it is missing rather than creating it.
const InternalSalesCustomer = "내부 영업팀"
