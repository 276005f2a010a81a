package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/suju-order/api/internal/database"
	"github.com/suju-order/api/internal/enum"
)

// Grouping and sort keys accepted by the production board query.
const (
	GroupByProduct  = "product"
	GroupByCustomer = "customer"
	GroupByTime     = "time"

	SortByDeliveryDate = "delivery_date"
	SortByCustomer     = "customer"
	SortByRequester    = "requester"
	SortByProduct      = "product"
	SortByOrderTime    = "order_time"
	SortByMemo         = "memo"
)

// StatusStore defines the DB methods needed by the read-only board queries.
type StatusStore interface {
	ListProductionLines(ctx context.Context, arg database.ListProductionLinesParams) ([]database.ProductionLineRow, error)
	ListPendingLines(ctx context.Context, arg database.ListPendingLinesParams) ([]database.PendingLineRow, error)
	ListOrderHeadersByCreator(ctx context.Context, arg database.ListOrderHeadersByCreatorParams) ([]database.ListOrderHeadersByCreatorRow, error)
	ListOrderLinesByHeader(ctx context.Context, headerID uuid.UUID) ([]database.OrderLine, error)
	ListOrderLogsByLine(ctx context.Context, lineID uuid.UUID) ([]database.ListOrderLogsByLineRow, error)
}

// StatusService answers the production board and summary queries. It never
// mutates anything and runs outside any transaction.
type StatusService struct {
	store StatusStore
}

func NewStatusService(store StatusStore) *StatusService {
	return &StatusService{store: store}
}

// StatusQuery carries the board's filter, grouping and sort parameters.
// Empty strings mean "no filter". Date and Facility also accept "ALL".
type StatusQuery struct {
	Search   string
	Date     string // YYYY-MM-DD, "" or "ALL" for any date
	Facility string // matched by prefix with a trailing "동" stripped
	Status   string // "completed", "incomplete" or "" for all
	GroupBy  string // product (default), customer, time
	SortBy   string // in-group sort key, defaults to delivery_date
	SortDesc bool
}

// StatusLine is one order line joined with its header, customer, creator
// and product, as shown on the production board.
type StatusLine struct {
	ID                    uuid.UUID       `json:"id"`
	HeaderID              uuid.UUID       `json:"header_id"`
	ProductID             uuid.UUID       `json:"product_id"`
	ProductName           string          `json:"product_name"`
	ProductSku            string          `json:"product_sku"`
	ProductionFacility    string          `json:"production_facility"`
	RequestedQuantity     int32           `json:"requested_quantity"`
	FulfilledQuantity     int32           `json:"fulfilled_quantity"`
	Status                string          `json:"status"`
	CustomerID            uuid.UUID       `json:"customer_id"`
	CustomerName          string          `json:"customer_name"`
	RequestedDeliveryDate string          `json:"requested_delivery_date"`
	Memo                  string          `json:"memo,omitempty"`
	OrderedAt             time.Time       `json:"ordered_at"`
	CreatorUsername       string          `json:"creator_username"`
	CreatorFullName       string          `json:"creator_full_name"`
	LineValue             decimal.Decimal `json:"line_value"`
}

// StatusGroup is one group of board lines with its aggregate status.
type StatusGroup struct {
	Key           string          `json:"key"`
	Label         string          `json:"label"`
	Lines         []StatusLine    `json:"lines"`
	TotalQuantity int32           `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	GroupStatus   string          `json:"group_status"`
}

// StatusResult holds either grouped output or, for the time view, a flat
// line list sorted newest-first.
type StatusResult struct {
	Groups []StatusGroup `json:"groups,omitempty"`
	Lines  []StatusLine  `json:"lines,omitempty"`
}

// QueryStatus returns board lines filtered, grouped and sorted per the
// query. Group status is PENDING when no line is completed, PARTIAL when
// some are, PERFECT when all are completed with fulfilled sums matching
// requested sums, and IMPERFECT when all are completed but the sums
// differ.
func (s *StatusService) QueryStatus(ctx context.Context, q StatusQuery) (*StatusResult, error) {
	params := database.ListProductionLinesParams{}
	if q.Search != "" {
		params.Search = pgtype.Text{String: q.Search, Valid: true}
	}
	if q.Date != "" && q.Date != "ALL" {
		date, err := time.ParseInLocation(dateLayout, q.Date, time.Local)
		if err != nil {
			return nil, ErrInvalidDate
		}
		params.DeliveryDate = pgtype.Date{Time: date, Valid: true}
	}
	if q.Facility != "" && q.Facility != "ALL" {
		// Legacy behavior: "A동" matches both "A동" and "A동 별관", so the
		// filter is a prefix match on the name with the trailing marker
		// stripped.
		prefix := strings.TrimSuffix(q.Facility, "동")
		params.FacilityPrefix = pgtype.Text{String: prefix, Valid: true}
	}
	switch q.Status {
	case "completed":
		params.OnlyCompleted = true
	case "incomplete":
		params.OnlyIncomplete = true
	}

	rows, err := s.store.ListProductionLines(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list production lines: %w", err)
	}

	lines := make([]StatusLine, len(rows))
	for i, row := range rows {
		lines[i] = toStatusLine(row)
	}

	if q.GroupBy == GroupByTime {
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].OrderedAt.After(lines[j].OrderedAt)
		})
		return &StatusResult{Lines: lines}, nil
	}

	groupBy := q.GroupBy
	if groupBy != GroupByCustomer {
		groupBy = GroupByProduct
	}

	byKey := make(map[string]*StatusGroup)
	var keys []string
	for _, line := range lines {
		var key, label string
		if groupBy == GroupByCustomer {
			key, label = line.CustomerID.String(), line.CustomerName
		} else {
			key, label = line.ProductID.String(), line.ProductName
		}
		group, ok := byKey[key]
		if !ok {
			group = &StatusGroup{Key: key, Label: label, TotalValue: decimal.Zero}
			byKey[key] = group
			keys = append(keys, key)
		}
		group.Lines = append(group.Lines, line)
		group.TotalQuantity += line.RequestedQuantity
		group.TotalValue = group.TotalValue.Add(line.LineValue)
	}

	groups := make([]StatusGroup, 0, len(keys))
	for _, key := range keys {
		group := byKey[key]
		group.GroupStatus = deriveGroupStatus(group.Lines)
		sortStatusLines(group.Lines, q.SortBy, q.SortDesc)
		groups = append(groups, *group)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Label < groups[j].Label
	})
	return &StatusResult{Groups: groups}, nil
}

func toStatusLine(row database.ProductionLineRow) StatusLine {
	unitPrice := numericToDecimal(row.UnitPrice)
	return StatusLine{
		ID:                    row.ID,
		HeaderID:              row.HeaderID,
		ProductID:             row.ProductID,
		ProductName:           row.ProductName,
		ProductSku:            row.ProductSku,
		ProductionFacility:    row.ProductionFacility,
		RequestedQuantity:     row.RequestedQuantity,
		FulfilledQuantity:     row.FulfilledQuantity,
		Status:                row.Status,
		CustomerID:            row.CustomerID,
		CustomerName:          row.CustomerName,
		RequestedDeliveryDate: row.RequestedDeliveryDate.Format(dateLayout),
		Memo:                  row.Memo.String,
		OrderedAt:             row.OrderedAt,
		CreatorUsername:       row.CreatorUsername,
		CreatorFullName:       row.CreatorFullName,
		LineValue:             unitPrice.Mul(decimal.NewFromInt(int64(row.RequestedQuantity))),
	}
}

func deriveGroupStatus(lines []StatusLine) string {
	completed := 0
	var totalRequested, totalFulfilled int64
	for _, l := range lines {
		if l.Status == enum.LineStatusCompleted {
			completed++
		}
		totalRequested += int64(l.RequestedQuantity)
		totalFulfilled += int64(l.FulfilledQuantity)
	}
	switch {
	case completed == 0:
		return enum.GroupStatusPending
	case completed < len(lines):
		return enum.GroupStatusPartial
	case totalRequested == totalFulfilled:
		return enum.GroupStatusPerfect
	default:
		return enum.GroupStatusImperfect
	}
}

func sortStatusLines(lines []StatusLine, sortBy string, desc bool) {
	less := func(a, b StatusLine) bool {
		switch sortBy {
		case SortByCustomer:
			return a.CustomerName < b.CustomerName
		case SortByRequester:
			return a.CreatorUsername < b.CreatorUsername
		case SortByProduct:
			return a.ProductName < b.ProductName
		case SortByOrderTime:
			return a.OrderedAt.Before(b.OrderedAt)
		case SortByMemo:
			return a.Memo < b.Memo
		default:
			return a.RequestedDeliveryDate < b.RequestedDeliveryDate
		}
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if desc {
			return less(lines[j], lines[i])
		}
		return less(lines[i], lines[j])
	})
}

// PendingSummaryQuery filters the not-yet-completed workload summary.
type PendingSummaryQuery struct {
	Date     string // exact date, "" or "ALL" for any
	DateFrom string
	DateTo   string
	Facility string // exact match here, unlike the board's prefix filter
}

// PendingSummaryItem aggregates pending quantity per (date, product,
// facility).
type PendingSummaryItem struct {
	Date               string      `json:"date"`
	ProductID          uuid.UUID   `json:"product_id"`
	ProductName        string      `json:"product_name"`
	ProductSku         string      `json:"product_sku"`
	ProductionFacility string      `json:"production_facility"`
	TotalQuantity      int64       `json:"total_qty"`
	LineCount          int         `json:"line_count"`
	LineIDs            []uuid.UUID `json:"line_ids"`
}

// PendingSummary aggregates every non-completed line into per
// (date, product, facility) buckets, sorted by date then product name.
func (s *StatusService) PendingSummary(ctx context.Context, q PendingSummaryQuery) ([]PendingSummaryItem, error) {
	params := database.ListPendingLinesParams{}
	var err error
	if params.DeliveryDate, err = parseOptionalDate(q.Date); err != nil {
		return nil, err
	}
	if params.DateFrom, err = parseOptionalDate(q.DateFrom); err != nil {
		return nil, err
	}
	if params.DateTo, err = parseOptionalDate(q.DateTo); err != nil {
		return nil, err
	}
	if q.Facility != "" && q.Facility != "ALL" {
		params.Facility = pgtype.Text{String: q.Facility, Valid: true}
	}

	rows, err := s.store.ListPendingLines(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list pending lines: %w", err)
	}

	type bucketKey struct {
		date     string
		product  uuid.UUID
		facility string
	}
	byKey := make(map[bucketKey]*PendingSummaryItem)
	for _, row := range rows {
		key := bucketKey{
			date:     row.RequestedDeliveryDate.Format(dateLayout),
			product:  row.ProductID,
			facility: row.ProductionFacility,
		}
		item, ok := byKey[key]
		if !ok {
			item = &PendingSummaryItem{
				Date:               key.date,
				ProductID:          row.ProductID,
				ProductName:        row.ProductName,
				ProductSku:         row.ProductSku,
				ProductionFacility: row.ProductionFacility,
			}
			byKey[key] = item
		}
		item.TotalQuantity += int64(row.RequestedQuantity)
		item.LineCount++
		item.LineIDs = append(item.LineIDs, row.ID)
	}

	items := make([]PendingSummaryItem, 0, len(byKey))
	for _, item := range byKey {
		items = append(items, *item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date < items[j].Date
		}
		return items[i].ProductName < items[j].ProductName
	})
	return items, nil
}

// MyOrder is one header in the creator's order history, with its derived
// aggregate status.
type MyOrder struct {
	ID                    uuid.UUID `json:"id"`
	CustomerName          string    `json:"customer_name"`
	RequestedDeliveryDate string    `json:"requested_delivery_date"`
	Memo                  string    `json:"memo,omitempty"`
	ProductionFacility    string    `json:"production_facility"`
	CreatedAt             time.Time `json:"created_at"`
	Status                string    `json:"status"`
	LineCount             int       `json:"line_count"`
}

// MyOrders lists headers created by the actor, newest first, with an
// optional customer-name search.
func (s *StatusService) MyOrders(ctx context.Context, actor Actor, search string, limit, offset int32) ([]MyOrder, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	params := database.ListOrderHeadersByCreatorParams{
		CreatedBy: actor.ID,
		Limit:     limit,
		Offset:    offset,
	}
	if search != "" {
		params.Search = pgtype.Text{String: search, Valid: true}
	}
	rows, err := s.store.ListOrderHeadersByCreator(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list order headers: %w", err)
	}

	orders := make([]MyOrder, 0, len(rows))
	for _, row := range rows {
		lines, err := s.store.ListOrderLinesByHeader(ctx, row.ID)
		if err != nil {
			return nil, fmt.Errorf("list order lines: %w", err)
		}
		orders = append(orders, MyOrder{
			ID:                    row.ID,
			CustomerName:          row.CustomerName,
			RequestedDeliveryDate: row.RequestedDeliveryDate.Format(dateLayout),
			Memo:                  row.Memo.String,
			ProductionFacility:    row.ProductionFacility,
			CreatedAt:             row.CreatedAt,
			Status:                DeriveHeaderStatus(lines),
			LineCount:             len(lines),
		})
	}
	return orders, nil
}

// LineLog is one entry of a line's append-only change history.
type LineLog struct {
	ID          uuid.UUID `json:"id"`
	EditorName  string    `json:"editor_name,omitempty"`
	ChangeType  string    `json:"change_type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// LineLogs returns a line's change history, newest first.
func (s *StatusService) LineLogs(ctx context.Context, lineIDRaw string) ([]LineLog, error) {
	lineID, err := uuid.Parse(lineIDRaw)
	if err != nil {
		return nil, ErrLineNotFound
	}
	rows, err := s.store.ListOrderLogsByLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("list order logs: %w", err)
	}
	logs := make([]LineLog, len(rows))
	for i, row := range rows {
		logs[i] = LineLog{
			ID:          row.ID,
			EditorName:  row.EditorName.String,
			ChangeType:  row.ChangeType,
			Description: row.Description,
			CreatedAt:   row.CreatedAt,
		}
	}
	return logs, nil
}

func parseOptionalDate(raw string) (pgtype.Date, error) {
	if raw == "" || raw == "ALL" {
		return pgtype.Date{}, nil
	}
	date, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		return pgtype.Date{}, ErrInvalidDate
	}
	return pgtype.Date{Time: date, Valid: true}, nil
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}
