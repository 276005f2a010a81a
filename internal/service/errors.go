package service

import "errors"

// Errors returned by the order, mutation, fulfillment and status services.
// Handlers map these to HTTP status codes with errors.Is.
var (
	// Cutoff rule violations.
	ErrCutoffViolation = errors.New("next-day delivery is closed after the cutoff hour, pick a later date")

	// Malformed input.
	ErrEmptyItems      = errors.New("items are required")
	ErrInvalidQuantity = errors.New("quantity must be a non-negative integer")
	ErrInvalidDate     = errors.New("invalid date, use YYYY-MM-DD")
	ErrPastDate        = errors.New("delivery date cannot be in the past")
	ErrNoLinesSelected = errors.New("no lines selected")

	// Not editable: wrong aggregate status or wrong owner.
	ErrNotEditable = errors.New("order is not editable")

	// Missing reference data.
	ErrCustomerNotFound        = errors.New("customer not found or inactive")
	ErrProductNotFound         = errors.New("product not found or inactive")
	ErrOrderNotFound           = errors.New("order not found")
	ErrLineNotFound            = errors.New("order line not found")
	ErrInternalCustomerMissing = errors.New("internal sales customer record is missing, contact an administrator")

	// Capability check failed.
	ErrForbidden = errors.New("insufficient permissions")

	// Nothing to do. Callers treat this as a no-op success, not a failure.
	ErrNoChanges = errors.New("no changes requested")
)
