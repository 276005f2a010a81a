package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/suju-order/api/internal/auth"
	"github.com/suju-order/api/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// actorFrom builds the service-layer capability set out of JWT claims.
func actorFrom(claims *auth.Claims) service.Actor {
	return service.Actor{ID: claims.UserID, Roles: claims.Roles}
}

// isValidationError checks if the error is a known validation error
// from the service layer that should result in 400 Bad Request.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrCutoffViolation) ||
		errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidDate) ||
		errors.Is(err, service.ErrPastDate) ||
		errors.Is(err, service.ErrNoLinesSelected) ||
		errors.Is(err, service.ErrNoChanges) ||
		errors.Is(err, service.ErrCustomerNotFound) ||
		errors.Is(err, service.ErrProductNotFound)
}

// writeServiceError maps service errors onto HTTP statuses. Anything
// unrecognized is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrNotEditable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrLineNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInternalCustomerMissing):
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
