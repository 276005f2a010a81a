package service

import (
	"github.com/google/uuid"
	"github.com/suju-order/api/internal/enum"
)

// Actor is the acting user's identity and capability set, resolved once per
// request and passed explicitly into every engine call.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

// Has reports whether the actor holds the given role. ADMIN passes every
// capability check.
func (a Actor) Has(role string) bool {
	for _, r := range a.Roles {
		if r == role || r == enum.RoleAdmin {
			return true
		}
	}
	return false
}
