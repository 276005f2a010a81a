package service

import (
	"github.com/suju-order/api/internal/database"
	"github.com/suju-order/api/internal/enum"
)

// DeriveHeaderStatus computes a header's aggregate status from its current
// line set. The result is never stored; callers recompute it on every
// read. A header with no lines counts as PENDING.
func DeriveHeaderStatus(lines []database.OrderLine) string {
	if len(lines) == 0 {
		return enum.HeaderStatusPending
	}
	completed := 0
	for _, l := range lines {
		if l.Status == enum.LineStatusCompleted {
			completed++
		}
	}
	switch completed {
	case 0:
		return enum.HeaderStatusPending
	case len(lines):
		return enum.HeaderStatusComplete
	default:
		return enum.HeaderStatusPartial
	}
}
