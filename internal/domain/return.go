package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReturnStatus tracks a return request through its workflow:
// pending -> {approved -> completed, rejected}.
type ReturnStatus string

const (
	ReturnStatusPending   ReturnStatus = "pending"
	ReturnStatusApproved  ReturnStatus = "approved"
	ReturnStatusRejected  ReturnStatus = "rejected"
	ReturnStatusCompleted ReturnStatus = "completed"
)

// ValidReturnResolution reports whether s is a status an administrator may
// move a return into. Customers create returns in pending; everything else is
// an admin resolution.
func ValidReturnResolution(s ReturnStatus) bool {
	switch s {
	case ReturnStatusApproved, ReturnStatusRejected, ReturnStatusCompleted:
		return true
	}
	return false
}

// Active reports whether the status blocks creation of another return for
// the same order. At most one return in {pending, approved} may exist per
// order number at a time.
func (s ReturnStatus) Active() bool {
	return s == ReturnStatusPending || s == ReturnStatusApproved
}

// Return is a customer-initiated refund request against a completed order.
// RefundAmountCents is computed once at creation from the referenced
// OrderItem snapshots and is never recomputed from the catalog.
type Return struct {
	ID          uuid.UUID
	OrderNumber string
	UserID      uuid.UUID

	Reason  string
	ItemIDs []uuid.UUID

	RefundAmountCents int64
	Status            ReturnStatus
	AdminNotes        string

	CreatedAt time.Time
	UpdatedAt time.Time
}
