package domain

import "fmt"

// AllocationStatus is the closed lifecycle enumeration for a stock
// allocation row. Rows are never hard-deleted; the status transition is
// the deletion signal.
type AllocationStatus string

const (
	StatusAllocated                  AllocationStatus = "ALLOCATED"
	StatusDeallocatedPaymentRejected AllocationStatus = "DEALLOCATED_PAYMENT_REJECTED"
	StatusPaymentRejected            AllocationStatus = "PAYMENT_REJECTED"
	StatusCanceled                   AllocationStatus = "CANCELED"
)

// ParseAllocationStatus validates membership in the closed enumeration.
func ParseAllocationStatus(s string) (AllocationStatus, error) {
	switch AllocationStatus(s) {
	case StatusAllocated, StatusDeallocatedPaymentRejected, StatusPaymentRejected, StatusCanceled:
		return AllocationStatus(s), nil
	}
	return "", invalidArguments(fmt.Errorf("unknown allocation status %q", s))
}

// CanTransitionTo reports whether next is a legal successor of s. The
// ledger enforces this again at commit time via its expected-status
// guard; this check only rejects commands that could never succeed.
func (s AllocationStatus) CanTransitionTo(next AllocationStatus) bool {
	switch s {
	case StatusAllocated:
		return next == StatusDeallocatedPaymentRejected || next == StatusCanceled
	default:
		// DEALLOCATED_PAYMENT_REJECTED, PAYMENT_REJECTED and CANCELED
		// are terminal on the compensation path.
		return false
	}
}
