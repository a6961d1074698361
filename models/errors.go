package models

import "fmt"

// Typed reconciliation errors. Every validation failure maps to one of these
// so the application layer can return a specific, actionable message instead
// of a generic failure. All of them are produced before anything is written.

// ExceedsOrderedError: a receipt or correction would push a line's received
// total above its ordered quantity.
type ExceedsOrderedError struct {
	LineItemId  int
	ProductName string
	Ordered     int
	Received    int
	Requested   int
}

func (e *ExceedsOrderedError) Error() string {
	remaining := e.Ordered - e.Received
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("cannot receive %d units of %s, only %d remain on order",
		e.Requested, e.ProductName, remaining)
}

// NegativeResultError: a correction or negative delta would drive a line's
// received total (or the corrected value itself) below zero.
type NegativeResultError struct {
	LineItemId  int
	ProductName string
	Resulting   int
}

func (e *NegativeResultError) Error() string {
	return fmt.Sprintf("correction would leave %s with a received quantity of %d; received totals cannot go below zero",
		e.ProductName, e.Resulting)
}

// EmptyReceiveError: a receive call with no non-zero quantities left after
// filtering.
type EmptyReceiveError struct {
	RequestId int
}

func (e *EmptyReceiveError) Error() string {
	return fmt.Sprintf("nothing to receive for request %d: every quantity is zero", e.RequestId)
}

// SlipInUseError: the slip belongs to a completed reception; deleting it
// would silently desynchronize inventory.
type SlipInUseError struct {
	SlipId     int
	SlipNumber string
}

func (e *SlipInUseError) Error() string {
	return fmt.Sprintf("packing slip %s belongs to a fully received request; revert the reception instead of deleting the slip",
		e.SlipNumber)
}

// NotReceivedError: RevertReception on a request that is not Received.
type NotReceivedError struct {
	RequestId int
	Status    RequestStatus
}

func (e *NotReceivedError) Error() string {
	return fmt.Sprintf("request %d is %s, not Received; there is no reception to revert", e.RequestId, e.Status)
}

// InvalidTransitionError: the requested status edge is not in the transition
// table and no override was granted.
type InvalidTransitionError struct {
	RequestId int
	From      RequestStatus
	To        RequestStatus
	Reason    string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot move request %d from %s to %s: %s", e.RequestId, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("cannot move request %d from %s to %s", e.RequestId, e.From, e.To)
}

// NotFoundError: a referenced request/slip/item/inventory key is absent.
type NotFoundError struct {
	Resource string
	Id       int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.Id)
}

// UnauthorizedError: the capability check for an override or revert failed.
type UnauthorizedError struct {
	Action string
	Role   UserRole
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("role %q is not permitted to %s", string(e.Role), e.Action)
}

// PartialFailureError wraps a store-level failure inside a reconciliation
// write sequence. The surrounding transaction is rolled back, but the error
// is still classified separately and logged with everything needed for
// manual reconciliation, since it signals the atomicity assumption (not the
// caller's input) failed.
type PartialFailureError struct {
	Op            string
	RequestId     int
	SlipId        int
	InventoryKeys []string
	Err           error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("%s failed mid-sequence for request %d: %v; contact support", e.Op, e.RequestId, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
