package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/labstockhq/labstock_backend/config"
	"github.com/labstockhq/labstock_backend/utils"
	"gorm.io/gorm"
)

// requestStatusEdges is the closed transition table. Everything outside it is
// rejected for non-override callers; the administrative override bypasses the
// table but never the Received exit restriction (that path must go through
// RevertReception so the inventory deltas are unwound with it).
var requestStatusEdges = map[RequestStatus][]RequestStatus{
	RequestStatusPending:        {RequestStatusQuoteRequested, RequestStatusPORequested, RequestStatusDenied},
	RequestStatusQuoteRequested: {RequestStatusPORequested, RequestStatusDenied},
	RequestStatusPORequested:    {RequestStatusOrdered, RequestStatusCancelled},
	RequestStatusOrdered:        {RequestStatusReceived, RequestStatusCancelled},
	RequestStatusReceived:       {},
	RequestStatusDenied:         {},
	RequestStatusCancelled:      {},
}

// CanTransition reports whether from -> to is a legal non-override edge.
// Pending -> PORequested is only open once a quote document exists, and
// Received is never enterable directly (it is set by the aggregation side
// effect or the override).
func CanTransition(from, to RequestStatus, hasQuoteDocument bool) bool {
	if to == RequestStatusReceived {
		return false
	}
	if from == RequestStatusPending && to == RequestStatusPORequested && !hasQuoteDocument {
		return false
	}
	for _, next := range requestStatusEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionRequestStatus moves a request along the lifecycle. With override
// set, edge validation is skipped entirely for Admin/AccountManager roles;
// leaving Received still requires RevertReception regardless.
func TransitionRequestStatus(ctx context.Context, id int, target RequestStatus, override bool) (*Request, error) {
	db := config.GetDB()

	request, err := GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	from := request.CurrentStatus
	if from == target {
		return request, nil
	}

	if from == RequestStatusReceived {
		return nil, &InvalidTransitionError{
			RequestId: id, From: from, To: target,
			Reason: "a received request has inventory side effects; revert the reception instead",
		}
	}

	if override {
		role, _ := utils.GetUserRoleFromContext(ctx)
		if !UserRole(role).CanOverrideStatus() {
			return nil, &UnauthorizedError{Action: "override request status", Role: UserRole(role)}
		}
	} else if !CanTransition(from, target, request.QuoteDocument != "") {
		reason := ""
		if from == RequestStatusPending && target == RequestStatusPORequested {
			reason = "a quote document is required first"
		}
		if target == RequestStatusReceived {
			reason = "Received is set by recording receipts, not by a direct status change"
		}
		return nil, &InvalidTransitionError{RequestId: id, From: from, To: target, Reason: reason}
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Model(request).UpdateColumn("CurrentStatus", target).Error; err != nil {
		return nil, err
	}
	request.CurrentStatus = target

	desc := fmt.Sprintf("Status changed from %s to %s", from, target)
	if override {
		// Overrides bypass the reconciliation consistency checks; the audit
		// row is the caller's warning trail.
		desc = fmt.Sprintf("Status overridden from %s to %s (edge validation bypassed)", from, target)
	}
	if err := createHistory(tx.WithContext(ctx), "Update", id, "requests", string(from), string(target), desc); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return request, nil
}

// AttachQuoteDocument stores the quote reference; while the request sits in
// QuoteRequested this auto-advances it to PORequested.
func AttachQuoteDocument(ctx context.Context, id int, documentRef string) (*Request, error) {
	db := config.GetDB()

	if documentRef == "" {
		return nil, errors.New("a quote document reference is required")
	}

	request, err := GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.CurrentStatus.IsTerminal() || request.CurrentStatus == RequestStatusReceived {
		return nil, &InvalidTransitionError{
			RequestId: id, From: request.CurrentStatus, To: RequestStatusPORequested,
			Reason: "quotes cannot be attached in this status",
		}
	}

	updates := map[string]interface{}{"QuoteDocument": documentRef}
	advanced := request.CurrentStatus == RequestStatusQuoteRequested
	if advanced {
		updates["CurrentStatus"] = RequestStatusPORequested
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Model(request).Updates(updates).Error; err != nil {
		return nil, err
	}
	request.QuoteDocument = documentRef
	desc := "Quote document attached"
	if advanced {
		request.CurrentStatus = RequestStatusPORequested
		desc = "Quote document attached; status advanced to PORequested"
	}
	if err := createHistory(tx.WithContext(ctx), "Update", id, "requests", nil, nil, desc); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return request, nil
}

// RecordPurchaseOrder stores the PO number (and optional PO document); while
// the request sits in PORequested this auto-advances it to Ordered.
func RecordPurchaseOrder(ctx context.Context, id int, poNumber string, documentRef string) (*Request, error) {
	db := config.GetDB()

	if poNumber == "" {
		return nil, errors.New("a PO number is required")
	}

	request, err := GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.CurrentStatus.IsTerminal() || request.CurrentStatus == RequestStatusReceived {
		return nil, &InvalidTransitionError{
			RequestId: id, From: request.CurrentStatus, To: RequestStatusOrdered,
			Reason: "purchase orders cannot be recorded in this status",
		}
	}

	updates := map[string]interface{}{"PONumber": poNumber}
	if documentRef != "" {
		updates["PODocument"] = documentRef
	}
	advanced := request.CurrentStatus == RequestStatusPORequested
	if advanced {
		updates["CurrentStatus"] = RequestStatusOrdered
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Model(request).Updates(updates).Error; err != nil {
		return nil, err
	}
	request.PONumber = poNumber
	if documentRef != "" {
		request.PODocument = documentRef
	}
	desc := "PO number recorded"
	if advanced {
		request.CurrentStatus = RequestStatusOrdered
		desc = fmt.Sprintf("PO %s recorded; status advanced to Ordered", poNumber)
	}
	if err := createHistory(tx.WithContext(ctx), "Update", id, "requests", nil, nil, desc); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return request, nil
}

// markRequestReceived flips the request to Received inside the caller's
// transaction and queues the downstream notification. It is only ever a side
// effect of the aggregation layer observing full receipt.
func markRequestReceived(tx *gorm.DB, request *Request) error {
	from := request.CurrentStatus
	if err := tx.Model(request).UpdateColumn("CurrentStatus", RequestStatusReceived).Error; err != nil {
		return err
	}
	request.CurrentStatus = RequestStatusReceived

	if err := createHistory(tx, "Update", request.ID, "requests", string(from), string(RequestStatusReceived),
		"All line items fully received; status advanced to Received"); err != nil {
		return err
	}
	return queueNotification(tx, NotificationEventRequestReceived, request.ID)
}
