package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/labstockhq/labstock_backend/config"
	"github.com/labstockhq/labstock_backend/utils"
	"gorm.io/gorm"
)

// ReceiveInput is one receiving event: an optional slip identity plus the
// quantities that arrived. Zero-quantity entries are dropped before
// validation so "receive what's on the slip" forms can submit every line.
type ReceiveInput struct {
	SlipNumber  string            `json:"slip_number"`
	DocumentRef string            `json:"document_ref"`
	Items       []NewReceivedItem `json:"items" binding:"required,dive"`
}

// obtainRequestLock takes a best-effort distributed lock per request id.
// Correctness never depends on it; the row lock in the transaction is the
// real guard. The redis lock only shortens in-database blocking when two
// dock stations submit the same request at once.
func obtainRequestLock(ctx context.Context, funcName string, requestId int) *redislock.Lock {
	if !config.UseReceiveRequestLocks() {
		return nil
	}
	locker := config.GetRedisLock()
	if locker == nil {
		return nil
	}
	logger := config.GetLogger()
	lock, err := locker.Obtain(ctx, fmt.Sprintf("request:%d", requestId), 30*time.Second, nil)
	if err == redislock.ErrNotObtained {
		config.LogWarn(logger, "models", funcName, "redis lock", requestId,
			"could not obtain request lock; proceeding, row lock will serialize")
		return nil
	} else if err != nil {
		config.LogWarn(logger, "models", funcName, "redis lock", requestId,
			"error obtaining request lock; proceeding: "+err.Error())
		return nil
	}
	return lock
}

func releaseRequestLock(ctx context.Context, lock *redislock.Lock) {
	if lock == nil {
		return
	}
	_ = lock.Release(ctx)
}

// partialFailure wraps and logs a failure that happened after validation
// passed and writes began. The transaction rolls the writes back; the log
// entry carries the inventory keys touched so support can verify the
// rollback actually held.
func partialFailure(op string, requestId int, slipId int, keys []string, err error) error {
	pf := &PartialFailureError{Op: op, RequestId: requestId, SlipId: slipId, InventoryKeys: keys, Err: err}
	config.LogError(config.GetLogger(), "models", op, "write sequence failed", map[string]interface{}{
		"request_id":     requestId,
		"slip_id":        slipId,
		"inventory_keys": keys,
	}, err)
	return pf
}

func inventoryKey(item *RequestLineItem) string {
	return fmt.Sprintf("%s/%s/%s", item.ProductName, item.CatalogNumber, item.Brand)
}

// Receive records a packing slip against a request: validates every quantity
// against the live received totals, appends the ledger rows, applies the
// inventory deltas and, when the last outstanding unit arrives, flips the
// request to Received exactly once. The whole sequence is one transaction
// under the locked request row.
func Receive(ctx context.Context, requestId int, input *ReceiveInput) (*PackingSlip, error) {
	db := config.GetDB()

	lock := obtainRequestLock(ctx, "Receive", requestId)
	defer releaseRequestLock(ctx, lock)

	items := make([]NewReceivedItem, 0, len(input.Items))
	for _, item := range input.Items {
		if item.Quantity == 0 {
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, &EmptyReceiveError{RequestId: requestId}
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()
	dbCtx := tx.WithContext(ctx)

	request, err := fetchRequestForUpdate(dbCtx, requestId)
	if err != nil {
		return nil, err
	}
	if request.CurrentStatus != RequestStatusOrdered && request.CurrentStatus != RequestStatusReceived {
		return nil, &InvalidTransitionError{
			RequestId: requestId, From: request.CurrentStatus, To: RequestStatusReceived,
			Reason: "items can only be received once the request is Ordered",
		}
	}

	lineItems := make(map[int]*RequestLineItem, len(request.LineItems))
	for i := range request.LineItems {
		lineItems[request.LineItems[i].ID] = &request.LineItems[i]
	}

	totals, err := receivedTotalsByLineItem(dbCtx, requestId)
	if err != nil {
		return nil, err
	}

	// Validate everything before writing anything. Negative deltas are
	// in-place corrections and only need the running total to stay at or
	// above zero; positive deltas must also fit under the ordered quantity.
	projected := make(map[int]int, len(totals))
	for id, total := range totals {
		projected[id] = total
	}
	for _, item := range items {
		line, ok := lineItems[item.LineItemId]
		if !ok {
			return nil, &NotFoundError{Resource: "request line item", Id: item.LineItemId}
		}
		resulting := projected[item.LineItemId] + item.Quantity
		if item.Quantity > 0 && resulting > line.QuantityOrdered {
			return nil, &ExceedsOrderedError{
				LineItemId:  item.LineItemId,
				ProductName: line.ProductName,
				Ordered:     line.QuantityOrdered,
				Received:    projected[item.LineItemId],
				Requested:   item.Quantity,
			}
		}
		if resulting < 0 {
			return nil, &NegativeResultError{
				LineItemId: item.LineItemId, ProductName: line.ProductName, Resulting: resulting,
			}
		}
		projected[item.LineItemId] = resulting
	}

	slip, err := createPackingSlip(dbCtx, requestId, input.SlipNumber, input.DocumentRef)
	if err != nil {
		return nil, partialFailure("Receive", requestId, 0, nil, err)
	}

	var touchedKeys []string
	for _, item := range items {
		line := lineItems[item.LineItemId]
		row := ReceivedItem{
			PackingSlipId: slip.ID,
			RequestId:     requestId,
			LineItemId:    item.LineItemId,
			Quantity:      item.Quantity,
		}
		if err := dbCtx.Create(&row).Error; err != nil {
			return nil, partialFailure("Receive", requestId, slip.ID, touchedKeys, err)
		}
		if err := applyInventoryDelta(dbCtx, line, item.Quantity); err != nil {
			return nil, partialFailure("Receive", requestId, slip.ID, touchedKeys, err)
		}
		touchedKeys = append(touchedKeys, inventoryKey(line))
		totals[item.LineItemId] += item.Quantity
	}

	if err := createHistory(dbCtx, "Create", requestId, "requests", nil, nil,
		fmt.Sprintf("Packing slip %s received (%d line entries)", slip.SlipNumber, len(items))); err != nil {
		return nil, partialFailure("Receive", requestId, slip.ID, touchedKeys, err)
	}

	if request.CurrentStatus != RequestStatusReceived && allSatisfied(request, totals) {
		if err := markRequestReceived(dbCtx, request); err != nil {
			return nil, partialFailure("Receive", requestId, slip.ID, touchedKeys, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, partialFailure("Receive", requestId, slip.ID, touchedKeys, err)
	}
	return slip, nil
}

// CorrectReceivedItem replaces a ledger entry's recorded quantity with a new
// absolute value and moves inventory by the difference. The pre-correction
// value is preserved in the request history row, not in the ledger itself.
//
// A correction that completes the request advances it to Received; one that
// drops a Received request back below its ordered quantities deliberately
// does NOT downgrade the status. The reception was already announced
// downstream, so the request keeps its state and the aggregation view shows
// the shortfall.
func CorrectReceivedItem(ctx context.Context, receivedItemId int, newQuantity int) (*ReceivedItem, error) {
	db := config.GetDB()

	if newQuantity < 0 {
		return nil, &NegativeResultError{Resulting: newQuantity}
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()
	dbCtx := tx.WithContext(ctx)

	var original ReceivedItem
	if err := dbCtx.First(&original, receivedItemId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "received item", Id: receivedItemId}
		}
		return nil, err
	}

	lock := obtainRequestLock(ctx, "CorrectReceivedItem", original.RequestId)
	defer releaseRequestLock(ctx, lock)

	request, err := fetchRequestForUpdate(dbCtx, original.RequestId)
	if err != nil {
		return nil, err
	}

	var line *RequestLineItem
	for i := range request.LineItems {
		if request.LineItems[i].ID == original.LineItemId {
			line = &request.LineItems[i]
			break
		}
	}
	if line == nil {
		return nil, &NotFoundError{Resource: "request line item", Id: original.LineItemId}
	}

	delta := newQuantity - original.Quantity
	if delta == 0 {
		return &original, tx.Commit().Error
	}

	totals, err := receivedTotalsByLineItem(dbCtx, original.RequestId)
	if err != nil {
		return nil, err
	}
	resulting := totals[original.LineItemId] + delta
	if resulting < 0 {
		return nil, &NegativeResultError{LineItemId: line.ID, ProductName: line.ProductName, Resulting: resulting}
	}
	if resulting > line.QuantityOrdered {
		return nil, &ExceedsOrderedError{
			LineItemId:  line.ID,
			ProductName: line.ProductName,
			Ordered:     line.QuantityOrdered,
			Received:    totals[original.LineItemId],
			Requested:   delta,
		}
	}

	oldQuantity := original.Quantity
	if err := dbCtx.Model(&original).UpdateColumn("quantity", newQuantity).Error; err != nil {
		return nil, partialFailure("CorrectReceivedItem", original.RequestId, original.PackingSlipId, nil, err)
	}
	original.Quantity = newQuantity
	if err := applyInventoryDelta(dbCtx, line, delta); err != nil {
		return nil, partialFailure("CorrectReceivedItem", original.RequestId, original.PackingSlipId,
			[]string{inventoryKey(line)}, err)
	}
	totals[original.LineItemId] = resulting

	if err := createHistory(dbCtx, "Update", original.RequestId, "requests",
		oldQuantity, newQuantity,
		fmt.Sprintf("Received quantity of %s corrected from %d to %d", line.ProductName, oldQuantity, newQuantity)); err != nil {
		return nil, partialFailure("CorrectReceivedItem", original.RequestId, original.PackingSlipId,
			[]string{inventoryKey(line)}, err)
	}

	if request.CurrentStatus != RequestStatusReceived && allSatisfied(request, totals) {
		if err := markRequestReceived(dbCtx, request); err != nil {
			return nil, partialFailure("CorrectReceivedItem", original.RequestId, original.PackingSlipId,
				[]string{inventoryKey(line)}, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, partialFailure("CorrectReceivedItem", original.RequestId, original.PackingSlipId,
			[]string{inventoryKey(line)}, err)
	}
	return &original, nil
}

// RevertReception undoes a completed reception end to end: every ledger
// row's quantity is negated back out of inventory, the slips and rows are
// deleted, and the request returns to Ordered. The inverse of the Receive
// calls that completed it, minus any clamping that zero-floored a record.
func RevertReception(ctx context.Context, requestId int) (*Request, error) {
	db := config.GetDB()

	role, _ := utils.GetUserRoleFromContext(ctx)
	if !UserRole(role).CanOverrideStatus() {
		return nil, &UnauthorizedError{Action: "revert a reception", Role: UserRole(role)}
	}

	lock := obtainRequestLock(ctx, "RevertReception", requestId)
	defer releaseRequestLock(ctx, lock)

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()
	dbCtx := tx.WithContext(ctx)

	request, err := fetchRequestForUpdate(dbCtx, requestId)
	if err != nil {
		return nil, err
	}
	if request.CurrentStatus != RequestStatusReceived {
		return nil, &NotReceivedError{RequestId: requestId, Status: request.CurrentStatus}
	}

	totals, err := receivedTotalsByLineItem(dbCtx, requestId)
	if err != nil {
		return nil, err
	}

	var touchedKeys []string
	for i := range request.LineItems {
		line := &request.LineItems[i]
		total := totals[line.ID]
		if total == 0 {
			continue
		}
		if err := applyInventoryDelta(dbCtx, line, -total); err != nil {
			return nil, partialFailure("RevertReception", requestId, 0, touchedKeys, err)
		}
		touchedKeys = append(touchedKeys, inventoryKey(line))
	}

	if err := dbCtx.Where("request_id = ?", requestId).Delete(&ReceivedItem{}).Error; err != nil {
		return nil, partialFailure("RevertReception", requestId, 0, touchedKeys, err)
	}
	if err := dbCtx.Where("request_id = ?", requestId).Delete(&PackingSlip{}).Error; err != nil {
		return nil, partialFailure("RevertReception", requestId, 0, touchedKeys, err)
	}

	if err := dbCtx.Model(request).UpdateColumn("CurrentStatus", RequestStatusOrdered).Error; err != nil {
		return nil, partialFailure("RevertReception", requestId, 0, touchedKeys, err)
	}
	request.CurrentStatus = RequestStatusOrdered

	if err := createHistory(dbCtx, "Delete", requestId, "requests",
		string(RequestStatusReceived), string(RequestStatusOrdered),
		"Reception reverted: ledger cleared, inventory unwound, status back to Ordered"); err != nil {
		return nil, partialFailure("RevertReception", requestId, 0, touchedKeys, err)
	}
	if err := queueNotification(dbCtx, NotificationEventReceptionReverted, requestId); err != nil {
		return nil, partialFailure("RevertReception", requestId, 0, touchedKeys, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, partialFailure("RevertReception", requestId, 0, touchedKeys, err)
	}
	return request, nil
}
