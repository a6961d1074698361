package models

import (
	"context"

	"github.com/labstockhq/labstock_backend/config"
	"gorm.io/gorm"
)

// LineItemReceipt is the derived receiving state of one line item: the live
// sum of its ledger rows against the (possibly edited) ordered quantity.
type LineItemReceipt struct {
	LineItemId      int    `json:"line_item_id"`
	ProductName     string `json:"product_name"`
	CatalogNumber   string `json:"catalog_number"`
	Brand           string `json:"brand"`
	QuantityOrdered int    `json:"quantity_ordered"`
	TotalReceived   int    `json:"total_received"`
	Remaining       int    `json:"remaining"`
	FullyReceived   bool   `json:"fully_received"`
}

// remainingQty floors at zero: over-receipt (possible after the ordered
// quantity is edited down) reads as nothing left to receive, not a negative.
func remainingQty(ordered, received int) int {
	if received >= ordered {
		return 0
	}
	return ordered - received
}

// lineSatisfied treats received >= ordered as satisfied so an ordered-qty
// edit below the already-received total still lets the request complete.
func lineSatisfied(ordered, received int) bool {
	return received >= ordered
}

// receivedTotalsByLineItem sums the signed ledger rows per line item inside
// the caller's transaction. Lines with no rows are absent from the map.
func receivedTotalsByLineItem(tx *gorm.DB, requestId int) (map[int]int, error) {
	type row struct {
		LineItemId int
		Total      int
	}
	var rows []row
	err := tx.Model(&ReceivedItem{}).
		Select("line_item_id, COALESCE(SUM(quantity), 0) AS total").
		Where("request_id = ?", requestId).
		Group("line_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[int]int, len(rows))
	for _, r := range rows {
		totals[r.LineItemId] = r.Total
	}
	return totals, nil
}

// buildReceipts joins the request's line items against the ledger totals.
func buildReceipts(request *Request, totals map[int]int) []*LineItemReceipt {
	receipts := make([]*LineItemReceipt, 0, len(request.LineItems))
	for _, item := range request.LineItems {
		total := totals[item.ID]
		receipts = append(receipts, &LineItemReceipt{
			LineItemId:      item.ID,
			ProductName:     item.ProductName,
			CatalogNumber:   item.CatalogNumber,
			Brand:           item.Brand,
			QuantityOrdered: item.QuantityOrdered,
			TotalReceived:   total,
			Remaining:       remainingQty(item.QuantityOrdered, total),
			FullyReceived:   lineSatisfied(item.QuantityOrdered, total),
		})
	}
	return receipts
}

// allSatisfied reports whether every line item of the request is fully
// received. A request with no line items is never considered satisfied.
func allSatisfied(request *Request, totals map[int]int) bool {
	if len(request.LineItems) == 0 {
		return false
	}
	for _, item := range request.LineItems {
		if !lineSatisfied(item.QuantityOrdered, totals[item.ID]) {
			return false
		}
	}
	return true
}

// AggregatedReceived returns the per-line receiving state of a request. It is
// a pure read over the ledger; calling it never mutates anything, so it is
// safe to poll.
func AggregatedReceived(ctx context.Context, requestId int) ([]*LineItemReceipt, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx)

	request, err := GetRequest(ctx, requestId)
	if err != nil {
		return nil, err
	}
	totals, err := receivedTotalsByLineItem(dbCtx, requestId)
	if err != nil {
		return nil, err
	}
	return buildReceipts(request, totals), nil
}
