package models_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/labstockhq/labstock_backend/config"
	"github.com/labstockhq/labstock_backend/models"
)

// Regression: a partial delivery must append ledger rows and bump inventory
// without touching the request status; the completing delivery must flip the
// request to Received exactly once and queue the downstream notification.
func TestReceive_PartialThenComplete(t *testing.T) {
	ctx := setupIntegrationDB(t)
	request := seedOrderedRequest(t, ctx)
	antibody := lineByCatalog(t, request, "AB-100")
	tips := lineByCatalog(t, request, "PT-200")

	// A slip whose quantities are all zero is rejected before anything is
	// written, with an error the surface can map to a bad request.
	var empty *models.EmptyReceiveError
	_, err := models.Receive(ctx, request.ID, &models.ReceiveInput{
		Items: []models.NewReceivedItem{{LineItemId: antibody.ID, Quantity: 0}},
	})
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyReceiveError for all-zero slip, got %v", err)
	}

	// First slip: 6 of 10 antibodies, all 4 tip racks.
	slip, err := models.Receive(ctx, request.ID, &models.ReceiveInput{
		SlipNumber: "PS-20260828-aabbccdd",
		Items: []models.NewReceivedItem{
			{LineItemId: antibody.ID, Quantity: 6},
			{LineItemId: tips.ID, Quantity: 4},
			{LineItemId: antibody.ID, Quantity: 0}, // zero rows are dropped
		},
	})
	if err != nil {
		t.Fatalf("first Receive: %v", err)
	}
	if slip.SlipNumber != "PS-20260828-aabbccdd" {
		t.Fatalf("slip number not preserved: %s", slip.SlipNumber)
	}

	after, err := models.GetRequest(ctx, request.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if after.CurrentStatus != models.RequestStatusOrdered {
		t.Fatalf("partial delivery must keep Ordered, got %s", after.CurrentStatus)
	}
	if got := onHand(t, "Anti-CD3 antibody", "AB-100", "BioLegend"); got != 6 {
		t.Fatalf("antibody on-hand = %d, want 6", got)
	}
	if got := onHand(t, "Pipette tip rack 200uL", "PT-200", "Eppendorf"); got != 4 {
		t.Fatalf("tips on-hand = %d, want 4", got)
	}

	receipts, err := models.AggregatedReceived(ctx, request.ID)
	if err != nil {
		t.Fatalf("AggregatedReceived: %v", err)
	}
	for _, r := range receipts {
		switch r.LineItemId {
		case antibody.ID:
			if r.TotalReceived != 6 || r.Remaining != 4 || r.FullyReceived {
				t.Fatalf("antibody aggregation wrong: %+v", r)
			}
		case tips.ID:
			if r.TotalReceived != 4 || r.Remaining != 0 || !r.FullyReceived {
				t.Fatalf("tips aggregation wrong: %+v", r)
			}
		}
	}

	// Aggregation is a pure read: calling it again changes nothing.
	again, err := models.AggregatedReceived(ctx, request.ID)
	if err != nil {
		t.Fatalf("AggregatedReceived again: %v", err)
	}
	for i := range receipts {
		if *again[i] != *receipts[i] {
			t.Fatalf("aggregation not idempotent: %+v vs %+v", again[i], receipts[i])
		}
	}

	// Second slip completes the antibody line; a generated slip number is fine.
	if _, err := models.Receive(ctx, request.ID, &models.ReceiveInput{
		Items: []models.NewReceivedItem{{LineItemId: antibody.ID, Quantity: 4}},
	}); err != nil {
		t.Fatalf("completing Receive: %v", err)
	}

	after, err = models.GetRequest(ctx, request.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if after.CurrentStatus != models.RequestStatusReceived {
		t.Fatalf("completing delivery must set Received, got %s", after.CurrentStatus)
	}
	if got := onHand(t, "Anti-CD3 antibody", "AB-100", "BioLegend"); got != 10 {
		t.Fatalf("antibody on-hand = %d, want 10", got)
	}

	// Exactly one RequestReceived outbox row was queued.
	db := config.GetDB()
	var notifications []models.NotificationRecord
	if err := db.Where("request_id = ? AND event = ?", request.ID, models.NotificationEventRequestReceived).
		Find(&notifications).Error; err != nil {
		t.Fatalf("fetch notifications: %v", err)
	}
	if len(notifications) != 1 {
		t.Fatalf("expected 1 RequestReceived notification, got %d", len(notifications))
	}
	if notifications[0].PublishStatus != models.NotificationPublishStatusPending {
		t.Fatalf("outbox row must start PENDING, got %s", notifications[0].PublishStatus)
	}
}

// Regression: an over-receipt is rejected as a unit. No slip, no ledger rows
// and no inventory movement may survive, including for the valid entries on
// the same slip.
func TestReceive_OverReceiptRejectedAtomically(t *testing.T) {
	ctx := setupIntegrationDB(t)
	request := seedOrderedRequest(t, ctx)
	antibody := lineByCatalog(t, request, "AB-100")
	tips := lineByCatalog(t, request, "PT-200")

	_, err := models.Receive(ctx, request.ID, &models.ReceiveInput{
		Items: []models.NewReceivedItem{
			{LineItemId: tips.ID, Quantity: 2},      // valid on its own
			{LineItemId: antibody.ID, Quantity: 11}, // 11 > 10 ordered
		},
	})
	var exceeds *models.ExceedsOrderedError
	if !errors.As(err, &exceeds) {
		t.Fatalf("expected ExceedsOrderedError, got %v", err)
	}
	if exceeds.ProductName != "Anti-CD3 antibody" {
		t.Fatalf("error must name the offending product: %+v", exceeds)
	}

	db := config.GetDB()
	var slipCount, itemCount int64
	db.Model(&models.PackingSlip{}).Where("request_id = ?", request.ID).Count(&slipCount)
	db.Model(&models.ReceivedItem{}).Where("request_id = ?", request.ID).Count(&itemCount)
	if slipCount != 0 || itemCount != 0 {
		t.Fatalf("rejected receive must leave nothing behind: %d slips, %d items", slipCount, itemCount)
	}
	if got := onHand(t, "Pipette tip rack 200uL", "PT-200", "Eppendorf"); got != 0 {
		t.Fatalf("tips on-hand = %d, want 0 after rejected slip", got)
	}

	after, _ := models.GetRequest(ctx, request.ID)
	if after.CurrentStatus != models.RequestStatusOrdered {
		t.Fatalf("status must stay Ordered, got %s", after.CurrentStatus)
	}
}

// A negative quantity on a later slip is a correction in place: it lowers
// the running total and the on-hand count, bounded at zero.
func TestReceive_NegativeDeltaCorrectsInPlace(t *testing.T) {
	ctx := setupIntegrationDB(t)
	request := seedOrderedRequest(t, ctx)
	antibody := lineByCatalog(t, request, "AB-100")

	if _, err := models.Receive(ctx, request.ID, &models.ReceiveInput{
		Items: []models.NewReceivedItem{{LineItemId: antibody.ID, Quantity: 6}},
	}); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	// Two of the six turned out to be the wrong clone; book them back out.
	if _, err := models.Receive(ctx, request.ID, &models.ReceiveInput{
		Items: []models.NewReceivedItem{{LineItemId: antibody.ID, Quantity: -2}},
	}); err != nil {
		t.Fatalf("negative Receive: %v", err)
	}
	if got := onHand(t, "Anti-CD3 antibody", "AB-100", "BioLegend"); got != 4 {
		t.Fatalf("antibody on-hand = %d, want 4 after booking out", got)
	}

	receipts, err := models.AggregatedReceived(ctx, request.ID)
	if err != nil {
		t.Fatalf("AggregatedReceived: %v", err)
	}
	for _, r := range receipts {
		if r.LineItemId == antibody.ID && (r.TotalReceived != 4 || r.Remaining != 6) {
			t.Fatalf("aggregation must include negative rows: %+v", r)
		}
	}

	// The running total may never go below zero.
	_, err = models.Receive(ctx, request.ID, &models.ReceiveInput{
		Items: []models.NewReceivedItem{{LineItemId: antibody.ID, Quantity: -5}},
	})
	var negative *models.NegativeResultError
	if !errors.As(err, &negative) {
		t.Fatalf("expected NegativeResultError, got %v", err)
	}
	if got := onHand(t, "Anti-CD3 antibody", "AB-100", "BioLegend"); got != 4 {
		t.Fatalf("rejected negative receive must not move inventory: got %d", got)
	}
}

// Regression: correcting a keyed-in quantity rewrites the ledger row and
// moves inventory by the difference; correcting the value back restores both
// exactly. A correction that completes the request advances it.
func TestCorrectReceivedItem_RoundTripAndCompletion(t *testing.T) {
	ctx := setupIntegrationDB(t)
	request := seedOrderedRequest(t, ctx)
	antibody := lineByCatalog(t, request, "AB-100")
	tips := lineByCatalog(t, request, "PT-200")

	if _, err := models.Receive(ctx, request.ID, &models.ReceiveInput{
		Items: []models.NewReceivedItem{
			{LineItemId: antibody.ID, Quantity: 10},
			{LineItemId: tips.ID, Quantity: 3},
		},
	}); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	db := config.GetDB()
	var original models.ReceivedItem
	if err := db.Where("request_id = ? AND line_item_id = ?", request.ID, tips.ID).
		First(&original).Error; err != nil {
		t.Fatalf("fetch ledger row: %v", err)
	}

	// 3 was a typo for 2.
	corrected, err := models.CorrectReceivedItem(ctx, original.ID, 2)
	if err != nil {
		t.Fatalf("correction down: %v", err)
	}
	if corrected.ID != original.ID || corrected.Quantity != 2 {
		t.Fatalf("correction must rewrite the original row: %+v", corrected)
	}
	if got := onHand(t, "Pipette tip rack 200uL", "PT-200", "Eppendorf"); got != 2 {
		t.Fatalf("tips on-hand = %d, want 2 after downward correction", got)
	}
	var rows int64
	db.Model(&models.ReceivedItem{}).Where("line_item_id = ?", tips.ID).Count(&rows)
	if rows != 1 {
		t.Fatalf("correction must not grow the ledger: %d rows, want 1", rows)
	}

	// The audit row keeps the pre-correction value.
	var audit models.History
	if err := db.Where("reference_id = ? AND reference_type = ? AND action_type = ?",
		request.ID, "requests", "Update").
		Order("id DESC").First(&audit).Error; err != nil {
		t.Fatalf("fetch correction history: %v", err)
	}
	if audit.Before != "3" || audit.After != "2" {
		t.Fatalf("correction history must record 3 -> 2, got before=%s after=%s", audit.Before, audit.After)
	}
	if !strings.Contains(audit.Description, "corrected from 3 to 2") {
		t.Fatalf("correction history description wrong: %s", audit.Description)
	}

	// Round trip: correcting back to 3 restores the original totals.
	if _, err := models.CorrectReceivedItem(ctx, original.ID, 3); err != nil {
		t.Fatalf("correction back: %v", err)
	}
	if got := onHand(t, "Pipette tip rack 200uL", "PT-200", "Eppendorf"); got != 3 {
		t.Fatalf("tips on-hand = %d, want 3 after round trip", got)
	}

	// Correcting up to 4 completes the last open line; the request advances.
	if _, err := models.CorrectReceivedItem(ctx, original.ID, 4); err != nil {
		t.Fatalf("completing correction: %v", err)
	}
	after, _ := models.GetRequest(ctx, request.ID)
	if after.CurrentStatus != models.RequestStatusReceived {
		t.Fatalf("completing correction must set Received, got %s", after.CurrentStatus)
	}

	// Bounds still hold for corrections.
	var negative *models.NegativeResultError
	_, err = models.CorrectReceivedItem(ctx, original.ID, -1)
	if !errors.As(err, &negative) {
		t.Fatalf("expected NegativeResultError for negative target, got %v", err)
	}
	var exceeds *models.ExceedsOrderedError
	_, err = models.CorrectReceivedItem(ctx, original.ID, 9)
	if !errors.As(err, &exceeds) {
		t.Fatalf("expected ExceedsOrderedError beyond ordered quantity, got %v", err)
	}
}

// Regression: a downward correction after the request completed must NOT
// downgrade the status. The shortfall shows in the aggregation view instead.
func TestCorrectReceivedItem_NeverDowngradesReceived(t *testing.T) {
	ctx := setupIntegrationDB(t)
	request := seedOrderedRequest(t, ctx)
	antibody := lineByCatalog(t, request, "AB-100")
	tips := lineByCatalog(t, request, "PT-200")

	if _, err := models.Receive(ctx, request.ID, &models.ReceiveInput{
		Items: []models.NewReceivedItem{
			{LineItemId: antibody.ID, Quantity: 10},
			{LineItemId: tips.ID, Quantity: 4},
		},
	}); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	db := config.GetDB()
	var row models.ReceivedItem
	if err := db.Where("request_id = ? AND line_item_id = ?", request.ID, antibody.ID).
		First(&row).Error; err != nil {
		t.Fatalf("fetch ledger row: %v", err)
	}
	if _, err := models.CorrectReceivedItem(ctx, row.ID, 8); err != nil {
		t.Fatalf("downward correction: %v", err)
	}

	after, _ := models.GetRequest(ctx, request.ID)
	if after.CurrentStatus != models.RequestStatusReceived {
		t.Fatalf("Received must stick through downward corrections, got %s", after.CurrentStatus)
	}
	if got := onHand(t, "Anti-CD3 antibody", "AB-100", "BioLegend"); got != 8 {
		t.Fatalf("antibody on-hand = %d, want 8", got)
	}

	receipts, err := models.AggregatedReceived(ctx, request.ID)
	if err != nil {
		t.Fatalf("AggregatedReceived: %v", err)
	}
	for _, r := range receipts {
		if r.LineItemId == antibody.ID && (r.TotalReceived != 8 || r.Remaining != 2 || r.FullyReceived) {
			t.Fatalf("aggregation must show the shortfall: %+v", r)
		}
	}
}

// Receiving is only legal once the request is Ordered.
func TestReceive_RequiresOrderedStatus(t *testing.T) {
	ctx := setupIntegrationDB(t)
	request, err := models.CreateRequest(ctx, &models.NewRequest{
		VendorId: 7,
		LineItems: []models.NewRequestLineItem{
			{ProductName: "Nitrile gloves M", CatalogNumber: "GL-M", QuantityOrdered: 5},
		},
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}

	_, err = models.Receive(ctx, request.ID, &models.ReceiveInput{
		Items: []models.NewReceivedItem{{LineItemId: request.LineItems[0].ID, Quantity: 1}},
	})
	var invalid *models.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError for Pending request, got %v", err)
	}
}
