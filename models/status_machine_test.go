package models_test

import (
	"testing"

	"github.com/labstockhq/labstock_backend/models"
)

func TestCanTransition_Table(t *testing.T) {
	cases := []struct {
		name     string
		from, to models.RequestStatus
		hasQuote bool
		want     bool
	}{
		{"pending to quote requested", models.RequestStatusPending, models.RequestStatusQuoteRequested, false, true},
		{"pending to denied", models.RequestStatusPending, models.RequestStatusDenied, false, true},
		{"pending to PO requested without quote", models.RequestStatusPending, models.RequestStatusPORequested, false, false},
		{"pending to PO requested with quote", models.RequestStatusPending, models.RequestStatusPORequested, true, true},
		{"pending straight to ordered", models.RequestStatusPending, models.RequestStatusOrdered, true, false},
		{"quote requested to PO requested", models.RequestStatusQuoteRequested, models.RequestStatusPORequested, false, true},
		{"quote requested to denied", models.RequestStatusQuoteRequested, models.RequestStatusDenied, false, true},
		{"quote requested to cancelled", models.RequestStatusQuoteRequested, models.RequestStatusCancelled, false, false},
		{"PO requested to ordered", models.RequestStatusPORequested, models.RequestStatusOrdered, false, true},
		{"PO requested to cancelled", models.RequestStatusPORequested, models.RequestStatusCancelled, false, true},
		{"PO requested to denied", models.RequestStatusPORequested, models.RequestStatusDenied, false, false},
		{"ordered to cancelled", models.RequestStatusOrdered, models.RequestStatusCancelled, false, true},
		{"ordered to received directly", models.RequestStatusOrdered, models.RequestStatusReceived, false, false},
		{"received is absorbing", models.RequestStatusReceived, models.RequestStatusOrdered, false, false},
		{"denied is terminal", models.RequestStatusDenied, models.RequestStatusPending, false, false},
		{"cancelled is terminal", models.RequestStatusCancelled, models.RequestStatusOrdered, false, false},
		{"received never a direct target", models.RequestStatusPORequested, models.RequestStatusReceived, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := models.CanTransition(tc.from, tc.to, tc.hasQuote); got != tc.want {
				t.Fatalf("CanTransition(%s, %s, %v) = %v, want %v", tc.from, tc.to, tc.hasQuote, got, tc.want)
			}
		})
	}
}

func TestParseRequestStatus(t *testing.T) {
	if s, err := models.ParseRequestStatus("Ordered"); err != nil || s != models.RequestStatusOrdered {
		t.Fatalf("ParseRequestStatus(Ordered) = %v, %v", s, err)
	}
	if _, err := models.ParseRequestStatus("Shipped"); err == nil {
		t.Fatal("expected error for unknown status")
	}
	if _, err := models.ParseRequestStatus("ordered"); err == nil {
		t.Fatal("statuses are case sensitive")
	}
}

func TestUserRoleCapabilities(t *testing.T) {
	if !models.UserRoleAdmin.CanOverrideStatus() {
		t.Fatal("admin must be able to override")
	}
	if !models.UserRoleAccountManager.CanOverrideStatus() {
		t.Fatal("account manager must be able to override")
	}
	if models.UserRoleRequester.CanOverrideStatus() {
		t.Fatal("requester must not be able to override")
	}
	if models.UserRole("").CanOverrideStatus() {
		t.Fatal("missing role must not be able to override")
	}
}

func TestRequestStatusIsTerminal(t *testing.T) {
	for _, s := range []models.RequestStatus{models.RequestStatusDenied, models.RequestStatusCancelled} {
		if !s.IsTerminal() {
			t.Fatalf("%s should be terminal", s)
		}
	}
	for _, s := range []models.RequestStatus{models.RequestStatusPending, models.RequestStatusOrdered, models.RequestStatusReceived} {
		if s.IsTerminal() {
			t.Fatalf("%s should not be terminal", s)
		}
	}
}
