package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/labstockhq/labstock_backend/models"
)

func statusFor(t *testing.T, err error) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w.Code
}

func TestRespondError_Mapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", &models.NotFoundError{Resource: "request", Id: 9}, http.StatusNotFound},
		{"empty receive", &models.EmptyReceiveError{RequestId: 1}, http.StatusBadRequest},
		{"invalid transition", &models.InvalidTransitionError{RequestId: 1, From: models.RequestStatusPending, To: models.RequestStatusOrdered}, http.StatusConflict},
		{"exceeds ordered", &models.ExceedsOrderedError{ProductName: "Anti-CD3 antibody", Ordered: 10, Received: 9, Requested: 2}, http.StatusConflict},
		{"negative result", &models.NegativeResultError{ProductName: "Anti-CD3 antibody", Resulting: -1}, http.StatusConflict},
		{"slip in use", &models.SlipInUseError{SlipId: 3, SlipNumber: "PS-20260828-aabbccdd"}, http.StatusConflict},
		{"not received", &models.NotReceivedError{RequestId: 1, Status: models.RequestStatusOrdered}, http.StatusConflict},
		{"unauthorized", &models.UnauthorizedError{Action: "revert a reception", Role: models.UserRoleRequester}, http.StatusForbidden},
		{"partial failure", &models.PartialFailureError{Op: "Receive", RequestId: 1, Err: errors.New("write failed")}, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := statusFor(t, tc.err); got != tc.want {
				t.Fatalf("respondError(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}

// The partial-failure body must not leak internals; everything else carries
// the actionable domain message.
func TestRespondError_Bodies(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, &models.PartialFailureError{Op: "Receive", RequestId: 1, Err: errors.New("deadlock")})
	if body := w.Body.String(); body == "" || !strings.Contains(body, "contact support") || strings.Contains(body, "deadlock") {
		t.Fatalf("partial failure body wrong: %s", body)
	}

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	respondError(c, &models.ExceedsOrderedError{ProductName: "Anti-CD3 antibody", Ordered: 10, Received: 9, Requested: 2})
	if body := w.Body.String(); !strings.Contains(body, "only 1 remain on order") {
		t.Fatalf("exceeds-ordered body wrong: %s", body)
	}
}
