package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// RequestStatus is the authoritative lifecycle status of a procurement
// request. It is a closed enum: every write path goes through the transition
// table in statusMachine.go, so an illegal edge cannot be expressed outside
// the admin override.
type RequestStatus string

const (
	RequestStatusPending        RequestStatus = "Pending"
	RequestStatusQuoteRequested RequestStatus = "QuoteRequested"
	RequestStatusPORequested    RequestStatus = "PORequested"
	RequestStatusOrdered        RequestStatus = "Ordered"
	RequestStatusReceived       RequestStatus = "Received"
	RequestStatusDenied         RequestStatus = "Denied"
	RequestStatusCancelled      RequestStatus = "Cancelled"
)

func ParseRequestStatus(s string) (RequestStatus, error) {
	switch RequestStatus(s) {
	case RequestStatusPending, RequestStatusQuoteRequested, RequestStatusPORequested,
		RequestStatusOrdered, RequestStatusReceived, RequestStatusDenied, RequestStatusCancelled:
		return RequestStatus(s), nil
	}
	return "", fmt.Errorf("invalid request status %q", s)
}

func (s RequestStatus) Value() (driver.Value, error) {
	return string(s), nil
}

func (s *RequestStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*s = RequestStatus(v)
	case string:
		*s = RequestStatus(v)
	default:
		return errors.New("request status must be string")
	}
	return nil
}

// IsTerminal reports whether the status absorbs the request under normal
// flow. Received is special: it is left only through RevertReception.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusDenied || s == RequestStatusCancelled
}

// UserRole is the capability level the identity collaborator attaches to the
// calling session. The core only distinguishes roles for the administrative
// status override and for reverting a completed reception.
type UserRole string

const (
	UserRoleAdmin          UserRole = "Admin"
	UserRoleAccountManager UserRole = "AccountManager"
	UserRoleRequester      UserRole = "Requester"
)

// CanOverrideStatus reports whether the role may use the administrative
// status override and RevertReception.
func (r UserRole) CanOverrideStatus() bool {
	return r == UserRoleAdmin || r == UserRoleAccountManager
}

// NotificationEvent identifies what happened to a request for downstream
// consumers (email, dashboards).
type NotificationEvent string

const (
	NotificationEventRequestReceived   NotificationEvent = "RequestReceived"
	NotificationEventReceptionReverted NotificationEvent = "ReceptionReverted"
)
