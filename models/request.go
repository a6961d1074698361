package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/labstockhq/labstock_backend/config"
	"github.com/labstockhq/labstock_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Request is a single procurement order flowing through the status
// lifecycle. Vendor, requester, manager and address ids are opaque references
// owned by the surrounding application; the core never resolves them.
type Request struct {
	ID                int           `gorm:"primary_key" json:"id"`
	VendorId          int           `gorm:"index;not null" json:"vendor_id" binding:"required"`
	RequesterId       int           `gorm:"index;not null" json:"requester_id"`
	AccountManagerId  *int          `gorm:"index;default:null" json:"account_manager_id"`
	ShippingAddressId int           `gorm:"default:null" json:"shipping_address_id"`
	BillingAddressId  int           `gorm:"default:null" json:"billing_address_id"`
	CurrentStatus     RequestStatus `gorm:"type:enum('Pending','QuoteRequested','PORequested','Ordered','Received','Denied','Cancelled');not null" json:"current_status"`
	QuoteDocument     string        `gorm:"size:512;default:null" json:"quote_document"`
	PODocument        string        `gorm:"size:512;default:null" json:"po_document"`
	PONumber          string        `gorm:"size:100;default:null" json:"po_number"`
	Notes             string        `gorm:"type:text;default:null" json:"notes"`

	ProjectCodes []RequestProjectCode `json:"project_codes"`
	LineItems    []RequestLineItem    `json:"line_items"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// RequestLineItem is one product/quantity entry within a request. Ordered
// quantity stays editable in every status; the aggregation layer treats a
// line whose received total meets or exceeds the (possibly edited) ordered
// quantity as satisfied.
type RequestLineItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	RequestId       int             `gorm:"index;not null" json:"request_id"`
	ProductName     string          `gorm:"size:255;not null" json:"product_name" binding:"required"`
	CatalogNumber   string          `gorm:"size:100;not null" json:"catalog_number" binding:"required"`
	Brand           string          `gorm:"size:100;default:null" json:"brand"`
	QuantityOrdered int             `gorm:"not null" json:"quantity_ordered" binding:"required"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Format          string          `gorm:"size:100;default:null" json:"format"`
	Notes           string          `gorm:"type:text;default:null" json:"notes"`
	Link            string          `gorm:"size:512;default:null" json:"link"`
}

// RequestProjectCode ties a request to a billing project code.
type RequestProjectCode struct {
	ID        int    `gorm:"primary_key" json:"id"`
	RequestId int    `gorm:"index;not null" json:"request_id"`
	Code      string `gorm:"size:100;not null" json:"code"`
}

type NewRequest struct {
	VendorId          int                  `json:"vendor_id" binding:"required"`
	AccountManagerId  *int                 `json:"account_manager_id"`
	ShippingAddressId int                  `json:"shipping_address_id"`
	BillingAddressId  int                  `json:"billing_address_id"`
	Notes             string               `json:"notes"`
	ProjectCodes      []string             `json:"project_codes"`
	LineItems         []NewRequestLineItem `json:"line_items" binding:"required,dive"`
}

type NewRequestLineItem struct {
	LineItemId      int             `json:"line_item_id"`
	ProductName     string          `json:"product_name" binding:"required"`
	CatalogNumber   string          `json:"catalog_number" binding:"required"`
	Brand           string          `json:"brand"`
	QuantityOrdered int             `json:"quantity_ordered" binding:"required"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	Format          string          `json:"format"`
	Notes           string          `json:"notes"`
	Link            string          `json:"link"`
	IsDeletedItem   *bool           `json:"is_deleted_item"`
}

// UpdateRequestMetadata carries the editable request header fields. Which of
// them may actually change depends on the current status (see UpdateRequest).
type UpdateRequestMetadata struct {
	VendorId          int                  `json:"vendor_id" binding:"required"`
	AccountManagerId  *int                 `json:"account_manager_id"`
	ShippingAddressId int                  `json:"shipping_address_id"`
	BillingAddressId  int                  `json:"billing_address_id"`
	Notes             string               `json:"notes"`
	ProjectCodes      []string             `json:"project_codes"`
	LineItems         []NewRequestLineItem `json:"line_items" binding:"dive"`
}

func (input *NewRequest) validate() error {
	if len(input.LineItems) == 0 {
		return errors.New("a request needs at least one line item")
	}
	for _, item := range input.LineItems {
		if item.QuantityOrdered <= 0 {
			return fmt.Errorf("ordered quantity for %q must be a positive integer", item.ProductName)
		}
	}
	return nil
}

// CreateRequest persists the request together with its line items and
// project codes as one unit; they never partially exist.
func CreateRequest(ctx context.Context, input *NewRequest) (*Request, error) {
	db := config.GetDB()

	requesterId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("acting user id is required")
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	lineItems := make([]RequestLineItem, 0, len(input.LineItems))
	for _, item := range input.LineItems {
		lineItems = append(lineItems, RequestLineItem{
			ProductName:     item.ProductName,
			CatalogNumber:   item.CatalogNumber,
			Brand:           item.Brand,
			QuantityOrdered: item.QuantityOrdered,
			UnitPrice:       item.UnitPrice,
			Format:          item.Format,
			Notes:           item.Notes,
			Link:            item.Link,
		})
	}
	projectCodes := make([]RequestProjectCode, 0, len(input.ProjectCodes))
	for _, code := range utils.UniqueSlice(input.ProjectCodes) {
		projectCodes = append(projectCodes, RequestProjectCode{Code: code})
	}

	request := Request{
		VendorId:          input.VendorId,
		RequesterId:       requesterId,
		AccountManagerId:  input.AccountManagerId,
		ShippingAddressId: input.ShippingAddressId,
		BillingAddressId:  input.BillingAddressId,
		CurrentStatus:     RequestStatusPending,
		Notes:             input.Notes,
		ProjectCodes:      projectCodes,
		LineItems:         lineItems,
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Create(&request).Error; err != nil {
		return nil, err
	}

	if err := createHistory(tx.WithContext(ctx), "Create", request.ID, "requests", nil, &request,
		fmt.Sprintf("Request created with %d line item(s)", len(request.LineItems))); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func GetRequest(ctx context.Context, id int) (*Request, error) {
	request, err := utils.FetchModel[Request](ctx, id, "LineItems", "ProjectCodes")
	if err != nil {
		return nil, &NotFoundError{Resource: "request", Id: id}
	}
	return request, nil
}

func GetRequests(ctx context.Context, status *RequestStatus) ([]*Request, error) {
	db := config.GetDB()
	var results []*Request

	dbCtx := db.WithContext(ctx).Preload("LineItems").Preload("ProjectCodes")
	if status != nil {
		dbCtx = dbCtx.Where("current_status = ?", *status)
	}
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	if results == nil {
		results = []*Request{}
	}
	return results, nil
}

// UpdateRequest applies the per-status edit rules:
//   - vendor and addresses may change only while Pending or PORequested
//   - manager, notes and project codes only while Pending or QuoteRequested
//   - line items are editable in every status
func UpdateRequest(ctx context.Context, id int, input *UpdateRequestMetadata) (*Request, error) {
	db := config.GetDB()

	existing, err := GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	status := existing.CurrentStatus

	vendorEditable := status == RequestStatusPending || status == RequestStatusPORequested
	notesEditable := status == RequestStatusPending || status == RequestStatusQuoteRequested

	if !vendorEditable {
		if input.VendorId != existing.VendorId ||
			input.ShippingAddressId != existing.ShippingAddressId ||
			input.BillingAddressId != existing.BillingAddressId {
			return nil, fmt.Errorf("vendor and addresses can only be changed while the request is %s or %s",
				RequestStatusPending, RequestStatusPORequested)
		}
	}
	if !notesEditable {
		if input.Notes != existing.Notes ||
			utils.DereferencePtr(input.AccountManagerId) != utils.DereferencePtr(existing.AccountManagerId) ||
			!sameProjectCodes(input.ProjectCodes, existing.ProjectCodes) {
			return nil, fmt.Errorf("manager, notes and project codes can only be changed while the request is %s or %s",
				RequestStatusPending, RequestStatusQuoteRequested)
		}
	}

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()

	if err := tx.WithContext(ctx).Model(existing).Updates(map[string]interface{}{
		"VendorId":          input.VendorId,
		"AccountManagerId":  input.AccountManagerId,
		"ShippingAddressId": input.ShippingAddressId,
		"BillingAddressId":  input.BillingAddressId,
		"Notes":             input.Notes,
	}).Error; err != nil {
		return nil, err
	}

	if notesEditable {
		if err := replaceProjectCodes(tx.WithContext(ctx), id, input.ProjectCodes); err != nil {
			return nil, err
		}
	}

	if err := applyLineItemEdits(tx.WithContext(ctx), existing, input.LineItems); err != nil {
		return nil, err
	}

	if err := createHistory(tx.WithContext(ctx), "Update", id, "requests", nil, nil, "Request updated"); err != nil {
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetRequest(ctx, id)
}

func sameProjectCodes(codes []string, existing []RequestProjectCode) bool {
	if len(codes) != len(existing) {
		return false
	}
	have := make(map[string]bool, len(existing))
	for _, pc := range existing {
		have[pc.Code] = true
	}
	for _, code := range codes {
		if !have[code] {
			return false
		}
	}
	return true
}

func replaceProjectCodes(tx *gorm.DB, requestId int, codes []string) error {
	if err := tx.Where("request_id = ?", requestId).Delete(&RequestProjectCode{}).Error; err != nil {
		return err
	}
	for _, code := range utils.UniqueSlice(codes) {
		if err := tx.Create(&RequestProjectCode{RequestId: requestId, Code: code}).Error; err != nil {
			return err
		}
	}
	return nil
}

// applyLineItemEdits upserts line items by id; entries flagged as deleted are
// removed unless receipts already reference them.
func applyLineItemEdits(tx *gorm.DB, request *Request, edits []NewRequestLineItem) error {
	for _, edit := range edits {
		if edit.LineItemId == 0 {
			if edit.QuantityOrdered <= 0 {
				return fmt.Errorf("ordered quantity for %q must be a positive integer", edit.ProductName)
			}
			newItem := RequestLineItem{
				RequestId:       request.ID,
				ProductName:     edit.ProductName,
				CatalogNumber:   edit.CatalogNumber,
				Brand:           edit.Brand,
				QuantityOrdered: edit.QuantityOrdered,
				UnitPrice:       edit.UnitPrice,
				Format:          edit.Format,
				Notes:           edit.Notes,
				Link:            edit.Link,
			}
			if err := tx.Create(&newItem).Error; err != nil {
				return err
			}
			continue
		}

		var existingItem RequestLineItem
		if err := tx.Where("id = ? AND request_id = ?", edit.LineItemId, request.ID).First(&existingItem).Error; err != nil {
			return &NotFoundError{Resource: "request line item", Id: edit.LineItemId}
		}

		if edit.IsDeletedItem != nil && *edit.IsDeletedItem {
			var receiptCount int64
			if err := tx.Model(&ReceivedItem{}).Where("line_item_id = ?", existingItem.ID).Count(&receiptCount).Error; err != nil {
				return err
			}
			if receiptCount > 0 {
				return fmt.Errorf("line item %q has recorded receipts and cannot be deleted; correct or revert the receipts first",
					existingItem.ProductName)
			}
			if err := tx.Delete(&existingItem).Error; err != nil {
				return err
			}
			continue
		}

		if edit.QuantityOrdered <= 0 {
			return fmt.Errorf("ordered quantity for %q must be a positive integer", edit.ProductName)
		}
		if err := tx.Model(&existingItem).Updates(map[string]interface{}{
			"ProductName":     edit.ProductName,
			"CatalogNumber":   edit.CatalogNumber,
			"Brand":           edit.Brand,
			"QuantityOrdered": edit.QuantityOrdered,
			"UnitPrice":       edit.UnitPrice,
			"Format":          edit.Format,
			"Notes":           edit.Notes,
			"Link":            edit.Link,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

// fetchRequestForUpdate loads the request and its line items under a row
// lock, serializing concurrent reconciliation on the same request while
// leaving other requests unblocked.
func fetchRequestForUpdate(tx *gorm.DB, requestId int) (*Request, error) {
	var request Request
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&request, requestId).Error; err != nil {
		return nil, &NotFoundError{Resource: "request", Id: requestId}
	}
	if err := tx.Where("request_id = ?", requestId).Find(&request.LineItems).Error; err != nil {
		return nil, err
	}
	return &request, nil
}
