package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstockhq/labstock_backend/config"
	"github.com/labstockhq/labstock_backend/utils"
	"gorm.io/gorm"
)

// PackingSlip groups the items recorded in a single receiving event. Slips
// carry no quantities themselves; the received_items ledger under them is the
// source of truth.
type PackingSlip struct {
	ID           int       `gorm:"primary_key" json:"id"`
	RequestId    int       `gorm:"index;not null" json:"request_id"`
	SlipNumber   string    `gorm:"size:100;not null" json:"slip_number"`
	DocumentRef  string    `gorm:"size:512;default:null" json:"document_ref"`
	ReceivedById int       `gorm:"index;not null" json:"received_by_id"`
	ReceivedAt   time.Time `gorm:"not null" json:"received_at"`

	Items []ReceivedItem `gorm:"foreignKey:PackingSlipId" json:"items"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ReceivedItem is one ledger row: a signed quantity against a line item.
// Positive rows come from receiving, negative ones from corrections booked
// on a later slip. A row's quantity changes only through CorrectReceivedItem,
// which moves inventory by the same difference.
type ReceivedItem struct {
	ID            int       `gorm:"primary_key" json:"id"`
	PackingSlipId int       `gorm:"index;not null" json:"packing_slip_id"`
	RequestId     int       `gorm:"index;not null" json:"request_id"`
	LineItemId    int       `gorm:"index;not null" json:"line_item_id"`
	Quantity      int       `gorm:"not null" json:"quantity"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// NewReceivedItem is one entry of a Receive call.
type NewReceivedItem struct {
	LineItemId int `json:"line_item_id" binding:"required"`
	Quantity   int `json:"quantity"`
}

func newSlipNumber() string {
	return fmt.Sprintf("PS-%s-%s", time.Now().Format("20060102"), uuid.New().String()[:8])
}

// createPackingSlip inserts the slip header inside the caller's transaction.
// A blank slip number gets a generated one so hurried receiving at the dock
// never stalls on paperwork.
func createPackingSlip(tx *gorm.DB, requestId int, slipNumber, documentRef string) (*PackingSlip, error) {
	ctx := tx.Statement.Context
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return nil, errors.New("user id is required")
	}
	if slipNumber == "" {
		slipNumber = newSlipNumber()
	}

	slip := PackingSlip{
		RequestId:    requestId,
		SlipNumber:   slipNumber,
		DocumentRef:  documentRef,
		ReceivedById: userId,
		ReceivedAt:   time.Now(),
	}
	if err := tx.Create(&slip).Error; err != nil {
		return nil, err
	}
	return &slip, nil
}

// GetPackingSlips lists a request's slips with their ledger rows.
func GetPackingSlips(ctx context.Context, requestId int) ([]*PackingSlip, error) {
	db := config.GetDB()
	var slips []*PackingSlip
	err := db.WithContext(ctx).
		Preload("Items").
		Where("request_id = ?", requestId).
		Order("received_at").
		Find(&slips).Error
	return slips, err
}

// DeletePackingSlip removes a slip and its ledger rows before the request
// completes. Once the request is Received, slips with items are load-bearing
// for the inventory trail and can only be removed via RevertReception.
// Deleting a slip does NOT reverse inventory; it is the escape hatch for a
// slip entered against the wrong request before completion.
func DeletePackingSlip(ctx context.Context, slipId int) error {
	db := config.GetDB()

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()
	dbCtx := tx.WithContext(ctx)

	var slip PackingSlip
	if err := dbCtx.Preload("Items").First(&slip, slipId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "packing slip", Id: slipId}
		}
		return err
	}

	request, err := fetchRequestForUpdate(dbCtx, slip.RequestId)
	if err != nil {
		return err
	}
	if request.CurrentStatus == RequestStatusReceived && len(slip.Items) > 0 {
		return &SlipInUseError{SlipId: slipId, SlipNumber: slip.SlipNumber}
	}

	if err := dbCtx.Where("packing_slip_id = ?", slipId).Delete(&ReceivedItem{}).Error; err != nil {
		return err
	}
	if err := dbCtx.Delete(&slip).Error; err != nil {
		return err
	}

	if err := createHistory(dbCtx, "Delete", slip.RequestId, "requests", nil, nil,
		fmt.Sprintf("Packing slip %s deleted (%d ledger rows removed, inventory untouched)", slip.SlipNumber, len(slip.Items))); err != nil {
		return err
	}

	return tx.Commit().Error
}
