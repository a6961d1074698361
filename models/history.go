package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/labstockhq/labstock_backend/config"
	"github.com/labstockhq/labstock_backend/utils"
	"gorm.io/gorm"
)

// History is the audit trail: one row per mutating operation, attributing the
// change to the acting user supplied by the identity collaborator.
type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	ActionType    string    `gorm:"size:10;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:255" json:"reference_type"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func createHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) (err error) {

	var history History

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return errors.New("user id is required")
	}
	userName, _ := utils.GetUserNameFromContext(ctx)

	history.ActionType = actionType
	history.ReferenceID = referenceId
	history.ReferenceType = referenceType
	if before != nil {
		history.Before = string(b)
	}
	if after != nil {
		history.After = string(a)
	}
	history.Description = description
	history.UserId = userId
	history.UserName = userName

	return tx.Create(&history).Error
}

// GetRequestHistories returns a request's audit trail, oldest first.
func GetRequestHistories(ctx context.Context, requestId int) ([]*History, error) {
	db := config.GetDB()
	return GetHistories(db.WithContext(ctx), requestId, "requests")
}

func GetHistories(tx *gorm.DB, referenceId int, referenceType string) ([]*History, error) {
	var histories []*History
	err := tx.Where("reference_id = ? AND reference_type = ?", referenceId, referenceType).
		Order("created_at").
		Find(&histories).Error
	return histories, err
}
