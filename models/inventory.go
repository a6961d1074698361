package models

import (
	"context"
	"time"

	"github.com/labstockhq/labstock_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRecord is the on-hand count per product identity. Rows are only
// ever mutated through applyInventoryDelta under a row lock, so the quantity
// is always the clamped running sum of the receiving ledger.
type InventoryRecord struct {
	ID             int             `gorm:"primary_key" json:"id"`
	ProductName    string          `gorm:"size:255;not null;uniqueIndex:idx_product_identity" json:"product_name"`
	CatalogNumber  string          `gorm:"size:100;not null;uniqueIndex:idx_product_identity" json:"catalog_number"`
	Brand          string          `gorm:"size:100;not null;default:'';uniqueIndex:idx_product_identity" json:"brand"`
	QuantityOnHand int             `gorm:"not null;default:0" json:"quantity_on_hand"`
	LastUnitPrice  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"last_unit_price"`
	Format         string          `gorm:"size:100;default:null" json:"format"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// firstOrCreateInventoryRecord locks (creating if absent) the inventory row
// for a product identity. The row lock serializes concurrent deltas on the
// same product across requests.
func firstOrCreateInventoryRecord(tx *gorm.DB, item *RequestLineItem) (*InventoryRecord, error) {
	record := InventoryRecord{
		ProductName:   item.ProductName,
		CatalogNumber: item.CatalogNumber,
		Brand:         item.Brand,
		LastUnitPrice: item.UnitPrice,
		Format:        item.Format,
	}
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_name = ? AND catalog_number = ? AND brand = ?",
			item.ProductName, item.CatalogNumber, item.Brand).
		FirstOrCreate(&record)
	if result.Error != nil {
		return nil, result.Error
	}
	return &record, nil
}

// applyInventoryDelta adds a signed delta to the locked on-hand count. A
// negative delta that would push the count below zero is clamped to zero and
// logged; the ledger keeps the true signed history either way.
func applyInventoryDelta(tx *gorm.DB, item *RequestLineItem, delta int) error {
	if delta == 0 {
		return nil
	}
	record, err := firstOrCreateInventoryRecord(tx, item)
	if err != nil {
		return err
	}

	newQty := record.QuantityOnHand + delta
	if newQty < 0 {
		config.LogWarn(config.GetLogger(), "models", "applyInventoryDelta",
			"inventory clamp", map[string]interface{}{
				"product_name":   item.ProductName,
				"catalog_number": item.CatalogNumber,
				"brand":          item.Brand,
				"on_hand":        record.QuantityOnHand,
				"delta":          delta,
			}, "inventory delta exceeds on-hand quantity, clamping at zero")
		newQty = 0
	}

	updates := map[string]interface{}{"QuantityOnHand": newQty}
	if delta > 0 {
		// A fresh receipt refreshes the reference price and format.
		updates["LastUnitPrice"] = item.UnitPrice
		if item.Format != "" {
			updates["Format"] = item.Format
		}
	}
	return tx.Model(&InventoryRecord{}).Where("id = ?", record.ID).Updates(updates).Error
}

// GetInventoryRecords lists the on-hand inventory.
func GetInventoryRecords(ctx context.Context) ([]*InventoryRecord, error) {
	db := config.GetDB()
	var records []*InventoryRecord
	err := db.WithContext(ctx).
		Order("product_name, catalog_number").
		Find(&records).Error
	return records, err
}

// RebuildInventoryFromLedger recomputes every inventory record's on-hand
// count as the clamped sum of the receiving ledger. It is the recovery path
// after a partial failure left a record out of sync.
func RebuildInventoryFromLedger(ctx context.Context) error {
	db := config.GetDB()

	tx := db.Begin()
	defer func() { _ = tx.Rollback().Error }()
	dbCtx := tx.WithContext(ctx)

	type row struct {
		ProductName   string
		CatalogNumber string
		Brand         string
		Total         int
	}
	var rows []row
	err := dbCtx.Model(&ReceivedItem{}).
		Select("request_line_items.product_name, request_line_items.catalog_number, request_line_items.brand, COALESCE(SUM(received_items.quantity), 0) AS total").
		Joins("JOIN request_line_items ON request_line_items.id = received_items.line_item_id").
		Group("request_line_items.product_name, request_line_items.catalog_number, request_line_items.brand").
		Scan(&rows).Error
	if err != nil {
		return err
	}

	if err := dbCtx.Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&InventoryRecord{}).UpdateColumn("QuantityOnHand", 0).Error; err != nil {
		return err
	}

	for _, r := range rows {
		total := r.Total
		if total < 0 {
			total = 0
		}
		record := InventoryRecord{
			ProductName:   r.ProductName,
			CatalogNumber: r.CatalogNumber,
			Brand:         r.Brand,
		}
		result := dbCtx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("product_name = ? AND catalog_number = ? AND brand = ?",
				r.ProductName, r.CatalogNumber, r.Brand).
			FirstOrCreate(&record)
		if result.Error != nil {
			return result.Error
		}
		if err := dbCtx.Model(&InventoryRecord{}).Where("id = ?", record.ID).
			UpdateColumn("QuantityOnHand", total).Error; err != nil {
			return err
		}
	}

	return tx.Commit().Error
}
