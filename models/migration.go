package models

import (
	"log"

	"github.com/labstockhq/labstock_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Request{}, &RequestLineItem{}, &RequestProjectCode{},
		&PackingSlip{}, &ReceivedItem{},
		&InventoryRecord{},
		&History{},
		&NotificationRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
