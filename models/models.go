package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates every table the intranet uses
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Sector{},
		&Extension{},
		&Equipment{},
		&MaintenanceGuide{},
		&InventoryItem{},
		&StockEntryLog{},
		&UsageLog{},
		&WorkOrder{},
		&WorkOrderHistoryEntry{},
		&MaterialRequest{},
		&MaterialRequestItem{},
		&PurchaseOrder{},
		&PurchaseOrderItem{},
		&ResourceRequest{},
		&SupportTicket{},
	)
}

// ensureID assigns a fresh uuid when the caller did not supply one
func ensureID(id *string) {
	if *id == "" {
		*id = uuid.New().String()
	}
}
