package models

import (
	"time"

	"gorm.io/gorm"
)

// DefaultMinThreshold is applied to items created from a purchase reception
const DefaultMinThreshold = 5

// InventoryItem is a stock keeping unit held by the warehouse
type InventoryItem struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Code         *string   `gorm:"size:64;uniqueIndex" json:"code"` // SKU, optional for legacy items
	Name         string    `gorm:"not null;index" json:"name"`
	Category     string    `gorm:"index" json:"category"`
	Quantity     int       `gorm:"not null;default:0" json:"quantity"`
	Unit         string    `gorm:"size:20;not null;default:'un'" json:"unit"`
	MinThreshold int       `gorm:"not null;default:0" json:"min_threshold"`
	SectorID     *string   `gorm:"size:36" json:"sector_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for the InventoryItem model
func (InventoryItem) TableName() string {
	return "inventory_items"
}

func (i *InventoryItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

// IsLowStock follows the dashboard rule: at or below the minimum threshold
func (i *InventoryItem) IsLowStock() bool {
	return i.Quantity <= i.MinThreshold
}

// StockEntryType tells a first receipt from a replenishment
type StockEntryType string

const (
	StockEntryInitial StockEntryType = "INITIAL"
	StockEntryRestock StockEntryType = "RESTOCK"
)

// StockEntryLog records an inventory increase and its purchase/invoice provenance
type StockEntryLog struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	ItemID          string         `gorm:"size:36;not null;index" json:"item_id"`
	ItemName        string         `json:"item_name"`
	QuantityAdded   int            `gorm:"not null" json:"quantity_added"`
	PurchaseID      string         `gorm:"size:64;index" json:"purchase_id"` // purchase order number
	InvoiceNumber   *string        `gorm:"size:64" json:"invoice_number"`
	NoInvoiceReason *string        `json:"no_invoice_reason"`
	Date            time.Time      `gorm:"not null;index" json:"date"`
	Type            StockEntryType `gorm:"size:10;not null" json:"type"`
}

// TableName specifies the table name for the StockEntryLog model
func (StockEntryLog) TableName() string {
	return "stock_entries"
}

func (s *StockEntryLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	if s.Date.IsZero() {
		s.Date = time.Now()
	}
	return nil
}

// UsageLog records an inventory decrease caused by an approved material request
type UsageLog struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	RequestID    string    `gorm:"size:36;not null;index" json:"request_id"`
	WorkOrderID  string    `gorm:"size:36;not null;index" json:"work_order_id"`
	ItemID       string    `gorm:"size:36;not null" json:"item_id"`
	ItemName     string    `json:"item_name"`
	QuantityUsed int       `gorm:"not null" json:"quantity_used"`
	Date         time.Time `gorm:"not null;index" json:"date"`
}

// TableName specifies the table name for the UsageLog model
func (UsageLog) TableName() string {
	return "usage_logs"
}

func (u *UsageLog) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	if u.Date.IsZero() {
		u.Date = time.Now()
	}
	return nil
}
