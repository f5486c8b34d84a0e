package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseStatus tracks an order from placement to warehouse reconciliation
type PurchaseStatus string

const (
	PurchaseOrdered PurchaseStatus = "ORDERED"
	PurchaseArrived PurchaseStatus = "ARRIVED" // confirmed by the gatehouse
	PurchaseStocked PurchaseStatus = "STOCKED" // reconciled into inventory
)

// PurchaseOrder is an order placed with a supplier
type PurchaseOrder struct {
	ID             string              `gorm:"primaryKey;size:36" json:"id"`
	OrderNumber    string              `gorm:"size:64;not null;uniqueIndex" json:"order_number"`
	InvoiceNumber  *string             `gorm:"size:64" json:"invoice_number"`
	Supplier       string              `gorm:"not null;index" json:"supplier"`
	PurchaseDate   time.Time           `gorm:"not null" json:"purchase_date"`
	ArrivalDate    *time.Time          `json:"arrival_date"`
	CompletionDate *time.Time          `json:"completion_date"`
	Status         PurchaseStatus      `gorm:"size:10;not null;index" json:"status"`
	Items          []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE" json:"items"`
	PurchaserName  string              `json:"purchaser_name"`
	Notes          *string             `gorm:"type:text" json:"notes"`
	Total          decimal.Decimal     `gorm:"-" json:"total"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TableName specifies the table name for the PurchaseOrder model
func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

func (p *PurchaseOrder) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (p *PurchaseOrder) AfterFind(tx *gorm.DB) error {
	p.Total = p.ComputeTotal()
	return nil
}

// ComputeTotal sums quantity * unit cost over the loaded items
func (p *PurchaseOrder) ComputeTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.UnitCost.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// PurchaseOrderItem is one purchased line. InventoryItemID and Code identify the
// stock keeping unit explicitly; the name is only a fallback for legacy orders.
type PurchaseOrderItem struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	PurchaseOrderID string          `gorm:"size:36;not null;index" json:"purchase_order_id"`
	InventoryItemID *string         `gorm:"size:36" json:"inventory_item_id"`
	Code            *string         `gorm:"size:64" json:"code"`
	Name            string          `gorm:"not null" json:"name"`
	Quantity        int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	Unit            string          `gorm:"size:20" json:"unit"`
	Category        string          `json:"category"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"unit_cost"`
}

// TableName specifies the table name for the PurchaseOrderItem model
func (PurchaseOrderItem) TableName() string {
	return "purchase_order_items"
}

func (i *PurchaseOrderItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
