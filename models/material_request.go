package models

import (
	"time"

	"gorm.io/gorm"
)

// RequestStatus is shared by material requests and support tickets
type RequestStatus string

const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// MaterialRequest is a cart of inventory items tied to a work order, waiting on the warehouse
type MaterialRequest struct {
	ID             string                `gorm:"primaryKey;size:36" json:"id"`
	WorkOrderID    string                `gorm:"size:36;not null;index" json:"work_order_id"`
	WorkOrderTitle string                `json:"work_order_title"`
	Items          []MaterialRequestItem `gorm:"foreignKey:MaterialRequestID;constraint:OnDelete:CASCADE" json:"items"`
	Status         RequestStatus         `gorm:"size:20;not null;index" json:"status"`
	ApprovedAt     *time.Time            `json:"approved_at"`
	ProcessedAt    *time.Time            `json:"processed_at"`
	CreatedAt      time.Time             `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TableName specifies the table name for the MaterialRequest model
func (MaterialRequest) TableName() string {
	return "material_requests"
}

func (r *MaterialRequest) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// MaterialRequestItem is one line of a material request
type MaterialRequestItem struct {
	ID                string `gorm:"primaryKey;size:36" json:"id"`
	MaterialRequestID string `gorm:"size:36;not null;index" json:"material_request_id"`
	ItemID            string `gorm:"size:36;not null" json:"item_id"`
	ItemName          string `json:"item_name"`
	QuantityRequested int    `gorm:"not null;check:quantity_requested > 0" json:"quantity_requested"`
}

// TableName specifies the table name for the MaterialRequestItem model
func (MaterialRequestItem) TableName() string {
	return "material_request_items"
}

func (i *MaterialRequestItem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
