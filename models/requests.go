package models

import (
	"time"

	"gorm.io/gorm"
)

// ResourceStatus is the lifecycle of a resource request
type ResourceStatus string

const (
	ResourcePending  ResourceStatus = "PENDING"
	ResourceReleased ResourceStatus = "RELEASED"
	ResourceRejected ResourceStatus = "REJECTED"
)

// ResourceRequest asks the purchasing team to release budget for something not in stock
type ResourceRequest struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	ItemName      string         `gorm:"not null" json:"item_name"`
	Quantity      int            `gorm:"not null" json:"quantity"`
	Brand         string         `json:"brand"`
	Sector        string         `gorm:"index" json:"sector"`
	CostCenter    string         `json:"cost_center"`
	RequesterName string         `gorm:"not null" json:"requester_name"`
	Status        ResourceStatus `gorm:"size:20;not null;index" json:"status"`
	ApprovedBy    *string        `json:"approved_by"`
	ApprovedAt    *time.Time     `json:"approved_at"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName specifies the table name for the ResourceRequest model
func (ResourceRequest) TableName() string {
	return "resource_requests"
}

func (r *ResourceRequest) BeforeCreate(tx *gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// TicketCategory routes a support ticket to maintenance or IT
type TicketCategory string

const (
	TicketMaintenance TicketCategory = "MAINTENANCE"
	TicketIT          TicketCategory = "IT"
)

// SupportTicket is a help desk call opened by any employee
type SupportTicket struct {
	ID            string         `gorm:"primaryKey;size:36" json:"id"`
	Category      TicketCategory `gorm:"size:20;not null;index" json:"category"`
	Title         string         `gorm:"not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	RequesterID   string         `gorm:"size:36;index" json:"requester_id"`
	RequesterName string         `json:"requester_name"`
	Sector        string         `json:"sector"`
	Status        RequestStatus  `gorm:"size:20;not null;index" json:"status"`
	WorkOrderID   *string        `gorm:"size:36" json:"work_order_id"`
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName specifies the table name for the SupportTicket model
func (SupportTicket) TableName() string {
	return "support_tickets"
}

func (t *SupportTicket) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
