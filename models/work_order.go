package models

import (
	"time"

	"gorm.io/gorm"
)

// WorkOrderStatus is the lifecycle state of a work order
type WorkOrderStatus string

const (
	WorkOrderPreparation WorkOrderStatus = "PREPARATION" // waiting for materials
	WorkOrderInProgress  WorkOrderStatus = "IN_PROGRESS"
	WorkOrderCompleted   WorkOrderStatus = "COMPLETED"
	WorkOrderFailed      WorkOrderStatus = "FAILED"
)

// Priority of a work order
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// HistoryEntryType distinguishes plain status changes from reopenings
type HistoryEntryType string

const (
	HistoryStatusChange HistoryEntryType = "STATUS_CHANGE"
	HistoryReopen       HistoryEntryType = "REOPEN"
)

// WorkOrder represents a unit of maintenance work (O.S.)
type WorkOrder struct {
	ID            string                  `gorm:"primaryKey;size:36" json:"id"`
	Title         string                  `gorm:"not null" json:"title"`
	Description   string                  `gorm:"type:text;not null" json:"description"`
	Priority      Priority                `gorm:"size:10;not null;default:'MEDIUM'" json:"priority"`
	Status        WorkOrderStatus         `gorm:"size:20;not null;index" json:"status"`
	RequesterName string                  `gorm:"not null" json:"requester_name"`
	EquipmentID   *string                 `gorm:"size:36;index" json:"equipment_id"`
	RequestIDs    []string                `gorm:"type:text;serializer:json" json:"requests"` // material requests attached to this order
	History       []WorkOrderHistoryEntry `gorm:"foreignKey:WorkOrderID;constraint:OnDelete:CASCADE" json:"history"`
	CreatedAt     time.Time               `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// TableName specifies the table name for the WorkOrder model
func (WorkOrder) TableName() string {
	return "work_orders"
}

func (w *WorkOrder) BeforeCreate(tx *gorm.DB) error {
	ensureID(&w.ID)
	if w.RequestIDs == nil {
		w.RequestIDs = []string{}
	}
	return nil
}

func (w *WorkOrder) AfterFind(tx *gorm.DB) error {
	if w.RequestIDs == nil {
		w.RequestIDs = []string{}
	}
	return nil
}

// IsOpen reports whether the order still shows up in the technician's open tab
func (w *WorkOrder) IsOpen() bool {
	return w.Status == WorkOrderPreparation || w.Status == WorkOrderInProgress
}

// WorkOrderHistoryEntry is an append-only log row of a work order status change
type WorkOrderHistoryEntry struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	WorkOrderID string           `gorm:"size:36;not null;index" json:"work_order_id"`
	Date        time.Time        `gorm:"not null;index" json:"date"`
	Status      WorkOrderStatus  `gorm:"size:20;not null" json:"status"`
	Notes       string           `gorm:"type:text" json:"notes"`
	Type        HistoryEntryType `gorm:"size:20;not null" json:"type"`
}

// TableName specifies the table name for the WorkOrderHistoryEntry model
func (WorkOrderHistoryEntry) TableName() string {
	return "work_order_history"
}

func (h *WorkOrderHistoryEntry) BeforeCreate(tx *gorm.DB) error {
	ensureID(&h.ID)
	if h.Date.IsZero() {
		h.Date = time.Now()
	}
	return nil
}
