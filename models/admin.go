package models

import (
	"time"

	"gorm.io/gorm"
)

// Sector is a plant department with its own cost center
type Sector struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Name       string    `gorm:"not null;uniqueIndex" json:"name"`
	CostCenter string    `json:"cost_center"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Sector model
func (Sector) TableName() string {
	return "sectors"
}

func (s *Sector) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// Extension is an entry of the phone directory
type Extension struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Number    string    `gorm:"size:20;not null;index" json:"number"`
	Sector    string    `json:"sector"`
	UserID    *string   `gorm:"size:36" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Extension model
func (Extension) TableName() string {
	return "extensions"
}

func (e *Extension) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// Equipment is a machine or installation maintenance works on
type Equipment struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Code        string    `gorm:"size:64;index" json:"code"`
	SectorID    string    `gorm:"size:36;index" json:"sector_id"`
	Location    string    `json:"location"`
	Description *string   `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Equipment model
func (Equipment) TableName() string {
	return "equipment"
}

func (e *Equipment) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// MaintenanceGuide is a how-to written by the maintenance team
type MaintenanceGuide struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	Title      string    `gorm:"not null" json:"title"`
	Content    string    `gorm:"type:text" json:"content"`
	Category   string    `gorm:"index" json:"category"`
	AuthorName string    `json:"author_name"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for the MaintenanceGuide model
func (MaintenanceGuide) TableName() string {
	return "maintenance_guides"
}

func (g *MaintenanceGuide) BeforeCreate(tx *gorm.DB) error {
	ensureID(&g.ID)
	return nil
}
