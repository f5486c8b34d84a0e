package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WorkOrder list tabs as shown on the maintenance panel
const (
	TabOpen      = "OPEN"
	TabFailed    = "FAILED"
	TabCompleted = "COMPLETED"
)

const reopenNotePrefix = "Reopened: "

// CreateWorkOrderInput carries the fields of the new work order form
type CreateWorkOrderInput struct {
	Title          string
	Description    string
	Priority       models.Priority
	RequesterName  string
	EquipmentID    *string
	NeedsMaterials bool
}

// WorkOrderFilter narrows List
type WorkOrderFilter struct {
	Tab         string
	Status      models.WorkOrderStatus
	EquipmentID string
	Search      string
	Page        int
	Limit       int
}

// WorkOrderService owns the work order lifecycle
type WorkOrderService struct {
	db     *gorm.DB
	bus    *EventBus
	logger *zap.Logger
}

// NewWorkOrderService creates the service
func NewWorkOrderService(db *gorm.DB, bus *EventBus, logger *zap.Logger) *WorkOrderService {
	return &WorkOrderService{db: db, bus: bus, logger: logger}
}

// Create opens a work order in PREPARATION when materials are needed, IN_PROGRESS otherwise
func (s *WorkOrderService) Create(ctx context.Context, in CreateWorkOrderInput) (*models.WorkOrder, error) {
	if utils.IsBlank(in.Title) {
		return nil, invalid("title", "is required")
	}
	if utils.IsBlank(in.Description) {
		return nil, invalid("description", "is required")
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !IsValidPriority(in.Priority) {
		return nil, invalid("priority", fmt.Sprintf("unknown priority %q", in.Priority))
	}

	status := models.WorkOrderInProgress
	if in.NeedsMaterials {
		status = models.WorkOrderPreparation
	}

	wo := &models.WorkOrder{
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Priority:      in.Priority,
		Status:        status,
		RequesterName: in.RequesterName,
		EquipmentID:   in.EquipmentID,
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if in.EquipmentID != nil && *in.EquipmentID != "" {
			if err := tx.Select("id").First(&models.Equipment{}, "id = ?", *in.EquipmentID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("EQUIPMENT", *in.EquipmentID)
				}
				return err
			}
		}
		return createWorkOrder(tx, wo)
	}); err != nil {
		return nil, fmt.Errorf("failed to create work order: %w", err)
	}

	s.logger.Info("Work order created",
		zap.String("work_order_id", wo.ID),
		zap.String("status", string(wo.Status)),
	)
	s.bus.Publish(Event{Type: EventWorkOrderChanged, EntityID: wo.ID, Action: "created"})
	return wo, nil
}

// createWorkOrder inserts a work order with an empty history
func createWorkOrder(tx *gorm.DB, wo *models.WorkOrder) error {
	wo.History = []models.WorkOrderHistoryEntry{}
	return tx.Omit("History").Create(wo).Error
}

// Get loads a work order with its history, newest entry first
func (s *WorkOrderService) Get(ctx context.Context, id string) (*models.WorkOrder, error) {
	return findWorkOrder(s.db.WithContext(ctx), id)
}

func findWorkOrder(db *gorm.DB, id string) (*models.WorkOrder, error) {
	var wo models.WorkOrder
	err := db.Scopes(historyNewestFirst).First(&wo, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("WORK_ORDER", id)
		}
		return nil, err
	}
	return &wo, nil
}

// List returns one page of work orders, newest first, and the total count
func (s *WorkOrderService) List(ctx context.Context, f WorkOrderFilter) ([]models.WorkOrder, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.WorkOrder{})

	switch strings.ToUpper(f.Tab) {
	case TabOpen:
		query = query.Where("status IN ?", []models.WorkOrderStatus{models.WorkOrderPreparation, models.WorkOrderInProgress})
	case TabFailed:
		query = query.Where("status = ?", models.WorkOrderFailed)
	case TabCompleted:
		query = query.Where("status = ?", models.WorkOrderCompleted)
	case "":
	default:
		return nil, 0, invalid("tab", fmt.Sprintf("unknown tab %q", f.Tab))
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.EquipmentID != "" {
		query = query.Where("equipment_id = ?", f.EquipmentID)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var orders []models.WorkOrder
	total, err := listPage(query, f.Page, f.Limit, "created_at DESC", &orders, historyNewestFirst)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus moves a work order to any status and records it in the history.
// Completing or failing requires a note.
func (s *WorkOrderService) UpdateStatus(ctx context.Context, id string, status models.WorkOrderStatus, notes string) (*models.WorkOrder, error) {
	if !IsValidWorkOrderStatus(status) {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	if (status == models.WorkOrderCompleted || status == models.WorkOrderFailed) && utils.IsBlank(notes) {
		return nil, ErrNoteRequired
	}

	var wo *models.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findWorkOrder(tx, id)
		if err != nil {
			return err
		}
		if err := setWorkOrderStatus(tx, current.ID, status, notes, models.HistoryStatusChange); err != nil {
			return err
		}
		wo, err = findWorkOrder(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Work order status updated", zap.String("work_order_id", id), zap.String("status", string(status)))
	s.bus.Publish(Event{Type: EventWorkOrderChanged, EntityID: id, Action: "status_changed"})
	return wo, nil
}

// Reopen brings a FAILED work order back to PREPARATION or IN_PROGRESS
func (s *WorkOrderService) Reopen(ctx context.Context, id, notes string, needsMaterials bool) (*models.WorkOrder, error) {
	if utils.IsBlank(notes) {
		return nil, ErrNoteRequired
	}

	next := models.WorkOrderInProgress
	if needsMaterials {
		next = models.WorkOrderPreparation
	}

	var wo *models.WorkOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findWorkOrder(tx, id)
		if err != nil {
			return err
		}
		if current.Status != models.WorkOrderFailed {
			return fmt.Errorf("%w: cannot reopen a %s work order", ErrInvalidTransition, current.Status)
		}
		if err := setWorkOrderStatus(tx, id, next, reopenNotePrefix+strings.TrimSpace(notes), models.HistoryReopen); err != nil {
			return err
		}
		wo, err = findWorkOrder(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Work order reopened", zap.String("work_order_id", id), zap.String("status", string(next)))
	s.bus.Publish(Event{Type: EventWorkOrderChanged, EntityID: id, Action: "reopened"})
	return wo, nil
}

// setWorkOrderStatus updates the status and appends exactly one history entry
func setWorkOrderStatus(tx *gorm.DB, id string, status models.WorkOrderStatus, notes string, entryType models.HistoryEntryType) error {
	if err := tx.Model(&models.WorkOrder{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return err
	}
	return tx.Create(&models.WorkOrderHistoryEntry{
		WorkOrderID: id,
		Status:      status,
		Notes:       notes,
		Type:        entryType,
	}).Error
}

// IsValidPriority reports whether p is LOW, MEDIUM or HIGH
func IsValidPriority(p models.Priority) bool {
	switch p {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh:
		return true
	}
	return false
}

// IsValidWorkOrderStatus reports whether status is one of the four lifecycle states
func IsValidWorkOrderStatus(status models.WorkOrderStatus) bool {
	switch status {
	case models.WorkOrderPreparation, models.WorkOrderInProgress, models.WorkOrderCompleted, models.WorkOrderFailed:
		return true
	}
	return false
}
