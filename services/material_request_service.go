package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dutyfinder/dutyfinder-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestLine is one cart line submitted by a technician
type RequestLine struct {
	ItemID   string
	Quantity int
}

// MaterialRequestFilter narrows List
type MaterialRequestFilter struct {
	Status      models.RequestStatus
	WorkOrderID string
	Page        int
	Limit       int
}

// MaterialRequestService handles the warehouse approval of material carts
type MaterialRequestService struct {
	db     *gorm.DB
	bus    *EventBus
	logger *zap.Logger
}

// NewMaterialRequestService creates the service
func NewMaterialRequestService(db *gorm.DB, bus *EventBus, logger *zap.Logger) *MaterialRequestService {
	return &MaterialRequestService{db: db, bus: bus, logger: logger}
}

// Submit creates a PENDING request and links it to its work order
func (s *MaterialRequestService) Submit(ctx context.Context, workOrderID string, lines []RequestLine) (*models.MaterialRequest, error) {
	if len(lines) == 0 {
		return nil, invalid("items", "at least one item is required")
	}
	for i, line := range lines {
		if line.ItemID == "" {
			return nil, invalid(fmt.Sprintf("items[%d].item_id", i), "is required")
		}
		if line.Quantity <= 0 {
			return nil, invalid(fmt.Sprintf("items[%d].quantity", i), "must be greater than 0")
		}
	}

	var req *models.MaterialRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var wo models.WorkOrder
		if err := tx.First(&wo, "id = ?", workOrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("WORK_ORDER", workOrderID)
			}
			return err
		}

		req = &models.MaterialRequest{
			WorkOrderID:    wo.ID,
			WorkOrderTitle: wo.Title,
			Status:         models.RequestPending,
		}
		for _, line := range lines {
			var item models.InventoryItem
			if err := tx.Select("id", "name").First(&item, "id = ?", line.ItemID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return notFound("INVENTORY_ITEM", line.ItemID)
				}
				return err
			}
			req.Items = append(req.Items, models.MaterialRequestItem{
				ItemID:            item.ID,
				ItemName:          item.Name,
				QuantityRequested: line.Quantity,
			})
		}

		if err := tx.Create(req).Error; err != nil {
			return err
		}

		wo.RequestIDs = append(wo.RequestIDs, req.ID)
		return tx.Model(&wo).Select("request_ids").Updates(&models.WorkOrder{RequestIDs: wo.RequestIDs}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Material request submitted",
		zap.String("request_id", req.ID),
		zap.String("work_order_id", workOrderID),
		zap.Int("lines", len(req.Items)),
	)
	s.bus.Publish(Event{Type: EventMaterialRequestChanged, EntityID: req.ID, Action: "submitted"})
	s.bus.Publish(Event{Type: EventWorkOrderChanged, EntityID: workOrderID, Action: "request_linked"})
	return req, nil
}

// Get loads a request with its lines
func (s *MaterialRequestService) Get(ctx context.Context, id string) (*models.MaterialRequest, error) {
	var req models.MaterialRequest
	if err := s.db.WithContext(ctx).Preload("Items").First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("MATERIAL_REQUEST", id)
		}
		return nil, err
	}
	return &req, nil
}

// List returns one page of requests, newest first
func (s *MaterialRequestService) List(ctx context.Context, f MaterialRequestFilter) ([]models.MaterialRequest, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.MaterialRequest{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.WorkOrderID != "" {
		query = query.Where("work_order_id = ?", f.WorkOrderID)
	}

	var requests []models.MaterialRequest
	total, err := listPage(query, f.Page, f.Limit, "created_at DESC", &requests, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Items")
	})
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Process approves or rejects a PENDING request.
//
// Approval is all or nothing: every line is checked against current stock
// before anything is debited, and a shortage on any line leaves inventory,
// the request and the work order untouched.
func (s *MaterialRequestService) Process(ctx context.Context, id string, approved bool) (*models.MaterialRequest, error) {
	if !approved {
		return s.reject(ctx, id)
	}

	var (
		req      models.MaterialRequest
		advanced bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("MATERIAL_REQUEST", id)
			}
			return err
		}
		if req.Status != models.RequestPending {
			return ErrRequestNotPending
		}
		if err := tx.Where("material_request_id = ?", req.ID).Find(&req.Items).Error; err != nil {
			return err
		}

		if err := checkStock(tx, req.Items); err != nil {
			return err
		}

		now := time.Now()
		for _, line := range req.Items {
			if err := debitStock(tx, line); err != nil {
				return err
			}
			if err := tx.Create(&models.UsageLog{
				RequestID:    req.ID,
				WorkOrderID:  req.WorkOrderID,
				ItemID:       line.ItemID,
				ItemName:     line.ItemName,
				QuantityUsed: line.QuantityRequested,
				Date:         now,
			}).Error; err != nil {
				return err
			}
		}

		result := tx.Model(&models.MaterialRequest{}).
			Where("id = ? AND status = ?", req.ID, models.RequestPending).
			Updates(map[string]interface{}{
				"status":       models.RequestApproved,
				"approved_at":  now,
				"processed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRequestNotPending
		}
		req.Status = models.RequestApproved
		req.ApprovedAt = &now
		req.ProcessedAt = &now

		var err error
		advanced, err = advanceWorkOrder(tx, req.WorkOrderID)
		return err
	})
	if err != nil {
		var stockErr *InsufficientStockError
		if errors.As(err, &stockErr) {
			s.logger.Warn("Material request blocked by insufficient stock",
				zap.String("request_id", id),
				zap.String("item", stockErr.ItemName),
				zap.Int("requested", stockErr.Requested),
				zap.Int("available", stockErr.Available),
			)
		}
		return nil, err
	}

	s.logger.Info("Material request approved",
		zap.String("request_id", req.ID),
		zap.String("work_order_id", req.WorkOrderID),
		zap.Bool("work_order_advanced", advanced),
	)
	s.bus.Publish(Event{Type: EventMaterialRequestChanged, EntityID: req.ID, Action: "approved"})
	s.bus.Publish(Event{Type: EventInventoryChanged, Action: "debited"})
	if advanced {
		s.bus.Publish(Event{Type: EventWorkOrderChanged, EntityID: req.WorkOrderID, Action: "status_changed"})
	}
	return &req, nil
}

func (s *MaterialRequestService) reject(ctx context.Context, id string) (*models.MaterialRequest, error) {
	var req models.MaterialRequest
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&req, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("MATERIAL_REQUEST", id)
			}
			return err
		}

		now := time.Now()
		result := tx.Model(&models.MaterialRequest{}).
			Where("id = ? AND status = ?", id, models.RequestPending).
			Updates(map[string]interface{}{
				"status":       models.RequestRejected,
				"processed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRequestNotPending
		}
		req.Status = models.RequestRejected
		req.ProcessedAt = &now
		return tx.Where("material_request_id = ?", id).Find(&req.Items).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Material request rejected", zap.String("request_id", id))
	s.bus.Publish(Event{Type: EventMaterialRequestChanged, EntityID: id, Action: "rejected"})
	return &req, nil
}

// checkStock verifies every line before any debit. Lines naming the same item are summed.
func checkStock(tx *gorm.DB, lines []models.MaterialRequestItem) error {
	requested := make(map[string]int)
	names := make(map[string]string)
	var order []string
	for _, line := range lines {
		if _, seen := requested[line.ItemID]; !seen {
			order = append(order, line.ItemID)
		}
		requested[line.ItemID] += line.QuantityRequested
		names[line.ItemID] = line.ItemName
	}

	for _, itemID := range order {
		var item models.InventoryItem
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, "id = ?", itemID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &InsufficientStockError{ItemID: itemID, ItemName: names[itemID], Requested: requested[itemID], Available: 0}
		}
		if err != nil {
			return err
		}
		if item.Quantity < requested[itemID] {
			return &InsufficientStockError{ItemID: itemID, ItemName: item.Name, Requested: requested[itemID], Available: item.Quantity}
		}
	}
	return nil
}

// debitStock subtracts a line with a guarded update so stock can never go negative
func debitStock(tx *gorm.DB, line models.MaterialRequestItem) error {
	result := tx.Model(&models.InventoryItem{}).
		Where("id = ? AND quantity >= ?", line.ItemID, line.QuantityRequested).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", line.QuantityRequested))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var item models.InventoryItem
		available := 0
		if err := tx.Select("quantity").First(&item, "id = ?", line.ItemID).Error; err == nil {
			available = item.Quantity
		}
		return &InsufficientStockError{ItemID: line.ItemID, ItemName: line.ItemName, Requested: line.QuantityRequested, Available: available}
	}
	return nil
}

// advanceWorkOrder moves a PREPARATION work order to IN_PROGRESS once none of its
// material requests is still pending.
func advanceWorkOrder(tx *gorm.DB, workOrderID string) (bool, error) {
	var wo models.WorkOrder
	if err := tx.Select("id", "status").First(&wo, "id = ?", workOrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if wo.Status != models.WorkOrderPreparation {
		return false, nil
	}

	var pending int64
	if err := tx.Model(&models.MaterialRequest{}).
		Where("work_order_id = ? AND status = ?", workOrderID, models.RequestPending).
		Count(&pending).Error; err != nil {
		return false, err
	}
	if pending > 0 {
		return false, nil
	}

	if err := setWorkOrderStatus(tx, workOrderID, models.WorkOrderInProgress, "All material requests approved", models.HistoryStatusChange); err != nil {
		return false, err
	}
	return true, nil
}
