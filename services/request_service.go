package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RequestFilter narrows the resource request and support ticket lists
type RequestFilter struct {
	Status      string
	Category    models.TicketCategory
	Sector      string
	RequesterID string
	Page        int
	Limit       int
}

// ResourceRequestService handles purchase budget requests
type ResourceRequestService struct {
	db     *gorm.DB
	bus    *EventBus
	logger *zap.Logger
}

// NewResourceRequestService creates the service
func NewResourceRequestService(db *gorm.DB, bus *EventBus, logger *zap.Logger) *ResourceRequestService {
	return &ResourceRequestService{db: db, bus: bus, logger: logger}
}

// Create files a PENDING resource request
func (s *ResourceRequestService) Create(ctx context.Context, req *models.ResourceRequest) error {
	if utils.IsBlank(req.ItemName) {
		return invalid("item_name", "is required")
	}
	if req.Quantity <= 0 {
		return invalid("quantity", "must be greater than 0")
	}
	req.ID = ""
	req.Status = models.ResourcePending
	req.ApprovedBy = nil
	req.ApprovedAt = nil

	if err := s.db.WithContext(ctx).Create(req).Error; err != nil {
		return err
	}
	s.logger.Info("Resource request created", zap.String("request_id", req.ID), zap.String("item", req.ItemName))
	s.bus.Publish(Event{Type: EventResourceRequestChanged, EntityID: req.ID, Action: "created"})
	return nil
}

// List returns one page of resource requests, newest first
func (s *ResourceRequestService) List(ctx context.Context, f RequestFilter) ([]models.ResourceRequest, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.ResourceRequest{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Sector != "" {
		query = query.Where("sector = ?", f.Sector)
	}

	var requests []models.ResourceRequest
	total, err := listPage(query, f.Page, f.Limit, "created_at DESC", &requests)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// Get loads one request
func (s *ResourceRequestService) Get(ctx context.Context, id string) (*models.ResourceRequest, error) {
	var req models.ResourceRequest
	if err := s.db.WithContext(ctx).First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("RESOURCE_REQUEST", id)
		}
		return nil, err
	}
	return &req, nil
}

// Process releases or rejects a PENDING request, recording who decided
func (s *ResourceRequestService) Process(ctx context.Context, id string, approved bool, approverName string) (*models.ResourceRequest, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":      models.ResourceRejected,
		"approved_at": now,
		"approved_by": nil,
	}
	if approved {
		updates["status"] = models.ResourceReleased
		updates["approved_by"] = strings.TrimSpace(approverName)
	}

	result := s.db.WithContext(ctx).Model(&models.ResourceRequest{}).
		Where("id = ? AND status = ?", id, models.ResourcePending).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrRequestNotPending
	}

	s.logger.Info("Resource request processed", zap.String("request_id", id), zap.Bool("released", approved))
	s.bus.Publish(Event{Type: EventResourceRequestChanged, EntityID: id, Action: "processed"})
	return s.Get(ctx, id)
}

// SupportTicketService handles help desk tickets
type SupportTicketService struct {
	db     *gorm.DB
	bus    *EventBus
	logger *zap.Logger
}

// NewSupportTicketService creates the service
func NewSupportTicketService(db *gorm.DB, bus *EventBus, logger *zap.Logger) *SupportTicketService {
	return &SupportTicketService{db: db, bus: bus, logger: logger}
}

// Create opens a PENDING ticket
func (s *SupportTicketService) Create(ctx context.Context, ticket *models.SupportTicket) error {
	if ticket.Category != models.TicketMaintenance && ticket.Category != models.TicketIT {
		return invalid("category", fmt.Sprintf("unknown category %q", ticket.Category))
	}
	if utils.IsBlank(ticket.Title) {
		return invalid("title", "is required")
	}
	ticket.ID = ""
	ticket.Status = models.RequestPending
	ticket.WorkOrderID = nil

	if err := s.db.WithContext(ctx).Create(ticket).Error; err != nil {
		return err
	}
	s.logger.Info("Support ticket opened", zap.String("ticket_id", ticket.ID), zap.String("category", string(ticket.Category)))
	s.bus.Publish(Event{Type: EventSupportTicketChanged, EntityID: ticket.ID, Action: "created"})
	return nil
}

// List returns one page of tickets, newest first
func (s *SupportTicketService) List(ctx context.Context, f RequestFilter) ([]models.SupportTicket, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.SupportTicket{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.RequesterID != "" {
		query = query.Where("requester_id = ?", f.RequesterID)
	}

	var tickets []models.SupportTicket
	total, err := listPage(query, f.Page, f.Limit, "created_at DESC", &tickets)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

// Get loads one ticket
func (s *SupportTicketService) Get(ctx context.Context, id string) (*models.SupportTicket, error) {
	var ticket models.SupportTicket
	if err := s.db.WithContext(ctx).First(&ticket, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("SUPPORT_TICKET", id)
		}
		return nil, err
	}
	return &ticket, nil
}

// Process approves or rejects a PENDING ticket. Approving a maintenance ticket
// opens an IN_PROGRESS work order for it.
func (s *SupportTicketService) Process(ctx context.Context, id string, approve bool, priority models.Priority) (*models.SupportTicket, error) {
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !IsValidPriority(priority) {
		return nil, invalid("priority", fmt.Sprintf("unknown priority %q", priority))
	}

	var (
		ticket models.SupportTicket
		wo     *models.WorkOrder
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ticket, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("SUPPORT_TICKET", id)
			}
			return err
		}
		if ticket.Status != models.RequestPending {
			return ErrRequestNotPending
		}

		updates := map[string]interface{}{"status": models.RequestRejected}
		if approve {
			updates["status"] = models.RequestApproved
			if ticket.Category == models.TicketMaintenance {
				wo = &models.WorkOrder{
					Title:         "Ticket: " + ticket.Title,
					Description:   ticket.Description,
					Priority:      priority,
					Status:        models.WorkOrderInProgress,
					RequesterName: ticket.RequesterName,
				}
				if wo.Description == "" {
					wo.Description = ticket.Title
				}
				if err := createWorkOrder(tx, wo); err != nil {
					return err
				}
				updates["work_order_id"] = wo.ID
			}
		}

		result := tx.Model(&models.SupportTicket{}).
			Where("id = ? AND status = ?", id, models.RequestPending).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrRequestNotPending
		}
		return tx.First(&ticket, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Support ticket processed", zap.String("ticket_id", id), zap.Bool("approved", approve))
	s.bus.Publish(Event{Type: EventSupportTicketChanged, EntityID: id, Action: "processed"})
	if wo != nil {
		s.bus.Publish(Event{Type: EventWorkOrderChanged, EntityID: wo.ID, Action: "created"})
	}
	return &ticket, nil
}
