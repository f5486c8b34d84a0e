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

// StockEntryInput is the provenance of an inventory increase
type StockEntryInput struct {
	PurchaseID      string
	InvoiceNumber   string
	NoInvoiceReason string
}

func (e StockEntryInput) validate() error {
	if utils.IsBlank(e.InvoiceNumber) && utils.IsBlank(e.NoInvoiceReason) {
		return invalid("invoice_number", "an invoice number or a reason for its absence is required")
	}
	return nil
}

func (e StockEntryInput) apply(log *models.StockEntryLog) {
	log.PurchaseID = e.PurchaseID
	if !utils.IsBlank(e.InvoiceNumber) {
		invoice := strings.TrimSpace(e.InvoiceNumber)
		log.InvoiceNumber = &invoice
		return
	}
	reason := strings.TrimSpace(e.NoInvoiceReason)
	log.NoInvoiceReason = &reason
}

// InventoryFilter narrows List
type InventoryFilter struct {
	Search   string
	Category string
	SectorID string
	LowStock bool
	Page     int
	Limit    int
}

// LogFilter narrows the usage and stock entry audit lists
type LogFilter struct {
	ItemID      string
	WorkOrderID string
	From        *time.Time
	To          *time.Time
	Page        int
	Limit       int
}

// UpdateItemInput holds the editable fields of an inventory item; nil fields are left as is
type UpdateItemInput struct {
	Code         *string
	Name         *string
	Category     *string
	Quantity     *int
	Unit         *string
	MinThreshold *int
	SectorID     *string
}

// InventoryService manages stock items and their audit logs
type InventoryService struct {
	db     *gorm.DB
	bus    *EventBus
	logger *zap.Logger
}

// NewInventoryService creates the service
func NewInventoryService(db *gorm.DB, bus *EventBus, logger *zap.Logger) *InventoryService {
	return &InventoryService{db: db, bus: bus, logger: logger}
}

// List returns one page of items ordered by name
func (s *InventoryService) List(ctx context.Context, f InventoryFilter) ([]models.InventoryItem, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.InventoryItem{})
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", like, like)
	}
	if f.Category != "" {
		query = query.Where("LOWER(category) = ?", strings.ToLower(f.Category))
	}
	if f.SectorID != "" {
		query = query.Where("sector_id = ?", f.SectorID)
	}
	if f.LowStock {
		query = query.Where("quantity <= min_threshold")
	}

	var items []models.InventoryItem
	total, err := listPage(query, f.Page, f.Limit, "name ASC", &items)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Get loads one item
func (s *InventoryService) Get(ctx context.Context, id string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("INVENTORY_ITEM", id)
		}
		return nil, err
	}
	return &item, nil
}

// Create adds a new item and logs its initial quantity
func (s *InventoryService) Create(ctx context.Context, item *models.InventoryItem, entry StockEntryInput) error {
	if utils.IsBlank(item.Name) {
		return invalid("name", "is required")
	}
	if item.Quantity < 0 {
		return invalid("quantity", "must not be negative")
	}
	if err := entry.validate(); err != nil {
		return err
	}
	item.ID = ""
	item.Name = strings.TrimSpace(item.Name)
	if item.Unit == "" {
		item.Unit = "un"
	}
	if item.Code != nil && utils.IsBlank(*item.Code) {
		item.Code = nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(item).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: code %s", ErrConflict, derefString(item.Code))
			}
			return err
		}
		log := models.StockEntryLog{
			ItemID:        item.ID,
			ItemName:      item.Name,
			QuantityAdded: item.Quantity,
			Type:          models.StockEntryInitial,
		}
		entry.apply(&log)
		return tx.Create(&log).Error
	})
	if err != nil {
		return err
	}

	s.logger.Info("Inventory item created", zap.String("item_id", item.ID), zap.String("name", item.Name), zap.Int("quantity", item.Quantity))
	s.bus.Publish(Event{Type: EventInventoryChanged, EntityID: item.ID, Action: "created"})
	return nil
}

// Update edits an item in place
func (s *InventoryService) Update(ctx context.Context, id string, in UpdateItemInput) (*models.InventoryItem, error) {
	updates := map[string]interface{}{}
	if in.Code != nil {
		if utils.IsBlank(*in.Code) {
			updates["code"] = nil
		} else {
			updates["code"] = strings.TrimSpace(*in.Code)
		}
	}
	if in.Name != nil {
		if utils.IsBlank(*in.Name) {
			return nil, invalid("name", "must not be blank")
		}
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.Quantity != nil {
		if *in.Quantity < 0 {
			return nil, invalid("quantity", "must not be negative")
		}
		updates["quantity"] = *in.Quantity
	}
	if in.Unit != nil {
		updates["unit"] = *in.Unit
	}
	if in.MinThreshold != nil {
		if *in.MinThreshold < 0 {
			return nil, invalid("min_threshold", "must not be negative")
		}
		updates["min_threshold"] = *in.MinThreshold
	}
	if in.SectorID != nil {
		if *in.SectorID == "" {
			updates["sector_id"] = nil
		} else {
			updates["sector_id"] = *in.SectorID
		}
	}

	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return nil, fmt.Errorf("%w: code already used by another item", ErrConflict)
			}
			return nil, err
		}
	}

	item, err = s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(Event{Type: EventInventoryChanged, EntityID: id, Action: "updated"})
	return item, nil
}

// Delete removes an item; its audit logs are kept
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.InventoryItem{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound("INVENTORY_ITEM", id)
	}
	s.logger.Info("Inventory item deleted", zap.String("item_id", id))
	s.bus.Publish(Event{Type: EventInventoryChanged, EntityID: id, Action: "deleted"})
	return nil
}

// Restock adds quantity to an existing item and logs a RESTOCK entry
func (s *InventoryService) Restock(ctx context.Context, id string, quantity int, entry StockEntryInput) (*models.InventoryItem, error) {
	if quantity <= 0 {
		return nil, invalid("quantity", "must be greater than 0")
	}
	if err := entry.validate(); err != nil {
		return nil, err
	}

	var item models.InventoryItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("INVENTORY_ITEM", id)
			}
			return err
		}
		if err := creditStock(tx, &item, quantity); err != nil {
			return err
		}
		log := models.StockEntryLog{
			ItemID:        item.ID,
			ItemName:      item.Name,
			QuantityAdded: quantity,
			Type:          models.StockEntryRestock,
		}
		entry.apply(&log)
		return tx.Create(&log).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Inventory item restocked", zap.String("item_id", id), zap.Int("added", quantity), zap.Int("quantity", item.Quantity))
	s.bus.Publish(Event{Type: EventInventoryChanged, EntityID: id, Action: "restocked"})
	return &item, nil
}

// creditStock increments an item atomically and refreshes item.Quantity
func creditStock(tx *gorm.DB, item *models.InventoryItem, quantity int) error {
	if err := tx.Model(&models.InventoryItem{}).Where("id = ?", item.ID).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", quantity)).Error; err != nil {
		return err
	}
	return tx.Select("quantity").First(item, "id = ?", item.ID).Error
}

// UsageLogs lists inventory decreases, newest first
func (s *InventoryService) UsageLogs(ctx context.Context, f LogFilter) ([]models.UsageLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.UsageLog{})
	if f.ItemID != "" {
		query = query.Where("item_id = ?", f.ItemID)
	}
	if f.WorkOrderID != "" {
		query = query.Where("work_order_id = ?", f.WorkOrderID)
	}
	query = dateRange(query, f)

	var logs []models.UsageLog
	total, err := listPage(query, f.Page, f.Limit, "date DESC", &logs)
	if err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}

// StockEntries lists inventory increases, newest first
func (s *InventoryService) StockEntries(ctx context.Context, f LogFilter) ([]models.StockEntryLog, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.StockEntryLog{})
	if f.ItemID != "" {
		query = query.Where("item_id = ?", f.ItemID)
	}
	query = dateRange(query, f)

	var entries []models.StockEntryLog
	total, err := listPage(query, f.Page, f.Limit, "date DESC", &entries)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Categories returns the distinct categories in use
func (s *InventoryService) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := s.db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("category <> ''").
		Distinct().Order("category").Pluck("category", &categories).Error
	return categories, err
}

func dateRange(query *gorm.DB, f LogFilter) *gorm.DB {
	if f.From != nil {
		query = query.Where("date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("date <= ?", *f.To)
	}
	return query
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
