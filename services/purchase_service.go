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
	"gorm.io/gorm/clause"
)

// PurchaseFilter narrows List
type PurchaseFilter struct {
	Status models.PurchaseStatus
	Search string
	Page   int
	Limit  int
}

const orderNumberAttempts = 3

// PurchaseService covers purchasing, gatehouse arrival and warehouse reception
type PurchaseService struct {
	db     *gorm.DB
	bus    *EventBus
	logger *zap.Logger
	now    func() time.Time
}

// NewPurchaseService creates the service
func NewPurchaseService(db *gorm.DB, bus *EventBus, logger *zap.Logger) *PurchaseService {
	return &PurchaseService{db: db, bus: bus, logger: logger, now: time.Now}
}

// Create places an order in ORDERED status, numbering it when no number was given
func (s *PurchaseService) Create(ctx context.Context, order *models.PurchaseOrder) error {
	if utils.IsBlank(order.Supplier) {
		return invalid("supplier", "is required")
	}
	if len(order.Items) == 0 {
		return invalid("items", "at least one item is required")
	}
	for i, item := range order.Items {
		if utils.IsBlank(item.Name) {
			return invalid(fmt.Sprintf("items[%d].name", i), "is required")
		}
		if item.Quantity <= 0 {
			return invalid(fmt.Sprintf("items[%d].quantity", i), "must be greater than 0")
		}
		if item.UnitCost.IsNegative() {
			return invalid(fmt.Sprintf("items[%d].unit_cost", i), "must not be negative")
		}
	}

	order.ID = ""
	order.Status = models.PurchaseOrdered
	order.ArrivalDate = nil
	order.CompletionDate = nil
	if order.PurchaseDate.IsZero() {
		order.PurchaseDate = s.now()
	}
	for i := range order.Items {
		order.Items[i].ID = ""
		order.Items[i].Name = strings.TrimSpace(order.Items[i].Name)
	}

	generated := utils.IsBlank(order.OrderNumber)
	var err error
	for attempt := 1; attempt <= orderNumberAttempts; attempt++ {
		if generated {
			order.OrderNumber = ""
		}
		err = s.insertOrder(ctx, order)
		// a concurrent create took the generated number; number again in a fresh transaction
		if !generated || !errors.Is(err, ErrConflict) {
			break
		}
		s.logger.Warn("Generated order number already taken, retrying",
			zap.String("order_number", order.OrderNumber),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		return err
	}
	order.Total = order.ComputeTotal()

	s.logger.Info("Purchase order created",
		zap.String("purchase_order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.Total.StringFixed(2)),
	)
	s.bus.Publish(Event{Type: EventPurchaseOrderChanged, EntityID: order.ID, Action: "created"})
	return nil
}

func (s *PurchaseService) insertOrder(ctx context.Context, order *models.PurchaseOrder) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if utils.IsBlank(order.OrderNumber) {
			number, err := s.nextOrderNumber(tx)
			if err != nil {
				return err
			}
			order.OrderNumber = number
		}
		if err := tx.Create(order).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: order number %s", ErrConflict, order.OrderNumber)
			}
			return err
		}
		return nil
	})
}

// nextOrderNumber returns PO-YYYYMMDD#### with a per day sequence
func (s *PurchaseService) nextOrderNumber(tx *gorm.DB) (string, error) {
	prefix := "PO-" + s.now().Format("20060102")
	var count int64
	if err := tx.Model(&models.PurchaseOrder{}).Where("order_number LIKE ?", prefix+"%").Count(&count).Error; err != nil {
		return "", err
	}
	for seq := count + 1; ; seq++ {
		candidate := fmt.Sprintf("%s%04d", prefix, seq)
		var exists int64
		if err := tx.Model(&models.PurchaseOrder{}).Where("order_number = ?", candidate).Count(&exists).Error; err != nil {
			return "", err
		}
		if exists == 0 {
			return candidate, nil
		}
	}
}

// Get loads an order with its items
func (s *PurchaseService) Get(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	return findPurchaseOrder(s.db.WithContext(ctx), id)
}

func findPurchaseOrder(db *gorm.DB, id string) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := db.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("PURCHASE_ORDER", id)
		}
		return nil, err
	}
	order.Total = order.ComputeTotal()
	return &order, nil
}

// List returns one page of orders, newest purchase first
func (s *PurchaseService) List(ctx context.Context, f PurchaseFilter) ([]models.PurchaseOrder, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.PurchaseOrder{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		query = query.Where("LOWER(order_number) LIKE ? OR LOWER(supplier) LIKE ?", like, like)
	}

	var orders []models.PurchaseOrder
	total, err := listPage(query, f.Page, f.Limit, "purchase_date DESC, created_at DESC", &orders, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Items")
	})
	if err != nil {
		return nil, 0, err
	}
	for i := range orders {
		orders[i].Total = orders[i].ComputeTotal()
	}
	return orders, total, nil
}

// ConfirmArrival is the gatehouse check-in: ORDERED becomes ARRIVED
func (s *PurchaseService) ConfirmArrival(ctx context.Context, id string) (*models.PurchaseOrder, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	switch order.Status {
	case models.PurchaseArrived:
		return order, nil
	case models.PurchaseStocked:
		return nil, fmt.Errorf("%w: order %s is already stocked", ErrInvalidTransition, order.OrderNumber)
	}
	return s.UpdateStatus(ctx, id, models.PurchaseArrived)
}

// UpdateStatus moves an order between ORDERED and ARRIVED; the arrival date is
// stamped when moving to ARRIVED. STOCKED is only reachable through CompleteReception.
func (s *PurchaseService) UpdateStatus(ctx context.Context, id string, status models.PurchaseStatus) (*models.PurchaseOrder, error) {
	if !IsValidPurchaseStatus(status) {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	if status == models.PurchaseStocked {
		return nil, fmt.Errorf("%w: complete the reception to stock an order", ErrInvalidTransition)
	}

	var order *models.PurchaseOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findPurchaseOrder(tx, id)
		if err != nil {
			return err
		}
		if current.Status == models.PurchaseStocked {
			return fmt.Errorf("%w: order %s is already stocked", ErrInvalidTransition, current.OrderNumber)
		}
		updates := map[string]interface{}{"status": status}
		if status == models.PurchaseArrived {
			updates["arrival_date"] = s.now()
		} else {
			updates["arrival_date"] = nil
		}
		if err := tx.Model(current).Updates(updates).Error; err != nil {
			return err
		}
		order, err = findPurchaseOrder(tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Purchase order status updated", zap.String("purchase_order_id", id), zap.String("status", string(status)))
	s.bus.Publish(Event{Type: EventPurchaseOrderChanged, EntityID: id, Action: "status_changed"})
	return order, nil
}

// UpdateInvoice records the supplier invoice number once it is known
func (s *PurchaseService) UpdateInvoice(ctx context.Context, id, invoiceNumber string) (*models.PurchaseOrder, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	var value interface{}
	if !utils.IsBlank(invoiceNumber) {
		value = strings.TrimSpace(invoiceNumber)
	}
	if err := s.db.WithContext(ctx).Model(order).Update("invoice_number", value).Error; err != nil {
		return nil, err
	}
	s.bus.Publish(Event{Type: EventPurchaseOrderChanged, EntityID: id, Action: "updated"})
	return s.Get(ctx, id)
}

// Delete removes an order that has not been stocked yet
func (s *PurchaseService) Delete(ctx context.Context, id string) error {
	order, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if order.Status == models.PurchaseStocked {
		return fmt.Errorf("%w: stocked orders are part of the inventory audit trail", ErrInvalidTransition)
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("purchase_order_id = ?", id).Delete(&models.PurchaseOrderItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PurchaseOrder{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	s.bus.Publish(Event{Type: EventPurchaseOrderChanged, EntityID: id, Action: "deleted"})
	return nil
}

// ReceptionResult describes what CompleteReception did to the inventory
type ReceptionResult struct {
	Order        *models.PurchaseOrder  `json:"order"`
	Entries      []models.StockEntryLog `json:"entries"`
	AlreadyDone  bool                   `json:"already_stocked"`
	CreatedItems int                    `json:"created_items"`
}

// CompleteReception reconciles an ARRIVED order into inventory and marks it STOCKED.
// Calling it again on a STOCKED order changes nothing.
func (s *PurchaseService) CompleteReception(ctx context.Context, id string) (*ReceptionResult, error) {
	result := &ReceptionResult{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.PurchaseOrder
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("PURCHASE_ORDER", id)
			}
			return err
		}

		switch order.Status {
		case models.PurchaseStocked:
			result.AlreadyDone = true
			return nil
		case models.PurchaseOrdered:
			return ErrNotArrived
		}

		if err := tx.Where("purchase_order_id = ?", order.ID).Find(&order.Items).Error; err != nil {
			return err
		}

		now := s.now()
		for _, line := range order.Items {
			entry, created, err := receiveLine(tx, &order, line, now)
			if err != nil {
				return err
			}
			if created {
				result.CreatedItems++
			}
			result.Entries = append(result.Entries, *entry)
		}

		res := tx.Model(&models.PurchaseOrder{}).
			Where("id = ? AND status = ?", order.ID, models.PurchaseArrived).
			Updates(map[string]interface{}{
				"status":          models.PurchaseStocked,
				"completion_date": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %s changed during reception", ErrInvalidTransition, order.OrderNumber)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Order = order
	if result.AlreadyDone {
		return result, nil
	}

	s.logger.Info("Purchase order stocked",
		zap.String("purchase_order_id", id),
		zap.String("order_number", order.OrderNumber),
		zap.Int("lines", len(result.Entries)),
		zap.Int("created_items", result.CreatedItems),
	)
	s.bus.Publish(Event{Type: EventPurchaseOrderChanged, EntityID: id, Action: "stocked"})
	s.bus.Publish(Event{Type: EventInventoryChanged, Action: "received"})
	return result, nil
}

// receiveLine credits one purchased line to its stock keeping unit, creating it when none matches
func receiveLine(tx *gorm.DB, order *models.PurchaseOrder, line models.PurchaseOrderItem, now time.Time) (*models.StockEntryLog, bool, error) {
	item, err := matchInventoryItem(tx, line)
	if err != nil {
		return nil, false, err
	}

	entry := &models.StockEntryLog{
		ItemName:      line.Name,
		QuantityAdded: line.Quantity,
		PurchaseID:    order.OrderNumber,
		InvoiceNumber: order.InvoiceNumber,
		Date:          now,
	}

	created := false
	if item != nil {
		if err := creditStock(tx, item, line.Quantity); err != nil {
			return nil, false, err
		}
		entry.Type = models.StockEntryRestock
	} else {
		item = &models.InventoryItem{
			Code:         line.Code,
			Name:         line.Name,
			Category:     line.Category,
			Quantity:     line.Quantity,
			Unit:         line.Unit,
			MinThreshold: models.DefaultMinThreshold,
		}
		if item.Unit == "" {
			item.Unit = "un"
		}
		if item.Code != nil && utils.IsBlank(*item.Code) {
			item.Code = nil
		}
		if err := tx.Create(item).Error; err != nil {
			return nil, false, err
		}
		entry.Type = models.StockEntryInitial
		created = true
	}

	entry.ItemID = item.ID
	if err := tx.Create(entry).Error; err != nil {
		return nil, false, err
	}
	if line.InventoryItemID == nil || *line.InventoryItemID != item.ID {
		if err := tx.Model(&models.PurchaseOrderItem{}).Where("id = ?", line.ID).
			Update("inventory_item_id", item.ID).Error; err != nil {
			return nil, false, err
		}
	}
	return entry, created, nil
}

// matchInventoryItem resolves the stock keeping unit of a purchased line: explicit
// inventory id first, then SKU code, then trimmed case-insensitive name.
func matchInventoryItem(tx *gorm.DB, line models.PurchaseOrderItem) (*models.InventoryItem, error) {
	var item models.InventoryItem

	if line.InventoryItemID != nil && *line.InventoryItemID != "" {
		err := tx.First(&item, "id = ?", *line.InventoryItemID).Error
		if err == nil {
			return &item, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	if line.Code != nil && !utils.IsBlank(*line.Code) {
		err := tx.First(&item, "code = ?", strings.TrimSpace(*line.Code)).Error
		if err == nil {
			return &item, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	// fold names in Go; sqlite LOWER and TRIM are ASCII only
	key := utils.NormalizeName(line.Name)
	var candidates []models.InventoryItem
	if err := tx.Select("id", "name").Order("created_at ASC").Find(&candidates).Error; err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		if utils.NormalizeName(candidate.Name) != key {
			continue
		}
		var match models.InventoryItem
		if err := tx.First(&match, "id = ?", candidate.ID).Error; err != nil {
			return nil, err
		}
		return &match, nil
	}
	return nil, nil
}

// IsValidPurchaseStatus reports whether status is ORDERED, ARRIVED or STOCKED
func IsValidPurchaseStatus(status models.PurchaseStatus) bool {
	switch status {
	case models.PurchaseOrdered, models.PurchaseArrived, models.PurchaseStocked:
		return true
	}
	return false
}
