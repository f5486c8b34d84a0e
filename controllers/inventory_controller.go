package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// StockEntryRequest carries the provenance of incoming stock
type StockEntryRequest struct {
	PurchaseID      string `json:"purchase_id"`
	InvoiceNumber   string `json:"invoice_number"`
	NoInvoiceReason string `json:"no_invoice_reason"`
}

func (r StockEntryRequest) input() services.StockEntryInput {
	return services.StockEntryInput{
		PurchaseID:      r.PurchaseID,
		InvoiceNumber:   r.InvoiceNumber,
		NoInvoiceReason: r.NoInvoiceReason,
	}
}

// CreateItemRequest registers a new stock item
type CreateItemRequest struct {
	Code         *string `json:"code"`
	Name         string  `json:"name" binding:"required"`
	Category     string  `json:"category"`
	Quantity     int     `json:"quantity" binding:"gte=0"`
	Unit         string  `json:"unit"`
	MinThreshold int     `json:"min_threshold" binding:"gte=0"`
	SectorID     *string `json:"sector_id"`
	StockEntryRequest
}

// UpdateItemRequest edits an item; absent fields stay untouched
type UpdateItemRequest struct {
	Code         *string `json:"code"`
	Name         *string `json:"name" binding:"omitempty,min=1"`
	Category     *string `json:"category"`
	Quantity     *int    `json:"quantity" binding:"omitempty,gte=0"`
	Unit         *string `json:"unit"`
	MinThreshold *int    `json:"min_threshold" binding:"omitempty,gte=0"`
	SectorID     *string `json:"sector_id"`
}

// RestockRequest adds stock to an existing item
type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
	StockEntryRequest
}

// SuggestRequest asks for materials matching a problem description
type SuggestRequest struct {
	Description string `json:"description" binding:"required"`
}

// InventoryController serves the warehouse stock screens
type InventoryController struct {
	inventory *services.InventoryService
	log       *zap.Logger
}

// NewInventoryController creates the controller
func NewInventoryController(svc *services.Services, log *zap.Logger) *InventoryController {
	return &InventoryController{inventory: svc.Inventory, log: log}
}

// List handles GET /api/v1/inventory
func (ctl *InventoryController) List(c *gin.Context) {
	page, limit := pageParams(c)
	lowStock, _ := strconv.ParseBool(c.Query("low_stock"))
	items, total, err := ctl.inventory.List(c.Request.Context(), services.InventoryFilter{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		SectorID: c.Query("sector_id"),
		LowStock: lowStock,
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondList(c, items, page, limit, total)
}

// Create handles POST /api/v1/inventory
func (ctl *InventoryController) Create(c *gin.Context) {
	var req CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item := &models.InventoryItem{
		Code:         req.Code,
		Name:         req.Name,
		Category:     req.Category,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		MinThreshold: req.MinThreshold,
		SectorID:     req.SectorID,
	}
	if err := ctl.inventory.Create(c.Request.Context(), item, req.input()); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, item)
}

// Get handles GET /api/v1/inventory/:id
func (ctl *InventoryController) Get(c *gin.Context) {
	item, err := ctl.inventory.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

// Update handles PATCH /api/v1/inventory/:id
func (ctl *InventoryController) Update(c *gin.Context) {
	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	item, err := ctl.inventory.Update(c.Request.Context(), c.Param("id"), services.UpdateItemInput{
		Code:         req.Code,
		Name:         req.Name,
		Category:     req.Category,
		Quantity:     req.Quantity,
		Unit:         req.Unit,
		MinThreshold: req.MinThreshold,
		SectorID:     req.SectorID,
	})
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

// Delete handles DELETE /api/v1/inventory/:id
func (ctl *InventoryController) Delete(c *gin.Context) {
	if err := ctl.inventory.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Item deleted"})
}

// Restock handles POST /api/v1/inventory/:id/restock
func (ctl *InventoryController) Restock(c *gin.Context) {
	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	item, err := ctl.inventory.Restock(c.Request.Context(), c.Param("id"), req.Quantity, req.input())
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, item)
}

// Categories handles GET /api/v1/inventory/categories
func (ctl *InventoryController) Categories(c *gin.Context) {
	categories, err := ctl.inventory.Categories(c.Request.Context())
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, categories)
}

// UsageLogs handles GET /api/v1/inventory/usage-logs
func (ctl *InventoryController) UsageLogs(c *gin.Context) {
	filter, ok := logFilter(c)
	if !ok {
		return
	}
	logs, total, err := ctl.inventory.UsageLogs(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondList(c, logs, filter.Page, filter.Limit, total)
}

// StockEntries handles GET /api/v1/inventory/stock-entries
func (ctl *InventoryController) StockEntries(c *gin.Context) {
	filter, ok := logFilter(c)
	if !ok {
		return
	}
	entries, total, err := ctl.inventory.StockEntries(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondList(c, entries, filter.Page, filter.Limit, total)
}

// Suggest handles POST /api/v1/inventory/suggestions
func (ctl *InventoryController) Suggest(c *gin.Context) {
	var req SuggestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	suggestions, err := ctl.inventory.SuggestMaterials(c.Request.Context(), req.Description)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, suggestions)
}

func logFilter(c *gin.Context) (services.LogFilter, bool) {
	page, limit := pageParams(c)
	filter := services.LogFilter{
		ItemID:      c.Query("item_id"),
		WorkOrderID: c.Query("work_order_id"),
		Page:        page,
		Limit:       limit,
	}
	var err error
	if filter.From, err = dateParam(c, "from", false); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return filter, false
	}
	if filter.To, err = dateParam(c, "to", true); err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return filter, false
	}
	return filter, true
}

// dateParam accepts RFC 3339 or YYYY-MM-DD. A bare date used as an upper
// bound covers the whole day.
func dateParam(c *gin.Context, name string, endOfDay bool) (*time.Time, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s date %q, expected YYYY-MM-DD", name, value)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
