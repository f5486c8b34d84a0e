package controllers

import (
	"net/http"
	"time"

	"github.com/dutyfinder/dutyfinder-api/middleware"
	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PurchaseItemRequest is one line of a purchase order
type PurchaseItemRequest struct {
	InventoryItemID *string         `json:"inventory_item_id"`
	Code            *string         `json:"code"`
	Name            string          `json:"name" binding:"required"`
	Quantity        int             `json:"quantity" binding:"required,gt=0"`
	Unit            string          `json:"unit"`
	Category        string          `json:"category"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
}

// CreatePurchaseRequest registers a purchase order
type CreatePurchaseRequest struct {
	OrderNumber   string                `json:"order_number"`
	InvoiceNumber *string               `json:"invoice_number"`
	Supplier      string                `json:"supplier" binding:"required"`
	PurchaseDate  *time.Time            `json:"purchase_date"`
	Notes         *string               `json:"notes"`
	Items         []PurchaseItemRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdatePurchaseStatusRequest moves a purchase order along its lifecycle
type UpdatePurchaseStatusRequest struct {
	Status models.PurchaseStatus `json:"status" binding:"required,purchasestatus"`
}

// UpdateInvoiceRequest records the supplier invoice
type UpdateInvoiceRequest struct {
	InvoiceNumber string `json:"invoice_number" binding:"required"`
}

// PurchaseController serves purchasing, gatehouse and reception
type PurchaseController struct {
	purchases *services.PurchaseService
	log       *zap.Logger
}

// NewPurchaseController creates the controller
func NewPurchaseController(svc *services.Services, log *zap.Logger) *PurchaseController {
	return &PurchaseController{purchases: svc.Purchases, log: log}
}

// List handles GET /api/v1/purchases
func (ctl *PurchaseController) List(c *gin.Context) {
	page, limit := pageParams(c)
	orders, total, err := ctl.purchases.List(c.Request.Context(), services.PurchaseFilter{
		Status: models.PurchaseStatus(c.Query("status")),
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondList(c, orders, page, limit, total)
}

// Create handles POST /api/v1/purchases
func (ctl *PurchaseController) Create(c *gin.Context) {
	var req CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order := &models.PurchaseOrder{
		OrderNumber:   req.OrderNumber,
		InvoiceNumber: req.InvoiceNumber,
		Supplier:      req.Supplier,
		Notes:         req.Notes,
	}
	if req.PurchaseDate != nil {
		order.PurchaseDate = *req.PurchaseDate
	}
	if claims, err := middleware.GetCustomClaims(c); err == nil {
		order.PurchaserName = claims.Name
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, models.PurchaseOrderItem{
			InventoryItemID: item.InventoryItemID,
			Code:            item.Code,
			Name:            item.Name,
			Quantity:        item.Quantity,
			Unit:            item.Unit,
			Category:        item.Category,
			UnitCost:        item.UnitCost,
		})
	}

	if err := ctl.purchases.Create(c.Request.Context(), order); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, order)
}

// Get handles GET /api/v1/purchases/:id
func (ctl *PurchaseController) Get(c *gin.Context) {
	order, err := ctl.purchases.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// Delete handles DELETE /api/v1/purchases/:id
func (ctl *PurchaseController) Delete(c *gin.Context) {
	if err := ctl.purchases.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Purchase order deleted"})
}

// UpdateStatus handles PATCH /api/v1/purchases/:id/status
func (ctl *PurchaseController) UpdateStatus(c *gin.Context) {
	var req UpdatePurchaseStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := ctl.purchases.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// UpdateInvoice handles PATCH /api/v1/purchases/:id/invoice
func (ctl *PurchaseController) UpdateInvoice(c *gin.Context) {
	var req UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	order, err := ctl.purchases.UpdateInvoice(c.Request.Context(), c.Param("id"), req.InvoiceNumber)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// ConfirmArrival handles POST /api/v1/purchases/:id/arrival
func (ctl *PurchaseController) ConfirmArrival(c *gin.Context) {
	order, err := ctl.purchases.ConfirmArrival(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, order)
}

// CompleteReception handles POST /api/v1/purchases/:id/reception
func (ctl *PurchaseController) CompleteReception(c *gin.Context) {
	result, err := ctl.purchases.CompleteReception(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, result)
}
