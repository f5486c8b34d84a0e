package controllers

import (
	"net/http"

	"github.com/dutyfinder/dutyfinder-api/middleware"
	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateWorkOrderRequest represents the new work order form
type CreateWorkOrderRequest struct {
	Title          string          `json:"title" binding:"required"`
	Description    string          `json:"description" binding:"required"`
	Priority       models.Priority `json:"priority" binding:"omitempty,priority"`
	RequesterName  string          `json:"requester_name"`
	EquipmentID    *string         `json:"equipment_id"`
	NeedsMaterials bool            `json:"needs_materials"`
}

// UpdateWorkOrderStatusRequest moves a work order to another status
type UpdateWorkOrderStatusRequest struct {
	Status models.WorkOrderStatus `json:"status" binding:"required,wostatus"`
	Notes  string                 `json:"notes"`
}

// ReopenWorkOrderRequest reopens a failed work order
type ReopenWorkOrderRequest struct {
	Notes          string `json:"notes" binding:"required"`
	NeedsMaterials bool   `json:"needs_materials"`
}

// MaterialLineRequest is one line of a material cart
type MaterialLineRequest struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,gt=0"`
}

// SubmitMaterialRequest is the cart a technician sends to the warehouse
type SubmitMaterialRequest struct {
	Items []MaterialLineRequest `json:"items" binding:"required,min=1,dive"`
}

// WorkOrderController serves the maintenance panel
type WorkOrderController struct {
	workOrders *services.WorkOrderService
	requests   *services.MaterialRequestService
	log        *zap.Logger
}

// NewWorkOrderController creates the controller
func NewWorkOrderController(svc *services.Services, log *zap.Logger) *WorkOrderController {
	return &WorkOrderController{workOrders: svc.WorkOrders, requests: svc.MaterialRequests, log: log}
}

// List handles GET /api/v1/work-orders
func (ctl *WorkOrderController) List(c *gin.Context) {
	page, limit := pageParams(c)
	orders, total, err := ctl.workOrders.List(c.Request.Context(), services.WorkOrderFilter{
		Tab:         c.Query("tab"),
		Status:      models.WorkOrderStatus(c.Query("status")),
		EquipmentID: c.Query("equipment_id"),
		Search:      c.Query("search"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondList(c, orders, page, limit, total)
}

// Create handles POST /api/v1/work-orders
func (ctl *WorkOrderController) Create(c *gin.Context) {
	var req CreateWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	requester := req.RequesterName
	if requester == "" {
		if claims, err := middleware.GetCustomClaims(c); err == nil {
			requester = claims.Name
		}
	}

	wo, err := ctl.workOrders.Create(c.Request.Context(), services.CreateWorkOrderInput{
		Title:          req.Title,
		Description:    req.Description,
		Priority:       req.Priority,
		RequesterName:  requester,
		EquipmentID:    req.EquipmentID,
		NeedsMaterials: req.NeedsMaterials,
	})
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, wo)
}

// Get handles GET /api/v1/work-orders/:id
func (ctl *WorkOrderController) Get(c *gin.Context) {
	wo, err := ctl.workOrders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, wo)
}

// UpdateStatus handles PATCH /api/v1/work-orders/:id/status
func (ctl *WorkOrderController) UpdateStatus(c *gin.Context) {
	var req UpdateWorkOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	wo, err := ctl.workOrders.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, req.Notes)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, wo)
}

// Reopen handles POST /api/v1/work-orders/:id/reopen
func (ctl *WorkOrderController) Reopen(c *gin.Context) {
	var req ReopenWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	wo, err := ctl.workOrders.Reopen(c.Request.Context(), c.Param("id"), req.Notes, req.NeedsMaterials)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, wo)
}

// SubmitMaterials handles POST /api/v1/work-orders/:id/material-requests
func (ctl *WorkOrderController) SubmitMaterials(c *gin.Context) {
	var req SubmitMaterialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	lines := make([]services.RequestLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, services.RequestLine{ItemID: item.ItemID, Quantity: item.Quantity})
	}

	mr, err := ctl.requests.Submit(c.Request.Context(), c.Param("id"), lines)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, mr)
}
