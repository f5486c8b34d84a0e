package controllers

import (
	"net/http"

	"github.com/dutyfinder/dutyfinder-api/middleware"
	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateResourceRequest asks the warehouse for an item it does not stock
type CreateResourceRequest struct {
	ItemName   string `json:"item_name" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required,gt=0"`
	Brand      string `json:"brand"`
	Sector     string `json:"sector"`
	CostCenter string `json:"cost_center"`
}

// CreateTicketRequest opens a maintenance or IT ticket
type CreateTicketRequest struct {
	Category    models.TicketCategory `json:"category" binding:"required,oneof=MAINTENANCE IT"`
	Title       string                `json:"title" binding:"required"`
	Description string                `json:"description"`
	Sector      string                `json:"sector"`
}

// ProcessTicketRequest approves or rejects a ticket
type ProcessTicketRequest struct {
	Approved *bool           `json:"approved" binding:"required"`
	Priority models.Priority `json:"priority" binding:"omitempty,priority"`
}

// RequestController serves resource requests and support tickets
type RequestController struct {
	resources *services.ResourceRequestService
	tickets   *services.SupportTicketService
	log       *zap.Logger
}

// NewRequestController creates the controller
func NewRequestController(svc *services.Services, log *zap.Logger) *RequestController {
	return &RequestController{resources: svc.ResourceRequests, tickets: svc.SupportTickets, log: log}
}

// CreateResource handles POST /api/v1/resource-requests
func (ctl *RequestController) CreateResource(c *gin.Context) {
	var req CreateResourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	claims, err := middleware.GetCustomClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	request := &models.ResourceRequest{
		ItemName:      req.ItemName,
		Quantity:      req.Quantity,
		Brand:         req.Brand,
		Sector:        req.Sector,
		CostCenter:    req.CostCenter,
		RequesterName: claims.Name,
	}
	if err := ctl.resources.Create(c.Request.Context(), request); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, request)
}

// ListResources handles GET /api/v1/resource-requests
func (ctl *RequestController) ListResources(c *gin.Context) {
	page, limit := pageParams(c)
	requests, total, err := ctl.resources.List(c.Request.Context(), services.RequestFilter{
		Status: c.Query("status"),
		Sector: c.Query("sector"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondList(c, requests, page, limit, total)
}

// GetResource handles GET /api/v1/resource-requests/:id
func (ctl *RequestController) GetResource(c *gin.Context) {
	request, err := ctl.resources.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, request)
}

// ProcessResource handles POST /api/v1/resource-requests/:id/process
func (ctl *RequestController) ProcessResource(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	approver := ""
	if claims, err := middleware.GetCustomClaims(c); err == nil {
		approver = claims.Name
	}
	request, err := ctl.resources.Process(c.Request.Context(), c.Param("id"), *req.Approved, approver)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, request)
}

// CreateTicket handles POST /api/v1/support-tickets
func (ctl *RequestController) CreateTicket(c *gin.Context) {
	var req CreateTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	claims, err := middleware.GetCustomClaims(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	userID, _ := middleware.GetUserID(c)

	ticket := &models.SupportTicket{
		Category:      req.Category,
		Title:         req.Title,
		Description:   req.Description,
		Sector:        req.Sector,
		RequesterID:   userID,
		RequesterName: claims.Name,
	}
	if err := ctl.tickets.Create(c.Request.Context(), ticket); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, ticket)
}

// ListTickets handles GET /api/v1/support-tickets. Plain users only see their own tickets.
func (ctl *RequestController) ListTickets(c *gin.Context) {
	page, limit := pageParams(c)
	filter := services.RequestFilter{
		Status:   c.Query("status"),
		Category: models.TicketCategory(c.Query("category")),
		Page:     page,
		Limit:    limit,
	}
	if claims, err := middleware.GetCustomClaims(c); err == nil && models.Role(claims.Role) == models.RoleUser {
		filter.RequesterID, _ = middleware.GetUserID(c)
	}

	tickets, total, err := ctl.tickets.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondList(c, tickets, page, limit, total)
}

// GetTicket handles GET /api/v1/support-tickets/:id
func (ctl *RequestController) GetTicket(c *gin.Context) {
	ticket, err := ctl.tickets.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	if claims, err := middleware.GetCustomClaims(c); err == nil && models.Role(claims.Role) == models.RoleUser {
		userID, _ := middleware.GetUserID(c)
		if ticket.RequesterID != userID {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "You can only view your own tickets")
			return
		}
	}
	respondOK(c, http.StatusOK, ticket)
}

// ProcessTicket handles POST /api/v1/support-tickets/:id/process
func (ctl *RequestController) ProcessTicket(c *gin.Context) {
	var req ProcessTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ticket, err := ctl.tickets.Process(c.Request.Context(), c.Param("id"), *req.Approved, req.Priority)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, ticket)
}
