package controllers

import (
	"net/http"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProcessRequest approves or rejects a pending request
type ProcessRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

// MaterialRequestController serves the warehouse approval queue
type MaterialRequestController struct {
	requests *services.MaterialRequestService
	log      *zap.Logger
}

// NewMaterialRequestController creates the controller
func NewMaterialRequestController(svc *services.Services, log *zap.Logger) *MaterialRequestController {
	return &MaterialRequestController{requests: svc.MaterialRequests, log: log}
}

// List handles GET /api/v1/material-requests
func (ctl *MaterialRequestController) List(c *gin.Context) {
	page, limit := pageParams(c)
	requests, total, err := ctl.requests.List(c.Request.Context(), services.MaterialRequestFilter{
		Status:      models.RequestStatus(c.Query("status")),
		WorkOrderID: c.Query("work_order_id"),
		Page:        page,
		Limit:       limit,
	})
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondList(c, requests, page, limit, total)
}

// Get handles GET /api/v1/material-requests/:id
func (ctl *MaterialRequestController) Get(c *gin.Context) {
	req, err := ctl.requests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, req)
}

// Process handles POST /api/v1/material-requests/:id/process
func (ctl *MaterialRequestController) Process(c *gin.Context) {
	var body ProcessRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBindError(c, err)
		return
	}
	req, err := ctl.requests.Process(c.Request.Context(), c.Param("id"), *body.Approved)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, req)
}
