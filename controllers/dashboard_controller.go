package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DashboardController serves the home counters and the spreadsheet reports
type DashboardController struct {
	dashboard *services.DashboardService
	reports   *services.ReportService
	log       *zap.Logger
}

// NewDashboardController creates the controller
func NewDashboardController(svc *services.Services, log *zap.Logger) *DashboardController {
	return &DashboardController{dashboard: svc.Dashboard, reports: svc.Reports, log: log}
}

// Counters handles GET /api/v1/dashboard
func (ctl *DashboardController) Counters(c *gin.Context) {
	counters, err := ctl.dashboard.Counters(c.Request.Context())
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, counters)
}

// InventoryReport handles GET /api/v1/reports/inventory.xlsx
func (ctl *DashboardController) InventoryReport(c *gin.Context) {
	var buf bytes.Buffer
	if err := ctl.reports.WriteInventoryReport(c.Request.Context(), &buf); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	sendXLSX(c, "inventory", buf.Bytes())
}

// WorkOrderReport handles GET /api/v1/reports/work-orders.xlsx?from=&to=.
// Without a range it covers the last 30 days.
func (ctl *DashboardController) WorkOrderReport(c *gin.Context) {
	from, err := dateParam(c, "from", false)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	to, err := dateParam(c, "to", true)
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	end := time.Now()
	if to != nil {
		end = *to
	}
	start := end.AddDate(0, 0, -30)
	if from != nil {
		start = *from
	}
	if start.After(end) {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "from must not be after to")
		return
	}

	var buf bytes.Buffer
	if err := ctl.reports.WriteWorkOrderReport(c.Request.Context(), &buf, start, end); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	sendXLSX(c, "work-orders", buf.Bytes())
}

// PurchaseReport handles GET /api/v1/reports/purchases.xlsx
func (ctl *DashboardController) PurchaseReport(c *gin.Context) {
	var buf bytes.Buffer
	if err := ctl.reports.WritePurchaseReport(c.Request.Context(), &buf); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	sendXLSX(c, "purchases", buf.Bytes())
}

// sendXLSX buffers the workbook first so a failed report still gets a JSON error
func sendXLSX(c *gin.Context, name string, body []byte) {
	filename := fmt.Sprintf("%s-%s.xlsx", name, time.Now().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, body)
}
