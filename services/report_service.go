package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const reportDateFormat = "2006-01-02 15:04"

// ReportService renders XLSX spreadsheets for the warehouse and maintenance teams
type ReportService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewReportService creates the service
func NewReportService(db *gorm.DB, logger *zap.Logger) *ReportService {
	return &ReportService{db: db, logger: logger}
}

// WriteInventoryReport writes the stock position, flagging low stock rows
func (s *ReportService) WriteInventoryReport(ctx context.Context, w io.Writer) error {
	var items []models.InventoryItem
	if err := s.db.WithContext(ctx).Order("category ASC, name ASC").Find(&items).Error; err != nil {
		return err
	}

	headers := []interface{}{"Code", "Name", "Category", "Quantity", "Unit", "Min threshold", "Low stock"}
	rows := make([][]interface{}, 0, len(items))
	for _, item := range items {
		low := "NO"
		if item.IsLowStock() {
			low = "YES"
		}
		rows = append(rows, []interface{}{derefString(item.Code), item.Name, item.Category, item.Quantity, item.Unit, item.MinThreshold, low})
	}
	return writeSheet(w, "Inventory", headers, rows)
}

// WriteWorkOrderReport writes every work order created inside the range; zero times mean unbounded
func (s *ReportService) WriteWorkOrderReport(ctx context.Context, w io.Writer, from, to time.Time) error {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at <= ?", to)
	}
	var orders []models.WorkOrder
	if err := query.Find(&orders).Error; err != nil {
		return err
	}

	headers := []interface{}{"ID", "Title", "Priority", "Status", "Requester", "Material requests", "Created at"}
	rows := make([][]interface{}, 0, len(orders))
	for _, wo := range orders {
		rows = append(rows, []interface{}{wo.ID, wo.Title, string(wo.Priority), string(wo.Status), wo.RequesterName, len(wo.RequestIDs), wo.CreatedAt.Format(reportDateFormat)})
	}
	return writeSheet(w, "Work orders", headers, rows)
}

// WritePurchaseReport writes purchase orders with their totals
func (s *ReportService) WritePurchaseReport(ctx context.Context, w io.Writer) error {
	var orders []models.PurchaseOrder
	if err := s.db.WithContext(ctx).Preload("Items").Order("purchase_date DESC").Find(&orders).Error; err != nil {
		return err
	}

	headers := []interface{}{"Order number", "Supplier", "Status", "Purchase date", "Arrival date", "Invoice", "Lines", "Total"}
	rows := make([][]interface{}, 0, len(orders))
	for _, o := range orders {
		arrival := ""
		if o.ArrivalDate != nil {
			arrival = o.ArrivalDate.Format(reportDateFormat)
		}
		total, _ := o.ComputeTotal().Float64()
		rows = append(rows, []interface{}{o.OrderNumber, o.Supplier, string(o.Status), o.PurchaseDate.Format(reportDateFormat), arrival, derefString(o.InvoiceNumber), len(o.Items), total})
	}
	return writeSheet(w, "Purchases", headers, rows)
}

// writeSheet builds a single sheet workbook with a bold header row
func writeSheet(w io.Writer, sheet string, headers []interface{}, rows [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, style); err != nil {
		return err
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	return f.Write(w)
}
