package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func readSheet(t *testing.T, data []byte, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestInventoryReport(t *testing.T) {
	env := newTestEnv(t)
	seedItem(t, env.db, "Washer", 2, 5)
	seedItem(t, env.db, "Nut", 100, 5)

	var buf bytes.Buffer
	require.NoError(t, env.svc.Reports.WriteInventoryReport(context.Background(), &buf))

	rows := readSheet(t, buf.Bytes(), "Inventory")
	require.Len(t, rows, 3)
	assert.Equal(t, "Name", rows[0][1])
	assert.Equal(t, "Nut", rows[1][1])
	assert.Equal(t, "NO", rows[1][6])
	assert.Equal(t, "Washer", rows[2][1])
	assert.Equal(t, "YES", rows[2][6])
}

func TestWorkOrderReportRange(t *testing.T) {
	env := newTestEnv(t)
	seedWorkOrder(t, env.svc, false)

	var all bytes.Buffer
	require.NoError(t, env.svc.Reports.WriteWorkOrderReport(context.Background(), &all, time.Time{}, time.Time{}))
	assert.Len(t, readSheet(t, all.Bytes(), "Work orders"), 2)

	var future bytes.Buffer
	require.NoError(t, env.svc.Reports.WriteWorkOrderReport(context.Background(), &future, time.Now().Add(time.Hour), time.Time{}))
	assert.Len(t, readSheet(t, future.Bytes(), "Work orders"), 1)
}

func TestPurchaseReport(t *testing.T) {
	env := newTestEnv(t)
	order := newOrder(models.PurchaseOrderItem{Name: "Cable", Quantity: 4, UnitCost: decimal.RequireFromString("2.25")})
	require.NoError(t, env.svc.Purchases.Create(context.Background(), order))

	var buf bytes.Buffer
	require.NoError(t, env.svc.Reports.WritePurchaseReport(context.Background(), &buf))

	rows := readSheet(t, buf.Bytes(), "Purchases")
	require.Len(t, rows, 2)
	assert.Equal(t, order.OrderNumber, rows[1][0])
	assert.Equal(t, "NF-555", rows[1][5])
	assert.Equal(t, "9", rows[1][7])
}
