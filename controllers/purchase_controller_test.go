package controllers

import (
	"net/http"
	"testing"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPurchaseBody(items ...PurchaseItemRequest) CreatePurchaseRequest {
	return CreatePurchaseRequest{Supplier: "ACME", Items: items}
}

func (e *apiEnv) createPurchase(items ...PurchaseItemRequest) map[string]interface{} {
	e.t.Helper()
	w := e.do(http.MethodPost, "/api/v1/purchases", newPurchaseBody(items...), models.RolePurchasing)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	return dataOf(e.t, w)
}

func TestCreatePurchase(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name           string
		role           models.Role
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "Purchasing places an order",
			role: models.RolePurchasing,
			body: newPurchaseBody(
				PurchaseItemRequest{Name: "Fuse 10A", Quantity: 10, UnitCost: decimal.RequireFromString("1.25")},
				PurchaseItemRequest{Name: "Tape", Quantity: 2, UnitCost: decimal.RequireFromString("3.10")},
			),
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Order without items",
			role:           models.RolePurchasing,
			body:           newPurchaseBody(),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "Negative unit cost",
			role:           models.RolePurchasing,
			body:           newPurchaseBody(PurchaseItemRequest{Name: "Tape", Quantity: 1, UnitCost: decimal.NewFromInt(-1)}),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "Gatehouse cannot place orders",
			role:           models.RoleGatehouse,
			body:           newPurchaseBody(PurchaseItemRequest{Name: "Tape", Quantity: 1}),
			expectedStatus: http.StatusForbidden,
			expectedCode:   "FORBIDDEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/v1/purchases", tt.body, tt.role)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
				return
			}
			data := dataOf(t, w)
			assert.Equal(t, "ORDERED", data["status"])
			assert.Regexp(t, `^PO-\d{12}$`, data["order_number"])
			assert.Equal(t, "18.7", data["total"])
			assert.Equal(t, "Test PURCHASING", data["purchaser_name"])
		})
	}
}

func TestPurchaseArrivalAndReception(t *testing.T) {
	env := newAPIEnv(t)
	existing := env.seedItem("Fuse 10A", 3, 5)
	order := env.createPurchase(
		PurchaseItemRequest{Name: "fuse 10a", Quantity: 10, UnitCost: decimal.NewFromInt(1)},
		PurchaseItemRequest{Name: "Contactor", Quantity: 2, Unit: "un", Category: "electrical", UnitCost: decimal.NewFromInt(40)},
	)
	id := order["id"].(string)

	w := env.do(http.MethodPost, "/api/v1/purchases/"+id+"/reception", nil, models.RoleWarehouse)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "PURCHASE_NOT_ARRIVED", errorCode(t, w))

	w = env.do(http.MethodPost, "/api/v1/purchases/"+id+"/arrival", nil, models.RoleWarehouse)
	assert.Equal(t, http.StatusForbidden, w.Code, "arrival is confirmed at the gatehouse")

	w = env.do(http.MethodPost, "/api/v1/purchases/"+id+"/arrival", nil, models.RoleGatehouse)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	assert.Equal(t, "ARRIVED", data["status"])
	assert.NotNil(t, data["arrival_date"])

	w = env.do(http.MethodPost, "/api/v1/purchases/"+id+"/reception", nil, models.RolePurchasing)
	assert.Equal(t, http.StatusForbidden, w.Code, "reception belongs to the warehouse")

	w = env.do(http.MethodPost, "/api/v1/purchases/"+id+"/reception", nil, models.RoleWarehouse)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := dataOf(t, w)
	assert.Equal(t, false, result["already_stocked"])
	assert.Equal(t, float64(1), result["created_items"])
	assert.Len(t, result["entries"], 2)
	assert.Equal(t, "STOCKED", result["order"].(map[string]interface{})["status"])
	assert.Equal(t, 13, env.itemQuantity(existing.ID))

	w = env.do(http.MethodPost, "/api/v1/purchases/"+id+"/reception", nil, models.RoleWarehouse)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, dataOf(t, w)["already_stocked"])
	assert.Equal(t, 13, env.itemQuantity(existing.ID), "a second reception changes nothing")

	w = env.do(http.MethodDelete, "/api/v1/purchases/"+id, nil, models.RolePurchasing)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, w))
}

func TestUpdatePurchaseStatusAndInvoice(t *testing.T) {
	env := newAPIEnv(t)
	order := env.createPurchase(PurchaseItemRequest{Name: "Tape", Quantity: 1})
	id := order["id"].(string)

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{"Unknown status", UpdatePurchaseStatusRequest{Status: "LOST"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"Stocking is reserved to reception", UpdatePurchaseStatusRequest{Status: models.PurchaseStocked}, http.StatusConflict, "INVALID_TRANSITION"},
		{"Mark arrived", UpdatePurchaseStatusRequest{Status: models.PurchaseArrived}, http.StatusOK, ""},
		{"Back to ordered", UpdatePurchaseStatusRequest{Status: models.PurchaseOrdered}, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPatch, "/api/v1/purchases/"+id+"/status", tt.body, models.RolePurchasing)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			if tt.expectedCode != "" {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
			}
		})
	}

	w := env.do(http.MethodPatch, "/api/v1/purchases/"+id+"/invoice", UpdateInvoiceRequest{InvoiceNumber: "NF-777"}, models.RolePurchasing)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "NF-777", dataOf(t, w)["invoice_number"])

	w = env.do(http.MethodGet, "/api/v1/purchases?search=ACME", nil, models.RoleGatehouse)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = env.do(http.MethodDelete, "/api/v1/purchases/"+id, nil, models.RolePurchasing)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(http.MethodGet, "/api/v1/purchases/"+id, nil, models.RolePurchasing)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "PURCHASE_ORDER_NOT_FOUND", errorCode(t, w))
}
