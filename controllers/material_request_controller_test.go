package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submitRequest(t *testing.T, env *apiEnv, woID string, lines ...services.RequestLine) *models.MaterialRequest {
	t.Helper()
	req, err := env.svc.MaterialRequests.Submit(context.Background(), woID, lines)
	require.NoError(t, err)
	return req
}

func approve(approved bool) ProcessRequest {
	return ProcessRequest{Approved: &approved}
}

func TestProcessMaterialRequestApproves(t *testing.T) {
	env := newAPIEnv(t)
	wo := env.seedWorkOrder(true)
	item := env.seedItem("Bearing 6204", 10, 2)
	mr := submitRequest(t, env, wo.ID, services.RequestLine{ItemID: item.ID, Quantity: 4})

	w := env.do(http.MethodPost, "/api/v1/material-requests/"+mr.ID+"/process", approve(true), models.RoleWarehouse)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	assert.Equal(t, "APPROVED", data["status"])
	assert.NotNil(t, data["approved_at"])
	assert.Equal(t, 6, env.itemQuantity(item.ID))

	w = env.do(http.MethodGet, "/api/v1/work-orders/"+wo.ID, nil, models.RoleMaintenance)
	assert.Equal(t, "IN_PROGRESS", dataOf(t, w)["status"])
}

func TestProcessMaterialRequestInsufficientStock(t *testing.T) {
	env := newAPIEnv(t)
	wo := env.seedWorkOrder(true)
	plenty := env.seedItem("Grease", 50, 0)
	scarce := env.seedItem("Bearing 6204", 2, 0)
	mr := submitRequest(t, env, wo.ID,
		services.RequestLine{ItemID: plenty.ID, Quantity: 5},
		services.RequestLine{ItemID: scarce.ID, Quantity: 3},
	)

	w := env.do(http.MethodPost, "/api/v1/material-requests/"+mr.ID+"/process", approve(true), models.RoleWarehouse)

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	errObj := decode(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "INSUFFICIENT_STOCK", errObj["code"])
	details := errObj["details"].(map[string]interface{})
	assert.Equal(t, scarce.ID, details["item_id"])
	assert.Equal(t, "Bearing 6204", details["item_name"])
	assert.Equal(t, float64(3), details["requested"])
	assert.Equal(t, float64(2), details["available"])

	assert.Equal(t, 50, env.itemQuantity(plenty.ID), "no line is debited when one is short")
	assert.Equal(t, 2, env.itemQuantity(scarce.ID))

	w = env.do(http.MethodGet, "/api/v1/material-requests/"+mr.ID, nil, models.RoleWarehouse)
	assert.Equal(t, "PENDING", dataOf(t, w)["status"])
}

func TestProcessMaterialRequestErrors(t *testing.T) {
	env := newAPIEnv(t)
	wo := env.seedWorkOrder(true)
	item := env.seedItem("Bearing 6204", 10, 2)
	mr := submitRequest(t, env, wo.ID, services.RequestLine{ItemID: item.ID, Quantity: 1})
	path := "/api/v1/material-requests/" + mr.ID + "/process"

	w := env.do(http.MethodPost, path, map[string]string{}, models.RoleWarehouse)
	assert.Equal(t, http.StatusBadRequest, w.Code, "approved is required")

	w = env.do(http.MethodPost, path, approve(true), models.RoleMaintenance)
	assert.Equal(t, http.StatusForbidden, w.Code, "only the warehouse processes requests")

	w = env.do(http.MethodPost, path, approve(false), models.RoleWarehouse)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "REJECTED", dataOf(t, w)["status"])

	w = env.do(http.MethodPost, path, approve(true), models.RoleWarehouse)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "REQUEST_NOT_PENDING", errorCode(t, w))
	assert.Equal(t, 10, env.itemQuantity(item.ID))

	w = env.do(http.MethodPost, "/api/v1/material-requests/missing/process", approve(true), models.RoleWarehouse)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "MATERIAL_REQUEST_NOT_FOUND", errorCode(t, w))
}

func TestListMaterialRequests(t *testing.T) {
	env := newAPIEnv(t)
	wo := env.seedWorkOrder(true)
	item := env.seedItem("Bearing 6204", 10, 2)
	first := submitRequest(t, env, wo.ID, services.RequestLine{ItemID: item.ID, Quantity: 1})
	submitRequest(t, env, wo.ID, services.RequestLine{ItemID: item.ID, Quantity: 2})
	_, err := env.svc.MaterialRequests.Process(context.Background(), first.ID, false)
	require.NoError(t, err)

	w := env.do(http.MethodGet, "/api/v1/material-requests?status=PENDING", nil, models.RoleWarehouse)

	require.Equal(t, http.StatusOK, w.Code)
	response := decode(t, w)
	assert.Len(t, response["data"], 1)
	assert.Equal(t, float64(1), response["pagination"].(map[string]interface{})["total"])
}
