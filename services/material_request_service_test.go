package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialRequestSubmit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bearing := seedItem(t, env.db, "Bearing 6204", 10, 2)
	wo := seedWorkOrder(t, env.svc, true)

	req, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{{ItemID: bearing.ID, Quantity: 3}})
	require.NoError(t, err)

	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, wo.Title, req.WorkOrderTitle)
	require.Len(t, req.Items, 1)
	assert.Equal(t, "Bearing 6204", req.Items[0].ItemName)

	loaded, err := env.svc.WorkOrders.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{req.ID}, loaded.RequestIDs)
	assert.Equal(t, models.WorkOrderPreparation, loaded.Status)
	assert.Equal(t, 10, itemQuantity(t, env.db, bearing.ID), "submitting must not touch stock")
}

func TestMaterialRequestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := seedItem(t, env.db, "Fuse", 5, 1)
	wo := seedWorkOrder(t, env.svc, true)

	tests := []struct {
		name        string
		workOrderID string
		lines       []RequestLine
		notFound    bool
	}{
		{"empty cart", wo.ID, nil, false},
		{"zero quantity", wo.ID, []RequestLine{{ItemID: item.ID, Quantity: 0}}, false},
		{"missing item id", wo.ID, []RequestLine{{Quantity: 1}}, false},
		{"unknown work order", "missing", []RequestLine{{ItemID: item.ID, Quantity: 1}}, true},
		{"unknown item", wo.ID, []RequestLine{{ItemID: "missing", Quantity: 1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.MaterialRequests.Submit(ctx, tt.workOrderID, tt.lines)
			require.Error(t, err)
			if tt.notFound {
				assert.ErrorIs(t, err, ErrNotFound)
			} else {
				var vErr *ValidationError
				assert.True(t, errors.As(err, &vErr), "got %v", err)
			}
		})
	}

	var count int64
	env.db.Model(&models.MaterialRequest{}).Count(&count)
	assert.Zero(t, count)
}

func TestMaterialRequestApproveDebitsExactly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	bearing := seedItem(t, env.db, "Bearing", 10, 2)
	grease := seedItem(t, env.db, "Grease", 4, 1)
	untouched := seedItem(t, env.db, "Belt", 7, 1)
	wo := seedWorkOrder(t, env.svc, true)

	req, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{
		{ItemID: bearing.ID, Quantity: 3},
		{ItemID: grease.ID, Quantity: 4},
	})
	require.NoError(t, err)

	approved, err := env.svc.MaterialRequests.Process(ctx, req.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)
	assert.NotNil(t, approved.ProcessedAt)

	assert.Equal(t, 7, itemQuantity(t, env.db, bearing.ID))
	assert.Equal(t, 0, itemQuantity(t, env.db, grease.ID))
	assert.Equal(t, 7, itemQuantity(t, env.db, untouched.ID))

	logs, total, err := env.svc.Inventory.UsageLogs(ctx, LogFilter{WorkOrderID: wo.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, l := range logs {
		assert.Equal(t, req.ID, l.RequestID)
	}

	loaded, err := env.svc.WorkOrders.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderInProgress, loaded.Status)
	require.Len(t, loaded.History, 1)
	assert.Equal(t, "All material requests approved", loaded.History[0].Notes)
}

func TestMaterialRequestInsufficientStockChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	plenty := seedItem(t, env.db, "Screws", 100, 10)
	scarce := seedItem(t, env.db, "Relay", 2, 1)
	wo := seedWorkOrder(t, env.svc, true)

	req, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{
		{ItemID: plenty.ID, Quantity: 20},
		{ItemID: scarce.ID, Quantity: 3},
	})
	require.NoError(t, err)

	_, err = env.svc.MaterialRequests.Process(ctx, req.ID, true)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "got %v", err)
	assert.Equal(t, scarce.ID, stockErr.ItemID)
	assert.Equal(t, "Relay", stockErr.ItemName)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	assert.Equal(t, 100, itemQuantity(t, env.db, plenty.ID))
	assert.Equal(t, 2, itemQuantity(t, env.db, scarce.ID))

	stored, err := env.svc.MaterialRequests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, stored.Status)
	assert.Nil(t, stored.ApprovedAt)

	loaded, err := env.svc.WorkOrders.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderPreparation, loaded.Status)
	assert.Empty(t, loaded.History)

	var usage int64
	env.db.Model(&models.UsageLog{}).Count(&usage)
	assert.Zero(t, usage)
}

func TestMaterialRequestRepeatedItemIsSummed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := seedItem(t, env.db, "Cable tie", 5, 1)
	wo := seedWorkOrder(t, env.svc, true)

	req, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{
		{ItemID: item.ID, Quantity: 3},
		{ItemID: item.ID, Quantity: 3},
	})
	require.NoError(t, err)

	_, err = env.svc.MaterialRequests.Process(ctx, req.ID, true)
	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 6, stockErr.Requested)
	assert.Equal(t, 5, itemQuantity(t, env.db, item.ID))
}

func TestMaterialRequestRejectTouchesOnlyTheRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := seedItem(t, env.db, "Contactor", 3, 1)
	wo := seedWorkOrder(t, env.svc, true)

	req, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{{ItemID: item.ID, Quantity: 2}})
	require.NoError(t, err)

	rejected, err := env.svc.MaterialRequests.Process(ctx, req.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, rejected.Status)
	assert.NotNil(t, rejected.ProcessedAt)
	assert.Nil(t, rejected.ApprovedAt)
	assert.Len(t, rejected.Items, 1)

	assert.Equal(t, 3, itemQuantity(t, env.db, item.ID))
	loaded, err := env.svc.WorkOrders.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderPreparation, loaded.Status)
	assert.Empty(t, loaded.History)
}

func TestMaterialRequestProcessOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := seedItem(t, env.db, "Lamp", 10, 1)
	wo := seedWorkOrder(t, env.svc, true)

	req, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{{ItemID: item.ID, Quantity: 4}})
	require.NoError(t, err)
	_, err = env.svc.MaterialRequests.Process(ctx, req.ID, true)
	require.NoError(t, err)

	_, err = env.svc.MaterialRequests.Process(ctx, req.ID, true)
	assert.ErrorIs(t, err, ErrRequestNotPending)
	_, err = env.svc.MaterialRequests.Process(ctx, req.ID, false)
	assert.ErrorIs(t, err, ErrRequestNotPending)

	assert.Equal(t, 6, itemQuantity(t, env.db, item.ID), "second approval must not debit again")

	_, err = env.svc.MaterialRequests.Process(ctx, "missing", true)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "MATERIAL_REQUEST", nf.Entity)
}

func TestWorkOrderAdvancesWhenNoRequestIsPending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := seedItem(t, env.db, "Valve", 10, 1)
	wo := seedWorkOrder(t, env.svc, true)

	first, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{{ItemID: item.ID, Quantity: 1}})
	require.NoError(t, err)
	second, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{{ItemID: item.ID, Quantity: 1}})
	require.NoError(t, err)

	_, err = env.svc.MaterialRequests.Process(ctx, first.ID, true)
	require.NoError(t, err)

	loaded, err := env.svc.WorkOrders.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderPreparation, loaded.Status, "one request is still pending")

	_, err = env.svc.MaterialRequests.Process(ctx, second.ID, false)
	require.NoError(t, err)
	loaded, err = env.svc.WorkOrders.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderPreparation, loaded.Status, "rejection does not advance the order")

	third, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{{ItemID: item.ID, Quantity: 2}})
	require.NoError(t, err)
	_, err = env.svc.MaterialRequests.Process(ctx, third.ID, true)
	require.NoError(t, err)

	loaded, err = env.svc.WorkOrders.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderInProgress, loaded.Status)
	assert.Len(t, loaded.RequestIDs, 3)
	assert.Equal(t, 7, itemQuantity(t, env.db, item.ID))
}

func TestApprovalDoesNotMoveOrdersOutsidePreparation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := seedItem(t, env.db, "Gasket", 10, 1)
	wo := seedWorkOrder(t, env.svc, true)
	req, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{{ItemID: item.ID, Quantity: 1}})
	require.NoError(t, err)

	_, err = env.svc.WorkOrders.UpdateStatus(ctx, wo.ID, models.WorkOrderFailed, "Cancelled by requester")
	require.NoError(t, err)

	_, err = env.svc.MaterialRequests.Process(ctx, req.ID, true)
	require.NoError(t, err)

	loaded, err := env.svc.WorkOrders.Get(ctx, wo.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkOrderFailed, loaded.Status)
	assert.Len(t, loaded.History, 1)
}

func TestMaterialRequestList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	item := seedItem(t, env.db, "Oil", 10, 1)
	wo := seedWorkOrder(t, env.svc, true)
	other := seedWorkOrder(t, env.svc, true)

	for i := 0; i < 3; i++ {
		_, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{{ItemID: item.ID, Quantity: 1}})
		require.NoError(t, err)
	}
	req, err := env.svc.MaterialRequests.Submit(ctx, other.ID, []RequestLine{{ItemID: item.ID, Quantity: 1}})
	require.NoError(t, err)
	_, err = env.svc.MaterialRequests.Process(ctx, req.ID, false)
	require.NoError(t, err)

	pending, total, err := env.svc.MaterialRequests.List(ctx, MaterialRequestFilter{Status: models.RequestPending})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, r := range pending {
		assert.Len(t, r.Items, 1)
	}

	_, total, err = env.svc.MaterialRequests.List(ctx, MaterialRequestFilter{WorkOrderID: other.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}
