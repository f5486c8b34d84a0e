package services

import (
	"context"
	"testing"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDashboardCounters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	low := seedItem(t, env.db, "Low", 1, 5)
	seedItem(t, env.db, "Fine", 50, 5)
	wo := seedWorkOrder(t, env.svc, true)
	seedWorkOrder(t, env.svc, false)
	_, err := env.svc.MaterialRequests.Submit(ctx, wo.ID, []RequestLine{{ItemID: low.ID, Quantity: 1}})
	require.NoError(t, err)
	require.NoError(t, env.svc.Purchases.Create(ctx, newOrder(models.PurchaseOrderItem{Name: "x", Quantity: 1})))
	require.NoError(t, env.svc.SupportTickets.Create(ctx, &models.SupportTicket{Category: models.TicketIT, Title: "Printer"}))
	env.bus.Wait()

	counters, err := env.svc.Dashboard.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counters.OpenWorkOrders)
	assert.Equal(t, int64(1), counters.PreparationWorkOrders)
	assert.Equal(t, int64(1), counters.PendingMaterialRequests)
	assert.Equal(t, int64(1), counters.LowStockItems)
	assert.Equal(t, int64(1), counters.PendingDeliveries)
	assert.Zero(t, counters.ArrivedDeliveries)
	assert.Equal(t, int64(1), counters.PendingSupportTickets)
	require.Len(t, counters.LowStock, 1)
	assert.Equal(t, "Low", counters.LowStock[0].Name)
}

func TestDashboardCacheIsInvalidatedByEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.svc.Dashboard.Counters(ctx)
	require.NoError(t, err)
	assert.Zero(t, first.OpenWorkOrders)
	assert.Equal(t, 1, env.cache.Misses)

	cached, err := env.svc.Dashboard.Counters(ctx)
	require.NoError(t, err)
	assert.Zero(t, cached.OpenWorkOrders)
	assert.Equal(t, 1, env.cache.Hits)

	seedWorkOrder(t, env.svc, false)
	env.bus.Wait()

	fresh, err := env.svc.Dashboard.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.OpenWorkOrders)
}

func TestDashboardWithoutCache(t *testing.T) {
	env := newTestEnv(t)
	dashboard := NewDashboardService(env.db, nil, env.svc.Dashboard.logger)

	counters, err := dashboard.Counters(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, counters.LowStock)
	require.NoError(t, dashboard.Invalidate(context.Background(), Event{}))
}

func TestDashboardDoesNotCacheCountsChangedDuringCompute(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	dashboard := NewDashboardService(env.db, env.cache, env.svc.Dashboard.logger)

	// a change event lands after the first count query ran
	invalidations := 0
	require.NoError(t, env.db.Callback().Query().After("gorm:query").Register("test:change_mid_compute", func(*gorm.DB) {
		if invalidations == 0 {
			invalidations++
			require.NoError(t, dashboard.Invalidate(ctx, Event{Type: EventWorkOrderChanged}))
		}
	}))

	_, err := dashboard.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, invalidations)

	_, err = env.cache.Get(ctx, dashboardCacheKey)
	assert.ErrorIs(t, err, ErrCacheMiss, "counts computed across a change must not be cached")

	_, err = dashboard.Counters(ctx)
	require.NoError(t, err)
	_, err = env.cache.Get(ctx, dashboardCacheKey)
	assert.NoError(t, err, "an undisturbed compute is cached")
}
