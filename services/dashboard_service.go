package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/dutyfinder/dutyfinder-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	dashboardCacheKey = "dutyfinder:dashboard"
	dashboardCacheTTL = 30 * time.Second
)

// DashboardCounters is the home screen summary
type DashboardCounters struct {
	OpenWorkOrders          int64                  `json:"open_work_orders"`
	PreparationWorkOrders   int64                  `json:"preparation_work_orders"`
	PendingMaterialRequests int64                  `json:"pending_material_requests"`
	LowStockItems           int64                  `json:"low_stock_items"`
	PendingDeliveries       int64                  `json:"pending_deliveries"`
	ArrivedDeliveries       int64                  `json:"arrived_deliveries"`
	PendingResourceRequests int64                  `json:"pending_resource_requests"`
	PendingSupportTickets   int64                  `json:"pending_support_tickets"`
	LowStock                []models.InventoryItem `json:"low_stock"`
	GeneratedAt             time.Time              `json:"generated_at"`
}

// DashboardService computes the counters and keeps them in a short lived cache
type DashboardService struct {
	db     *gorm.DB
	cache  Cache
	logger *zap.Logger

	mu         sync.Mutex
	generation uint64 // bumped by Invalidate; a compute that saw an older value is not cached
}

// NewDashboardService creates the service; cache may be nil
func NewDashboardService(db *gorm.DB, cache Cache, logger *zap.Logger) *DashboardService {
	return &DashboardService{db: db, cache: cache, logger: logger}
}

// Counters returns the cached summary or computes a fresh one
func (s *DashboardService) Counters(ctx context.Context) (*DashboardCounters, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, dashboardCacheKey)
		if err == nil {
			var counters DashboardCounters
			if jsonErr := json.Unmarshal([]byte(cached), &counters); jsonErr == nil {
				return &counters, nil
			}
		} else if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("Dashboard cache read failed", zap.Error(err))
		}
	}

	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	counters, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.store(ctx, counters, generation)
	}
	return counters, nil
}

// store caches counters unless a change was announced while they were computed
func (s *DashboardService) store(ctx context.Context, counters *DashboardCounters, generation uint64) {
	data, err := json.Marshal(counters)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != generation {
		s.logger.Debug("Dashboard changed during compute, not caching")
		return
	}
	if err := s.cache.Set(ctx, dashboardCacheKey, data, dashboardCacheTTL); err != nil {
		s.logger.Warn("Dashboard cache write failed", zap.Error(err))
	}
}

func (s *DashboardService) compute(ctx context.Context) (*DashboardCounters, error) {
	db := s.db.WithContext(ctx)
	c := &DashboardCounters{GeneratedAt: time.Now()}

	counts := []struct {
		dest  *int64
		model interface{}
		where string
		args  []interface{}
	}{
		{&c.OpenWorkOrders, &models.WorkOrder{}, "status IN ?", []interface{}{[]models.WorkOrderStatus{models.WorkOrderPreparation, models.WorkOrderInProgress}}},
		{&c.PreparationWorkOrders, &models.WorkOrder{}, "status = ?", []interface{}{models.WorkOrderPreparation}},
		{&c.PendingMaterialRequests, &models.MaterialRequest{}, "status = ?", []interface{}{models.RequestPending}},
		{&c.LowStockItems, &models.InventoryItem{}, "quantity <= min_threshold", nil},
		{&c.PendingDeliveries, &models.PurchaseOrder{}, "status IN ?", []interface{}{[]models.PurchaseStatus{models.PurchaseOrdered, models.PurchaseArrived}}},
		{&c.ArrivedDeliveries, &models.PurchaseOrder{}, "status = ?", []interface{}{models.PurchaseArrived}},
		{&c.PendingResourceRequests, &models.ResourceRequest{}, "status = ?", []interface{}{models.ResourcePending}},
		{&c.PendingSupportTickets, &models.SupportTicket{}, "status = ?", []interface{}{models.RequestPending}},
	}
	for _, q := range counts {
		if err := db.Model(q.model).Where(q.where, q.args...).Count(q.dest).Error; err != nil {
			return nil, err
		}
	}

	c.LowStock = []models.InventoryItem{}
	if err := db.Where("quantity <= min_threshold").Order("quantity ASC, name ASC").Limit(50).Find(&c.LowStock).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// Invalidate drops the cached summary. It is an EventBus listener.
func (s *DashboardService) Invalidate(ctx context.Context, _ Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, dashboardCacheKey)
}
