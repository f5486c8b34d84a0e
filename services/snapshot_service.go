package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/dutyfinder/dutyfinder-api/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Snapshot is the whole intranet state as one JSON document, keyed by collection
type Snapshot map[string]json.RawMessage

// snapshotUser keeps the password hash in backups; the API never shows it
type snapshotUser struct {
	models.User
	PasswordHash string `json:"password_hash,omitempty"`
	Password     string `json:"password,omitempty"`
}

// collection knows how to dump and replace one table group
type collection struct {
	load    func(tx *gorm.DB) (interface{}, error)
	replace func(tx *gorm.DB, raw json.RawMessage) (int, error)
}

var collections = map[string]collection{
	"inventory":        tableCollection[models.InventoryItem](),
	"workOrders":       parentCollection[models.WorkOrder]("History", &models.WorkOrderHistoryEntry{}),
	"materialRequests": parentCollection[models.MaterialRequest]("Items", &models.MaterialRequestItem{}),
	"resourceRequests": tableCollection[models.ResourceRequest](),
	"purchaseOrders":   parentCollection[models.PurchaseOrder]("Items", &models.PurchaseOrderItem{}),
	"usageLogs":        tableCollection[models.UsageLog](),
	"stockEntries":     tableCollection[models.StockEntryLog](),
	"users":            {load: loadUsers, replace: replaceUsers},
	"sectors":          tableCollection[models.Sector](),
	"extensions":       tableCollection[models.Extension](),
	"guides":           tableCollection[models.MaintenanceGuide](),
	"supportTickets":   tableCollection[models.SupportTicket](),
	"equipments":       tableCollection[models.Equipment](),
}

// CollectionNames lists the snapshot keys in a stable order
func CollectionNames() []string {
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsCollection reports whether name is a snapshot key
func IsCollection(name string) bool {
	_, ok := collections[name]
	return ok
}

func tableCollection[T any]() collection {
	return collection{
		load: func(tx *gorm.DB) (interface{}, error) {
			rows := []T{}
			err := tx.Find(&rows).Error
			return rows, err
		},
		replace: func(tx *gorm.DB, raw json.RawMessage) (int, error) {
			var rows []T
			if err := json.Unmarshal(raw, &rows); err != nil {
				return 0, err
			}
			if err := tx.Where("1 = 1").Delete(new(T)).Error; err != nil {
				return 0, err
			}
			if len(rows) == 0 {
				return 0, nil
			}
			return len(rows), tx.CreateInBatches(&rows, 100).Error
		},
	}
}

// parentCollection handles a table whose rows own child rows through one association
func parentCollection[T any](association string, child interface{}) collection {
	return collection{
		load: func(tx *gorm.DB) (interface{}, error) {
			rows := []T{}
			err := tx.Preload(association).Find(&rows).Error
			return rows, err
		},
		replace: func(tx *gorm.DB, raw json.RawMessage) (int, error) {
			var rows []T
			if err := json.Unmarshal(raw, &rows); err != nil {
				return 0, err
			}
			if err := tx.Where("1 = 1").Delete(child).Error; err != nil {
				return 0, err
			}
			if err := tx.Where("1 = 1").Delete(new(T)).Error; err != nil {
				return 0, err
			}
			if len(rows) == 0 {
				return 0, nil
			}
			return len(rows), tx.CreateInBatches(&rows, 100).Error
		},
	}
}

func loadUsers(tx *gorm.DB) (interface{}, error) {
	var users []models.User
	if err := tx.Find(&users).Error; err != nil {
		return nil, err
	}
	out := make([]snapshotUser, 0, len(users))
	for _, u := range users {
		out = append(out, snapshotUser{User: u, PasswordHash: u.PasswordHash})
	}
	return out, nil
}

// replaceUsers restores users. Hand-written user lists may give a plain password instead of a hash.
func replaceUsers(tx *gorm.DB, raw json.RawMessage) (int, error) {
	var rows []snapshotUser
	if err := json.Unmarshal(raw, &rows); err != nil {
		return 0, err
	}
	users := make([]models.User, 0, len(rows))
	for _, row := range rows {
		user := row.User
		user.PasswordHash = row.PasswordHash
		if user.PasswordHash == "" && row.Password != "" {
			hash, err := HashPassword(row.Password)
			if err != nil {
				return 0, err
			}
			user.PasswordHash = hash
		}
		if user.Role == "" {
			user.Role = models.RoleUser
		}
		users = append(users, user)
	}
	if err := tx.Where("1 = 1").Delete(&models.User{}).Error; err != nil {
		return 0, err
	}
	if len(users) == 0 {
		return 0, nil
	}
	return len(users), tx.CreateInBatches(&users, 100).Error
}

// SnapshotService exports and imports the whole state
type SnapshotService struct {
	db     *gorm.DB
	bus    *EventBus
	logger *zap.Logger
}

// NewSnapshotService creates the service
func NewSnapshotService(db *gorm.DB, bus *EventBus, logger *zap.Logger) *SnapshotService {
	return &SnapshotService{db: db, bus: bus, logger: logger}
}

// Export dumps every collection
func (s *SnapshotService) Export(ctx context.Context) (Snapshot, error) {
	snapshot := make(Snapshot, len(collections))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for name, c := range collections {
			rows, err := c.load(tx)
			if err != nil {
				return fmt.Errorf("failed to export %s: %w", name, err)
			}
			raw, err := json.Marshal(rows)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", name, err)
			}
			snapshot[name] = raw
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// ExportJSON renders the snapshot as indented JSON, as the download button produced it
func (s *SnapshotService) ExportJSON(ctx context.Context) ([]byte, error) {
	snapshot, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(snapshot, "", "  ")
}

// Import replaces each collection present in the snapshot; absent ones are untouched.
// Everything happens in one transaction.
func (s *SnapshotService) Import(ctx context.Context, snapshot Snapshot) (map[string]int, error) {
	counts := make(map[string]int)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range CollectionNames() {
			raw, ok := snapshot[name]
			if !ok || isJSONNull(raw) {
				continue
			}
			n, err := collections[name].replace(tx, raw)
			if err != nil {
				return invalid(name, err.Error())
			}
			counts[name] = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Snapshot imported", zap.Any("collections", counts))
	s.bus.Publish(Event{Type: EventSnapshotImported, Action: "imported", At: time.Now()})
	return counts, nil
}

// LoadCollection returns one collection, as the legacy sync client expects
func (s *SnapshotService) LoadCollection(ctx context.Context, name string) (json.RawMessage, error) {
	c, ok := collections[name]
	if !ok {
		return nil, notFound("COLLECTION", name)
	}
	rows, err := c.load(s.db.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	return json.Marshal(rows)
}

// SaveCollection replaces one collection
func (s *SnapshotService) SaveCollection(ctx context.Context, name string, raw json.RawMessage) (int, error) {
	if !IsCollection(name) {
		return 0, notFound("COLLECTION", name)
	}
	counts, err := s.Import(ctx, Snapshot{name: raw})
	if err != nil {
		return 0, err
	}
	return counts[name], nil
}

func isJSONNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
