package services

import (
	"bytes"
	"context"
	"mime/multipart"
	"testing"
	"time"

	"github.com/dutyfinder/dutyfinder-api/config"
	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	db      *gorm.DB
	bus     *EventBus
	svc     *Services
	storage *MockStorage
	cache   *MemoryCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := testutil.NewTestDB(t)
	log := zap.NewNop()
	bus := NewEventBus(log)
	storage := NewMockStorage()
	cache := NewMemoryCache()

	svc := New(Dependencies{
		DB: db,
		Config: &config.Config{
			GoEnv:          "test",
			JWTSecret:      config.TestJWTSecret,
			JWTTTL:         time.Hour,
			BackupInterval: time.Minute,
		},
		Logger:  log,
		Bus:     bus,
		Cache:   cache,
		Storage: storage,
	})
	t.Cleanup(bus.Wait)

	return &testEnv{db: db, bus: bus, svc: svc, storage: storage, cache: cache}
}

func seedItem(t *testing.T, db *gorm.DB, name string, quantity, minThreshold int) *models.InventoryItem {
	t.Helper()
	item := &models.InventoryItem{
		Name:         name,
		Category:     "general",
		Quantity:     quantity,
		Unit:         "un",
		MinThreshold: minThreshold,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

func seedWorkOrder(t *testing.T, svc *Services, needsMaterials bool) *models.WorkOrder {
	t.Helper()
	wo, err := svc.WorkOrders.Create(context.Background(), CreateWorkOrderInput{
		Title:          "Replace bearing",
		Description:    "Conveyor motor is noisy",
		Priority:       models.PriorityHigh,
		RequesterName:  "Carlos",
		NeedsMaterials: needsMaterials,
	})
	require.NoError(t, err)
	return wo
}

func itemQuantity(t *testing.T, db *gorm.DB, id string) int {
	t.Helper()
	var item models.InventoryItem
	require.NoError(t, db.First(&item, "id = ?", id).Error)
	return item.Quantity
}

func strPtr(s string) *string {
	return &s
}

var pngSignature = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

// uploadedFile builds the multipart.FileHeader a handler would receive for filename
func uploadedFile(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	form, err := multipart.NewReader(body, writer.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	require.Len(t, form.File["file"], 1)
	return form.File["file"][0]
}
