package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dutyfinder/dutyfinder-api/config"
	"github.com/dutyfinder/dutyfinder-api/middleware"
	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/dutyfinder/dutyfinder-api/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type apiEnv struct {
	t      *testing.T
	db     *gorm.DB
	cfg    *config.Config
	bus    *services.EventBus
	svc    *services.Services
	router *gin.Engine
}

// newAPIEnv mounts every route on a fresh in-memory database behind the real token middleware
func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	db := testutil.NewTestDB(t)
	cfg := &config.Config{
		GoEnv:          "test",
		JWTSecret:      config.TestJWTSecret,
		JWTTTL:         time.Hour,
		BackupInterval: time.Minute,
	}
	log := zap.NewNop()
	bus := services.NewEventBus(log)
	svc := services.New(services.Dependencies{DB: db, Config: cfg, Logger: log, Bus: bus})
	t.Cleanup(bus.Wait)

	jwtValidator, err := middleware.NewTokenValidator(cfg.JWTSecret)
	require.NoError(t, err)

	router := gin.New()
	RegisterRoutes(router, db, svc, middleware.EnsureValidToken(jwtValidator, log), log)

	return &apiEnv{t: t, db: db, cfg: cfg, bus: bus, svc: svc, router: router}
}

// token signs an access token for a caller with the given role
func (e *apiEnv) token(role models.Role) string {
	return testutil.SignToken(e.t, e.cfg.JWTSecret, "user-"+string(role), "Test "+string(role), string(role))
}

// do sends a JSON request; an empty role sends no token
func (e *apiEnv) do(method, path string, body interface{}, role models.Role) *httptest.ResponseRecorder {
	e.t.Helper()
	token := ""
	if role != "" {
		token = e.token(role)
	}
	return e.doWithToken(method, path, body, token)
}

func (e *apiEnv) doWithToken(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(e.t, err)
		reader = bytes.NewBuffer(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "Response should be valid JSON: %s", w.Body.String())
	return response
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	response := decode(t, w)
	data, ok := response["data"].(map[string]interface{})
	require.True(t, ok, "data should be an object: %s", w.Body.String())
	return data
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	response := decode(t, w)
	errObj, ok := response["error"].(map[string]interface{})
	require.True(t, ok, "error should be an object: %s", w.Body.String())
	return errObj["code"].(string)
}

func (e *apiEnv) seedItem(name string, quantity, minThreshold int) *models.InventoryItem {
	e.t.Helper()
	item := &models.InventoryItem{Name: name, Category: "general", Quantity: quantity, Unit: "un", MinThreshold: minThreshold}
	require.NoError(e.t, e.svc.Inventory.Create(context.Background(), item, services.StockEntryInput{NoInvoiceReason: "opening balance"}))
	return item
}

func (e *apiEnv) seedWorkOrder(needsMaterials bool) *models.WorkOrder {
	e.t.Helper()
	wo, err := e.svc.WorkOrders.Create(context.Background(), services.CreateWorkOrderInput{
		Title:          "Replace bearing",
		Description:    "Line 2 conveyor is noisy",
		RequesterName:  "Carlos",
		NeedsMaterials: needsMaterials,
	})
	require.NoError(e.t, err)
	return wo
}

func (e *apiEnv) seedUser(username string, role models.Role) *models.User {
	e.t.Helper()
	user, err := e.svc.Admin.CreateUser(context.Background(), services.CreateUserInput{
		Username: username,
		Password: "secret123",
		Name:     "User " + username,
		Role:     role,
	})
	require.NoError(e.t, err)
	return user
}

func (e *apiEnv) userToken(user *models.User) string {
	return testutil.SignToken(e.t, e.cfg.JWTSecret, user.ID, user.Name, string(user.Role))
}

func (e *apiEnv) itemQuantity(id string) int {
	e.t.Helper()
	var item models.InventoryItem
	require.NoError(e.t, e.db.First(&item, "id = ?", id).Error)
	return item.Quantity
}
