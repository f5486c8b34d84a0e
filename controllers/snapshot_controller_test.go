package controllers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotExportImport(t *testing.T) {
	source := newAPIEnv(t)
	source.seedItem("Fuse 10A", 4, 1)
	source.seedWorkOrder(true)

	w := source.do(http.MethodGet, "/api/v1/snapshot", nil, models.RoleITAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=\"dutyfinder-snapshot-")
	var snapshot map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Contains(t, snapshot, "inventory")
	assert.Contains(t, snapshot, "workOrders")

	target := newAPIEnv(t)
	w = target.do(http.MethodPost, "/api/v1/snapshot", w.Body.String(), models.RoleSuperAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	imported := dataOf(t, w)["imported"].(map[string]interface{})
	assert.Equal(t, float64(1), imported["inventory"])
	assert.Equal(t, float64(1), imported["workOrders"])

	w = target.do(http.MethodGet, "/api/v1/inventory", nil, models.RoleWarehouse)
	require.Equal(t, http.StatusOK, w.Code)
	items := decode(t, w)["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "Fuse 10A", items[0].(map[string]interface{})["name"])
}

func TestSnapshotErrors(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		role           models.Role
		expectedStatus int
		expectedCode   string
	}{
		{"Warehouse cannot export", http.MethodGet, "/api/v1/snapshot", nil, models.RoleWarehouse, http.StatusForbidden, "FORBIDDEN"},
		{"Body must be JSON", http.MethodPost, "/api/v1/snapshot", "not json", models.RoleITAdmin, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"Collection must be an array", http.MethodPost, "/api/v1/snapshot", `{"inventory": {"name": "x"}}`, models.RoleITAdmin, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"Backups need object storage", http.MethodPost, "/api/v1/snapshot/backup", nil, models.RoleITAdmin, http.StatusServiceUnavailable, "STORAGE_DISABLED"},
		{"Unknown legacy collection", http.MethodGet, "/api/load/spaceships", nil, models.RoleITAdmin, http.StatusNotFound, "COLLECTION_NOT_FOUND"},
		{"Legacy load needs a token", http.MethodGet, "/api/load/inventory", nil, "", http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.path, tt.body, tt.role)
			assert.Equal(t, tt.expectedStatus, w.Code, w.Body.String())
			assert.Equal(t, tt.expectedCode, errorCode(t, w))
		})
	}
}

func TestLegacySync(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodPost, "/api/save/sectors", `[{"id":"s-1","name":"Facilities","cost_center":"CC-1"}]`, models.RoleITAdmin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	saved := decode(t, w)
	assert.Equal(t, "success", saved["status"])
	assert.Equal(t, float64(1), saved["count"])

	w = env.do(http.MethodGet, "/api/load/sectors", nil, models.RoleITAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	var sectors []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sectors), "legacy load answers with a bare array")
	require.Len(t, sectors, 1)
	assert.Equal(t, "Facilities", sectors[0]["name"])

	w = env.do(http.MethodGet, "/api/v1/snapshot/collections", nil, models.RoleITAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w)["data"], "sectors")

	t.Run("user lists with plain passwords are hashed", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/save/users",
			`[{"id":"u-1","username":"rosa","password":"first-day","name":"Rosa","role":"WAREHOUSE"}]`, models.RoleITAdmin)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(http.MethodPost, "/api/v1/auth/login", LoginRequest{Username: "rosa", Password: "first-day"}, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(http.MethodGet, "/api/load/users", nil, models.RoleITAdmin)
		require.Equal(t, http.StatusOK, w.Code)
		var users []map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
		require.Len(t, users, 1)
		assert.NotContains(t, users[0], "password")
		assert.NotEqual(t, "first-day", users[0]["password_hash"])
	})
}

func TestHealthEndpoints(t *testing.T) {
	env := newAPIEnv(t)

	w := env.do(http.MethodGet, "/api/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	legacy := decode(t, w)
	assert.Equal(t, "ONLINE", legacy["status"])
	assert.Equal(t, "sqlite", legacy["database"])
	assert.Equal(t, "DISABLED", legacy["backup"])

	w = env.do(http.MethodGet, "/api/v1/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	health := decode(t, w)
	assert.Equal(t, true, health["success"])
	assert.Equal(t, "DutyFinder API is running", health["message"])

	w = env.do(http.MethodGet, "/api/v1/database/status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.Contains(t, status["tables"], "work_orders")
}
