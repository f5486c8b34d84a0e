package controllers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxSnapshotSize bounds import bodies
const maxSnapshotSize = 64 << 20

// SnapshotController exports and imports the whole intranet state
type SnapshotController struct {
	snapshots *services.SnapshotService
	backups   *services.BackupWorker
	log       *zap.Logger
}

// NewSnapshotController creates the controller
func NewSnapshotController(svc *services.Services, log *zap.Logger) *SnapshotController {
	return &SnapshotController{snapshots: svc.Snapshots, backups: svc.Backups, log: log}
}

// Export handles GET /api/v1/snapshot and downloads every collection as one JSON file
func (ctl *SnapshotController) Export(c *gin.Context) {
	body, err := ctl.snapshots.ExportJSON(c.Request.Context())
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	filename := fmt.Sprintf("dutyfinder-snapshot-%s.json", time.Now().UTC().Format("20060102T150405Z"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// Import handles POST /api/v1/snapshot. Collections missing from the body are left as they are.
func (ctl *SnapshotController) Import(c *gin.Context) {
	var snapshot services.Snapshot
	if !decodeBody(c, &snapshot) {
		return
	}
	counts, err := ctl.snapshots.Import(c.Request.Context(), snapshot)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"imported": counts})
}

// Backup handles POST /api/v1/snapshot/backup and uploads a snapshot right away
func (ctl *SnapshotController) Backup(c *gin.Context) {
	key, err := ctl.backups.RunOnce(c.Request.Context())
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"key": key, "state": ctl.backups.State()})
}

// Collections handles GET /api/v1/snapshot/collections
func (ctl *SnapshotController) Collections(c *gin.Context) {
	respondOK(c, http.StatusOK, services.CollectionNames())
}

// LegacyLoad handles GET /api/load/:entity. It answers with the bare array the
// old sync client reads, without the envelope.
func (ctl *SnapshotController) LegacyLoad(c *gin.Context) {
	raw, err := ctl.snapshots.LoadCollection(c.Request.Context(), c.Param("entity"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", raw)
}

// LegacySave handles POST /api/save/:entity, replacing one collection
func (ctl *SnapshotController) LegacySave(c *gin.Context) {
	var raw json.RawMessage
	if !decodeBody(c, &raw) {
		return
	}
	count, err := ctl.snapshots.SaveCollection(c.Request.Context(), c.Param("entity"), raw)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "count": count})
}

func decodeBody(c *gin.Context, v interface{}) bool {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSnapshotSize))
	if err == nil {
		err = json.Unmarshal(body, v)
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Body must be valid JSON")
		return false
	}
	return true
}
