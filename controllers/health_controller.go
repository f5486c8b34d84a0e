package controllers

import (
	"net/http"

	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthController reports liveness, database state and the backup badge
type HealthController struct {
	db      *gorm.DB
	backups *services.BackupWorker
}

// NewHealthController creates the controller
func NewHealthController(db *gorm.DB, svc *services.Services) *HealthController {
	return &HealthController{db: db, backups: svc.Backups}
}

// Health handles GET /api/v1/health
func (ctl *HealthController) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "DutyFinder API is running",
		"backup":  ctl.backups.State(),
	})
}

// LegacyHealth handles GET /api/health with the status badge the old client polls
func (ctl *HealthController) LegacyHealth(c *gin.Context) {
	status := "ONLINE"
	if err := ctl.ping(); err != nil {
		status = "OFFLINE"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": ctl.db.Dialector.Name(),
		"backup":   ctl.backups.State().Status,
	})
}

// DatabaseStatus handles GET /api/v1/database/status and lists the tables it can see
func (ctl *HealthController) DatabaseStatus(c *gin.Context) {
	if err := ctl.ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := ctl.db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"driver":  ctl.db.Dialector.Name(),
		"tables":  tables,
	})
}

func (ctl *HealthController) ping() error {
	sqlDB, err := ctl.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
