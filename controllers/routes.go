package controllers

import (
	"github.com/dutyfinder/dutyfinder-api/middleware"
	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// staffRoles is every panel role; plain USER accounts only reach the portal
var staffRoles = []models.Role{
	models.RoleMaintenance,
	models.RoleWarehouse,
	models.RolePurchasing,
	models.RoleITAdmin,
	models.RoleGatehouse,
}

// RegisterRoutes mounts the API on router. auth validates the access token
// and must store the claims the way middleware.EnsureValidToken does.
func RegisterRoutes(router *gin.Engine, db *gorm.DB, svc *services.Services, auth gin.HandlerFunc, log *zap.Logger) {
	health := NewHealthController(db, svc)
	authCtl := NewAuthController(svc, log)
	workOrders := NewWorkOrderController(svc, log)
	materials := NewMaterialRequestController(svc, log)
	inventory := NewInventoryController(svc, log)
	purchases := NewPurchaseController(svc, log)
	requests := NewRequestController(svc, log)
	admin := NewAdminController(svc, log)
	snapshots := NewSnapshotController(svc, log)
	dashboard := NewDashboardController(svc, log)
	events := NewEventsController(svc)

	staff := middleware.RequireRole(staffRoles...)
	maintenance := middleware.RequireRole(models.RoleMaintenance)
	warehouse := middleware.RequireRole(models.RoleWarehouse)
	purchasing := middleware.RequireRole(models.RolePurchasing)
	gatehouse := middleware.RequireRole(models.RoleGatehouse)
	itAdmin := middleware.RequireRole(models.RoleITAdmin)

	// Legacy sync surface polled by the old single page client
	legacy := router.Group("/api")
	{
		legacy.GET("/health", health.LegacyHealth)
		legacy.GET("/load/:entity", auth, itAdmin, snapshots.LegacyLoad)
		legacy.POST("/save/:entity", auth, itAdmin, snapshots.LegacySave)
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", health.Health)
		v1.GET("/database/status", health.DatabaseStatus)
		v1.POST("/auth/login", authCtl.Login)
	}

	protected := v1.Group("")
	protected.Use(auth)
	{
		protected.GET("/auth/me", authCtl.Me)
		protected.GET("/events", events.Stream)

		me := protected.Group("/users/me")
		{
			me.PATCH("/password", admin.UpdatePassword)
			me.PATCH("/extension", admin.UpdateExtension)
			me.PUT("/profile-image", admin.UpdateProfileImage)
		}

		protected.GET("/dashboard", staff, dashboard.Counters)
		reports := protected.Group("/reports", staff)
		{
			reports.GET("/inventory.xlsx", dashboard.InventoryReport)
			reports.GET("/work-orders.xlsx", dashboard.WorkOrderReport)
			reports.GET("/purchases.xlsx", dashboard.PurchaseReport)
		}

		wo := protected.Group("/work-orders")
		{
			wo.GET("", middleware.RequireRole(models.RoleMaintenance, models.RoleWarehouse), workOrders.List)
			wo.GET("/:id", middleware.RequireRole(models.RoleMaintenance, models.RoleWarehouse), workOrders.Get)
			wo.POST("", maintenance, workOrders.Create)
			wo.PATCH("/:id/status", maintenance, workOrders.UpdateStatus)
			wo.POST("/:id/reopen", maintenance, workOrders.Reopen)
			wo.POST("/:id/material-requests", maintenance, workOrders.SubmitMaterials)
		}

		mr := protected.Group("/material-requests")
		{
			mr.GET("", middleware.RequireRole(models.RoleMaintenance, models.RoleWarehouse), materials.List)
			mr.GET("/:id", middleware.RequireRole(models.RoleMaintenance, models.RoleWarehouse), materials.Get)
			mr.POST("/:id/process", warehouse, materials.Process)
		}

		inv := protected.Group("/inventory")
		{
			readers := middleware.RequireRole(models.RoleMaintenance, models.RoleWarehouse, models.RolePurchasing)
			inv.GET("", readers, inventory.List)
			inv.GET("/categories", readers, inventory.Categories)
			inv.GET("/usage-logs", readers, inventory.UsageLogs)
			inv.GET("/stock-entries", readers, inventory.StockEntries)
			inv.POST("/suggestions", middleware.RequireRole(models.RoleMaintenance, models.RoleWarehouse), inventory.Suggest)
			inv.GET("/:id", readers, inventory.Get)
			inv.POST("", warehouse, inventory.Create)
			inv.PATCH("/:id", warehouse, inventory.Update)
			inv.DELETE("/:id", warehouse, inventory.Delete)
			inv.POST("/:id/restock", warehouse, inventory.Restock)
		}

		po := protected.Group("/purchases")
		{
			readers := middleware.RequireRole(models.RolePurchasing, models.RoleWarehouse, models.RoleGatehouse)
			po.GET("", readers, purchases.List)
			po.GET("/:id", readers, purchases.Get)
			po.POST("", purchasing, purchases.Create)
			po.DELETE("/:id", purchasing, purchases.Delete)
			po.PATCH("/:id/status", purchasing, purchases.UpdateStatus)
			po.PATCH("/:id/invoice", purchasing, purchases.UpdateInvoice)
			po.POST("/:id/arrival", gatehouse, purchases.ConfirmArrival)
			po.POST("/:id/reception", warehouse, purchases.CompleteReception)
		}

		rr := protected.Group("/resource-requests")
		{
			rr.GET("", requests.ListResources)
			rr.GET("/:id", requests.GetResource)
			rr.POST("", requests.CreateResource)
			rr.POST("/:id/process", warehouse, requests.ProcessResource)
		}

		tickets := protected.Group("/support-tickets")
		{
			tickets.GET("", requests.ListTickets)
			tickets.GET("/:id", requests.GetTicket)
			tickets.POST("", requests.CreateTicket)
			tickets.POST("/:id/process", itAdmin, requests.ProcessTicket)
		}

		protected.GET("/sectors", admin.ListSectors)
		protected.POST("/sectors", itAdmin, admin.AddSector)
		protected.PUT("/sectors/:id", itAdmin, admin.UpdateSector)
		protected.DELETE("/sectors/:id", itAdmin, admin.RemoveSector)

		protected.GET("/extensions", admin.ListExtensions)
		protected.POST("/extensions", itAdmin, admin.AddExtension)
		protected.PUT("/extensions/:id", itAdmin, admin.UpdateExtensionEntry)
		protected.DELETE("/extensions/:id", itAdmin, admin.RemoveExtension)

		protected.GET("/equipment", admin.ListEquipment)
		protected.POST("/equipment", middleware.RequireRole(models.RoleITAdmin, models.RoleMaintenance), admin.AddEquipment)
		protected.DELETE("/equipment/:id", middleware.RequireRole(models.RoleITAdmin, models.RoleMaintenance), admin.RemoveEquipment)

		protected.GET("/guides", admin.ListGuides)
		protected.POST("/guides", middleware.RequireRole(models.RoleITAdmin, models.RoleMaintenance), admin.AddGuide)
		protected.DELETE("/guides/:id", middleware.RequireRole(models.RoleITAdmin, models.RoleMaintenance), admin.RemoveGuide)

		users := protected.Group("/admin/users", itAdmin)
		{
			users.GET("", admin.ListUsers)
			users.POST("", admin.CreateUser)
			users.GET("/:id", admin.GetUser)
			users.DELETE("/:id", admin.DeleteUser)
			users.PATCH("/:id/password", admin.UpdatePassword)
			users.PATCH("/:id/extension", admin.UpdateExtension)
			users.PUT("/:id/profile-image", admin.UpdateProfileImage)
		}

		snapshot := protected.Group("/snapshot", itAdmin)
		{
			snapshot.GET("", snapshots.Export)
			snapshot.POST("", snapshots.Import)
			snapshot.GET("/collections", snapshots.Collections)
			snapshot.POST("/backup", snapshots.Backup)
		}
	}
}
