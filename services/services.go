package services

import (
	"github.com/dutyfinder/dutyfinder-api/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies are the infrastructure pieces built in main
type Dependencies struct {
	DB      *gorm.DB
	Config  *config.Config
	Logger  *zap.Logger
	Bus     *EventBus
	Cache   Cache         // nil without redis
	Storage ObjectStorage // nil without S3
}

// Services is the state holder handed to every controller
type Services struct {
	WorkOrders       *WorkOrderService
	MaterialRequests *MaterialRequestService
	Inventory        *InventoryService
	Purchases        *PurchaseService
	ResourceRequests *ResourceRequestService
	SupportTickets   *SupportTicketService
	Admin            *AdminService
	Auth             *AuthService
	Snapshots        *SnapshotService
	Dashboard        *DashboardService
	Reports          *ReportService
	Images           *ImageService
	Backups          *BackupWorker
	Events           *EventBus
	Hub              *SSEHub
}

// New wires every service and subscribes the cache and the SSE hub to change events
func New(deps Dependencies) *Services {
	log := deps.Logger
	images := NewImageService(deps.Storage)
	snapshots := NewSnapshotService(deps.DB, deps.Bus, log)

	s := &Services{
		WorkOrders:       NewWorkOrderService(deps.DB, deps.Bus, log),
		MaterialRequests: NewMaterialRequestService(deps.DB, deps.Bus, log),
		Inventory:        NewInventoryService(deps.DB, deps.Bus, log),
		Purchases:        NewPurchaseService(deps.DB, deps.Bus, log),
		ResourceRequests: NewResourceRequestService(deps.DB, deps.Bus, log),
		SupportTickets:   NewSupportTicketService(deps.DB, deps.Bus, log),
		Admin:            NewAdminService(deps.DB, deps.Bus, images, log),
		Auth:             NewAuthService(deps.DB, deps.Config.JWTSecret, deps.Config.JWTTTL, log),
		Snapshots:        snapshots,
		Dashboard:        NewDashboardService(deps.DB, deps.Cache, log),
		Reports:          NewReportService(deps.DB, log),
		Images:           images,
		Backups:          NewBackupWorker(snapshots, deps.Storage, deps.Config.BackupInterval, log),
		Events:           deps.Bus,
		Hub:              NewSSEHub(log),
	}

	deps.Bus.SubscribeAll(s.Dashboard.Invalidate)
	deps.Bus.SubscribeAll(s.Hub.HandleEvent)
	return s
}
