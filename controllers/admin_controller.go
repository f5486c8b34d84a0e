package controllers

import (
	"net/http"

	"github.com/dutyfinder/dutyfinder-api/middleware"
	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CreateUserRequest represents the user registration form
type CreateUserRequest struct {
	Username        string      `json:"username" binding:"required,min=3,max=64"`
	Password        string      `json:"password" binding:"required,min=4"`
	Name            string      `json:"name" binding:"required"`
	Role            models.Role `json:"role" binding:"omitempty,role"`
	HasPortalAccess bool        `json:"has_portal_access"`
	Extension       *string     `json:"extension"`
	SectorID        *string     `json:"sector_id"`
}

// UpdatePasswordRequest replaces a user's password
type UpdatePasswordRequest struct {
	Password string `json:"password" binding:"required,min=4"`
}

// UpdateExtensionRequest changes a user's phone extension; empty clears it
type UpdateExtensionRequest struct {
	Extension string `json:"extension"`
}

// SectorRequest adds or renames a sector
type SectorRequest struct {
	Name       string `json:"name" binding:"required"`
	CostCenter string `json:"cost_center"`
}

// ExtensionRequest adds or edits a directory entry
type ExtensionRequest struct {
	Name   string  `json:"name" binding:"required"`
	Number string  `json:"number" binding:"required,max=20"`
	Sector string  `json:"sector"`
	UserID *string `json:"user_id"`
}

// EquipmentRequest registers a machine or asset
type EquipmentRequest struct {
	Name        string  `json:"name" binding:"required"`
	Code        string  `json:"code"`
	SectorID    string  `json:"sector_id"`
	Location    string  `json:"location"`
	Description *string `json:"description"`
}

// GuideRequest adds a maintenance guide
type GuideRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// AdminController serves user management and reference data
type AdminController struct {
	admin *services.AdminService
	log   *zap.Logger
}

// NewAdminController creates the controller
func NewAdminController(svc *services.Services, log *zap.Logger) *AdminController {
	return &AdminController{admin: svc.Admin, log: log}
}

// ListUsers handles GET /api/v1/admin/users
func (ctl *AdminController) ListUsers(c *gin.Context) {
	users, err := ctl.admin.ListUsers(c.Request.Context())
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, users)
}

// CreateUser handles POST /api/v1/admin/users
func (ctl *AdminController) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	user, err := ctl.admin.CreateUser(c.Request.Context(), services.CreateUserInput{
		Username:        req.Username,
		Password:        req.Password,
		Name:            req.Name,
		Role:            req.Role,
		HasPortalAccess: req.HasPortalAccess,
		Extension:       req.Extension,
		SectorID:        req.SectorID,
	})
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, user)
}

// GetUser handles GET /api/v1/admin/users/:id
func (ctl *AdminController) GetUser(c *gin.Context) {
	user, err := ctl.admin.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// DeleteUser handles DELETE /api/v1/admin/users/:id
func (ctl *AdminController) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if current, err := middleware.GetUserID(c); err == nil && current == id {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "You cannot delete your own account")
		return
	}
	if err := ctl.admin.DeleteUser(c.Request.Context(), id); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "User deleted"})
}

// UpdatePassword handles PATCH /api/v1/admin/users/:id/password and PATCH /api/v1/users/me/password
func (ctl *AdminController) UpdatePassword(c *gin.Context) {
	id, ok := ctl.targetUser(c)
	if !ok {
		return
	}
	var req UpdatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := ctl.admin.UpdatePassword(c.Request.Context(), id, req.Password); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Password updated"})
}

// UpdateExtension handles PATCH /api/v1/admin/users/:id/extension and PATCH /api/v1/users/me/extension
func (ctl *AdminController) UpdateExtension(c *gin.Context) {
	id, ok := ctl.targetUser(c)
	if !ok {
		return
	}
	var req UpdateExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	user, err := ctl.admin.UpdateExtension(c.Request.Context(), id, req.Extension)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// UpdateProfileImage handles multipart PUT /api/v1/admin/users/:id/profile-image
// and PUT /api/v1/users/me/profile-image. The file field is "image".
func (ctl *AdminController) UpdateProfileImage(c *gin.Context) {
	id, ok := ctl.targetUser(c)
	if !ok {
		return
	}
	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "An image file is required")
		return
	}
	user, err := ctl.admin.UpdateProfileImage(c.Request.Context(), id, fileHeader)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// targetUser resolves :id, or the caller when the route has no :id
func (ctl *AdminController) targetUser(c *gin.Context) (string, bool) {
	if id := c.Param("id"); id != "" {
		return id, true
	}
	id, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return "", false
	}
	return id, true
}

// ListSectors handles GET /api/v1/sectors
func (ctl *AdminController) ListSectors(c *gin.Context) {
	sectors, err := ctl.admin.ListSectors(c.Request.Context())
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, sectors)
}

// AddSector handles POST /api/v1/sectors
func (ctl *AdminController) AddSector(c *gin.Context) {
	var req SectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	sector, err := ctl.admin.AddSector(c.Request.Context(), req.Name, req.CostCenter)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, sector)
}

// UpdateSector handles PUT /api/v1/sectors/:id
func (ctl *AdminController) UpdateSector(c *gin.Context) {
	var req SectorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	sector, err := ctl.admin.UpdateSector(c.Request.Context(), c.Param("id"), req.Name, req.CostCenter)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, sector)
}

// RemoveSector handles DELETE /api/v1/sectors/:id
func (ctl *AdminController) RemoveSector(c *gin.Context) {
	if err := ctl.admin.RemoveSector(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Sector removed"})
}

// ListExtensions handles GET /api/v1/extensions
func (ctl *AdminController) ListExtensions(c *gin.Context) {
	extensions, err := ctl.admin.ListExtensions(c.Request.Context())
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, extensions)
}

// AddExtension handles POST /api/v1/extensions
func (ctl *AdminController) AddExtension(c *gin.Context) {
	var req ExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ext := &models.Extension{Name: req.Name, Number: req.Number, Sector: req.Sector, UserID: req.UserID}
	if err := ctl.admin.AddExtension(c.Request.Context(), ext); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, ext)
}

// UpdateExtensionEntry handles PUT /api/v1/extensions/:id
func (ctl *AdminController) UpdateExtensionEntry(c *gin.Context) {
	var req ExtensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	ext, err := ctl.admin.UpdateExtensionEntry(c.Request.Context(), c.Param("id"), req.Name, req.Number, req.Sector)
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, ext)
}

// RemoveExtension handles DELETE /api/v1/extensions/:id
func (ctl *AdminController) RemoveExtension(c *gin.Context) {
	if err := ctl.admin.RemoveExtension(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Extension removed"})
}

// ListEquipment handles GET /api/v1/equipment?sector_id=
func (ctl *AdminController) ListEquipment(c *gin.Context) {
	equipment, err := ctl.admin.ListEquipment(c.Request.Context(), c.Query("sector_id"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, equipment)
}

// AddEquipment handles POST /api/v1/equipment
func (ctl *AdminController) AddEquipment(c *gin.Context) {
	var req EquipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	eq := &models.Equipment{
		Name:        req.Name,
		Code:        req.Code,
		SectorID:    req.SectorID,
		Location:    req.Location,
		Description: req.Description,
	}
	if err := ctl.admin.AddEquipment(c.Request.Context(), eq); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, eq)
}

// RemoveEquipment handles DELETE /api/v1/equipment/:id
func (ctl *AdminController) RemoveEquipment(c *gin.Context) {
	if err := ctl.admin.RemoveEquipment(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Equipment removed"})
}

// ListGuides handles GET /api/v1/guides?category=
func (ctl *AdminController) ListGuides(c *gin.Context) {
	guides, err := ctl.admin.ListGuides(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, guides)
}

// AddGuide handles POST /api/v1/guides
func (ctl *AdminController) AddGuide(c *gin.Context) {
	var req GuideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	guide := &models.MaintenanceGuide{Title: req.Title, Content: req.Content, Category: req.Category}
	if claims, err := middleware.GetCustomClaims(c); err == nil {
		guide.AuthorName = claims.Name
	}
	if err := ctl.admin.AddGuide(c.Request.Context(), guide); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusCreated, guide)
}

// RemoveGuide handles DELETE /api/v1/guides/:id
func (ctl *AdminController) RemoveGuide(c *gin.Context) {
	if err := ctl.admin.RemoveGuide(c.Request.Context(), c.Param("id")); err != nil {
		respondServiceError(c, ctl.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Guide removed"})
}
