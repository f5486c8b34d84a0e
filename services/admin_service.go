package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/utils"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 4

// CreateUserInput is the admin panel's new user form
type CreateUserInput struct {
	Username        string
	Password        string
	Name            string
	Role            models.Role
	HasPortalAccess bool
	Extension       *string
	SectorID        *string
}

// AdminService manages users and the plant's reference data
type AdminService struct {
	db     *gorm.DB
	bus    *EventBus
	images *ImageService
	logger *zap.Logger
}

// NewAdminService creates the service
func NewAdminService(db *gorm.DB, bus *EventBus, images *ImageService, logger *zap.Logger) *AdminService {
	return &AdminService{db: db, bus: bus, images: images, logger: logger}
}

// HashPassword returns the bcrypt hash of a password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// SeedAdmin creates the SUPER_ADMIN account when there are no users at all
func (s *AdminService) SeedAdmin(ctx context.Context, password string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if _, err := s.CreateUser(ctx, CreateUserInput{
		Username:        "admin",
		Password:        password,
		Name:            "Administrator",
		Role:            models.RoleSuperAdmin,
		HasPortalAccess: true,
	}); err != nil {
		return false, fmt.Errorf("failed to seed admin user: %w", err)
	}
	s.logger.Warn("Seeded default admin user, change its password")
	return true, nil
}

// CreateUser stores a new account with a bcrypt password hash
func (s *AdminService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, invalid("username", "is required")
	}
	if utils.IsBlank(in.Name) {
		return nil, invalid("name", "is required")
	}
	if len(in.Password) < minPasswordLength {
		return nil, invalid("password", fmt.Sprintf("must have at least %d characters", minPasswordLength))
	}
	if in.Role == "" {
		in.Role = models.RoleUser
	}
	if !in.Role.IsValid() {
		return nil, invalid("role", fmt.Sprintf("unknown role %q", in.Role))
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:        username,
		PasswordHash:    hash,
		Name:            strings.TrimSpace(in.Name),
		Role:            in.Role,
		HasPortalAccess: in.HasPortalAccess,
		Extension:       in.Extension,
		SectorID:        in.SectorID,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: username %s", ErrConflict, username)
		}
		return nil, err
	}

	s.logger.Info("User created", zap.String("user_id", user.ID), zap.String("username", user.Username), zap.String("role", string(user.Role)))
	s.bus.Publish(Event{Type: EventAdminChanged, EntityID: user.ID, Action: "user_created"})
	return user, nil
}

// ListUsers returns every user ordered by name, with profile image urls resolved
func (s *AdminService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	for i := range users {
		s.resolveImage(ctx, &users[i])
	}
	return users, nil
}

// GetUser loads one user
func (s *AdminService) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("USER", id)
		}
		return nil, err
	}
	s.resolveImage(ctx, &user)
	return &user, nil
}

func (s *AdminService) resolveImage(ctx context.Context, user *models.User) {
	if user.ProfileImageKey == nil {
		return
	}
	url, err := s.images.ImageURL(ctx, *user.ProfileImageKey)
	if err != nil {
		s.logger.Warn("Failed to resolve profile image", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	if url != "" {
		user.ProfileImageURL = &url
	}
}

// DeleteUser removes an account
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return err
	}
	if user.ProfileImageKey != nil {
		if err := s.images.DeleteImage(ctx, *user.ProfileImageKey); err != nil {
			s.logger.Warn("Failed to delete profile image", zap.String("user_id", id), zap.Error(err))
		}
	}
	s.logger.Info("User deleted", zap.String("user_id", id))
	s.bus.Publish(Event{Type: EventAdminChanged, EntityID: id, Action: "user_deleted"})
	return nil
}

// UpdatePassword replaces a user's password hash
func (s *AdminService) UpdatePassword(ctx context.Context, id, password string) error {
	if len(password) < minPasswordLength {
		return invalid("password", fmt.Sprintf("must have at least %d characters", minPasswordLength))
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return s.updateUserColumn(ctx, id, "password_hash", hash, "password_changed")
}

// UpdateExtension sets the phone extension shown in the directory
func (s *AdminService) UpdateExtension(ctx context.Context, id, extension string) (*models.User, error) {
	var value interface{}
	if !utils.IsBlank(extension) {
		value = strings.TrimSpace(extension)
	}
	if err := s.updateUserColumn(ctx, id, "extension", value, "extension_changed"); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

// UpdateProfileImage uploads a PNG and replaces the previous picture
func (s *AdminService) UpdateProfileImage(ctx context.Context, id string, fileHeader *multipart.FileHeader) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	key, err := s.images.UploadProfileImage(ctx, id, fileHeader)
	if err != nil {
		return nil, err
	}
	if err := s.updateUserColumn(ctx, id, "profile_image_key", key, "profile_image_changed"); err != nil {
		return nil, err
	}
	if user.ProfileImageKey != nil && *user.ProfileImageKey != key {
		if err := s.images.DeleteImage(ctx, *user.ProfileImageKey); err != nil {
			s.logger.Warn("Failed to delete previous profile image", zap.String("user_id", id), zap.Error(err))
		}
	}
	return s.GetUser(ctx, id)
}

func (s *AdminService) updateUserColumn(ctx context.Context, id, column string, value interface{}, action string) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound("USER", id)
	}
	s.bus.Publish(Event{Type: EventAdminChanged, EntityID: id, Action: action})
	return nil
}

// ListSectors returns every sector ordered by name
func (s *AdminService) ListSectors(ctx context.Context) ([]models.Sector, error) {
	var sectors []models.Sector
	err := s.db.WithContext(ctx).Order("name ASC").Find(&sectors).Error
	return sectors, err
}

// AddSector creates a sector
func (s *AdminService) AddSector(ctx context.Context, name, costCenter string) (*models.Sector, error) {
	if utils.IsBlank(name) {
		return nil, invalid("name", "is required")
	}
	sector := &models.Sector{Name: strings.TrimSpace(name), CostCenter: strings.TrimSpace(costCenter)}
	if err := s.create(ctx, sector, "sector_created"); err != nil {
		return nil, err
	}
	return sector, nil
}

// UpdateSector renames a sector or changes its cost center
func (s *AdminService) UpdateSector(ctx context.Context, id, name, costCenter string) (*models.Sector, error) {
	if utils.IsBlank(name) {
		return nil, invalid("name", "is required")
	}
	if err := s.update(ctx, &models.Sector{}, "SECTOR", id, map[string]interface{}{
		"name":        strings.TrimSpace(name),
		"cost_center": strings.TrimSpace(costCenter),
	}, "sector_updated"); err != nil {
		return nil, err
	}
	var sector models.Sector
	err := s.db.WithContext(ctx).First(&sector, "id = ?", id).Error
	return &sector, err
}

// RemoveSector deletes a sector
func (s *AdminService) RemoveSector(ctx context.Context, id string) error {
	return s.remove(ctx, &models.Sector{}, "SECTOR", id, "sector_removed")
}

// ListExtensions returns the phone directory ordered by name
func (s *AdminService) ListExtensions(ctx context.Context) ([]models.Extension, error) {
	var extensions []models.Extension
	err := s.db.WithContext(ctx).Order("name ASC").Find(&extensions).Error
	return extensions, err
}

// AddExtension adds a directory entry
func (s *AdminService) AddExtension(ctx context.Context, ext *models.Extension) error {
	if utils.IsBlank(ext.Name) {
		return invalid("name", "is required")
	}
	if utils.IsBlank(ext.Number) {
		return invalid("number", "is required")
	}
	ext.ID = ""
	return s.create(ctx, ext, "extension_created")
}

// UpdateExtensionEntry edits a directory entry
func (s *AdminService) UpdateExtensionEntry(ctx context.Context, id, name, number, sector string) (*models.Extension, error) {
	if utils.IsBlank(name) || utils.IsBlank(number) {
		return nil, invalid("", "name and number are required")
	}
	if err := s.update(ctx, &models.Extension{}, "EXTENSION", id, map[string]interface{}{
		"name":   strings.TrimSpace(name),
		"number": strings.TrimSpace(number),
		"sector": strings.TrimSpace(sector),
	}, "extension_updated"); err != nil {
		return nil, err
	}
	var ext models.Extension
	err := s.db.WithContext(ctx).First(&ext, "id = ?", id).Error
	return &ext, err
}

// RemoveExtension deletes a directory entry
func (s *AdminService) RemoveExtension(ctx context.Context, id string) error {
	return s.remove(ctx, &models.Extension{}, "EXTENSION", id, "extension_removed")
}

// ListEquipment returns the equipment register, optionally for one sector
func (s *AdminService) ListEquipment(ctx context.Context, sectorID string) ([]models.Equipment, error) {
	query := s.db.WithContext(ctx).Order("name ASC")
	if sectorID != "" {
		query = query.Where("sector_id = ?", sectorID)
	}
	var equipment []models.Equipment
	err := query.Find(&equipment).Error
	return equipment, err
}

// AddEquipment registers a machine
func (s *AdminService) AddEquipment(ctx context.Context, eq *models.Equipment) error {
	if utils.IsBlank(eq.Name) {
		return invalid("name", "is required")
	}
	eq.ID = ""
	return s.create(ctx, eq, "equipment_created")
}

// RemoveEquipment deletes a machine
func (s *AdminService) RemoveEquipment(ctx context.Context, id string) error {
	return s.remove(ctx, &models.Equipment{}, "EQUIPMENT", id, "equipment_removed")
}

// ListGuides returns maintenance guides, newest first
func (s *AdminService) ListGuides(ctx context.Context, category string) ([]models.MaintenanceGuide, error) {
	query := s.db.WithContext(ctx).Order("created_at DESC")
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var guides []models.MaintenanceGuide
	err := query.Find(&guides).Error
	return guides, err
}

// AddGuide publishes a guide
func (s *AdminService) AddGuide(ctx context.Context, guide *models.MaintenanceGuide) error {
	if utils.IsBlank(guide.Title) {
		return invalid("title", "is required")
	}
	guide.ID = ""
	return s.create(ctx, guide, "guide_created")
}

// RemoveGuide deletes a guide
func (s *AdminService) RemoveGuide(ctx context.Context, id string) error {
	return s.remove(ctx, &models.MaintenanceGuide{}, "GUIDE", id, "guide_removed")
}

func (s *AdminService) create(ctx context.Context, value interface{}, action string) error {
	if err := s.db.WithContext(ctx).Create(value).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return err
	}
	s.bus.Publish(Event{Type: EventAdminChanged, Action: action})
	return nil
}

func (s *AdminService) update(ctx context.Context, model interface{}, entity, id string, updates map[string]interface{}, action string) error {
	result := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		if isUniqueViolation(result.Error) {
			return fmt.Errorf("%w: %v", ErrConflict, result.Error)
		}
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(entity, id)
	}
	s.bus.Publish(Event{Type: EventAdminChanged, EntityID: id, Action: action})
	return nil
}

func (s *AdminService) remove(ctx context.Context, model interface{}, entity, id, action string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFound(entity, id)
	}
	s.bus.Publish(Event{Type: EventAdminChanged, EntityID: id, Action: action})
	return nil
}
