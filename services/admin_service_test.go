package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seeded, err := env.svc.Admin.SeedAdmin(ctx, "s3cret")
	require.NoError(t, err)
	assert.True(t, seeded)

	seeded, err = env.svc.Admin.SeedAdmin(ctx, "other")
	require.NoError(t, err)
	assert.False(t, seeded)

	users, err := env.svc.Admin.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Username)
	assert.Equal(t, models.RoleSuperAdmin, users[0].Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].PasswordHash), []byte("s3cret")))
}

func TestCreateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Admin.CreateUser(ctx, CreateUserInput{Username: " maria ", Password: "pass1234", Name: "Maria", Role: models.RoleWarehouse})
	require.NoError(t, err)
	assert.Equal(t, "maria", user.Username)
	assert.NotEqual(t, "pass1234", user.PasswordHash)

	defaulted, err := env.svc.Admin.CreateUser(ctx, CreateUserInput{Username: "joe", Password: "pass", Name: "Joe"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, defaulted.Role)

	_, err = env.svc.Admin.CreateUser(ctx, CreateUserInput{Username: "maria", Password: "pass1234", Name: "Other"})
	assert.ErrorIs(t, err, ErrConflict)

	tests := []struct {
		name  string
		input CreateUserInput
		field string
	}{
		{"no username", CreateUserInput{Password: "pass", Name: "x"}, "username"},
		{"no name", CreateUserInput{Username: "x", Password: "pass"}, "name"},
		{"short password", CreateUserInput{Username: "x", Password: "abc", Name: "x"}, "password"},
		{"unknown role", CreateUserInput{Username: "x", Password: "pass", Name: "x", Role: "JANITOR"}, "role"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Admin.CreateUser(ctx, tt.input)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestUpdateUserFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Admin.CreateUser(ctx, CreateUserInput{Username: "tech", Password: "pass", Name: "Tech"})
	require.NoError(t, err)

	require.NoError(t, env.svc.Admin.UpdatePassword(ctx, user.ID, "newpass"))
	_, err = env.svc.Auth.Login(ctx, "tech", "newpass")
	assert.NoError(t, err)
	_, err = env.svc.Auth.Login(ctx, "tech", "pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	updated, err := env.svc.Admin.UpdateExtension(ctx, user.ID, " 2044 ")
	require.NoError(t, err)
	require.NotNil(t, updated.Extension)
	assert.Equal(t, "2044", *updated.Extension)

	cleared, err := env.svc.Admin.UpdateExtension(ctx, user.ID, "")
	require.NoError(t, err)
	assert.Nil(t, cleared.Extension)

	assert.ErrorIs(t, env.svc.Admin.UpdatePassword(ctx, "missing", "newpass"), ErrNotFound)

	require.NoError(t, env.svc.Admin.DeleteUser(ctx, user.ID))
	_, err = env.svc.Admin.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfileImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, err := env.svc.Admin.CreateUser(ctx, CreateUserInput{Username: "pic", Password: "pass", Name: "Pic"})
	require.NoError(t, err)

	updated, err := env.svc.Admin.UpdateProfileImage(ctx, user.ID, uploadedFile(t, "me.png", pngSignature))
	require.NoError(t, err)
	require.NotNil(t, updated.ProfileImageKey)
	assert.True(t, strings.HasPrefix(*updated.ProfileImageKey, "profiles/"+user.ID+"/"))
	require.NotNil(t, updated.ProfileImageURL)
	assert.Contains(t, *updated.ProfileImageURL, *updated.ProfileImageKey)

	stored, ok := env.storage.Object(*updated.ProfileImageKey)
	require.True(t, ok)
	assert.Equal(t, pngSignature, stored)

	_, err = env.svc.Admin.UpdateProfileImage(ctx, user.ID, uploadedFile(t, "me.jpg", pngSignature))
	var uploadErr *utils.FileUploadError
	require.True(t, errors.As(err, &uploadErr))
	assert.Equal(t, "INVALID_FILE_FORMAT", uploadErr.Code)
}

func TestProfileImageWithoutStorage(t *testing.T) {
	env := newTestEnv(t)
	admin := NewAdminService(env.db, env.bus, NewImageService(nil), env.svc.Admin.logger)

	user, err := admin.CreateUser(context.Background(), CreateUserInput{Username: "nos3", Password: "pass", Name: "No S3"})
	require.NoError(t, err)

	_, err = admin.UpdateProfileImage(context.Background(), user.ID, uploadedFile(t, "me.png", pngSignature))
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestReferenceData(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	sector, err := env.svc.Admin.AddSector(ctx, "Production", "CC-100")
	require.NoError(t, err)
	_, err = env.svc.Admin.AddSector(ctx, "Production", "CC-200")
	assert.ErrorIs(t, err, ErrConflict)

	renamed, err := env.svc.Admin.UpdateSector(ctx, sector.ID, "Production Line", "CC-101")
	require.NoError(t, err)
	assert.Equal(t, "Production Line", renamed.Name)
	_, err = env.svc.Admin.UpdateSector(ctx, "missing", "X", "")
	assert.ErrorIs(t, err, ErrNotFound)

	ext := &models.Extension{Name: "Reception", Number: "100", Sector: "Lobby"}
	require.NoError(t, env.svc.Admin.AddExtension(ctx, ext))
	updatedExt, err := env.svc.Admin.UpdateExtensionEntry(ctx, ext.ID, "Front desk", "101", "Lobby")
	require.NoError(t, err)
	assert.Equal(t, "101", updatedExt.Number)
	assert.Error(t, env.svc.Admin.AddExtension(ctx, &models.Extension{Name: "No number"}))

	eq := &models.Equipment{Name: "Press 1", SectorID: sector.ID}
	require.NoError(t, env.svc.Admin.AddEquipment(ctx, eq))
	require.NoError(t, env.svc.Admin.AddEquipment(ctx, &models.Equipment{Name: "Lathe", SectorID: "other"}))
	inSector, err := env.svc.Admin.ListEquipment(ctx, sector.ID)
	require.NoError(t, err)
	require.Len(t, inSector, 1)
	assert.Equal(t, "Press 1", inSector[0].Name)

	guide := &models.MaintenanceGuide{Title: "Lubrication plan", Category: "mechanical"}
	require.NoError(t, env.svc.Admin.AddGuide(ctx, guide))
	guides, err := env.svc.Admin.ListGuides(ctx, "mechanical")
	require.NoError(t, err)
	assert.Len(t, guides, 1)

	require.NoError(t, env.svc.Admin.RemoveGuide(ctx, guide.ID))
	require.NoError(t, env.svc.Admin.RemoveEquipment(ctx, eq.ID))
	require.NoError(t, env.svc.Admin.RemoveExtension(ctx, ext.ID))
	require.NoError(t, env.svc.Admin.RemoveSector(ctx, sector.ID))
	assert.ErrorIs(t, env.svc.Admin.RemoveSector(ctx, sector.ID), ErrNotFound)
}
