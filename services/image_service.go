package services

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/dutyfinder/dutyfinder-api/utils"
)

// ImageService uploads and resolves user profile pictures
type ImageService struct {
	storage ObjectStorage
}

// NewImageService wraps an object storage; storage may be nil when S3 is not configured
func NewImageService(storage ObjectStorage) *ImageService {
	return &ImageService{storage: storage}
}

// Enabled reports whether uploads can be served
func (s *ImageService) Enabled() bool {
	return s != nil && s.storage != nil
}

// UploadProfileImage validates the file and stores it under profiles/<user>/
func (s *ImageService) UploadProfileImage(ctx context.Context, userID string, fileHeader *multipart.FileHeader) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageDisabled
	}
	if err := utils.ValidateImageFile(fileHeader); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	key := fmt.Sprintf("profiles/%s/%d_%s", userID, time.Now().Unix(), filepath.Base(fileHeader.Filename))
	if err := s.storage.Put(ctx, key, "image/png", content); err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	return key, nil
}

// ImageURL returns a presigned url for key, or "" when there is nothing to show
func (s *ImageService) ImageURL(ctx context.Context, key string) (string, error) {
	if !s.Enabled() || key == "" {
		return "", nil
	}
	url, err := s.storage.PresignedURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate image URL: %w", err)
	}
	return url, nil
}

// DeleteImage removes a previous picture
func (s *ImageService) DeleteImage(ctx context.Context, key string) error {
	if !s.Enabled() || key == "" {
		return nil
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}
	return nil
}
