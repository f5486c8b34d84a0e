package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/dutyfinder/dutyfinder-api/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondList(c *gin.Context, data interface{}, page, limit int, total int64) {
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       data,
		"pagination": utils.NewPagination(page, limit, total),
	})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "VALIDATION_ERROR",
			"message": "Invalid request data",
			"details": err.Error(),
		},
	})
}

// respondServiceError maps service errors to the JSON error envelope
func respondServiceError(c *gin.Context, log *zap.Logger, err error) {
	var (
		notFound   *services.NotFoundError
		stockErr   *services.InsufficientStockError
		validation *services.ValidationError
		uploadErr  *utils.FileUploadError
	)

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": validation.Error(),
				"details": gin.H{"field": validation.Field},
			},
		})
	case errors.As(err, &uploadErr):
		respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
	case errors.As(err, &notFound):
		respondError(c, http.StatusNotFound, notFound.Entity+"_NOT_FOUND", notFound.Error())
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INSUFFICIENT_STOCK",
				"message": stockErr.Error(),
				"details": gin.H{
					"item_id":   stockErr.ItemID,
					"item_name": stockErr.ItemName,
					"requested": stockErr.Requested,
					"available": stockErr.Available,
				},
			},
		})
	case errors.Is(err, services.ErrRequestNotPending):
		respondError(c, http.StatusConflict, "REQUEST_NOT_PENDING", err.Error())
	case errors.Is(err, services.ErrNotArrived):
		respondError(c, http.StatusConflict, "PURCHASE_NOT_ARRIVED", err.Error())
	case errors.Is(err, services.ErrInvalidTransition):
		respondError(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, services.ErrConflict):
		respondError(c, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, services.ErrNoteRequired):
		respondError(c, http.StatusBadRequest, "NOTE_REQUIRED", err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password")
	case errors.Is(err, services.ErrStorageDisabled):
		respondError(c, http.StatusServiceUnavailable, "STORAGE_DISABLED", "Object storage is not configured")
	default:
		log.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		respondError(c, http.StatusInternalServerError, "DATABASE_ERROR", "An internal error occurred")
	}
}

// pageParams reads ?page= and ?limit=; invalid values fall back to the defaults
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	return utils.NormalizePage(page, limit)
}
