package controllers

import (
	"fmt"

	"github.com/dutyfinder/dutyfinder-api/models"
	"github.com/dutyfinder/dutyfinder-api/services"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators installs the domain binding tags on gin's validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	rules := map[string]validator.Func{
		"priority":       isPriority,
		"wostatus":       isWorkOrderStatus,
		"purchasestatus": isPurchaseStatus,
		"role":           isRole,
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

func isPriority(fl validator.FieldLevel) bool {
	return services.IsValidPriority(models.Priority(fl.Field().String()))
}

func isWorkOrderStatus(fl validator.FieldLevel) bool {
	return services.IsValidWorkOrderStatus(models.WorkOrderStatus(fl.Field().String()))
}

func isPurchaseStatus(fl validator.FieldLevel) bool {
	return services.IsValidPurchaseStatus(models.PurchaseStatus(fl.Field().String()))
}

func isRole(fl validator.FieldLevel) bool {
	return models.Role(fl.Field().String()).IsValid()
}
