package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const msgSaveFailed = "could not save changes, please try again"

// statusFor maps service errors to HTTP codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// userMessage is the text shown to the user; internal failures get a generic one
func userMessage(err error) string {
	var rule *service.RuleError
	if errors.As(err, &rule) {
		return rule.Message
	}
	return msgSaveFailed
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusServiceUnavailable {
		h.logger.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": userMessage(err)})
}

// respondResult writes the {success, data|error} envelope used by pricing and admin forms
func (h *Handler) respondResult(c *gin.Context, status int, data interface{}, err error) {
	if err != nil {
		errStatus := statusFor(err)
		if errStatus == http.StatusInternalServerError {
			h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		c.JSON(errStatus, gin.H{"success": false, "error": userMessage(err)})
		return
	}
	c.JSON(status, gin.H{"success": true, "data": data})
}

// respondValidationError reports binding failures field by field
func respondValidationError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			field := lowerCamel(fieldError.Field())
			switch fieldError.Tag() {
			case "required":
				details = append(details, fmt.Sprintf("%s is required", field))
			default:
				details = append(details, fmt.Sprintf("%s is invalid", field))
			}
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation failed",
			"details": details,
		})
		return
	}

	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
}

func lowerCamel(field string) string {
	if field == "" {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}
