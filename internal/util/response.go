package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/unify/internal/errors"
	"github.com/zfogg/unify/internal/logger"
	"go.uber.org/zap"
)

// RespondWithAPIError renders apiErr as JSON and logs it by severity
func RespondWithAPIError(c *gin.Context, apiErr *errors.APIError) {
	fields := []zap.Field{
		zap.String("code", string(apiErr.Code)),
		zap.String("message", apiErr.Message),
		zap.String("path", c.FullPath()),
		logger.WithStatus(apiErr.Status),
	}
	if apiErr.Field != "" {
		fields = append(fields, zap.String("field", apiErr.Field))
	}
	switch {
	case apiErr.Status >= http.StatusInternalServerError:
		logger.Log.Error("API error", fields...)
	case apiErr.Status >= http.StatusBadRequest:
		logger.Log.Warn("API error", fields...)
	}
	c.AbortWithStatusJSON(apiErr.Status, apiErr)
}

func RespondUnauthorized(c *gin.Context, message ...string) {
	RespondWithAPIError(c, errors.Unauthorized(firstOr(message, "Unauthorized")))
}

// RespondNotFound answers 404 "<resource> not found"
func RespondNotFound(c *gin.Context, resource string) {
	RespondWithAPIError(c, errors.NotFound(resource))
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.BadRequest(message))
}

func RespondForbidden(c *gin.Context, message ...string) {
	RespondWithAPIError(c, errors.Forbidden(firstOr(message, "Forbidden")))
}

// RespondGone answers 410 for resources that expired
func RespondGone(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.Gone(message))
}

func RespondConflict(c *gin.Context, message string) {
	RespondWithAPIError(c, errors.Conflict(message))
}

func RespondValidationError(c *gin.Context, field, message string) {
	RespondWithAPIError(c, errors.ValidationError(field, message))
}

// RespondInternalError answers 500. err is logged but never sent to the client.
func RespondInternalError(c *gin.Context, message string, err ...error) {
	if len(err) > 0 && err[0] != nil {
		logger.Log.Error(message, zap.Error(err[0]), zap.String("path", c.FullPath()))
	}
	RespondWithAPIError(c, errors.InternalError(message))
}

func RespondServiceUnavailable(c *gin.Context, service string) {
	RespondWithAPIError(c, errors.ServiceUnavailable(service))
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 && values[0] != "" {
		return values[0]
	}
	return fallback
}
