package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/kizunalab/machiba/internal/api/shared/errors"
	"github.com/kizunalab/machiba/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, errors.NewBadRequestError(message, details...))
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, errors.NewNotFoundError(message, details...))
}

// respondValidationError responds with a validation error
func respondValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusUnprocessableEntity, errors.NewValidationError(message))
}

// respondConflict responds with a conflict error
func respondConflict(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusConflict, errors.NewConflictError(message, details...))
}

// respondUnauthorized responds with an unauthorized error
func respondUnauthorized(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusUnauthorized, errors.NewUnauthorizedError(message, details...))
}

// respondInternalError responds with an internal server error. The
// underlying error is logged server-side only.
func respondInternalError(c *gin.Context, err error, message string, details ...string) {
	logger.ErrorCtx(c.Request.Context(), err,
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)
	c.JSON(http.StatusInternalServerError, errors.NewInternalError(message, details...))
}

// respondAPIError maps a validation error to its HTTP status
func respondAPIError(c *gin.Context, err error) {
	apiErr, ok := err.(*errors.APIError)
	if !ok {
		respondInternalError(c, err, "Unexpected error")
		return
	}

	switch apiErr.Code {
	case errors.ErrCodeBadRequest:
		c.JSON(http.StatusBadRequest, apiErr)
	case errors.ErrCodeValidationFailed:
		c.JSON(http.StatusUnprocessableEntity, apiErr)
	case errors.ErrCodeNotFound:
		c.JSON(http.StatusNotFound, apiErr)
	case errors.ErrCodeUnauthorized:
		c.JSON(http.StatusUnauthorized, apiErr)
	case errors.ErrCodeForbidden:
		c.JSON(http.StatusForbidden, apiErr)
	case errors.ErrCodeConflict:
		c.JSON(http.StatusConflict, apiErr)
	case errors.ErrCodePayloadTooLarge:
		c.JSON(http.StatusRequestEntityTooLarge, apiErr)
	default:
		c.JSON(http.StatusInternalServerError, apiErr)
	}
}
