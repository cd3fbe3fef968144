package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/patient"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/extraction"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/handler/middleware"
	"github.com/dmehra2102/prod-golang-projects/cleftcare/internal/service"
)

type APIResponse[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type ValidationErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse[any]{Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, APIResponse[any]{Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		c.JSON(http.StatusBadRequest, ValidationErrorResponse{
			Error:  "validation failed",
			Fields: validErr.Fields,
		})
		return
	}

	var apiErr *extraction.APIError
	if errors.As(err, &apiErr) {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "extraction service error", Code: "EXTRACTION_FAILED"})
		return
	}

	switch {
	case errors.Is(err, visit.ErrVisitNotFound),
		errors.Is(err, patient.ErrProfileNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})

	case errors.Is(err, patient.ErrPatientIDMissing),
		errors.Is(err, patient.ErrNameRequired),
		errors.Is(err, visit.ErrEmptyImportBatch),
		errors.Is(err, extraction.ErrNoImages),
		errors.Is(err, service.ErrUnsupportedFormat):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})

	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrAccountInactive):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "access denied"})

	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})

	case errors.Is(err, service.ErrAccountLocked):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "account temporarily locked",
			Code:  "ACCOUNT_LOCKED",
		})

	case errors.Is(err, extraction.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "extraction quota exhausted on every API key, try again later",
			Code:  "EXTRACTION_QUOTA",
		})

	case errors.Is(err, service.ErrExtractionDisabled),
		errors.Is(err, extraction.ErrNoAPIKey):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "photo extraction is not available", Code: "EXTRACTION_DISABLED"})

	case errors.Is(err, extraction.ErrEmptyResponse),
		errors.Is(err, extraction.ErrMalformedResponse):
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: err.Error(), Code: "EXTRACTION_FAILED"})

	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request: " + err.Error()})
		return false
	}

	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid " + param + ": must be a valid UUID"})
		return uuid.Nil, false
	}
	return id, true
}

// actor builds the service caller from the authenticated request.
func actor(c *gin.Context) service.Actor {
	a := service.Actor{IP: c.ClientIP(), RequestID: middleware.GetRequestID(c)}
	if claims, ok := middleware.GetClaims(c); ok {
		a.UserID = claims.UserID
		a.Role = claims.Role
	}
	return a
}
