package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"remesas/internal/logger"
	"remesas/internal/middleware"
	"remesas/internal/models"
	"remesas/internal/services"
)

// statusFor maps a domain error kind to its HTTP status.
func statusFor(k services.Kind) int {
	switch k {
	case services.KindValidation, services.KindExpired, services.KindMissingDocuments:
		return http.StatusBadRequest
	case services.KindAuthentication, services.KindInvalidCredentials:
		return http.StatusUnauthorized
	case services.KindAuthorization:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindAlreadyExists, services.KindInvalidTransition:
		return http.StatusConflict
	case services.KindRateLimited:
		return http.StatusTooManyRequests
	case services.KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {success:false,error} and logs server-side failures
// with their cause.
func respondError(c *gin.Context, op string, err error) {
	kind := services.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		logger.Error(op+" failed", logger.Err(err))
	} else {
		logger.Info(op+" rejected", logger.String("kind", kind.String()), logger.Err(err))
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "error": services.MessageOf(err)})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "error": msg})
}

// bindOptionalJSON binds a body that may be absent. Malformed JSON still
// answers 400.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Datos inválidos")
		return false
	}
	return true
}

// currentUser is the session user; routes guarantee it for protected paths.
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "Identificador inválido")
		return uuid.Nil, false
	}
	return id, true
}
